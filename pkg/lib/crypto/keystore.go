package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

// ============================================================================
//                              密钥文件格式
// ============================================================================

// 密钥文件格式：
//
//   ┌────────────────────────────────────────────────────────────┐
//   │  Magic:     "EXITMARKER-KEY"  (14 bytes)                   │
//   │  Version:   uint8                                           │
//   │  Algorithm: uint8 (1=Ed25519, 2=P-256)                      │
//   │  Encrypted: uint8 (0=否, 1=是)                              │
//   │  Data:      密钥数据或加密数据                               │
//   └────────────────────────────────────────────────────────────┘
//
//   加密数据格式：salt(16) || nonce(12) || AES-GCM 密文

const (
	keyFileMagic   = "EXITMARKER-KEY"
	keyFileVersion = 1

	saltSize  = 16
	nonceSize = 12

	// Argon2id 参数
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

// algorithmCode 密钥文件中的算法编码
func algorithmCode(alg Algorithm) (byte, error) {
	switch alg {
	case AlgorithmEd25519:
		return 1, nil
	case AlgorithmP256:
		return 2, nil
	default:
		return 0, ErrBadKeyType
	}
}

func algorithmFromCode(code byte) (Algorithm, error) {
	switch code {
	case 1:
		return AlgorithmEd25519, nil
	case 2:
		return AlgorithmP256, nil
	default:
		return AlgorithmUnknown, fmt.Errorf("%w: unknown algorithm code %d", ErrInvalidKeyFile, code)
	}
}

// ============================================================================
//                              Keystore 接口
// ============================================================================

// Keystore 密钥存储接口
//
// id 通常是密钥对应的 DID。
type Keystore interface {
	Has(id string) (bool, error)
	Put(id string, key PrivateKey) error
	Get(id string) (PrivateKey, error)
	Delete(id string) error
	List() ([]string, error)
}

// ============================================================================
//                              文件系统密钥存储
// ============================================================================

// FSKeystore 基于文件系统的密钥存储
type FSKeystore struct {
	dir      string
	password []byte
}

// NewFSKeystore 创建文件系统密钥存储
//
// 参数：
//   - dir: 存储目录
//   - password: 加密密码（为空则明文存储）
func NewFSKeystore(dir string, password []byte) (*FSKeystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	pw := make([]byte, len(password))
	copy(pw, password)
	return &FSKeystore{dir: dir, password: pw}, nil
}

// Has 检查是否存在指定 ID 的密钥
func (ks *FSKeystore) Has(id string) (bool, error) {
	_, err := os.Stat(ks.keyPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Put 存储密钥，已存在时返回 ErrKeyExists
func (ks *FSKeystore) Put(id string, key PrivateKey) error {
	if key == nil {
		return ErrNilPrivateKey
	}
	exists, err := ks.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyExists
	}

	data, err := ks.encodeKey(key)
	if err != nil {
		return err
	}
	return atomicWriteFile(ks.keyPath(id), data, 0600)
}

// Get 获取密钥
func (ks *FSKeystore) Get(id string) (PrivateKey, error) {
	data, err := os.ReadFile(ks.keyPath(id))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer SecureZero(data)

	return ks.decodeKey(data)
}

// Delete 删除密钥
func (ks *FSKeystore) Delete(id string) error {
	err := os.Remove(ks.keyPath(id))
	if os.IsNotExist(err) {
		return ErrKeyNotFound
	}
	return err
}

// List 列出所有密钥 ID
func (ks *FSKeystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".key" {
			continue
		}
		ids = append(ids, strings.ReplaceAll(strings.TrimSuffix(name, ".key"), "_", ":"))
	}
	return ids, nil
}

// Close 擦除内存中的密码
func (ks *FSKeystore) Close() error {
	SecureZero(ks.password)
	ks.password = nil
	return nil
}

// keyPath 返回密钥文件路径，DID 中的 ':' 替换为 '_'
func (ks *FSKeystore) keyPath(id string) string {
	return filepath.Join(ks.dir, strings.ReplaceAll(id, ":", "_")+".key")
}

// encodeKey 编码密钥（可选加密）
func (ks *FSKeystore) encodeKey(key PrivateKey) ([]byte, error) {
	code, err := algorithmCode(key.Algorithm())
	if err != nil {
		return nil, err
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, err
	}
	defer SecureZero(raw)

	var buf bytes.Buffer
	buf.WriteString(keyFileMagic)
	buf.WriteByte(keyFileVersion)
	buf.WriteByte(code)

	if len(ks.password) > 0 {
		buf.WriteByte(1)
		encrypted, err := encryptData(raw, ks.password)
		if err != nil {
			return nil, err
		}
		buf.Write(encrypted)
	} else {
		buf.WriteByte(0)
		buf.Write(raw)
	}

	return buf.Bytes(), nil
}

// decodeKey 解码密钥
func (ks *FSKeystore) decodeKey(data []byte) (PrivateKey, error) {
	if len(data) < len(keyFileMagic)+3 {
		return nil, ErrInvalidKeyFile
	}
	if string(data[:len(keyFileMagic)]) != keyFileMagic {
		return nil, ErrInvalidKeyFile
	}

	offset := len(keyFileMagic)
	if version := data[offset]; version != keyFileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidKeyFile, version)
	}
	offset++

	alg, err := algorithmFromCode(data[offset])
	if err != nil {
		return nil, err
	}
	offset++

	encrypted := data[offset] == 1
	offset++

	keyData := data[offset:]
	if encrypted {
		if len(ks.password) == 0 {
			return nil, ErrInvalidPassword
		}
		keyData, err = decryptData(keyData, ks.password)
		if err != nil {
			return nil, err
		}
		defer SecureZero(keyData)
	}

	return UnmarshalPrivateKey(alg, keyData)
}

// atomicWriteFile 先写临时文件再重命名
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".key-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// ============================================================================
//                              加密辅助函数
// ============================================================================

// encryptData 使用 argon2id 派生密钥并以 AES-GCM 加密
func encryptData(plaintext, password []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	key := DeriveKey(password, salt)
	defer SecureZero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, []byte(keyFileMagic))

	result := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// decryptData 解密 encryptData 的输出
func decryptData(data, password []byte) ([]byte, error) {
	if len(data) < saltSize+nonceSize {
		return nil, ErrDecryptionFailed
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	key := DeriveKey(password, salt)
	defer SecureZero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(keyFileMagic))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// ============================================================================
//                              内存密钥存储
// ============================================================================

// MemKeystore 内存密钥存储
type MemKeystore struct {
	mu   sync.RWMutex
	keys map[string]PrivateKey
}

// NewMemKeystore 创建内存密钥存储
func NewMemKeystore() *MemKeystore {
	return &MemKeystore{keys: make(map[string]PrivateKey)}
}

// Has 检查是否存在指定 ID 的密钥
func (ks *MemKeystore) Has(id string) (bool, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	_, ok := ks.keys[id]
	return ok, nil
}

// Put 存储密钥
func (ks *MemKeystore) Put(id string, key PrivateKey) error {
	if key == nil {
		return ErrNilPrivateKey
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if _, ok := ks.keys[id]; ok {
		return ErrKeyExists
	}
	ks.keys[id] = key
	return nil
}

// Get 获取密钥
func (ks *MemKeystore) Get(id string) (PrivateKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	key, ok := ks.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// Delete 删除密钥并尝试擦除
func (ks *MemKeystore) Delete(id string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	key, ok := ks.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	if e, ok := key.(Eraser); ok {
		e.Erase()
	}
	delete(ks.keys, id)
	return nil
}

// List 列出所有密钥 ID
func (ks *MemKeystore) List() ([]string, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	ids := make([]string, 0, len(ks.keys))
	for id := range ks.keys {
		ids = append(ids, id)
	}
	return ids, nil
}

// ============================================================================
//                              辅助函数
// ============================================================================

// DeriveKey 使用 argon2id 从密码派生 32 字节加密密钥
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// SecureZero 清零字节切片
//
// 只能清除这一份数据，无法覆盖运行时已复制的副本。
func SecureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// 读取清零后的数据，避免写入被优化掉
	_ = sha256.Sum256(b)
}

var (
	_ Keystore = (*FSKeystore)(nil)
	_ Keystore = (*MemKeystore)(nil)
)
