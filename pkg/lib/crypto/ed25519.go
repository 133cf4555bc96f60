package crypto

import (
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"
	"io"
	"sync"
)

// Ed25519 密钥常量
const (
	// Ed25519PrivateKeySize Ed25519 私钥大小（64 字节）
	Ed25519PrivateKeySize = ed25519.PrivateKeySize
	// Ed25519PublicKeySize Ed25519 公钥大小（32 字节）
	Ed25519PublicKeySize = ed25519.PublicKeySize
	// Ed25519SignatureSize Ed25519 签名大小（64 字节）
	Ed25519SignatureSize = ed25519.SignatureSize
	// Ed25519SeedSize Ed25519 种子大小（32 字节）
	Ed25519SeedSize = ed25519.SeedSize
)

// ============================================================================
//                              Ed25519PublicKey
// ============================================================================

// Ed25519PublicKey Ed25519 公钥
type Ed25519PublicKey struct {
	k ed25519.PublicKey
}

// Raw 返回原始公钥字节（32 字节）
func (k *Ed25519PublicKey) Raw() ([]byte, error) {
	buf := make([]byte, len(k.k))
	copy(buf, k.k)
	return buf, nil
}

// Algorithm 返回密钥算法
func (k *Ed25519PublicKey) Algorithm() Algorithm {
	return AlgorithmEd25519
}

// Equals 比较两个公钥是否相等
func (k *Ed25519PublicKey) Equals(other Key) bool {
	ek, ok := other.(*Ed25519PublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return subtle.ConstantTimeCompare(k.k, ek.k) == 1
}

// Verify 使用此公钥验证签名
func (k *Ed25519PublicKey) Verify(data, sig []byte) (bool, error) {
	if len(sig) != Ed25519SignatureSize {
		return false, nil
	}
	return ed25519.Verify(k.k, data, sig), nil
}

// ============================================================================
//                              Ed25519PrivateKey
// ============================================================================

// Ed25519PrivateKey Ed25519 私钥
//
// 支持尽力而为的擦除，擦除后 Sign 返回 ErrKeyErased。
type Ed25519PrivateKey struct {
	mu     sync.RWMutex
	k      ed25519.PrivateKey
	pub    ed25519.PublicKey
	erased bool
}

func newEd25519PrivateKey(k ed25519.PrivateKey) *Ed25519PrivateKey {
	pub := make(ed25519.PublicKey, Ed25519PublicKeySize)
	copy(pub, k[Ed25519SeedSize:])
	return &Ed25519PrivateKey{k: k, pub: pub}
}

// Raw 返回原始私钥字节（64 字节：种子 + 公钥）
func (k *Ed25519PrivateKey) Raw() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.erased {
		return nil, ErrKeyErased
	}
	buf := make([]byte, len(k.k))
	copy(buf, k.k)
	return buf, nil
}

// Algorithm 返回密钥算法
func (k *Ed25519PrivateKey) Algorithm() Algorithm {
	return AlgorithmEd25519
}

// Equals 比较两个私钥是否相等
func (k *Ed25519PrivateKey) Equals(other Key) bool {
	return KeyEqual(k, other)
}

// GetPublic 返回对应的公钥
//
// 公钥在擦除后仍然可用。
func (k *Ed25519PrivateKey) GetPublic() PublicKey {
	return &Ed25519PublicKey{k: k.pub}
}

// Sign 使用此私钥签名数据
func (k *Ed25519PrivateKey) Sign(data []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.erased {
		return nil, ErrKeyErased
	}
	return ed25519.Sign(k.k, data), nil
}

// Erase 清零私钥材料
func (k *Ed25519PrivateKey) Erase() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.erased {
		return
	}
	SecureZero(k.k)
	k.erased = true
}

// ============================================================================
//                              工厂函数
// ============================================================================

// GenerateEd25519Key 生成新的 Ed25519 密钥对
func GenerateEd25519Key(src io.Reader) (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(src)
	if err != nil {
		return nil, nil, err
	}
	return newEd25519PrivateKey(priv), &Ed25519PublicKey{k: pub}, nil
}

// UnmarshalEd25519PublicKey 从字节反序列化 Ed25519 公钥
func UnmarshalEd25519PublicKey(data []byte) (PublicKey, error) {
	if len(data) != Ed25519PublicKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, Ed25519PublicKeySize, len(data))
	}

	k := make([]byte, Ed25519PublicKeySize)
	copy(k, data)
	return &Ed25519PublicKey{k: k}, nil
}

// UnmarshalEd25519PrivateKey 从字节反序列化 Ed25519 私钥
//
// 支持两种格式：
//   - 64 字节：完整私钥（种子 + 公钥）
//   - 32 字节：仅种子
func UnmarshalEd25519PrivateKey(data []byte) (PrivateKey, error) {
	switch len(data) {
	case Ed25519PrivateKeySize:
		k := make([]byte, Ed25519PrivateKeySize)
		copy(k, data)
		// 校验冗余公钥与种子派生结果一致
		derived := ed25519.NewKeyFromSeed(k[:Ed25519SeedSize])
		if subtle.ConstantTimeCompare(derived[Ed25519SeedSize:], k[Ed25519SeedSize:]) == 0 {
			SecureZero(derived)
			SecureZero(k)
			return nil, fmt.Errorf("%w: embedded public key mismatch", ErrInvalidPrivateKey)
		}
		SecureZero(derived)
		return newEd25519PrivateKey(k), nil

	case Ed25519SeedSize:
		return newEd25519PrivateKey(ed25519.NewKeyFromSeed(data)), nil

	default:
		return nil, fmt.Errorf("%w: expected %d or %d bytes, got %d",
			ErrInvalidKeySize, Ed25519SeedSize, Ed25519PrivateKeySize, len(data))
	}
}
