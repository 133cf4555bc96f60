package crypto

import "errors"

// ============================================================================
//                              错误定义
// ============================================================================

// 密钥相关错误
var (
	// ErrBadKeyType 不支持的算法
	ErrBadKeyType = errors.New("invalid or unsupported key algorithm")

	// ErrNilPrivateKey 私钥为空
	ErrNilPrivateKey = errors.New("nil private key")

	// ErrNilPublicKey 公钥为空
	ErrNilPublicKey = errors.New("nil public key")

	// ErrInvalidKeySize 密钥大小无效
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidPublicKey 公钥无效
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey 私钥无效
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrKeyErased 私钥已被擦除
	ErrKeyErased = errors.New("private key erased")
)

// 签名相关错误
var (
	// ErrNilSignature 签名为空
	ErrNilSignature = errors.New("nil signature")

	// ErrInvalidSignature 签名无效
	ErrInvalidSignature = errors.New("invalid signature")
)

// 密钥存储相关错误
var (
	// ErrKeyNotFound 密钥未找到
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists 密钥已存在
	ErrKeyExists = errors.New("key already exists")

	// ErrInvalidPassword 密码无效
	ErrInvalidPassword = errors.New("invalid password")

	// ErrDecryptionFailed 解密失败
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeyFile 密钥文件格式无效
	ErrInvalidKeyFile = errors.New("invalid key file format")
)

// IsKeyErased 检查是否为密钥已擦除错误
func IsKeyErased(err error) bool {
	return errors.Is(err, ErrKeyErased)
}

// IsKeyNotFound 检查是否为密钥未找到错误
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
