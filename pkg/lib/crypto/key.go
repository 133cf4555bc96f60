// Package crypto 提供 Exit Marker 使用的密码学原语
//
// 支持的签名算法集合是封闭的：
//   - Ed25519（EdDSA）
//   - P-256（ECDSA，SHA-256 摘要，r||s 定长签名）
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
)

// ============================================================================
//                              算法定义
// ============================================================================

// Algorithm 签名算法
type Algorithm string

const (
	// AlgorithmUnknown 未知算法
	AlgorithmUnknown Algorithm = ""
	// AlgorithmEd25519 Ed25519 签名算法
	AlgorithmEd25519 Algorithm = "Ed25519"
	// AlgorithmP256 ECDSA P-256 签名算法
	AlgorithmP256 Algorithm = "P-256"
)

// String 返回算法名称
func (a Algorithm) String() string {
	if a == AlgorithmUnknown {
		return "Unknown"
	}
	return string(a)
}

// Valid 检查算法是否受支持
func (a Algorithm) Valid() bool {
	return a == AlgorithmEd25519 || a == AlgorithmP256
}

// Algorithms 支持的算法列表
var Algorithms = []Algorithm{
	AlgorithmEd25519,
	AlgorithmP256,
}

// ParseAlgorithm 解析算法名称
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "Ed25519", "ed25519":
		return AlgorithmEd25519, nil
	case "P-256", "p-256", "P256", "p256", "ecdsa":
		return AlgorithmP256, nil
	default:
		return AlgorithmUnknown, ErrBadKeyType
	}
}

// ============================================================================
//                              密钥接口定义
// ============================================================================

// Key 基础密钥接口
type Key interface {
	// Raw 返回原始密钥字节
	//
	// 公钥返回其规范编码：Ed25519 为 32 字节，P-256 为 33 字节压缩点。
	Raw() ([]byte, error)

	// Algorithm 返回密钥算法
	Algorithm() Algorithm

	// Equals 比较两个密钥是否相等
	Equals(Key) bool
}

// PublicKey 公钥接口
type PublicKey interface {
	Key

	// Verify 使用此公钥验证签名
	//
	// 签名格式错误返回 (false, nil)，不视为错误。
	Verify(data, sig []byte) (bool, error)
}

// PrivateKey 私钥接口
type PrivateKey interface {
	Key

	// Sign 使用此私钥签名数据
	Sign(data []byte) ([]byte, error)

	// GetPublic 返回对应的公钥
	GetPublic() PublicKey
}

// Eraser 可擦除密钥材料的对象
//
// 擦除是尽力而为的：Go 运行时可能已复制过底层内存（GC 移动、
// 栈扩容、big.Int 内部缓冲），因此擦除后不能假定密钥已从进程内存中
// 完全消失。这是一项残余风险，而不是正确性保证。
type Eraser interface {
	// Erase 清零密钥材料，之后密钥不可再用于签名
	Erase()
}

// ============================================================================
//                              密钥工厂函数
// ============================================================================

// GenerateKeyPair 生成密钥对
func GenerateKeyPair(alg Algorithm) (PrivateKey, PublicKey, error) {
	return GenerateKeyPairWithReader(alg, rand.Reader)
}

// GenerateKeyPairWithReader 使用指定的随机源生成密钥对
//
// 参数：
//   - alg: 签名算法
//   - reader: 随机源（测试时可用于确定性生成）
func GenerateKeyPairWithReader(alg Algorithm, reader io.Reader) (PrivateKey, PublicKey, error) {
	switch alg {
	case AlgorithmEd25519:
		return GenerateEd25519Key(reader)
	case AlgorithmP256:
		return GenerateP256Key(reader)
	default:
		return nil, nil, ErrBadKeyType
	}
}

// ============================================================================
//                              反序列化函数
// ============================================================================

// UnmarshalPublicKey 从规范字节反序列化公钥
func UnmarshalPublicKey(alg Algorithm, data []byte) (PublicKey, error) {
	switch alg {
	case AlgorithmEd25519:
		return UnmarshalEd25519PublicKey(data)
	case AlgorithmP256:
		return UnmarshalP256PublicKey(data)
	default:
		return nil, ErrBadKeyType
	}
}

// UnmarshalPrivateKey 从字节反序列化私钥
func UnmarshalPrivateKey(alg Algorithm, data []byte) (PrivateKey, error) {
	switch alg {
	case AlgorithmEd25519:
		return UnmarshalEd25519PrivateKey(data)
	case AlgorithmP256:
		return UnmarshalP256PrivateKey(data)
	default:
		return nil, ErrBadKeyType
	}
}

// ============================================================================
//                              辅助函数
// ============================================================================

// KeyEqual 使用常量时间比较两个密钥是否相等
func KeyEqual(k1, k2 Key) bool {
	if k1 == nil || k2 == nil {
		return false
	}
	if k1.Algorithm() != k2.Algorithm() {
		return false
	}

	b1, err1 := k1.Raw()
	b2, err2 := k2.Raw()
	if err1 != nil || err2 != nil {
		return false
	}

	return subtle.ConstantTimeCompare(b1, b2) == 1
}

// Verify 使用公钥验证签名
//
// 供不持有私钥的验证方使用。
func Verify(pub PublicKey, data, sig []byte) (bool, error) {
	if pub == nil {
		return false, ErrNilPublicKey
	}
	if len(sig) == 0 {
		return false, ErrNilSignature
	}
	return pub.Verify(data, sig)
}
