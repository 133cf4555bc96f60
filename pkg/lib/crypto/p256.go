package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"sync"
)

// P-256 密钥常量
const (
	// P256PrivateKeySize P-256 私钥大小（32 字节）
	P256PrivateKeySize = 32
	// P256PublicKeySize P-256 压缩公钥大小（33 字节）
	P256PublicKeySize = 33
	// P256UncompressedPublicKeySize P-256 未压缩公钥大小（65 字节）
	P256UncompressedPublicKeySize = 65
	// P256SignatureSize P-256 签名大小（R || S，64 字节）
	P256SignatureSize = 64
)

// p256HalfOrder 曲线阶的一半，签名的 s 不得超过该值
var p256HalfOrder = new(big.Int).Rsh(elliptic.P256().Params().N, 1)

// ============================================================================
//                              P256PublicKey
// ============================================================================

// P256PublicKey ECDSA P-256 公钥
type P256PublicKey struct {
	k *ecdsa.PublicKey
}

// Raw 返回压缩格式的公钥字节（33 字节）
func (k *P256PublicKey) Raw() ([]byte, error) {
	return elliptic.MarshalCompressed(elliptic.P256(), k.k.X, k.k.Y), nil
}

// Algorithm 返回密钥算法
func (k *P256PublicKey) Algorithm() Algorithm {
	return AlgorithmP256
}

// Equals 比较两个公钥是否相等
func (k *P256PublicKey) Equals(other Key) bool {
	ek, ok := other.(*P256PublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.X.Cmp(ek.k.X) == 0 && k.k.Y.Cmp(ek.k.Y) == 0
}

// Verify 使用此公钥验证签名
//
// 签名格式为 64 字节：R (32 字节) || S (32 字节)，摘要为 SHA-256。
// 只接受 low-S 形式，(r, n-s) 不能作为同一消息的第二个签名。
func (k *P256PublicKey) Verify(data, sig []byte) (bool, error) {
	if len(sig) != P256SignatureSize {
		return false, nil
	}

	hash := sha256.Sum256(data)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	if s.Cmp(p256HalfOrder) > 0 {
		return false, nil
	}

	return ecdsa.Verify(k.k, hash[:], r, s), nil
}

// ============================================================================
//                              P256PrivateKey
// ============================================================================

// P256PrivateKey ECDSA P-256 私钥
type P256PrivateKey struct {
	mu     sync.RWMutex
	k      *ecdsa.PrivateKey
	erased bool
}

// Raw 返回原始私钥标量（32 字节）
func (k *P256PrivateKey) Raw() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.erased {
		return nil, ErrKeyErased
	}
	return paddedBytes(k.k.D, P256PrivateKeySize), nil
}

// Algorithm 返回密钥算法
func (k *P256PrivateKey) Algorithm() Algorithm {
	return AlgorithmP256
}

// Equals 比较两个私钥是否相等
func (k *P256PrivateKey) Equals(other Key) bool {
	return KeyEqual(k, other)
}

// GetPublic 返回对应的公钥
func (k *P256PrivateKey) GetPublic() PublicKey {
	pub := k.k.PublicKey
	return &P256PublicKey{k: &pub}
}

// Sign 使用此私钥签名数据
//
// 返回 64 字节签名：R (32 字节) || S (32 字节)，s 规范化为 low-S
func (k *P256PrivateKey) Sign(data []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.erased {
		return nil, ErrKeyErased
	}

	hash := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, k.k, hash[:])
	if err != nil {
		return nil, err
	}
	if s.Cmp(p256HalfOrder) > 0 {
		s.Sub(k.k.Params().N, s)
	}

	sig := make([]byte, P256SignatureSize)
	copy(sig[:32], paddedBytes(r, 32))
	copy(sig[32:], paddedBytes(s, 32))
	return sig, nil
}

// Erase 清零私钥标量
//
// big.Int 在运算过程中可能留下中间副本，这里只能清除当前持有的数据。
func (k *P256PrivateKey) Erase() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.erased {
		return
	}
	words := k.k.D.Bits()
	for i := range words {
		words[i] = 0
	}
	k.k.D.SetInt64(0)
	k.erased = true
}

// ============================================================================
//                              工厂函数
// ============================================================================

// GenerateP256Key 生成新的 P-256 密钥对
func GenerateP256Key(src io.Reader) (PrivateKey, PublicKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), src)
	if err != nil {
		return nil, nil, err
	}
	pub := priv.PublicKey
	return &P256PrivateKey{k: priv}, &P256PublicKey{k: &pub}, nil
}

// UnmarshalP256PublicKey 从字节反序列化 P-256 公钥
//
// 支持压缩格式（33 字节）和未压缩格式（65 字节），点必须位于曲线上。
func UnmarshalP256PublicKey(data []byte) (PublicKey, error) {
	curve := elliptic.P256()

	var x, y *big.Int
	switch len(data) {
	case P256PublicKeySize:
		x, y = elliptic.UnmarshalCompressed(curve, data)
	case P256UncompressedPublicKeySize:
		x, y = elliptic.Unmarshal(curve, data) //nolint:staticcheck // 需要接受未压缩点
	default:
		return nil, fmt.Errorf("%w: expected %d or %d bytes, got %d",
			ErrInvalidKeySize, P256PublicKeySize, P256UncompressedPublicKeySize, len(data))
	}
	if x == nil || y == nil {
		return nil, ErrInvalidPublicKey
	}

	return &P256PublicKey{k: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}, nil
}

// UnmarshalP256PrivateKey 从 32 字节标量反序列化 P-256 私钥
func UnmarshalP256PrivateKey(data []byte) (PrivateKey, error) {
	if len(data) != P256PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, P256PrivateKeySize, len(data))
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(data)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, ErrInvalidPrivateKey
	}

	x, y := curve.ScalarBaseMult(data) //nolint:staticcheck // 标准库未提供替代的标量乘接口
	priv := &ecdsa.PrivateKey{
		D:         d,
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
	}
	return &P256PrivateKey{k: priv}, nil
}

// paddedBytes 返回固定长度的大端字节
func paddedBytes(n *big.Int, length int) []byte {
	b := n.Bytes()
	if len(b) >= length {
		return b[len(b)-length:]
	}
	padded := make([]byte, length)
	copy(padded[length-len(b):], b)
	return padded
}
