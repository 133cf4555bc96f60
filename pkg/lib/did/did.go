// Package did 实现 did:key 标识符的编解码
//
// 格式：
//
//	did:key:z<base58btc( varint(multicodec) || publicKey )>
//
// multicodec 前缀决定算法，验证时必须检查：
//   - 0xed   ed25519-pub，32 字节公钥
//   - 0x1200 p256-pub，33 字节压缩点
//
// 只有 did:key 方法可以解析为公钥；其他方法只做语法检查。
package did

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
)

// ============================================================================
//                              常量
// ============================================================================

const (
	// Prefix did:key 前缀
	Prefix = "did:key:"

	// MultibaseBase58BTC multibase base58btc 前缀
	MultibaseBase58BTC = 'z'

	// CodecEd25519Pub multicodec ed25519-pub
	CodecEd25519Pub uint64 = 0xed
	// CodecP256Pub multicodec p256-pub
	CodecP256Pub uint64 = 0x1200
)

// 错误定义
var (
	// ErrInvalidDID DID 语法错误
	ErrInvalidDID = errors.New("did: invalid identifier")
	// ErrUnsupportedMethod 非 did:key 方法
	ErrUnsupportedMethod = errors.New("did: unsupported method")
	// ErrUnsupportedMultibase 非 base58btc 编码
	ErrUnsupportedMultibase = errors.New("did: unsupported multibase encoding")
	// ErrUnknownCodec 未知 multicodec
	ErrUnknownCodec = errors.New("did: unknown multicodec")
)

// ============================================================================
//                              编码
// ============================================================================

// codecFor 返回算法对应的 multicodec
func codecFor(alg crypto.Algorithm) (uint64, error) {
	switch alg {
	case crypto.AlgorithmEd25519:
		return CodecEd25519Pub, nil
	case crypto.AlgorithmP256:
		return CodecP256Pub, nil
	default:
		return 0, fmt.Errorf("%w: %s", crypto.ErrBadKeyType, alg)
	}
}

// algorithmFor 返回 multicodec 对应的算法
func algorithmFor(codec uint64) (crypto.Algorithm, error) {
	switch codec {
	case CodecEd25519Pub:
		return crypto.AlgorithmEd25519, nil
	case CodecP256Pub:
		return crypto.AlgorithmP256, nil
	default:
		return crypto.AlgorithmUnknown, fmt.Errorf("%w: 0x%x", ErrUnknownCodec, codec)
	}
}

// TaggedKey 返回 varint(multicodec) || 公钥字节
func TaggedKey(pub crypto.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, crypto.ErrNilPublicKey
	}
	codec, err := codecFor(pub.Algorithm())
	if err != nil {
		return nil, err
	}
	raw, err := pub.Raw()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, varint.UvarintSize(codec)+len(raw))
	buf = append(buf, varint.ToUvarint(codec)...)
	buf = append(buf, raw...)
	return buf, nil
}

// Encode 将公钥编码为 did:key 标识符
func Encode(pub crypto.PublicKey) (string, error) {
	tagged, err := TaggedKey(pub)
	if err != nil {
		return "", err
	}
	return Prefix + string(MultibaseBase58BTC) + base58.Encode(tagged), nil
}

// ============================================================================
//                              解码
// ============================================================================

// Decoded did:key 解码结果
type Decoded struct {
	// DID 不含 fragment 的标识符
	DID string
	// Algorithm 由 multicodec 决定的算法
	Algorithm crypto.Algorithm
	// PublicKey 公钥
	PublicKey crypto.PublicKey
	// Tagged varint(multicodec) || 公钥字节
	Tagged []byte
}

// Decode 解析 did:key 标识符
//
// 允许带 "#fragment" 的验证方法引用，fragment 被忽略。
func Decode(id string) (*Decoded, error) {
	base := StripFragment(id)
	if !strings.HasPrefix(base, Prefix) {
		if IsValidSyntax(base) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, methodOf(base))
		}
		return nil, fmt.Errorf("%w: %q", ErrInvalidDID, id)
	}

	mb := base[len(Prefix):]
	if mb == "" {
		return nil, fmt.Errorf("%w: empty method-specific id", ErrInvalidDID)
	}
	if mb[0] != MultibaseBase58BTC {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMultibase, mb[0])
	}

	tagged, err := base58.Decode(mb[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDID, err)
	}

	codec, n, err := varint.FromUvarint(tagged)
	if err != nil {
		return nil, fmt.Errorf("%w: bad multicodec varint: %v", ErrInvalidDID, err)
	}
	alg, err := algorithmFor(codec)
	if err != nil {
		return nil, err
	}

	pub, err := crypto.UnmarshalPublicKey(alg, tagged[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDID, err)
	}
	// P-256 只接受压缩点，保证标识符唯一
	if alg == crypto.AlgorithmP256 && len(tagged[n:]) != crypto.P256PublicKeySize {
		return nil, fmt.Errorf("%w: p256 key must be compressed", ErrInvalidDID)
	}

	return &Decoded{
		DID:       base,
		Algorithm: alg,
		PublicKey: pub,
		Tagged:    tagged,
	}, nil
}

// PublicKey 解析 did:key 并返回公钥
func PublicKey(id string) (crypto.PublicKey, error) {
	d, err := Decode(id)
	if err != nil {
		return nil, err
	}
	return d.PublicKey, nil
}

// AlgorithmOf 返回 did:key 编码的算法
func AlgorithmOf(id string) (crypto.Algorithm, error) {
	d, err := Decode(id)
	if err != nil {
		return crypto.AlgorithmUnknown, err
	}
	return d.Algorithm, nil
}

// KeyDigest 返回公钥承诺 H(k)
//
// H(k) = SHA-256( varint(multicodec) || 公钥 )，小写十六进制。
// 承诺绑定算法，同一公钥字节在不同算法下得到不同摘要。
func KeyDigest(id string) (string, error) {
	d, err := Decode(id)
	if err != nil {
		return "", err
	}
	return canonical.HashHex(d.Tagged), nil
}

// ============================================================================
//                              语法检查
// ============================================================================

// IsValidSyntax 检查是否为语法合法的 DID（did:<method>:<id>）
//
// 不解析方法，不要求是 did:key。
func IsValidSyntax(id string) bool {
	parts := strings.SplitN(StripFragment(id), ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return false
	}
	method, rest := parts[1], parts[2]
	if method == "" || rest == "" {
		return false
	}
	for _, r := range method {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	for _, r := range rest {
		if !isIDChar(r) {
			return false
		}
	}
	return !strings.HasSuffix(rest, ":")
}

func isIDChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_', r == ':', r == '%':
		return true
	default:
		return false
	}
}

// StripFragment 去掉 "#fragment" 部分
func StripFragment(id string) string {
	if i := strings.IndexByte(id, '#'); i >= 0 {
		return id[:i]
	}
	return id
}

func methodOf(id string) string {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
