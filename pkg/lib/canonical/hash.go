package canonical

import (
	"encoding/hex"
	"fmt"

	sha256 "github.com/minio/sha256-simd"
)

// HashSize 哈希输出长度（字节）
const HashSize = sha256.Size

// Hash 计算 SHA-256
func Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// HashHex 计算 SHA-256 并以小写十六进制返回
func HashHex(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// Digest 返回 v 规范编码的 SHA-256 十六进制摘要
//
// 用于内容寻址：同一条记录无论字段顺序如何，摘要都相同。
func Digest(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashHex(data), nil
}

// DecodeHash 解析十六进制哈希并检查长度
func DecodeHash(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != HashSize {
		return nil, fmt.Errorf("invalid hash length %d, want %d", len(b), HashSize)
	}
	return b, nil
}
