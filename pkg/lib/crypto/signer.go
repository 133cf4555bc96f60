package crypto

import "context"

// Signer 与算法无关的签名者
//
// 只暴露四个操作。持有私钥的实现可以另外实现 Eraser。
// 硬件签名者（HSM/TPM）的 Sign 可能阻塞，必须尊重 ctx 取消；
// 并发调用之间不保证顺序。
type Signer interface {
	// Sign 对字节签名
	Sign(ctx context.Context, data []byte) ([]byte, error)

	// Verify 使用 pub 验证签名
	Verify(ctx context.Context, data, sig []byte, pub PublicKey) (bool, error)

	// DID 返回签名者的 did:key 标识
	DID() string

	// Algorithm 返回签名算法
	Algorithm() Algorithm
}
