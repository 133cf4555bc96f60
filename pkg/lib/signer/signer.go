// Package signer 提供基于内存私钥的 crypto.Signer 实现
//
//	s, err := signer.Generate(crypto.AlgorithmEd25519)
//	defer s.Erase()
//	proof, err := proof.Attach(ctx, types.MarkerDomainTag, marker, s)
package signer

import (
	"context"
	"fmt"

	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/did"
)

// KeySigner 持有内存私钥的签名者
//
// # 擦除的残余风险
//
// Erase 清零私钥当前持有的字节，之后 Sign 返回 crypto.ErrKeyErased。
// Go 的垃圾回收器与栈增长可能已经复制过私钥，P-256 的大整数运算
// 也会留下中间值，这些副本无法被擦除。Erase 只缩小暴露窗口，
// 不是安全保证；高价值密钥应使用硬件签名者。
type KeySigner struct {
	priv crypto.PrivateKey
	did  string
}

// New 包装已有私钥
func New(priv crypto.PrivateKey) (*KeySigner, error) {
	if priv == nil {
		return nil, crypto.ErrNilPrivateKey
	}
	id, err := did.Encode(priv.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("encode did: %w", err)
	}
	return &KeySigner{priv: priv, did: id}, nil
}

// Generate 生成新密钥对并返回签名者
func Generate(alg crypto.Algorithm) (*KeySigner, error) {
	priv, _, err := crypto.GenerateKeyPair(alg)
	if err != nil {
		return nil, err
	}
	return New(priv)
}

// FromKeystore 从密钥存储加载 id 对应的私钥
//
// 加载后校验私钥派生的 DID 与 id 一致，防止密钥文件被替换。
func FromKeystore(ks crypto.Keystore, id string) (*KeySigner, error) {
	priv, err := ks.Get(id)
	if err != nil {
		return nil, err
	}
	s, err := New(priv)
	if err != nil {
		return nil, err
	}
	if s.did != did.StripFragment(id) {
		s.Erase()
		return nil, fmt.Errorf("keystore entry %s holds key for %s", id, s.did)
	}
	return s, nil
}

// Sign 对字节签名
func (s *KeySigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.priv.Sign(data)
}

// Verify 使用 pub 验证签名
func (s *KeySigner) Verify(ctx context.Context, data, sig []byte, pub crypto.PublicKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return crypto.Verify(pub, data, sig)
}

// DID 返回签名者的 did:key
func (s *KeySigner) DID() string {
	return s.did
}

// Algorithm 返回签名算法
func (s *KeySigner) Algorithm() crypto.Algorithm {
	return s.priv.Algorithm()
}

// PublicKey 返回公钥
func (s *KeySigner) PublicKey() crypto.PublicKey {
	return s.priv.GetPublic()
}

// Erase 尽力擦除私钥
func (s *KeySigner) Erase() {
	if e, ok := s.priv.(crypto.Eraser); ok {
		e.Erase()
	}
}

var (
	_ crypto.Signer = (*KeySigner)(nil)
	_ crypto.Eraser = (*KeySigner)(nil)
)
