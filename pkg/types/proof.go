package types

import "github.com/dep2p/go-exitmarker/pkg/lib/crypto"

// ============================================================================
//                              签名套件
// ============================================================================

// 签名套件名称，与算法一一对应
const (
	// SuiteEd25519 Ed25519 签名套件
	SuiteEd25519 = "Ed25519Signature2020"
	// SuiteP256 ECDSA P-256 签名套件
	SuiteP256 = "EcdsaP256Signature2019"
)

// ProofPurposeAssertion 证明用途
const ProofPurposeAssertion = "assertionMethod"

// suites 算法与套件的封闭映射
var suites = map[crypto.Algorithm]string{
	crypto.AlgorithmEd25519: SuiteEd25519,
	crypto.AlgorithmP256:    SuiteP256,
}

// SuiteFor 返回算法对应的签名套件
func SuiteFor(alg crypto.Algorithm) (string, bool) {
	s, ok := suites[alg]
	return s, ok
}

// AlgorithmForSuite 返回签名套件隐含的算法
func AlgorithmForSuite(suite string) (crypto.Algorithm, bool) {
	for alg, s := range suites {
		if s == suite {
			return alg, true
		}
	}
	return crypto.AlgorithmUnknown, false
}

// ============================================================================
//                              DataIntegrityProof
// ============================================================================

// DataIntegrityProof 附加在记录上的签名证明
type DataIntegrityProof struct {
	// Type 签名套件
	Type string `json:"type"`
	// Created 签名时间
	Created string `json:"created"`
	// VerificationMethod 签名者 DID，必须等于记录主体
	VerificationMethod string `json:"verificationMethod"`
	// ProofPurpose 证明用途
	ProofPurpose string `json:"proofPurpose,omitempty"`
	// ProofValue multibase(base58btc) 编码的签名
	ProofValue string `json:"proofValue"`
}

// Clone 返回副本
func (p *DataIntegrityProof) Clone() *DataIntegrityProof {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
