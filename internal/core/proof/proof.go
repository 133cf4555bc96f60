package proof

import (
	"context"
	"errors"
	"fmt"

	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/did"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/mr-tron/base58"
)

var logger = log.Logger("core/proof")

// 签名时从记录中排除的字段
var excludedFields = []string{"proof", "id"}

// multibaseBase58BTC proofValue 的 multibase 前缀
const multibaseBase58BTC = 'z'

// ErrNilSigner 签名者为空
var ErrNilSigner = errors.New("nil signer")

// 验证失败原因
const (
	ReasonMissingProof      = "proof is missing"
	ReasonSignatureMismatch = "signature verification failed"
)

// Signable 返回 record 在 domainTag 下的签名载荷
func Signable(domainTag string, record any) ([]byte, error) {
	body, err := canonical.MarshalWithout(record, excludedFields...)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(domainTag)+len(body))
	out = append(out, domainTag...)
	out = append(out, body...)
	return out, nil
}

// ============================================================================
//                              签名
// ============================================================================

// Attach 对 record 签名并返回证明
//
// record 上已有的 proof 与 id 不参与签名。返回的证明需要由调用方
// 设置到记录上，record 本身不被修改。
func Attach(ctx context.Context, domainTag string, record any, signer crypto.Signer, opts ...Option) (*types.DataIntegrityProof, error) {
	o := applyOptions(opts)

	if signer == nil {
		return nil, &types.SigningError{Op: "attach", Err: ErrNilSigner}
	}
	suite, ok := types.SuiteFor(signer.Algorithm())
	if !ok {
		return nil, &types.SigningError{Op: "suite", Err: fmt.Errorf("%w: %s", crypto.ErrBadKeyType, signer.Algorithm())}
	}

	data, err := Signable(domainTag, record)
	if err != nil {
		return nil, &types.SigningError{Op: "canonicalize", Err: err}
	}

	sig, err := signer.Sign(ctx, data)
	if err != nil {
		logger.Warn("签名失败", "signer", log.ShortDID(signer.DID()), "error", err)
		return nil, &types.SigningError{Op: "sign", Err: err}
	}

	o.metrics.ProofSigned(signer.Algorithm())
	logger.Debug("已生成证明", "signer", log.ShortDID(signer.DID()), "suite", suite)

	return &types.DataIntegrityProof{
		Type:               suite,
		Created:            types.FormatTime(o.clock.Now()),
		VerificationMethod: signer.DID(),
		ProofPurpose:       types.ProofPurposeAssertion,
		ProofValue:         EncodeSignature(sig),
	}, nil
}

// EncodeSignature 将签名编码为 multibase base58btc
func EncodeSignature(sig []byte) string {
	return string(multibaseBase58BTC) + base58.Encode(sig)
}

// DecodeSignature 解码 multibase base58btc 签名
func DecodeSignature(value string) ([]byte, error) {
	if len(value) < 2 || value[0] != multibaseBase58BTC {
		return nil, errors.New("proofValue must be multibase base58btc")
	}
	sig, err := base58.Decode(value[1:])
	if err != nil {
		return nil, fmt.Errorf("proofValue: %w", err)
	}
	return sig, nil
}

// ============================================================================
//                              验证
// ============================================================================

// Verify 验证 record 上的证明
//
// subject 是记录声称的签名主体，verificationMethod 必须与其一致
// （忽略 fragment）。各项检查相互独立，全部失败原因都会返回。
func Verify(domainTag string, record any, subject string, p *types.DataIntegrityProof, opts ...Option) types.VerificationResult {
	o := applyOptions(opts)
	result := verify(domainTag, record, subject, p, o)
	o.metrics.ProofVerified(result.Valid)
	return result
}

func verify(domainTag string, record any, subject string, p *types.DataIntegrityProof, o *options) types.VerificationResult {
	if p == nil {
		return types.Invalid(ReasonMissingProof)
	}

	var reasons []string

	suiteAlg, knownSuite := types.AlgorithmForSuite(p.Type)
	if !knownSuite {
		reasons = append(reasons, fmt.Sprintf("unknown proof type %q", p.Type))
	}

	vm := did.StripFragment(p.VerificationMethod)
	if vm != did.StripFragment(subject) {
		reasons = append(reasons, "verificationMethod does not match subject")
	}

	decoded, err := did.Decode(vm)
	if err != nil {
		reasons = append(reasons, fmt.Sprintf("invalid verificationMethod: %v", err))
	} else if knownSuite && decoded.Algorithm != suiteAlg {
		reasons = append(reasons, fmt.Sprintf("proof type %s does not match key algorithm %s", p.Type, decoded.Algorithm))
	}

	if created, err := types.ParseTime(p.Created); err != nil {
		reasons = append(reasons, "created is not an RFC 3339 timestamp")
	} else if o.skew > 0 && created.After(o.clock.Now().Add(o.skew)) {
		reasons = append(reasons, "created is in the future")
	}

	if p.ProofPurpose != "" && p.ProofPurpose != types.ProofPurposeAssertion {
		reasons = append(reasons, fmt.Sprintf("unexpected proofPurpose %q", p.ProofPurpose))
	}

	if decoded != nil {
		if err := checkSignature(domainTag, record, decoded.PublicKey, p.ProofValue); err != nil {
			if o.verbose {
				reasons = append(reasons, fmt.Sprintf("%s: %v", ReasonSignatureMismatch, err))
			} else {
				reasons = append(reasons, ReasonSignatureMismatch)
			}
		}
	}

	if len(reasons) > 0 {
		return types.Invalid(reasons...)
	}
	return types.Valid()
}

func checkSignature(domainTag string, record any, pub crypto.PublicKey, proofValue string) error {
	sig, err := DecodeSignature(proofValue)
	if err != nil {
		return err
	}
	data, err := Signable(domainTag, record)
	if err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}
	ok, err := crypto.Verify(pub, data, sig)
	if err != nil {
		return err
	}
	if !ok {
		return crypto.ErrInvalidSignature
	}
	return nil
}
