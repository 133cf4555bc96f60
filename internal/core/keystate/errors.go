package keystate

import "errors"

// 事件拒绝原因
var (
	// ErrMalformedEvent 事件字段缺失或格式错误
	ErrMalformedEvent = errors.New("malformed key event")

	// ErrIdentifierMismatch 事件标识符与日志不一致
	ErrIdentifierMismatch = errors.New("identifier mismatch")

	// ErrSequenceMismatch 事件序号不连续
	ErrSequenceMismatch = errors.New("sequence mismatch")

	// ErrPriorDigestMismatch priorDigest 与尾部事件摘要不一致
	ErrPriorDigestMismatch = errors.New("prior digest mismatch")

	// ErrCommitmentMismatch 揭示的密钥与承诺摘要不一致
	ErrCommitmentMismatch = errors.New("revealed key does not match commitment")

	// ErrUnauthorizedKey 事件由未授权的密钥签署
	ErrUnauthorizedKey = errors.New("event signed by unauthorized key")

	// ErrInvalidEventSignature 事件签名验证失败
	ErrInvalidEventSignature = errors.New("invalid key event signature")
)

// 存储相关错误
var (
	// ErrLogCorrupted 存储中的日志回放失败
	ErrLogCorrupted = errors.New("stored key event log is invalid")
)

// IsRejected 检查事件是否因违反约束被拒绝
func IsRejected(err error) bool {
	for _, target := range []error{
		ErrMalformedEvent,
		ErrIdentifierMismatch,
		ErrSequenceMismatch,
		ErrPriorDigestMismatch,
		ErrCommitmentMismatch,
		ErrUnauthorizedKey,
		ErrInvalidEventSignature,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsCommitmentMismatch 检查是否为承诺不匹配错误
func IsCommitmentMismatch(err error) bool {
	return errors.Is(err, ErrCommitmentMismatch)
}
