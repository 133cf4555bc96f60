package dispute

import "errors"

var (
	// ErrAlreadyResolved 争议已裁决
	ErrAlreadyResolved = errors.New("dispute already resolved")

	// ErrNotArbiter 签名者不是指定的仲裁方
	ErrNotArbiter = errors.New("signer is not the designated arbiter")
)

// IsAlreadyResolved 检查是否为重复裁决错误
func IsAlreadyResolved(err error) bool {
	return errors.Is(err, ErrAlreadyResolved)
}
