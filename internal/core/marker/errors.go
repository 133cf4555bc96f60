package marker

import "errors"

var (
	// ErrNilMarker marker 为空
	ErrNilMarker = errors.New("nil marker")

	// ErrSignerMismatch 签名者既不是主体也不是 lineage 中的控制密钥
	ErrSignerMismatch = errors.New("signer does not control subject")

	// ErrKeyNotCurrent 签名密钥不是主体当前授权的密钥
	ErrKeyNotCurrent = errors.New("signing key is not current for subject")

	// ErrUnsigned marker 尚未签名
	ErrUnsigned = errors.New("marker is not signed")

	// ErrNoKeyState 未配置密钥状态
	ErrNoKeyState = errors.New("key state is not configured")
)
