package merkle

import "errors"

var (
	// ErrEmptyBatch 批次为空
	ErrEmptyBatch = errors.New("merkle: empty batch")

	// ErrBatchTooLarge 批次超过上限
	ErrBatchTooLarge = errors.New("merkle: batch too large")

	// ErrIndexOutOfRange 下标越界
	ErrIndexOutOfRange = errors.New("merkle: index out of range")

	// ErrInvalidProof 证明格式错误
	ErrInvalidProof = errors.New("merkle: invalid proof")

	// ErrNilMarker 批次中存在空 marker
	ErrNilMarker = errors.New("merkle: nil marker")
)
