package exitmarker

import (
	"errors"

	"github.com/dep2p/go-exitmarker/internal/core/dispute"
	"github.com/dep2p/go-exitmarker/internal/core/keystate"
	"github.com/dep2p/go-exitmarker/internal/core/marker"
	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 引擎未启动
	ErrNotStarted = errors.New("engine not started")

	// ErrAlreadyStarted 引擎已启动
	ErrAlreadyStarted = errors.New("engine already started")

	// ErrEngineClosed 引擎已关闭
	ErrEngineClosed = errors.New("engine closed")

	// ────────────────────────────────────────────────────────────────────────
	// 错误分类
	// ────────────────────────────────────────────────────────────────────────

	// ErrValidation 结构校验失败
	ErrValidation = types.ErrValidation

	// ErrSigning 签名失败
	ErrSigning = types.ErrSigning

	// ErrVerification 验证失败
	ErrVerification = types.ErrVerification

	// ErrCeremony 非法密钥状态转换
	ErrCeremony = types.ErrCeremony

	// ErrStorage 持久化失败
	ErrStorage = types.ErrStorage

	// ────────────────────────────────────────────────────────────────────────
	// 领域错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyResolved 争议已裁决
	ErrAlreadyResolved = dispute.ErrAlreadyResolved

	// ErrNotArbiter 签名者不是指定仲裁者
	ErrNotArbiter = dispute.ErrNotArbiter

	// ErrSignerMismatch 签名者不控制凭证主体
	ErrSignerMismatch = marker.ErrSignerMismatch

	// ErrKeyNotCurrent 签名密钥已轮换或泄露
	ErrKeyNotCurrent = marker.ErrKeyNotCurrent

	// ErrCommitmentMismatch 轮换揭示的密钥与预承诺不符
	ErrCommitmentMismatch = keystate.ErrCommitmentMismatch

	// ErrEmptyBatch 空批次
	ErrEmptyBatch = merkle.ErrEmptyBatch

	// ErrNotFound 记录不存在
	ErrNotFound = storage.ErrNotFound
)

// 错误类型别名
type (
	// ValidationError 结构校验错误
	ValidationError = types.ValidationError

	// SigningError 签名错误
	SigningError = types.SigningError

	// VerificationError 验证错误
	VerificationError = types.VerificationError

	// CeremonyError 非法状态转换错误
	CeremonyError = types.CeremonyError

	// StorageError 持久化错误
	StorageError = types.StorageError
)

// IsValidationError 检查是否为校验错误
func IsValidationError(err error) bool { return types.IsValidationError(err) }

// IsSigningError 检查是否为签名错误
func IsSigningError(err error) bool { return types.IsSigningError(err) }

// IsVerificationError 检查是否为验证错误
func IsVerificationError(err error) bool { return types.IsVerificationError(err) }

// IsCeremonyError 检查是否为状态转换错误
func IsCeremonyError(err error) bool { return types.IsCeremonyError(err) }

// IsStorageError 检查是否为存储错误
func IsStorageError(err error) bool { return types.IsStorageError(err) }

// IsNotFound 检查是否为记录不存在
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
