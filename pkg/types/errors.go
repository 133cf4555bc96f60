package types

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
//                              错误分类
// ============================================================================

// 分类哨兵错误，配合 errors.Is 使用
var (
	// ErrValidation 结构校验失败
	ErrValidation = errors.New("validation failed")

	// ErrSigning 签名前置条件或原语失败
	ErrSigning = errors.New("signing failed")

	// ErrVerification 签名或结构验证失败
	ErrVerification = errors.New("verification failed")

	// ErrCeremony 非法状态转换
	ErrCeremony = errors.New("illegal state transition")

	// ErrStorage 持久化失败
	ErrStorage = errors.New("storage failure")
)

// ────────────────────────────────────────────────────────────────────────────
// ValidationError
// ────────────────────────────────────────────────────────────────────────────

// ValidationError 结构校验错误，携带全部问题
type ValidationError struct {
	Errors []string
}

// NewValidationError 创建校验错误
func NewValidationError(errs ...string) *ValidationError {
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Is 匹配 ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ────────────────────────────────────────────────────────────────────────────
// SigningError
// ────────────────────────────────────────────────────────────────────────────

// SigningError 签名错误
type SigningError struct {
	// Op 失败的操作
	Op  string
	Err error
}

func (e *SigningError) Error() string {
	if e.Err == nil {
		return "signing failed: " + e.Op
	}
	return fmt.Sprintf("signing failed: %s: %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *SigningError) Unwrap() error { return e.Err }

// Is 匹配 ErrSigning
func (e *SigningError) Is(target error) bool { return target == ErrSigning }

// ────────────────────────────────────────────────────────────────────────────
// VerificationError
// ────────────────────────────────────────────────────────────────────────────

// VerificationError 验证错误
type VerificationError struct {
	Reasons []string
	cause   error
}

// NewVerificationError 创建验证错误
func NewVerificationError(reasons ...string) *VerificationError {
	return &VerificationError{Reasons: reasons}
}

func (e *VerificationError) Error() string {
	if len(e.Reasons) == 0 {
		return "verification failed"
	}
	return "verification failed: " + strings.Join(e.Reasons, "; ")
}

// Unwrap 返回各失败原因组合的错误
func (e *VerificationError) Unwrap() error { return e.cause }

// Is 匹配 ErrVerification
func (e *VerificationError) Is(target error) bool { return target == ErrVerification }

// ────────────────────────────────────────────────────────────────────────────
// CeremonyError
// ────────────────────────────────────────────────────────────────────────────

// CeremonyError 非法状态转换
//
// 携带当前状态、尝试进入的状态以及合法的下一状态，调用方据此
// 决定如何修正。
type CeremonyError struct {
	Current   string
	Attempted string
	ValidNext []string
	Reason    string
}

func (e *CeremonyError) Error() string {
	next := "none"
	if len(e.ValidNext) > 0 {
		next = strings.Join(e.ValidNext, ", ")
	}
	msg := fmt.Sprintf("illegal transition %s -> %s (valid next: %s)", e.Current, e.Attempted, next)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is 匹配 ErrCeremony
func (e *CeremonyError) Is(target error) bool { return target == ErrCeremony }

// ────────────────────────────────────────────────────────────────────────────
// StorageError
// ────────────────────────────────────────────────────────────────────────────

// StorageError 持久化错误
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap 返回底层错误
func (e *StorageError) Unwrap() error { return e.Err }

// Is 匹配 ErrStorage
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ============================================================================
//                              判断函数
// ============================================================================

// IsValidationError 检查是否为校验错误
func IsValidationError(err error) bool { return errors.Is(err, ErrValidation) }

// IsSigningError 检查是否为签名错误
func IsSigningError(err error) bool { return errors.Is(err, ErrSigning) }

// IsVerificationError 检查是否为验证错误
func IsVerificationError(err error) bool { return errors.Is(err, ErrVerification) }

// IsCeremonyError 检查是否为状态转换错误
func IsCeremonyError(err error) bool { return errors.Is(err, ErrCeremony) }

// IsStorageError 检查是否为存储错误
func IsStorageError(err error) bool { return errors.Is(err, ErrStorage) }
