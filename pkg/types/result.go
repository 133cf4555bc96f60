package types

import (
	"errors"

	"go.uber.org/multierr"
)

// VerificationResult 验证结果
//
// 验证函数返回结构化结果而不是错误，批量验证时单条坏记录
// 不会中断整体流程。
type VerificationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Valid 返回验证通过的结果
func Valid() VerificationResult {
	return VerificationResult{Valid: true, Errors: []string{}}
}

// Invalid 返回带原因的失败结果
func Invalid(reasons ...string) VerificationResult {
	return VerificationResult{Valid: false, Errors: append([]string{}, reasons...)}
}

// Merge 合并另一个结果，任一失败则整体失败
func (r VerificationResult) Merge(other VerificationResult) VerificationResult {
	errs := make([]string, 0, len(r.Errors)+len(other.Errors))
	errs = append(errs, r.Errors...)
	errs = append(errs, other.Errors...)
	return VerificationResult{Valid: r.Valid && other.Valid, Errors: errs}
}

// Err 将失败原因折叠为单个错误，验证通过时返回 nil
func (r VerificationResult) Err() error {
	if r.Valid {
		return nil
	}
	var err error
	for _, reason := range r.Errors {
		err = multierr.Append(err, errors.New(reason))
	}
	return &VerificationError{Reasons: r.Errors, cause: err}
}

// ValidationReport 结构校验结果
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
