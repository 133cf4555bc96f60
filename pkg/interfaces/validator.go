package interfaces

import "github.com/dep2p/go-exitmarker/pkg/types"

// SchemaValidator 结构校验器
//
// 与证明验证一同调用。实现应返回全部问题而不是在第一个问题处停止。
type SchemaValidator interface {
	// Validate 校验记录结构
	Validate(record any) types.ValidationReport
}

// SchemaValidatorFunc 函数适配器
type SchemaValidatorFunc func(record any) types.ValidationReport

// Validate 实现 SchemaValidator
func (f SchemaValidatorFunc) Validate(record any) types.ValidationReport {
	return f(record)
}
