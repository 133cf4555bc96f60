// Package canonical 提供确定性的 JSON 编码与内容哈希
//
// 编码规则为 RFC 8785 JCS，由 github.com/gowebpki/jcs 完成：
//   - 对象键按 UTF-16 码元顺序排序
//   - 数字使用 ES6 最短往返表示，NaN/Inf 拒绝编码
//   - 字符串按 UTF-8 输出，只转义 '"'、'\' 与 C0 控制字符
//   - 无空白
//
// 本包在 JCS 之前补做三项检查：Go 值中的非法 UTF-8（encoding/json 会静默
// 替换为 U+FFFD，导致不同输入得到相同编码）、JSON 语法，以及 \u 转义中
// 不成对的代理项。三项任一不满足都返回错误，不做替换。
//
// 系统中所有的签名与哈希都依赖本包的输出，编码结果必须与字段声明顺序、
// map 遍历顺序以及标准库的 HTML 转义设置无关。
package canonical

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/gowebpki/jcs"
)

// 编码错误
var (
	// ErrNonFiniteNumber 数字为 NaN 或 ±Inf
	ErrNonFiniteNumber = errors.New("canonical: non-finite number")

	// ErrInvalidUTF8 字符串不是合法 UTF-8
	ErrInvalidUTF8 = errors.New("canonical: invalid UTF-8 string")

	// ErrUnsupportedValue 值无法编码
	ErrUnsupportedValue = errors.New("canonical: unsupported value")
)

// maxDepth 值遍历的最大嵌套深度，超出视为循环引用
const maxDepth = 1000

// Marshal 返回 v 的规范编码
//
// v 先经过 encoding/json 序列化（遵循 struct tag），再由 JCS 重新输出。
// 任何字符串、map 键或 Marshaler 输出中出现非法 UTF-8 时返回
// ErrInvalidUTF8。
func Marshal(v any) ([]byte, error) {
	raw, err := toJSON(v)
	if err != nil {
		return nil, err
	}
	return transform(raw)
}

// MarshalWithout 返回去掉指定顶层字段后的规范编码
//
// v 必须编码为 JSON 对象。用于构造签名载荷（去掉 proof 与 id）。
func MarshalWithout(v any, fields ...string) ([]byte, error) {
	raw, err := toJSON(v)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: expected object, got %.32s", ErrUnsupportedValue, raw)
	}
	for _, f := range fields {
		delete(obj, f)
	}
	trimmed, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return transform(trimmed)
}

// Transform 将外部收到的 JSON 文本转换为规范编码
//
// 输入中的非法 UTF-8 与不成对代理项会被拒绝而不是替换为 U+FFFD。
func Transform(raw []byte) ([]byte, error) {
	if !utf8.Valid(raw) {
		return nil, ErrInvalidUTF8
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrUnsupportedValue)
	}
	// 顶层标量按整段解析，不允许首尾空白
	return transform(bytes.TrimSpace(raw))
}

// toJSON 检查 UTF-8 后用 encoding/json 序列化
func toJSON(v any) ([]byte, error) {
	if err := checkUTF8(reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		var uve *json.UnsupportedValueError
		if errors.As(err, &uve) {
			return nil, fmt.Errorf("%w: %s", ErrNonFiniteNumber, uve.Str)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return raw, nil
}

// transform 对语法合法的 JSON 文本执行 JCS
func transform(raw []byte) ([]byte, error) {
	if err := checkSurrogates(raw); err != nil {
		return nil, err
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("%w: %v", ErrNonFiniteNumber, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return out, nil
}

// ============================================================================
//                              输入检查
// ============================================================================

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// checkUTF8 按 encoding/json 的遍历规则检查 v 中的所有字符串
//
// Marshaler 的输出同样检查。Marshaler 自身报错时交给 json.Marshal 报告。
func checkUTF8(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > maxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedValue, maxDepth)
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil
	}
	if out, ok := marshalerOutput(v); ok {
		if !utf8.Valid(out) {
			return ErrInvalidUTF8
		}
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return ErrInvalidUTF8
		}
	case reflect.Pointer, reflect.Interface:
		return checkUTF8(v.Elem(), depth+1)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}
			if f.Tag.Get("json") == "-" {
				continue
			}
			if err := checkUTF8(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkUTF8(iter.Key(), depth+1); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		// []byte 以 base64 输出
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// marshalerOutput 调用 v 实现的 json.Marshaler 或 encoding.TextMarshaler
func marshalerOutput(v reflect.Value) ([]byte, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	target := v
	if !v.Type().Implements(jsonMarshalerType) && !v.Type().Implements(textMarshalerType) {
		if v.Kind() == reflect.Pointer || !v.CanAddr() {
			return nil, false
		}
		target = v.Addr()
	}
	switch m := target.Interface().(type) {
	case json.Marshaler:
		out, err := m.MarshalJSON()
		if err != nil {
			return nil, true
		}
		return out, true
	case encoding.TextMarshaler:
		out, err := m.MarshalText()
		if err != nil {
			return nil, true
		}
		return out, true
	}
	return nil, false
}

// checkSurrogates 拒绝字符串中不成对的 \uD800-\uDFFF 转义
//
// raw 必须是语法合法的 JSON。
func checkSurrogates(raw []byte) error {
	inString := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			continue
		}
		switch c {
		case '"':
			inString = false
		case '\\':
			if raw[i+1] != 'u' {
				i++
				continue
			}
			r := hexRune(raw, i+2)
			switch {
			case r >= 0xd800 && r < 0xdc00:
				if i+11 >= len(raw) || raw[i+6] != '\\' || raw[i+7] != 'u' {
					return fmt.Errorf("%w: unpaired surrogate", ErrInvalidUTF8)
				}
				low := hexRune(raw, i+8)
				if utf16.DecodeRune(r, low) == utf8.RuneError {
					return fmt.Errorf("%w: unpaired surrogate", ErrInvalidUTF8)
				}
				i += 11
			case utf16.IsSurrogate(r):
				return fmt.Errorf("%w: unpaired surrogate", ErrInvalidUTF8)
			default:
				i += 5
			}
		}
	}
	return nil
}

// hexRune 解析 raw[p:p+4] 的四位十六进制数，失败返回 -1
func hexRune(raw []byte, p int) rune {
	if p+4 > len(raw) {
		return -1
	}
	n, err := strconv.ParseUint(string(raw[p:p+4]), 16, 32)
	if err != nil {
		return -1
	}
	return rune(n)
}
