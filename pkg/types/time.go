package types

import (
	"fmt"
	"time"
)

// TimeLayout 对外时间戳格式（UTC，毫秒精度）
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime 将时间格式化为对外时间戳
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime 解析时间戳
//
// 接受 RFC 3339（含可选小数秒）。
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
