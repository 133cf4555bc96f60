package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	// globalOutput 全局日志输出目标，默认为 stderr
	globalOutput   io.Writer = os.Stderr
	globalOutputMu sync.RWMutex
)

// dynamicWriter 每次写入时查找 globalOutput
type dynamicWriter struct{}

func (w *dynamicWriter) Write(p []byte) (n int, err error) {
	globalOutputMu.RLock()
	output := globalOutput
	globalOutputMu.RUnlock()
	return output.Write(p)
}

// redactedKeys 输出前替换为 [REDACTED] 的属性名
var redactedKeys = map[string]struct{}{
	"privateKey": {},
	"seed":       {},
	"password":   {},
	"signature":  {},
	"proofValue": {},
}

// Redacted 脱敏占位
const Redacted = "[REDACTED]"

// newHandler 创建子系统 Handler
func newHandler(subsystem string, level *slog.LevelVar, format LogFormat, addSource bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelToString(lvl))
				}
			default:
				if _, ok := redactedKeys[a.Key]; ok {
					a.Value = slog.StringValue(Redacted)
				}
			}
			return a
		},
	}

	output := &dynamicWriter{}
	var inner slog.Handler
	if format == FormatJSON {
		inner = slog.NewJSONHandler(output, opts)
	} else {
		inner = slog.NewTextHandler(output, opts)
	}
	return inner.WithAttrs([]slog.Attr{slog.String("subsystem", subsystem)})
}

// levelToString 将日志级别转换为小写字符串
func levelToString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func envLevelSet() bool {
	v, ok := os.LookupEnv(EnvLevel)
	return ok && v != ""
}

// discardHandler 丢弃所有日志
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// DiscardHandler 返回丢弃所有日志的 Handler
func DiscardHandler() slog.Handler {
	return discardHandler{}
}
