// Package logger 提供按子系统配置的日志系统
//
// 基于标准库 log/slog：
//   - 按子系统配置日志级别，运行时可调整
//   - 环境变量配置（EXITMARKER_LOG_LEVEL, EXITMARKER_LOG_FORMAT）
//   - 密钥材料与签名值在输出前统一脱敏
//
// 使用示例:
//
//	var log = logger.Logger("core/keystate")
//	log.Info("密钥轮换完成", "did", did, "sequence", seq)
//
// 环境变量配置:
//
//	# 所有模块 info，keystate 模块 debug
//	EXITMARKER_LOG_LEVEL=core/keystate=debug,info
//
//	# JSON 输出
//	EXITMARKER_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// levels 各子系统的级别变量，派生 Logger 共享
	levels sync.Map // map[string]*slog.LevelVar

	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回同一个实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	lv, _ := levels.LoadOrStore(subsystem, newLevelVar(cfg.LevelForSubsystem(subsystem)))
	l := slog.New(newHandler(subsystem, lv.(*slog.LevelVar), cfg.Format, cfg.AddSource))

	actual, _ := loggers.LoadOrStore(subsystem, l)
	return actual.(*slog.Logger)
}

func newLevelVar(level slog.Level) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return lv
}

// GlobalLogger 返回全局 Logger
//
// 由根包安装为 slog 默认 Logger，pkg/lib/log 的 LazyLogger 经由它输出。
func GlobalLogger() *slog.Logger {
	globalLoggerOnce.Do(func() {
		globalLogger = Logger("exitmarker")
	})
	return globalLogger
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	lv, _ := levels.LoadOrStore(subsystem, newLevelVar(level))
	lv.(*slog.LevelVar).Set(level)
}

// SetGlobalLevel 设置所有已创建子系统的日志级别
func SetGlobalLevel(level slog.Level) {
	levels.Range(func(_, value any) bool {
		value.(*slog.LevelVar).Set(level)
		return true
	})
}

// Apply 应用配置文件中的级别设置
//
// levelSpec 格式同 EXITMARKER_LOG_LEVEL。环境变量已设置时以环境变量为准。
func Apply(levelSpec string) {
	if envLevelSet() {
		return
	}
	cfg := ParseConfig(levelSpec, "")
	SetGlobalLevel(cfg.DefaultLevel)
	for sub, level := range cfg.SubsystemLevels {
		SetLevel(sub, level)
	}
}

// Discard 返回丢弃所有日志的 Logger（用于测试）
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// With 创建带有预设属性的 Logger
func With(subsystem string, args ...any) *slog.Logger {
	return Logger(subsystem).With(args...)
}

// SetOutput 设置全局日志输出目标，已创建的 Logger 同样生效
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}
