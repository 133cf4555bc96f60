package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// 环境变量
const (
	EnvLevel     = "EXITMARKER_LOG_LEVEL"
	EnvFormat    = "EXITMARKER_LOG_FORMAT"
	EnvAddSource = "EXITMARKER_LOG_ADD_SOURCE"
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// SubsystemLevels 各子系统的日志级别
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// AddSource 是否添加源码位置
	AddSource bool
}

// LevelForSubsystem 获取指定子系统的日志级别
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

var (
	configCache *Config
	configOnce  sync.Once
)

// ConfigFromEnv 从环境变量解析配置，结果缓存
//
// 环境变量:
//   - EXITMARKER_LOG_LEVEL: 子系统=级别,子系统=级别,默认级别
//     示例: core/keystate=debug,storage/badger=warn,info
//   - EXITMARKER_LOG_FORMAT: text 或 json
//   - EXITMARKER_LOG_ADD_SOURCE: true 或 false
func ConfigFromEnv() *Config {
	configOnce.Do(func() {
		configCache = ParseConfig(os.Getenv(EnvLevel), os.Getenv(EnvFormat))
		if v := os.Getenv(EnvAddSource); v != "" {
			configCache.AddSource = v != "false" && v != "0"
		}
	})
	return configCache
}

// ParseConfig 解析级别字符串与格式名
//
// 空字符串使用默认值（info、text）。
func ParseConfig(level, format string) *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
	}
	parseLevelConfig(cfg, level)
	if strings.EqualFold(format, "json") {
		cfg.Format = FormatJSON
	}
	return cfg
}

// parseLevelConfig 解析 subsystem=level,...,defaultLevel
func parseLevelConfig(cfg *Config, levelStr string) {
	for _, part := range strings.Split(levelStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if sub, name, ok := strings.Cut(part, "="); ok {
			if level, ok := parseLevel(strings.TrimSpace(name)); ok {
				cfg.SubsystemLevels[strings.TrimSpace(sub)] = level
			}
			continue
		}
		if level, ok := parseLevel(part); ok {
			cfg.DefaultLevel = level
		}
	}
}

// parseLevel 解析日志级别名称
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ResetConfig 重置配置缓存（仅用于测试）
func ResetConfig() {
	configOnce = sync.Once{}
	configCache = nil
}

// SetFormat 设置之后创建的 Logger 的输出格式
//
// format 为 text 或 json。EXITMARKER_LOG_FORMAT 已设置时以环境变量为准，
// 已创建的 Logger 保持原格式，因此应在首次输出日志前调用。
func SetFormat(format string) {
	if os.Getenv(EnvFormat) != "" {
		return
	}
	cfg := ConfigFromEnv()
	if strings.EqualFold(format, "json") {
		cfg.Format = FormatJSON
	} else {
		cfg.Format = FormatText
	}
}
