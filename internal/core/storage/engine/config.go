package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config 存储引擎配置
//
// 测试代码使用 t.TempDir() 作为 Path。
type Config struct {
	// Path 数据目录（必需）
	Path string

	// SyncWrites 每次写入都同步到磁盘
	//
	// 密钥事件日志是预写日志，生产环境应开启。
	SyncWrites bool

	// ReadOnly 只读打开（审计场景）
	ReadOnly bool

	// GCInterval 值日志 GC 间隔，0 表示禁用
	GCInterval time.Duration

	// GCDiscardRatio 值日志 GC 丢弃比例
	GCDiscardRatio float64

	// BlockCacheSize 块缓存大小（字节）
	BlockCacheSize int64

	// ValueLogFileSize 值日志文件大小（字节）
	ValueLogFileSize int64

	// Logger BadgerDB 内部日志输出，nil 表示禁用
	Logger *slog.Logger
}

// DefaultConfig 返回默认配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:             path,
		SyncWrites:       true,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		BlockCacheSize:   64 << 20, // 64MB
		ValueLogFileSize: 64 << 20, // 64MB
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidConfig)
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("%w: negative gc interval", ErrInvalidConfig)
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return fmt.Errorf("%w: gc discard ratio must be in (0,1)", ErrInvalidConfig)
	}
	if c.BlockCacheSize <= 0 {
		// 默认开启了块压缩，BadgerDB 要求块缓存
		return fmt.Errorf("%w: block cache size must be positive", ErrInvalidConfig)
	}
	if c.ValueLogFileSize < 1<<20 {
		return fmt.Errorf("%w: value log file size below 1MB", ErrInvalidConfig)
	}
	return nil
}

// EnsureDir 确保数据目录存在并将 Path 转为绝对路径
func (c *Config) EnsureDir() error {
	absPath, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	c.Path = absPath
	return os.MkdirAll(c.Path, 0700)
}

// WithSyncWrites 设置同步写入
func (c *Config) WithSyncWrites(sync bool) *Config {
	c.SyncWrites = sync
	return c
}

// WithReadOnly 设置只读模式
func (c *Config) WithReadOnly(readOnly bool) *Config {
	c.ReadOnly = readOnly
	return c
}

// WithGC 设置值日志 GC
func (c *Config) WithGC(interval time.Duration, discardRatio float64) *Config {
	c.GCInterval = interval
	c.GCDiscardRatio = discardRatio
	return c
}

// WithLogger 设置 BadgerDB 日志输出
func (c *Config) WithLogger(l *slog.Logger) *Config {
	c.Logger = l
	return c
}
