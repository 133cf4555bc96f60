package storage

import (
	"time"

	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
)

// Config Storage 模块配置
type Config struct {
	// Path BadgerDB 数据库目录（必需）
	Path string

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool

	// GCInterval 值日志 GC 间隔，0 表示禁用
	GCInterval time.Duration

	// GCDiscardRatio 值日志 GC 丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	sc := config.DefaultStorageConfig()
	return Config{
		Path:           sc.DBPath(),
		SyncWrites:     sc.SyncWrites,
		GCInterval:     sc.GCInterval.Duration(),
		GCDiscardRatio: 0.5,
	}
}

// ConfigFromUnified 从统一配置创建 Storage 配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if cfg.Storage.DataDir != "" {
		c.Path = cfg.Storage.DBPath()
	}
	c.SyncWrites = cfg.Storage.SyncWrites
	c.GCInterval = cfg.Storage.GCInterval.Duration()
	return c
}

// ToEngineConfig 转换为引擎配置
func (c *Config) ToEngineConfig() *engine.Config {
	return engine.DefaultConfig(c.Path).
		WithSyncWrites(c.SyncWrites).
		WithGC(c.GCInterval, c.GCDiscardRatio)
}

// Validate 验证配置
func (c *Config) Validate() error {
	return c.ToEngineConfig().Validate()
}

// WithPath 设置存储路径
func (c Config) WithPath(path string) Config {
	c.Path = path
	return c
}

// WithSyncWrites 设置同步写入
func (c Config) WithSyncWrites(sync bool) Config {
	c.SyncWrites = sync
	return c
}
