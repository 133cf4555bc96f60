package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// 数据目录结构：
//
//	${DataDir}/
//	├── exitmarker.db/     # BadgerDB：密钥事件日志、凭证、争议、批次
//	└── keys/              # 加密密钥文件（Keystore.Dir 为空时）
type StorageConfig struct {
	// DataDir 数据目录
	DataDir string `json:"data_dir"`

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool `json:"sync_writes"`

	// GCInterval 值日志 GC 间隔，0 表示禁用
	GCInterval Duration `json:"gc_interval"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:    "./data",
		SyncWrites: true,
		GCInterval: Duration(10 * time.Minute),
	}
}

// Validate 验证存储配置
func (c *StorageConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("storage: data_dir cannot be empty")
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("storage: gc_interval cannot be negative")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "exitmarker.db")
}

// KeysPath 返回默认密钥目录
func (c *StorageConfig) KeysPath() string {
	return filepath.Join(c.DataDir, "keys")
}

// WithDataDir 设置数据目录
func (c StorageConfig) WithDataDir(dir string) StorageConfig {
	c.DataDir = dir
	return c
}
