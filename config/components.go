package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ============================================================================
//                              KeyState
// ============================================================================

// KeyStateConfig 密钥状态机配置
type KeyStateConfig struct {
	// CacheSize 已解析状态的 LRU 缓存容量
	CacheSize int `json:"cache_size"`
}

// DefaultKeyStateConfig 返回默认配置
func DefaultKeyStateConfig() KeyStateConfig {
	return KeyStateConfig{CacheSize: 1024}
}

// Validate 验证配置
func (c *KeyStateConfig) Validate() error {
	if c.CacheSize <= 0 {
		return fmt.Errorf("key_state: cache_size must be positive")
	}
	return nil
}

// ============================================================================
//                              Merkle
// ============================================================================

// MerkleConfig 批次锚定配置
type MerkleConfig struct {
	// Workers 并行计算叶子哈希的 goroutine 上限
	Workers int `json:"workers"`

	// MaxBatchSize 单批次最大凭证数，0 表示不限制
	MaxBatchSize int `json:"max_batch_size"`
}

// DefaultMerkleConfig 返回默认配置
func DefaultMerkleConfig() MerkleConfig {
	return MerkleConfig{
		Workers:      runtime.GOMAXPROCS(0),
		MaxBatchSize: 1 << 16,
	}
}

// Validate 验证配置
func (c *MerkleConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("merkle: workers must be positive")
	}
	if c.MaxBatchSize < 0 {
		return fmt.Errorf("merkle: max_batch_size cannot be negative")
	}
	return nil
}

// ============================================================================
//                              Dispute
// ============================================================================

// DisputeConfig 争议配置
type DisputeConfig struct {
	// DefaultExpiry 创建争议时未指定过期时间则使用该时长，0 表示永不过期
	DefaultExpiry Duration `json:"default_expiry"`
}

// DefaultDisputeConfig 返回默认配置
func DefaultDisputeConfig() DisputeConfig {
	return DisputeConfig{DefaultExpiry: Duration(90 * 24 * time.Hour)}
}

// Validate 验证配置
func (c *DisputeConfig) Validate() error {
	if c.DefaultExpiry < 0 {
		return fmt.Errorf("dispute: default_expiry cannot be negative")
	}
	return nil
}

// ============================================================================
//                              Keystore
// ============================================================================

// KeystoreConfig 密钥存储配置
type KeystoreConfig struct {
	// Dir 密钥目录，为空时使用 ${Storage.DataDir}/keys
	Dir string `json:"dir"`

	// PasswordEnv 保存加密密码的环境变量名，变量为空时以明文保存
	PasswordEnv string `json:"password_env"`
}

// DefaultKeystoreConfig 返回默认配置
func DefaultKeystoreConfig() KeystoreConfig {
	return KeystoreConfig{PasswordEnv: "EXITMARKER_KEYSTORE_PASSWORD"}
}

// Validate 验证配置
func (c *KeystoreConfig) Validate() error {
	return nil
}

// ============================================================================
//                              Log
// ============================================================================

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，格式同 EXITMARKER_LOG_LEVEL（如 "info" 或 "core/keystate=debug,warn"）
	Level string `json:"level"`

	// Format text 或 json
	Format string `json:"format"`
}

// DefaultLogConfig 返回默认配置
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "text"}
}

// Validate 验证配置
func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
}

// ============================================================================
//                              Metrics
// ============================================================================

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否注册 Prometheus 指标
	Enabled bool `json:"enabled"`

	// Namespace 指标名前缀
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: false, Namespace: "exitmarker"}
}

// Validate 验证配置
func (c *MetricsConfig) Validate() error {
	if c.Enabled && c.Namespace == "" {
		return fmt.Errorf("metrics: namespace cannot be empty when enabled")
	}
	return nil
}
