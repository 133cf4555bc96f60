// Package config 提供统一的配置管理
//
// 主 Config 嵌入所有子配置，每个子配置在独立文件中定义，
// 提供 DefaultXxxConfig 与 Validate。
//
// 使用示例：
//
//	// 默认配置
//	cfg := config.NewConfig()
//	cfg.Storage.DataDir = "/var/lib/exitmarker"
//
//	// 从 YAML 文件加载，EXITMARKER_* 环境变量优先
//	cfg, err := config.Load("exitmarker.yaml")
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Config go-exitmarker 的完整配置
type Config struct {
	// Protocol 签名协议配置
	Protocol ProtocolConfig `json:"protocol"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// KeyState 密钥状态机配置
	KeyState KeyStateConfig `json:"key_state"`

	// Merkle 批次锚定配置
	Merkle MerkleConfig `json:"merkle"`

	// Dispute 争议配置
	Dispute DisputeConfig `json:"dispute"`

	// Keystore 密钥存储配置
	Keystore KeystoreConfig `json:"keystore"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Protocol: DefaultProtocolConfig(),
		Storage:  DefaultStorageConfig(),
		KeyState: DefaultKeyStateConfig(),
		Merkle:   DefaultMerkleConfig(),
		Dispute:  DefaultDisputeConfig(),
		Keystore: DefaultKeystoreConfig(),
		Log:      DefaultLogConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// Validate 验证全部子配置，返回合并后的错误
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	return multierr.Combine(
		c.Protocol.Validate(),
		c.Storage.Validate(),
		c.KeyState.Validate(),
		c.Merkle.Validate(),
		c.Dispute.Validate(),
		c.Keystore.Validate(),
		c.Log.Validate(),
		c.Metrics.Validate(),
	)
}

// FromJSON 在默认配置之上解析 JSON
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
