package config

import (
	"fmt"
	"regexp"
	"time"
)

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)

// ProtocolConfig 签名协议配置
type ProtocolConfig struct {
	// Version 协议版本，决定域分隔标签（exit-marker-v<Version>:）
	//
	// 修改版本会使旧版本签名无法在新版本下验证。
	Version string `json:"version"`

	// VerboseErrors 验证失败时返回底层密码学细节
	//
	// 默认关闭，避免向攻击者暴露验证预言机。
	VerboseErrors bool `json:"verbose_errors"`

	// MaxClockSkew 允许 proof.created 超前当前时间的幅度，0 表示不检查
	MaxClockSkew Duration `json:"max_clock_skew"`
}

// DefaultProtocolConfig 返回默认协议配置
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		Version:       "1.1",
		VerboseErrors: false,
		MaxClockSkew:  Duration(5 * time.Minute),
	}
}

// Validate 验证协议配置
func (c *ProtocolConfig) Validate() error {
	if !versionPattern.MatchString(c.Version) {
		return fmt.Errorf("protocol: invalid version %q", c.Version)
	}
	if c.MaxClockSkew < 0 {
		return fmt.Errorf("protocol: max_clock_skew cannot be negative")
	}
	return nil
}

// WithVersion 设置协议版本
func (c ProtocolConfig) WithVersion(v string) ProtocolConfig {
	c.Version = v
	return c
}

// WithVerboseErrors 设置详细错误
func (c ProtocolConfig) WithVerboseErrors(v bool) ProtocolConfig {
	c.VerboseErrors = v
	return c
}
