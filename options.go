package exitmarker

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 统一配置
	config *config.Config

	// 注入的依赖，为空时使用默认实现或跳过
	clock       clock.Clock
	keystore    crypto.Keystore
	registerer  prometheus.Registerer
	validator   interfaces.SchemaValidator
	timestamper interfaces.Timestamper
	ledger      interfaces.Ledger

	// 用户扩展
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("配置不能为空")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 YAML 文件加载配置，EXITMARKER_* 环境变量优先
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithDataDir 设置数据目录
//
// 数据库与默认密钥目录都位于该目录下。
func WithDataDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return fmt.Errorf("数据目录不能为空")
		}
		o.config.Storage = o.config.Storage.WithDataDir(dir)
		return nil
	}
}

// WithProtocolVersion 设置签名域标签使用的协议版本
func WithProtocolVersion(version string) Option {
	return func(o *options) error {
		o.config.Protocol = o.config.Protocol.WithVersion(version)
		return nil
	}
}

// WithVerboseErrors 验证失败时返回全部原因
func WithVerboseErrors(verbose bool) Option {
	return func(o *options) error {
		o.config.Protocol = o.config.Protocol.WithVerboseErrors(verbose)
		return nil
	}
}

// ============================================================================
//                              依赖注入选项
// ============================================================================

// WithClock 注入时钟，测试中使用 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithKeystore 使用指定的密钥库，替代配置中的文件系统密钥库
func WithKeystore(ks crypto.Keystore) Option {
	return func(o *options) error {
		if ks == nil {
			return fmt.Errorf("密钥库不能为空")
		}
		o.keystore = ks
		return nil
	}
}

// WithMetrics 启用指标并注册到 reg
//
// reg 为空时注册到 prometheus.DefaultRegisterer。
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = true
		o.registerer = reg
		return nil
	}
}

// WithSchemaValidator 注入结构校验器，验证凭证时一并执行
func WithSchemaValidator(v interfaces.SchemaValidator) Option {
	return func(o *options) error {
		o.validator = v
		return nil
	}
}

// WithTimestamper 注入时间戳服务
func WithTimestamper(t interfaces.Timestamper) Option {
	return func(o *options) error {
		o.timestamper = t
		return nil
	}
}

// WithLedger 注入账本
func WithLedger(l interfaces.Ledger) Option {
	return func(o *options) error {
		o.ledger = l
		return nil
	}
}

// ============================================================================
//                              扩展选项
// ============================================================================

// WithFxOptions 追加 Fx 选项
//
// 用于挂载自定义组件或取出内部依赖，例如：
//
//	var cfg *config.Config
//	exitmarker.WithFxOptions(fx.Populate(&cfg))
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
