package metrics

import (
	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var logger = log.Logger("core/metrics")

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回 Metrics Fx 模块
//
// 未启用指标时提供 nil *Metrics，下游调用均为空操作。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideMetrics),
	)
}

// ProvideMetrics 按配置创建指标
//
// 未注入 Registerer 时注册到 prometheus.DefaultRegisterer。
func ProvideMetrics(p Params) (*Metrics, error) {
	cfg := config.DefaultMetricsConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Metrics
	}
	if !cfg.Enabled {
		logger.Debug("指标未启用")
		return nil, nil
	}

	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m, err := New(reg, cfg.Namespace)
	if err != nil {
		logger.Error("注册指标失败", "error", err)
		return nil, err
	}
	logger.Info("指标已注册", "namespace", cfg.Namespace)
	return m, nil
}
