package dispute

import (
	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"go.uber.org/fx"
)

// Params dispute 模块依赖参数
type Params struct {
	fx.In

	Engine     engine.InternalEngine
	UnifiedCfg *config.Config   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
}

// Result dispute 模块提供的结果
type Result struct {
	fx.Out

	Service    *Service
	Repository *Repository
}

// Module 返回 dispute Fx 模块
func Module() fx.Option {
	return fx.Module("dispute",
		fx.Provide(ProvideDispute),
	)
}

// ProvideDispute 创建争议服务与存储
func ProvideDispute(p Params) Result {
	opts := []Option{WithMetrics(p.Metrics), WithClock(p.Clock)}
	if cfg := p.UnifiedCfg; cfg != nil {
		opts = append(opts,
			WithDomainTag(types.DomainDispute.Tag(cfg.Protocol.Version)),
			WithDefaultExpiry(cfg.Dispute.DefaultExpiry.Duration()),
			WithVerbose(cfg.Protocol.VerboseErrors),
			WithMaxClockSkew(cfg.Protocol.MaxClockSkew.Duration()),
		)
	} else {
		opts = append(opts, WithDefaultExpiry(config.DefaultDisputeConfig().DefaultExpiry.Duration()))
	}
	return Result{
		Service:    NewService(opts...),
		Repository: NewRepository(storage.NewKVStore(p.Engine, storage.PrefixDisputes)),
	}
}
