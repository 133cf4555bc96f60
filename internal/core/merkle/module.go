package merkle

import (
	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"go.uber.org/fx"
)

// Params merkle 模块依赖参数
type Params struct {
	fx.In

	Engine     engine.InternalEngine
	UnifiedCfg *config.Config   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
}

// Result merkle 模块提供的结果
type Result struct {
	fx.Out

	Builder    *Builder
	Repository *Repository
}

// Module 返回 merkle Fx 模块
func Module() fx.Option {
	return fx.Module("merkle",
		fx.Provide(ProvideMerkle),
	)
}

// ProvideMerkle 创建批次构建器与存储
func ProvideMerkle(p Params) Result {
	cfg := config.DefaultMerkleConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Merkle
	}
	return Result{
		Builder: NewBuilder(
			WithWorkers(cfg.Workers),
			WithMaxBatchSize(cfg.MaxBatchSize),
			WithMetrics(p.Metrics),
			WithClock(p.Clock),
		),
		Repository: NewRepository(storage.NewKVStore(p.Engine, storage.PrefixBatches)),
	}
}
