package marker

import (
	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/keystate"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"go.uber.org/fx"
)

// Params marker 模块依赖参数
type Params struct {
	fx.In

	Engine     engine.InternalEngine
	UnifiedCfg *config.Config             `optional:"true"`
	Metrics    *metrics.Metrics           `optional:"true"`
	Clock      clock.Clock                `optional:"true"`
	Validator  interfaces.SchemaValidator `optional:"true"`
	KeyState   *keystate.Manager          `optional:"true"`
}

// Result marker 模块提供的结果
type Result struct {
	fx.Out

	Service    *Service
	Repository Repository
}

// Module 返回 marker Fx 模块
//
// 提供:
//   - *Service: 签名与验证，存在 *keystate.Manager 时启用密钥状态检查
//   - Repository: 基于存储引擎 "m/" 前缀
func Module() fx.Option {
	return fx.Module("marker",
		fx.Provide(ProvideMarker),
	)
}

// ProvideMarker 创建 marker 服务与存储
func ProvideMarker(p Params) Result {
	opts := []Option{
		WithClock(p.Clock),
		WithMetrics(p.Metrics),
		WithSchemaValidator(p.Validator),
	}
	if p.KeyState != nil {
		opts = append(opts, WithKeyState(p.KeyState))
	}
	if cfg := p.UnifiedCfg; cfg != nil {
		opts = append(opts,
			WithDomainTag(types.DomainMarker.Tag(cfg.Protocol.Version)),
			WithVerbose(cfg.Protocol.VerboseErrors),
			WithMaxClockSkew(cfg.Protocol.MaxClockSkew.Duration()),
		)
	}
	return Result{
		Service:    NewService(opts...),
		Repository: NewKVRepository(storage.NewKVStore(p.Engine, storage.PrefixMarkers)),
	}
}
