package anchor

import (
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"go.uber.org/fx"
)

// Params anchor 模块依赖参数
type Params struct {
	fx.In

	Timestamper interfaces.Timestamper `optional:"true"`
	Ledger      interfaces.Ledger      `optional:"true"`
}

// Module 返回 anchor Fx 模块
func Module() fx.Option {
	return fx.Module("anchor",
		fx.Provide(ProvideService),
	)
}

// ProvideService 根据已注入的协作方创建锚定服务
func ProvideService(p Params) *Service {
	if p.Timestamper == nil && p.Ledger == nil {
		logger.Debug("未配置锚定协作方")
	}
	return NewService(WithTimestamper(p.Timestamper), WithLedger(p.Ledger))
}
