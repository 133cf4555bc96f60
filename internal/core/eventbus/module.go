package eventbus

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-exitmarker/pkg/interfaces"
)

// ============================================================================
//                              Fx 模块
// ============================================================================

// Result 模块输出
type Result struct {
	fx.Out

	EventBus interfaces.EventBus
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 提供事件总线，应用停止时关闭全部订阅
func ProvideEventBus(lc fx.Lifecycle) Result {
	bus := NewBus()
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return bus.Close()
		},
	})
	return Result{EventBus: bus}
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "eventbus"
	// Description 模块描述
	Description = "进程内事件总线，按类型发布引擎事件"
)
