package keystate

import (
	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"go.uber.org/fx"
)

// Params keystate 模块依赖参数
type Params struct {
	fx.In

	Engine     engine.InternalEngine
	UnifiedCfg *config.Config   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Result keystate 模块提供的结果
type Result struct {
	fx.Out

	Store   Store
	Manager *Manager
}

// Module 返回 keystate Fx 模块
//
// 提供:
//   - Store: 基于存储引擎 "k/" 前缀的事件存储
//   - *Manager: 密钥状态管理器
func Module() fx.Option {
	return fx.Module("keystate",
		fx.Provide(ProvideManager),
	)
}

// ProvideManager 创建事件存储与 Manager
func ProvideManager(p Params) (Result, error) {
	cacheSize := config.DefaultKeyStateConfig().CacheSize
	if p.UnifiedCfg != nil {
		cacheSize = p.UnifiedCfg.KeyState.CacheSize
	}

	store, err := NewKVStore(storage.NewKVStore(p.Engine, storage.PrefixKeyEvents))
	if err != nil {
		return Result{}, err
	}
	mgr, err := NewManager(store, WithCacheSize(cacheSize), WithMetrics(p.Metrics))
	if err != nil {
		return Result{}, err
	}
	return Result{Store: store, Manager: mgr}, nil
}
