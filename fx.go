package exitmarker

import (
	"context"
	"fmt"
	"os"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/anchor"
	"github.com/dep2p/go-exitmarker/internal/core/dispute"
	"github.com/dep2p/go-exitmarker/internal/core/eventbus"
	"github.com/dep2p/go-exitmarker/internal/core/keystate"
	"github.com/dep2p/go-exitmarker/internal/core/marker"
	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/prometheus/client_golang/prometheus"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. storage → metrics → eventbus
//  2. keystate → merkle → dispute → marker
//  3. anchor（协作者可选）
//  4. 用户扩展
func buildFxApp(o *options, eng *Engine) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 注入的依赖
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, injectedDependencies(o)...)

	if o.keystore != nil {
		ks := o.keystore
		modules = append(modules, fx.Provide(func() crypto.Keystore { return ks }))
	} else {
		modules = append(modules, fx.Provide(provideKeystore))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		storage.Module(),
		metrics.Module(),
		eventbus.Module(),
		keystate.Module(),
		merkle.Module(),
		dispute.Module(),
		marker.Module(),
		anchor.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. Engine 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectEngineComponents(eng)))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// injectedDependencies 将用户注入的协作者转换为 Fx 提供者
//
// 未注入的依赖不提供，下游模块通过 optional 标签跳过。
func injectedDependencies(o *options) []fx.Option {
	var opts []fx.Option
	if c := o.clock; c != nil {
		opts = append(opts, fx.Provide(func() clock.Clock { return c }))
	}
	if reg := o.registerer; reg != nil {
		opts = append(opts, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	if v := o.validator; v != nil {
		opts = append(opts, fx.Provide(func() interfaces.SchemaValidator { return v }))
	}
	if t := o.timestamper; t != nil {
		opts = append(opts, fx.Provide(func() interfaces.Timestamper { return t }))
	}
	if l := o.ledger; l != nil {
		opts = append(opts, fx.Provide(func() interfaces.Ledger { return l }))
	}
	return opts
}

// ════════════════════════════════════════════════════════════════════════════
// 密钥库
// ════════════════════════════════════════════════════════════════════════════

// provideKeystore 按配置创建文件系统密钥库
//
// 密码从 Keystore.PasswordEnv 指定的环境变量读取，为空时明文保存。
// 应用停止时擦除内存中的密码。
func provideKeystore(lc fx.Lifecycle, cfg *config.Config) (crypto.Keystore, error) {
	dir := cfg.Keystore.Dir
	if dir == "" {
		dir = cfg.Storage.KeysPath()
	}

	var password []byte
	if env := cfg.Keystore.PasswordEnv; env != "" {
		password = []byte(os.Getenv(env))
	}
	ks, err := crypto.NewFSKeystore(dir, password)
	crypto.SecureZero(password)
	if err != nil {
		return nil, fmt.Errorf("open keystore %s: %w", dir, err)
	}
	if len(password) == 0 {
		logger.Warn("密钥库未设置密码，私钥以明文保存", "dir", dir)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return ks.Close()
		},
	})
	return ks, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// engineInjectParams Engine 组件注入参数
type engineInjectParams struct {
	fx.In

	// 核心组件（必需）
	KeyState     *keystate.Manager
	Markers      *marker.Service
	MarkerStore  marker.Repository
	Batches      *merkle.Builder
	BatchStore   *merkle.Repository
	Disputes     *dispute.Service
	DisputeStore *dispute.Repository
	Anchors      *anchor.Service
	Keystore     crypto.Keystore
	Storage      engine.InternalEngine
	EventBus     interfaces.EventBus

	// 可选组件
	Clock clock.Clock `optional:"true"`
}

// injectEngineComponents 创建 Engine 组件注入函数
func injectEngineComponents(eng *Engine) interface{} {
	return func(p engineInjectParams) error {
		em, err := newEmitters(p.EventBus)
		if err != nil {
			return fmt.Errorf("open event emitters: %w", err)
		}

		eng.keyState = p.KeyState
		eng.markers = p.Markers
		eng.markerStore = p.MarkerStore
		eng.batches = p.Batches
		eng.batchStore = p.BatchStore
		eng.disputes = p.Disputes
		eng.disputeStore = p.DisputeStore
		eng.anchors = p.Anchors
		eng.keystore = p.Keystore
		eng.storage = p.Storage
		eng.events = p.EventBus
		eng.emitters = em

		if p.Clock != nil {
			eng.clock = p.Clock
		}
		return nil
	}
}
