package exitmarker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/anchor"
	"github.com/dep2p/go-exitmarker/internal/core/dispute"
	"github.com/dep2p/go-exitmarker/internal/core/keystate"
	"github.com/dep2p/go-exitmarker/internal/core/marker"
	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	logutil "github.com/dep2p/go-exitmarker/internal/util/logger"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
)

var logger = log.Logger("exitmarker")

// ════════════════════════════════════════════════════════════════════════════
//                              版本信息
// ════════════════════════════════════════════════════════════════════════════

// Version 当前版本
const Version = "v0.1.0"

// BuildInfo 构建信息（通过 ldflags 注入）
var (
	// GitCommit Git 提交哈希
	GitCommit string

	// BuildDate 构建日期
	BuildDate string
)

// VersionInfo 返回完整版本信息字符串
func VersionInfo() string {
	info := "ExitMarker " + Version
	if GitCommit != "" {
		info += " (" + GitCommit[:min(8, len(GitCommit))] + ")"
	}
	if BuildDate != "" {
		info += " built " + BuildDate
	}
	return info
}

// ════════════════════════════════════════════════════════════════════════════
//                              Engine
// ════════════════════════════════════════════════════════════════════════════

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 10 * time.Second
)

// Engine 离开凭证引擎
//
// 持有存储、密钥状态、凭证、批次、争议与锚定组件。
// 所有方法并发安全。
type Engine struct {
	opts *options
	app  *fx.App

	// ────────────────────────────────────────────────────────────────────────
	// 组件（由 Fx 注入）
	// ────────────────────────────────────────────────────────────────────────

	keyState     *keystate.Manager
	markers      *marker.Service
	markerStore  marker.Repository
	batches      *merkle.Builder
	batchStore   *merkle.Repository
	disputes     *dispute.Service
	disputeStore *dispute.Repository
	anchors      *anchor.Service
	keystore     crypto.Keystore
	storage      engine.InternalEngine
	events       interfaces.EventBus
	emitters     *emitters
	clock        clock.Clock

	// ────────────────────────────────────────────────────────────────────────
	// 生命周期状态
	// ────────────────────────────────────────────────────────────────────────

	mu      sync.RWMutex
	started bool
	closed  bool
}

// New 创建引擎
//
// 创建引擎并打开存储，需要调用 Start() 启动后台任务。
//
// 示例：
//
//	eng, err := exitmarker.New(ctx,
//	    exitmarker.WithConfigFile("exitmarker.yaml"),
//	    exitmarker.WithLedger(myLedger),
//	)
func New(_ context.Context, opts ...Option) (*Engine, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	setupLogging(o.config)

	eng := &Engine{
		opts:  o,
		clock: clock.New(),
	}

	var err error
	eng.app, err = buildFxApp(o, eng)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}

	logger.Info("引擎已创建",
		"version", Version,
		"dataDir", o.config.Storage.DataDir,
		"protocol", o.config.Protocol.Version)
	return eng, nil
}

// Start 快捷启动函数
//
// 等价于 New() + Start()。
func Start(ctx context.Context, opts ...Option) (*Engine, error) {
	eng, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if err := eng.Start(ctx); err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}
	return eng, nil
}

// setupLogging 安装子系统日志并应用配置中的级别与格式
//
// 必须在任何组件输出日志之前调用。
func setupLogging(cfg *config.Config) {
	logutil.SetFormat(cfg.Log.Format)
	logutil.Apply(cfg.Log.Level)
	log.SetDefault(logutil.GlobalLogger())
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动引擎
//
// 执行各模块的 OnStart 钩子（存储 GC 等）。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := e.app.Start(startCtx); err != nil {
		logger.Error("引擎启动失败", "error", err)
		return fmt.Errorf("start fx app: %w", err)
	}

	e.started = true
	logger.Info("引擎已启动")
	return nil
}

// Stop 停止引擎
//
// 关闭存储并擦除密钥库密码，停止后引擎不可再用。
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if !e.started {
		return ErrNotStarted
	}
	return e.stopLocked(ctx)
}

func (e *Engine) stopLocked(ctx context.Context) error {
	e.started = false
	e.closed = true
	e.closeEmitters()

	if err := e.app.Stop(ctx); err != nil {
		logger.Error("停止引擎失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	logger.Info("引擎已停止")
	return nil
}

// Close 关闭引擎并释放所有资源
//
// 未启动的引擎同样会关闭存储。重复调用返回 nil。
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if e.started {
		return e.stopLocked(ctx)
	}

	// 未启动时 OnStop 钩子不会执行，直接关闭已打开的资源
	e.closed = true
	e.closeEmitters()
	var err error
	if c, ok := e.keystore.(interface{ Close() error }); ok {
		err = multierr.Append(err, c.Close())
	}
	if c, ok := e.events.(interface{ Close() error }); ok {
		err = multierr.Append(err, c.Close())
	}
	if e.storage != nil {
		err = multierr.Append(err, e.storage.Close())
	}
	logger.Info("引擎已关闭")
	return err
}

func (e *Engine) closeEmitters() {
	if e.emitters != nil {
		_ = e.emitters.Close()
	}
}

// IsRunning 检查引擎是否运行中
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started && !e.closed
}

// checkOpen 在引擎关闭后拒绝操作
func (e *Engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Config 返回生效的配置
func (e *Engine) Config() *config.Config {
	return e.opts.config
}

// KeyState 返回密钥状态管理器
func (e *Engine) KeyState() *keystate.Manager {
	return e.keyState
}

// Markers 返回凭证签名与验证服务
func (e *Engine) Markers() *marker.Service {
	return e.markers
}

// Disputes 返回争议服务
func (e *Engine) Disputes() *dispute.Service {
	return e.disputes
}

// Batches 返回批次构建器
func (e *Engine) Batches() *merkle.Builder {
	return e.batches
}

// Anchors 返回锚定服务
func (e *Engine) Anchors() *anchor.Service {
	return e.anchors
}

// Keystore 返回密钥库
func (e *Engine) Keystore() crypto.Keystore {
	return e.keystore
}
