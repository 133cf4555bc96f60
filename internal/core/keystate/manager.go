package keystate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

var logger = log.Logger("core/keystate")

// DefaultCacheSize 默认缓存的日志数量
const DefaultCacheSize = 1024

// Manager 管理多个标识符的密钥事件日志
//
// 每个标识符同一时刻只有一个写者：Manager 为每个标识符持有一把锁，
// 覆盖“加载日志、校验、预写、追加”全过程。已加载的日志缓存在 LRU 中，
// 被淘汰后从 Store 重新回放。
type Manager struct {
	store   Store
	cache   *lru.Cache[string, *Log]
	metrics *metrics.Metrics

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// ManagerOption Manager 选项
type ManagerOption func(*managerConfig)

type managerConfig struct {
	cacheSize int
	metrics   *metrics.Metrics
}

// WithCacheSize 设置日志缓存大小
func WithCacheSize(n int) ManagerOption {
	return func(c *managerConfig) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithMetrics 记录事件指标
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(c *managerConfig) {
		c.metrics = m
	}
}

// NewManager 创建 Manager
func NewManager(store Store, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("keystate: nil store")
	}
	cfg := managerConfig{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	cache, err := lru.New[string, *Log](cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:   store,
		cache:   cache,
		metrics: cfg.metrics,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

func (m *Manager) lockFor(identifier string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	mu, ok := m.locks[identifier]
	if !ok {
		mu = new(sync.Mutex)
		m.locks[identifier] = mu
	}
	return mu
}

// load 返回标识符的日志，调用方需持有该标识符的锁
func (m *Manager) load(identifier string) (*Log, error) {
	if l, ok := m.cache.Get(identifier); ok {
		return l, nil
	}
	events, err := m.store.Load(identifier)
	if err != nil {
		return nil, err
	}
	l, err := LogFromEvents(events)
	if err != nil {
		logger.Error("密钥事件日志回放失败", "did", log.ShortDID(identifier), "error", err)
		return nil, err
	}
	m.cache.Add(identifier, l)
	return l, nil
}

// ============================================================================
//                              写路径
// ============================================================================

// Append 校验事件并预写到 Store，成功后返回新状态
func (m *Manager) Append(ctx context.Context, ev *Event) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	if ev == nil {
		return State{}, fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}

	mu := m.lockFor(ev.Identifier)
	mu.Lock()
	defer mu.Unlock()

	l, err := m.load(ev.Identifier)
	if err != nil {
		return State{}, err
	}

	state, err := l.AppendFunc(ev, m.store.Append)
	m.metrics.KeyEvent(string(ev.Type), err == nil)
	if err != nil {
		logger.Warn("密钥事件被拒绝",
			"did", log.ShortDID(ev.Identifier),
			"type", ev.Type,
			"sequence", ev.Sequence,
			"error", err)
		return state, err
	}

	logger.Info("密钥事件已追加",
		"did", log.ShortDID(ev.Identifier),
		"type", ev.Type,
		"sequence", ev.Sequence,
		"status", state.Status)
	return state, nil
}

// ============================================================================
//                              读路径
// ============================================================================

// State 返回标识符的当前状态，未知标识符返回 Unborn
func (m *Manager) State(identifier string) (State, error) {
	l, err := m.log(identifier)
	if err != nil {
		return State{}, err
	}
	return l.State(), nil
}

// Events 返回标识符的事件快照
func (m *Manager) Events(identifier string) ([]*Event, error) {
	l, err := m.log(identifier)
	if err != nil {
		return nil, err
	}
	return l.Events(), nil
}

// Replay 绕过缓存，直接从 Store 加载并回放
func (m *Manager) Replay(identifier string) (ReplayResult, error) {
	events, err := m.store.Load(identifier)
	if err != nil {
		return ReplayResult{}, err
	}
	return Replay(events), nil
}

// KeyStatus 返回 keyDID 在标识符日志序号 at 时的状态
func (m *Manager) KeyStatus(identifier, keyDID string, at uint64) (KeyStatus, error) {
	l, err := m.log(identifier)
	if err != nil {
		return KeyUnknown, err
	}
	return l.KeyStatus(keyDID, at), nil
}

// Retirement 返回 keyDID 在标识符日志中的退出事件
func (m *Manager) Retirement(identifier, keyDID string) (Retirement, bool, error) {
	l, err := m.log(identifier)
	if err != nil {
		return Retirement{}, false, err
	}
	r, ok := l.Retirement(keyDID)
	return r, ok, nil
}

func (m *Manager) log(identifier string) (*Log, error) {
	if l, ok := m.cache.Get(identifier); ok {
		return l, nil
	}
	mu := m.lockFor(identifier)
	mu.Lock()
	defer mu.Unlock()
	return m.load(identifier)
}
