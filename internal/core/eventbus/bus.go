package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// DefaultBufSize 订阅通道的默认缓冲区大小
const DefaultBufSize = 16

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus closed")
	// ErrInvalidEventType 无效的事件类型
	ErrInvalidEventType = errors.New("invalid event type")
	// ErrNonPointerType 非指针类型
	ErrNonPointerType = errors.New("event type must be a pointer")
	// ErrWrongEventType 发射的事件与发射器类型不符
	ErrWrongEventType = errors.New("wrong event type")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("emitter closed")
)

// ============================================================================
//                              Bus
// ============================================================================

// Bus 按事件类型路由的进程内总线
type Bus struct {
	mu     sync.RWMutex
	nodes  map[reflect.Type]*node
	closed bool
}

var _ interfaces.EventBus = (*Bus)(nil)

// node 单个事件类型的订阅者与发射器
type node struct {
	lk        sync.Mutex
	typ       reflect.Type
	sinks     []*Subscription
	nEmitters atomic.Int32

	// keepLast 任一发射器为 Stateful 时保存最后一个事件
	keepLast bool
	last     any

	dropped atomic.Int64
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{nodes: make(map[reflect.Type]*node)}
}

// Subscribe 订阅 eventType 指向的类型
func (b *Bus) Subscribe(eventType any, opts ...interfaces.SubscriptionOpt) (interfaces.Subscription, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	settings := interfaces.SubscriptionSettings{Buffer: DefaultBufSize}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Buffer < 0 {
		return nil, fmt.Errorf("buffer size %d: %w", settings.Buffer, ErrInvalidEventType)
	}

	sub := &Subscription{
		bus: b,
		typ: typ,
		out: make(chan any, settings.Buffer),
	}
	err = b.withNode(typ, func(n *node) {
		n.sinks = append(n.sinks, sub)
		if n.keepLast && n.last != nil {
			select {
			case sub.out <- n.last:
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Emitter 返回 eventType 指向类型的发射器
func (b *Bus) Emitter(eventType any, opts ...interfaces.EmitterOpt) (interfaces.Emitter, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	var settings interfaces.EmitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	em := &Emitter{bus: b, typ: typ}
	err = b.withNode(typ, func(n *node) {
		n.nEmitters.Add(1)
		if settings.Stateful {
			n.keepLast = true
		}
		em.node = n
	})
	if err != nil {
		return nil, err
	}
	return em, nil
}

// EventTypes 返回当前有订阅者或发射器的事件类型（零值）
func (b *Bus) EventTypes() []any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]any, 0, len(b.nodes))
	for typ := range b.nodes {
		out = append(out, reflect.Zero(typ).Interface())
	}
	return out
}

// Close 关闭总线及全部订阅
//
// 关闭后 Subscribe 与 Emitter 返回 ErrClosed，已有发射器的 Emit 变为空操作。
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*Subscription
	for _, n := range b.nodes {
		n.lk.Lock()
		subs = append(subs, n.sinks...)
		n.lk.Unlock()
	}
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

// ============================================================================
//                              内部方法
// ============================================================================

func elemType(eventType any) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Pointer {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// withNode 在 typ 的节点锁内执行 cb，节点不存在时创建
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}
	n.lk.Lock()
	b.mu.Unlock()

	cb(n)
	n.lk.Unlock()
	return nil
}

// tryDropNode 节点没有订阅者和发射器时删除
func (b *Bus) tryDropNode(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	n.lk.Lock()
	idle := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()
	if idle {
		delete(b.nodes, typ)
	}
}

func (b *Bus) removeSub(sub *Subscription) {
	b.mu.RLock()
	n, ok := b.nodes[sub.typ]
	b.mu.RUnlock()
	if !ok {
		return
	}

	n.lk.Lock()
	for i, s := range n.sinks {
		if s == sub {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			break
		}
	}
	idle := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if idle {
		b.tryDropNode(sub.typ)
	}
}

// emit 投递到所有订阅者，缓冲区满的订阅者丢弃该事件
func (n *node) emit(event any) {
	n.lk.Lock()
	defer n.lk.Unlock()

	if n.keepLast {
		n.last = event
	}
	for _, sub := range n.sinks {
		select {
		case sub.out <- event:
		default:
			// 每 100 次丢弃告警一次
			if d := n.dropped.Add(1); d%100 == 1 {
				logger.Warn("慢消费者，事件已丢弃", "type", n.typ.String(), "dropped", d)
			}
		}
	}
}
