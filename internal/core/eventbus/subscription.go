package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// ============================================================================
//                              Subscription
// ============================================================================

// Subscription 事件订阅
type Subscription struct {
	bus       *Bus
	typ       reflect.Type
	out       chan any
	closeOnce sync.Once
}

// Out 返回事件通道
func (s *Subscription) Out() <-chan any {
	return s.out
}

// Close 取消订阅并关闭通道，可重复调用
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		// 先从节点移除，之后不会再有发送
		s.bus.removeSub(s)
		close(s.out)
	})
	return nil
}

// ============================================================================
//                              Emitter
// ============================================================================

// Emitter 单一事件类型的发射器
type Emitter struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	closed    atomic.Bool
	closeOnce sync.Once
}

// Emit 发射事件，event 必须是发射器类型的值
func (e *Emitter) Emit(event any) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if got := reflect.TypeOf(event); got != e.typ {
		return fmt.Errorf("emit %v on %v emitter: %w", got, e.typ, ErrWrongEventType)
	}
	e.node.emit(event)
	return nil
}

// Close 关闭发射器，最后一个发射器关闭且无订阅者时释放节点
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}
