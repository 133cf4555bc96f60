package interfaces

// ============================================================================
//                              事件总线
// ============================================================================

// EventBus 进程内事件总线
//
// 事件按 Go 类型路由：Subscribe 与 Emitter 接收事件类型的指针
// （如 new(types.EvtMarkerIssued)），投递的是值。
type EventBus interface {
	// Subscribe 订阅指定类型的事件
	Subscribe(eventType any, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 获取指定类型的发射器
	Emitter(eventType any, opts ...EmitterOpt) (Emitter, error)

	// EventTypes 返回当前有订阅者或发射器的事件类型
	EventTypes() []any
}

// Subscription 事件订阅
type Subscription interface {
	// Out 返回事件通道，Close 后关闭
	Out() <-chan any

	// Close 取消订阅
	Close() error
}

// Emitter 事件发射器
type Emitter interface {
	// Emit 发射事件，订阅者缓冲区满时丢弃，不阻塞
	Emit(event any) error

	// Close 关闭发射器
	Close() error
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅设置
type SubscriptionSettings struct {
	Buffer int
}

// EmitterSettings 发射器设置
type EmitterSettings struct {
	// Stateful 新订阅者立即收到最后一个事件
	Stateful bool
}

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Stateful 设置发射器为有状态模式
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
