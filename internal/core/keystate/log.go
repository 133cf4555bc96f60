package keystate

import (
	"fmt"
	"sync"
)

// Log 单个标识符的只追加密钥事件日志
//
// 追加是单写者的：Append 持有互斥锁完成“读尾部、校验、追加”，
// 两个声明扩展同一尾部的事件只有一个会被接受。读取返回快照，
// 可与追加并发。
type Log struct {
	mu     sync.RWMutex
	events []*Event
	state  State
}

// NewLog 创建空日志
func NewLog() *Log {
	return &Log{state: UnbornState()}
}

// LogFromEvents 回放已有事件构建日志
//
// 任一事件非法时返回错误，不构建部分日志。
func LogFromEvents(events []*Event) (*Log, error) {
	res := Replay(events)
	if !res.Valid {
		return nil, fmt.Errorf("%w: at index %d: %w", ErrLogCorrupted, res.InvalidAt, res.Err)
	}
	l := &Log{state: res.State, events: make([]*Event, len(events))}
	for i, ev := range events {
		l.events[i] = ev.Clone()
	}
	return l, nil
}

// Append 校验并追加事件
func (l *Log) Append(ev *Event) (State, error) {
	return l.AppendFunc(ev, nil)
}

// AppendFunc 校验事件，调用 persist 持久化后再追加到内存
//
// persist 返回错误时日志不变。persist 在锁内调用，同一日志的持久化
// 顺序与追加顺序一致。
func (l *Log) AppendFunc(ev *Event, persist func(*Event) error) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := apply(l.state, ev)
	if err != nil {
		return l.state.Clone(), err
	}

	stored := ev.Clone()
	if persist != nil {
		if err := persist(stored); err != nil {
			return l.state.Clone(), err
		}
	}

	l.events = append(l.events, stored)
	l.state = next
	return next.Clone(), nil
}

// State 返回当前状态快照
func (l *Log) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Events 返回事件快照
func (l *Log) Events() []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Event, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Clone()
	}
	return out
}

// Len 返回事件数量
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// KeyStatus 返回 keyDID 在序号 at 时的状态
func (l *Log) KeyStatus(keyDID string, at uint64) KeyStatus {
	l.mu.RLock()
	events := l.events
	l.mu.RUnlock()
	return KeyStatusAt(events, keyDID, at)
}

// Retirement 返回 keyDID 离开当前密钥集的事件
func (l *Log) Retirement(keyDID string) (Retirement, bool) {
	l.mu.RLock()
	events := l.events
	l.mu.RUnlock()
	return RetirementOf(events, keyDID)
}
