package exitmarker

import (
	"go.uber.org/multierr"

	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              事件
// ════════════════════════════════════════════════════════════════════════════

// emitters 引擎持有的各类事件发射器
type emitters struct {
	markerIssued    interfaces.Emitter
	keyEvent        interfaces.Emitter
	disputeFiled    interfaces.Emitter
	disputeResolved interfaces.Emitter
	batchSealed     interfaces.Emitter
}

// newEmitters 创建发射器
//
// 密钥事件与批次封存为有状态发射器：新订阅者立即收到最近一次的
// 密钥状态变化与最近封存的批次。
func newEmitters(bus interfaces.EventBus) (*emitters, error) {
	em := &emitters{}
	slots := []struct {
		dst  *interfaces.Emitter
		typ  any
		opts []interfaces.EmitterOpt
	}{
		{&em.markerIssued, new(types.EvtMarkerIssued), nil},
		{&em.keyEvent, new(types.EvtKeyEventAppended), []interfaces.EmitterOpt{interfaces.Stateful()}},
		{&em.disputeFiled, new(types.EvtDisputeFiled), nil},
		{&em.disputeResolved, new(types.EvtDisputeResolved), nil},
		{&em.batchSealed, new(types.EvtBatchSealed), []interfaces.EmitterOpt{interfaces.Stateful()}},
	}
	for _, s := range slots {
		e, err := bus.Emitter(s.typ, s.opts...)
		if err != nil {
			_ = em.Close()
			return nil, err
		}
		*s.dst = e
	}
	return em, nil
}

// Close 关闭全部发射器
func (em *emitters) Close() error {
	var err error
	for _, e := range []interfaces.Emitter{em.markerIssued, em.keyEvent, em.disputeFiled, em.disputeResolved, em.batchSealed} {
		if e != nil {
			err = multierr.Append(err, e.Close())
		}
	}
	return err
}

// emit 发出事件，失败只记录日志，不影响已完成的操作
func emit(e interfaces.Emitter, evt any) {
	if e == nil {
		return
	}
	if err := e.Emit(evt); err != nil {
		logger.Debug("发射事件失败", "error", err)
	}
}

// Subscribe 订阅引擎事件
//
// eventType 为 pkg/types 中 Evt* 类型的指针，例如：
//
//	sub, err := eng.Subscribe(new(types.EvtMarkerIssued))
func (e *Engine) Subscribe(eventType any, opts ...interfaces.SubscriptionOpt) (interfaces.Subscription, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.events.Subscribe(eventType, opts...)
}

// EventBus 返回事件总线
func (e *Engine) EventBus() interfaces.EventBus {
	return e.events
}
