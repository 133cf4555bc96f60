// Package eventbus 实现进程内事件总线
//
// 引擎在凭证签发、密钥事件追加、争议提交与裁决、批次保存后
// 发出 pkg/types 中的 Evt* 事件。事件按 Go 类型路由，订阅时
// 传入类型指针，接收到的是值：
//
//	sub, _ := bus.Subscribe(new(types.EvtMarkerIssued))
//	defer sub.Close()
//
//	for evt := range sub.Out() {
//	    issued := evt.(types.EvtMarkerIssued)
//	    // ...
//	}
//
// 发射从不阻塞：订阅者缓冲区满时事件被丢弃并记录告警，因此订阅者
// 不能把事件流当作可靠日志，需要完整记录时应查询存储。
//
// Stateful 发射器保存最后一个事件，新订阅者立即收到。
package eventbus
