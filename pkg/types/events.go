package types

// ============================================================================
//                              引擎事件
// ============================================================================

// 以下事件由引擎在操作成功持久化后经事件总线发出。
// 订阅时传入类型指针，接收到的是值。

// EvtMarkerIssued 凭证已签发并保存
type EvtMarkerIssued struct {
	MarkerID string
	Subject  string
	ExitType ExitType
	IssuedAt string
}

// EvtKeyEventAppended 密钥事件已追加到日志
type EvtKeyEventAppended struct {
	Identifier string
	// EventType icp / rot / cmp
	EventType string
	Sequence  uint64
	// Status 追加后的密钥状态
	Status string
}

// EvtDisputeFiled 争议已提交
type EvtDisputeFiled struct {
	DisputeID string
	MarkerID  string
	Arbiter   string
	ExpiresAt string
}

// EvtDisputeResolved 争议已裁决
type EvtDisputeResolved struct {
	DisputeID string
	MarkerID  string
	Outcome   Outcome
}

// EvtBatchSealed 批次已保存，Receipts 为成功的锚定回执数
type EvtBatchSealed struct {
	BatchID  string
	Root     string
	Size     int
	Receipts int
}
