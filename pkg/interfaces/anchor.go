package interfaces

import (
	"context"
	"time"
)

// ============================================================================
//                              锚定协作方
// ============================================================================

// Receipt 锚定回执
//
// 内容对核心不透明，由协作方自行解释。
type Receipt struct {
	// Provider 协作方名称
	Provider string `json:"provider"`
	// Hash 被锚定的哈希（小写 hex）
	Hash string `json:"hash"`
	// Reference 协作方侧的引用（交易 ID、TSA 序列号等）
	Reference string `json:"reference,omitempty"`
	// AnchoredAt 协作方给出的锚定时间
	AnchoredAt time.Time `json:"anchoredAt"`
	// Raw 原始回执
	Raw []byte `json:"raw,omitempty"`
}

// Anchor 接受预先计算的哈希并返回不透明回执
//
// 网络与 I/O 细节由实现负责，可能阻塞，必须尊重 ctx 取消。
type Anchor interface {
	// Name 协作方名称
	Name() string
	// Anchor 锚定哈希（小写 hex）
	Anchor(ctx context.Context, hash string) (*Receipt, error)
}

// Timestamper 时间戳服务（如 RFC 3161 TSA）
type Timestamper interface {
	Anchor
}

// Ledger 账本锚定（如区块链、透明日志）
type Ledger interface {
	Anchor
}
