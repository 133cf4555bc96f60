package exitmarker

import (
	"context"
	"fmt"

	"github.com/dep2p/go-exitmarker/internal/core/anchor"
	"github.com/dep2p/go-exitmarker/internal/core/marker"
	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              批次锚定
// ════════════════════════════════════════════════════════════════════════════

// SealedBatch 已保存的批次及其锚定结果
type SealedBatch struct {
	Batch *merkle.BatchExit

	// Anchoring 未配置协作者时为 nil
	Anchoring *anchor.Anchoring
}

// SealBatch 为一批凭证构建 Merkle 承诺、保存并锚定根
//
// 部分协作者失败时仍返回批次与成功的回执，错误中汇总失败原因。
func (e *Engine) SealBatch(ctx context.Context, markers []*types.ExitMarker) (*SealedBatch, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	b, err := e.batches.CreateBatchExit(ctx, markers)
	if err != nil {
		return nil, err
	}
	if err := e.batchStore.Save(b); err != nil {
		return nil, err
	}

	sealed := &SealedBatch{Batch: b}
	if e.anchors.Enabled() {
		sealed.Anchoring, err = e.anchors.AnchorBatch(ctx, b)
	}

	evt := types.EvtBatchSealed{BatchID: b.ID, Root: b.Root, Size: b.Size}
	if sealed.Anchoring != nil {
		evt.Receipts = len(sealed.Anchoring.Receipts)
	}
	emit(e.emitters.batchSealed, evt)
	return sealed, err
}

// Batch 按 ID 加载批次
func (e *Engine) Batch(id string) (*merkle.BatchExit, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.batchStore.Get(id)
}

// ProveMembership 返回凭证在批次中的成员证明
func (e *Engine) ProveMembership(batchID, markerID string) (*merkle.Proof, error) {
	b, err := e.Batch(batchID)
	if err != nil {
		return nil, err
	}
	for i, id := range b.MarkerIDs {
		if id == markerID {
			return merkle.ComputeMerkleProof(b, i)
		}
	}
	return nil, fmt.Errorf("marker %s not in batch %s: %w", markerID, batchID, ErrNotFound)
}

// VerifyMembership 验证凭证属于根为 root 的批次
func VerifyMembership(p *merkle.Proof, m *types.ExitMarker, root string) bool {
	leaf, err := merkle.LeafHash(m)
	if err != nil {
		return false
	}
	return merkle.VerifyBatchMembership(p, leaf, root)
}

// AnchorEvidence 以批次锚定回执与成员证明作为凭证签名时间的证据
//
// 用于 VerifyMarker 与 AssessMarker：签名密钥已被轮换或声明泄露时，
// 只有锚定时间早于退出事件的凭证仍然有效。p 为 nil 表示回执直接锚定
// 凭证内容哈希。
func AnchorEvidence(r *interfaces.Receipt, p *merkle.Proof) marker.VerifyOption {
	return marker.WithAnchorEvidence(r, p)
}
