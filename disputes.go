package exitmarker

import (
	"context"
	"fmt"

	"github.com/dep2p/go-exitmarker/internal/core/dispute"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              争议
// ════════════════════════════════════════════════════════════════════════════

// FileDispute 创建争议并保存
//
// 未指定过期时间时使用 Dispute.DefaultExpiry。
func (e *Engine) FileDispute(markerID, reason, arbiter, filedBy string, opts ...dispute.CreateOption) (*types.Dispute, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	d, err := e.disputes.Create(markerID, reason, arbiter, filedBy, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.disputeStore.File(d); err != nil {
		return nil, err
	}
	emit(e.emitters.disputeFiled, types.EvtDisputeFiled{
		DisputeID: d.ID,
		MarkerID:  d.MarkerID,
		Arbiter:   d.Arbiter,
		ExpiresAt: d.ExpiresAt,
	})
	return d, nil
}

// ResolveDispute 由仲裁者签署裁决并保存
//
// 一个争议只能裁决一次，重复裁决返回 ErrAlreadyResolved。
func (e *Engine) ResolveDispute(ctx context.Context, id string, outcome types.Outcome, summary string, arbiter crypto.Signer) (*types.Dispute, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	d, err := e.disputeStore.Get(id)
	if err != nil {
		return nil, err
	}
	if d.Resolved() {
		return nil, fmt.Errorf("%s: %w", id, ErrAlreadyResolved)
	}

	resolved, err := e.disputes.Resolve(ctx, d, outcome, summary, arbiter)
	if err != nil {
		return nil, err
	}
	if err := e.disputeStore.Resolve(resolved); err != nil {
		return nil, err
	}
	emit(e.emitters.disputeResolved, types.EvtDisputeResolved{
		DisputeID: resolved.ID,
		MarkerID:  resolved.MarkerID,
		Outcome:   resolved.Resolution.Outcome,
	})
	return resolved, nil
}

// VerifyResolution 验证裁决签名
func (e *Engine) VerifyResolution(d *types.Dispute) types.VerificationResult {
	return e.disputes.CheckResolution(d)
}

// Dispute 按 ID 加载争议，包含已保存的裁决
func (e *Engine) Dispute(id string) (*types.Dispute, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.disputeStore.Get(id)
}

// DisputesFor 返回针对凭证的全部争议
func (e *Engine) DisputesFor(markerID string) ([]types.Dispute, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.disputeStore.ListByMarker(markerID)
}
