package exitmarker

import (
	"context"

	"github.com/dep2p/go-exitmarker/internal/core/dispute"
	"github.com/dep2p/go-exitmarker/internal/core/marker"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              凭证
// ════════════════════════════════════════════════════════════════════════════

// NewMarker 构建未签名凭证，ID 与时间戳由引擎生成
func (e *Engine) NewMarker(subject, origin string, exitType types.ExitType, status types.MarkerStatus, opts ...marker.BuildOption) (*types.ExitMarker, error) {
	return e.markers.New(subject, origin, exitType, status, opts...)
}

// IssueMarker 签署凭证并保存
//
// 主体存在密钥事件日志时，签名密钥必须是当前密钥，签名时的序号
// 写入 lineage。返回已签名的副本，m 不被修改。
func (e *Engine) IssueMarker(ctx context.Context, m *types.ExitMarker, s crypto.Signer) (*types.ExitMarker, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	signed, err := e.markers.Sign(ctx, m, s)
	if err != nil {
		return nil, err
	}
	if err := e.markerStore.Save(signed); err != nil {
		return nil, err
	}

	logger.Info("凭证已签发", "id", signed.ID, "subject", log.ShortDID(signed.Subject))
	emit(e.emitters.markerIssued, types.EvtMarkerIssued{
		MarkerID: signed.ID,
		Subject:  signed.Subject,
		ExitType: signed.ExitType,
		IssuedAt: signed.Timestamp,
	})
	return signed, nil
}

// VerifyMarker 验证凭证的证明与签名密钥状态
//
// 签名密钥已退出时需通过 marker.WithAnchorEvidence 提供锚定证据。
func (e *Engine) VerifyMarker(m *types.ExitMarker, opts ...marker.VerifyOption) types.VerificationResult {
	return e.markers.Verify(m, opts...)
}

// AssessMarker 返回凭证签名密钥在签名时与当前的状态
func (e *Engine) AssessMarker(m *types.ExitMarker, opts ...marker.VerifyOption) (marker.KeyAssessment, error) {
	return e.markers.Assess(m, opts...)
}

// Marker 按 ID 加载凭证
func (e *Engine) Marker(id string) (*types.ExitMarker, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.markerStore.Get(id)
}

// MarkersBySubject 返回主体签发过的全部凭证
func (e *Engine) MarkersBySubject(subject string) ([]*types.ExitMarker, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.markerStore.ListBySubject(subject)
}

// MarkerStatus 返回凭证的争议聚合状态
//
// 合并凭证内嵌的争议与已存储的争议，同一 ID 以存储中的版本为准。
func (e *Engine) MarkerStatus(id string) (types.DisputeStatus, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}

	m, err := e.markerStore.Get(id)
	if err != nil {
		return "", err
	}
	stored, err := e.disputeStore.ListByMarker(id)
	if err != nil {
		return "", err
	}

	seen := make(map[string]struct{}, len(stored))
	for _, d := range stored {
		seen[d.ID] = struct{}{}
	}
	all := stored
	for _, d := range m.Disputes() {
		if _, ok := seen[d.ID]; !ok {
			all = append(all, d)
		}
	}
	return dispute.AggregateStatus(m.Status, all, e.clock.Now()), nil
}
