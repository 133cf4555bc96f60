package types

// Outcome 裁决结果
type Outcome string

const (
	// OutcomeUpheld 争议成立
	OutcomeUpheld Outcome = "upheld"
	// OutcomeDismissed 争议驳回
	OutcomeDismissed Outcome = "dismissed"
	// OutcomeModified 凭证需修正
	OutcomeModified Outcome = "modified"
)

// Valid 检查是否为已知裁决结果
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeUpheld, OutcomeDismissed, OutcomeModified:
		return true
	}
	return false
}

// DisputeStatus 凭证级别的争议聚合状态
type DisputeStatus string

const (
	// DisputeNone 无争议
	DisputeNone DisputeStatus = "none"
	// DisputeActive 存在未裁决且未过期的争议，或凭证状态为 disputed
	DisputeActive DisputeStatus = "active"
	// DisputeResolved 所有争议已裁决
	DisputeResolved DisputeStatus = "resolved"
	// DisputeExpired 存在已过期但未裁决的争议
	DisputeExpired DisputeStatus = "expired"
)

// Dispute 对某个凭证的争议
//
// 状态机：Filed -> Resolved（终态）。
type Dispute struct {
	ID           string      `json:"id"`
	MarkerID     string      `json:"markerId"`
	Reason       string      `json:"reason"`
	FiledBy      string      `json:"filedBy"`
	Arbiter      string      `json:"arbiter"`
	FiledAt      string      `json:"filedAt"`
	EvidenceRefs []string    `json:"evidenceRefs"`
	ExpiresAt    string      `json:"expiresAt,omitempty"`
	Resolution   *Resolution `json:"resolution,omitempty"`
}

// Resolution 仲裁方签名的裁决
type Resolution struct {
	Outcome    Outcome             `json:"outcome"`
	Summary    string              `json:"summary"`
	ResolvedAt string              `json:"resolvedAt"`
	Proof      *DataIntegrityProof `json:"proof"`
}

// Resolved 是否已裁决
func (d *Dispute) Resolved() bool {
	return d != nil && d.Resolution != nil
}

// Clone 深拷贝
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	c := *d
	if d.EvidenceRefs != nil {
		c.EvidenceRefs = append([]string{}, d.EvidenceRefs...)
	}
	if d.Resolution != nil {
		r := *d.Resolution
		r.Proof = d.Resolution.Proof.Clone()
		c.Resolution = &r
	}
	return &c
}
