package types

import "encoding/json"

// ============================================================================
//                              枚举
// ============================================================================

// ExitType 离开方式
type ExitType string

const (
	// ExitVoluntary 主动离开
	ExitVoluntary ExitType = "voluntary"
	// ExitForced 被平台移除
	ExitForced ExitType = "forced"
	// ExitEmergency 紧急撤离
	ExitEmergency ExitType = "emergency"
	// ExitKeyCompromise 因密钥泄露离开
	ExitKeyCompromise ExitType = "keyCompromise"
	// ExitPlatformShutdown 平台关闭
	ExitPlatformShutdown ExitType = "platformShutdown"
	// ExitDirected 按指令迁移
	ExitDirected ExitType = "directed"
)

// Valid 检查是否为已知离开方式
func (t ExitType) Valid() bool {
	switch t {
	case ExitVoluntary, ExitForced, ExitEmergency, ExitKeyCompromise, ExitPlatformShutdown, ExitDirected:
		return true
	}
	return false
}

// MarkerStatus 离开时的信誉状态
type MarkerStatus string

const (
	// StatusGoodStanding 状态良好
	StatusGoodStanding MarkerStatus = "good_standing"
	// StatusDisputed 存在争议
	StatusDisputed MarkerStatus = "disputed"
	// StatusUnverified 未验证
	StatusUnverified MarkerStatus = "unverified"
)

// Valid 检查是否为已知状态
func (s MarkerStatus) Valid() bool {
	switch s {
	case StatusGoodStanding, StatusDisputed, StatusUnverified:
		return true
	}
	return false
}

// ============================================================================
//                              ExitMarker
// ============================================================================

// ExitMarker 离开凭证
//
// 签名后不可变：任何字段修改都会使已有证明失效（在验证时发现，
// 不在修改时阻止）。更新只能复制后重新签名。
type ExitMarker struct {
	// ID 标识符，不参与签名
	ID string `json:"id"`
	// Subject 离开者 DID
	Subject string `json:"subject"`
	// Origin 离开的平台或来源
	Origin string `json:"origin"`
	// Timestamp 离开时间
	Timestamp string `json:"timestamp"`
	// ExitType 离开方式
	ExitType ExitType `json:"exitType"`
	// Status 信誉状态
	Status MarkerStatus `json:"status"`
	// Modules 可选扩展模块
	Modules *Modules `json:"modules,omitempty"`
	// Proof 签名证明，不参与签名
	Proof *DataIntegrityProof `json:"proof,omitempty"`
}

// Modules Exit Marker 扩展模块
type Modules struct {
	// Disputes 嵌入的争议
	Disputes []Dispute `json:"disputes,omitempty"`
	// Lineage 与前序凭证及密钥状态的关联
	Lineage *Lineage `json:"lineage,omitempty"`
	// Extensions 自定义扩展，值必须可规范编码
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// Lineage 记录签名时的上下文
type Lineage struct {
	// PreviousMarker 同一主体的前一个凭证摘要
	PreviousMarker string `json:"previousMarker,omitempty"`
	// KeyEventSequence 签名时主体密钥事件日志的序号
	KeyEventSequence *uint64 `json:"keyEventSequence,omitempty"`
	// Controller 当前控制 Subject 的密钥（轮换后与 Subject 不同）
	Controller string `json:"controller,omitempty"`
}

// Clone 深拷贝
func (m *ExitMarker) Clone() *ExitMarker {
	if m == nil {
		return nil
	}
	c := *m
	c.Proof = m.Proof.Clone()
	if m.Modules != nil {
		mods := *m.Modules
		if m.Modules.Disputes != nil {
			mods.Disputes = make([]Dispute, len(m.Modules.Disputes))
			for i := range m.Modules.Disputes {
				mods.Disputes[i] = *m.Modules.Disputes[i].Clone()
			}
		}
		if m.Modules.Lineage != nil {
			l := *m.Modules.Lineage
			if l.KeyEventSequence != nil {
				seq := *l.KeyEventSequence
				l.KeyEventSequence = &seq
			}
			mods.Lineage = &l
		}
		if m.Modules.Extensions != nil {
			mods.Extensions = make(map[string]json.RawMessage, len(m.Modules.Extensions))
			for k, v := range m.Modules.Extensions {
				mods.Extensions[k] = append(json.RawMessage(nil), v...)
			}
		}
		c.Modules = &mods
	}
	return &c
}

// Disputes 返回嵌入的争议列表
func (m *ExitMarker) Disputes() []Dispute {
	if m == nil || m.Modules == nil {
		return nil
	}
	return m.Modules.Disputes
}
