package marker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/internal/core/dispute"
	"github.com/dep2p/go-exitmarker/internal/core/keystate"
	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/internal/core/proof"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/did"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

var logger = log.Logger("core/marker")

// KeyStateResolver 密钥状态查询，由 *keystate.Manager 实现
type KeyStateResolver interface {
	State(identifier string) (keystate.State, error)
	KeyStatus(identifier, keyDID string, at uint64) (keystate.KeyStatus, error)
	Retirement(identifier, keyDID string) (keystate.Retirement, bool, error)
}

var _ KeyStateResolver = (*keystate.Manager)(nil)

// Service marker 签名与验证服务
type Service struct {
	clock     clock.Clock
	domainTag string
	verbose   bool
	maxSkew   time.Duration
	metrics   *metrics.Metrics
	validator interfaces.SchemaValidator
	keys      KeyStateResolver
}

// Option 服务选项
type Option func(*Service)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDomainTag 设置签名域标签
func WithDomainTag(tag string) Option {
	return func(s *Service) {
		if tag != "" {
			s.domainTag = tag
		}
	}
}

// WithVerbose 验证失败时返回底层密码学原因
func WithVerbose(verbose bool) Option {
	return func(s *Service) {
		s.verbose = verbose
	}
}

// WithMaxClockSkew 允许 proof.created 超前当前时间的幅度，0 表示不检查
func WithMaxClockSkew(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.maxSkew = d
		}
	}
}

// WithMetrics 记录签名与验证指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSchemaValidator 验证时同时执行结构校验
func WithSchemaValidator(v interfaces.SchemaValidator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithKeyState 启用密钥状态检查
func WithKeyState(r KeyStateResolver) Option {
	return func(s *Service) {
		s.keys = r
	}
}

// NewService 创建 marker 服务
func NewService(opts ...Option) *Service {
	s := &Service{
		clock:     clock.New(),
		domainTag: types.MarkerDomainTag,
		maxSkew:   proof.DefaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultService = NewService()

func (s *Service) proofOptions() []proof.Option {
	return []proof.Option{
		proof.WithClock(s.clock),
		proof.WithVerbose(s.verbose),
		proof.WithMaxClockSkew(s.maxSkew),
		proof.WithMetrics(s.metrics),
	}
}

// ============================================================================
//                              签名
// ============================================================================

// Sign 使用默认服务签名
func Sign(ctx context.Context, m *types.ExitMarker, signer crypto.Signer) (*types.ExitMarker, error) {
	return defaultService.Sign(ctx, m, signer)
}

// Sign 返回带证明的新 marker，m 不被修改
//
// 签名者必须是主体本身或 lineage 中的控制密钥。配置了密钥状态且主体
// 存在密钥事件日志时，签名者必须是当前密钥，缺失的 lineage 字段
// （序号、控制密钥）由当前状态补齐。
func (s *Service) Sign(ctx context.Context, m *types.ExitMarker, signer crypto.Signer) (*types.ExitMarker, error) {
	if m == nil {
		return nil, &types.SigningError{Op: "sign", Err: ErrNilMarker}
	}
	if signer == nil {
		return nil, &types.SigningError{Op: "sign", Err: proof.ErrNilSigner}
	}

	out := m.Clone()
	out.Proof = nil
	signerDID := did.StripFragment(signer.DID())

	if s.keys != nil {
		if err := s.bindKeyState(out, signerDID); err != nil {
			return nil, err
		}
	}
	if did.StripFragment(signerOf(out)) != signerDID {
		return nil, &types.SigningError{Op: "sign", Err: ErrSignerMismatch}
	}

	p, err := proof.Attach(ctx, s.domainTag, out, signer, s.proofOptions()...)
	if err != nil {
		return nil, err
	}
	out.Proof = p

	logger.Info("marker 已签名",
		"id", out.ID,
		"subject", log.ShortDID(out.Subject),
		"exitType", out.ExitType)
	return out, nil
}

// bindKeyState 检查签名者是否为当前密钥并补齐 lineage
func (s *Service) bindKeyState(m *types.ExitMarker, signerDID string) error {
	state, err := s.keys.State(m.Subject)
	if err != nil {
		return &types.SigningError{Op: "keystate", Err: err}
	}
	if state.Status == keystate.StatusUnborn {
		return nil
	}
	if state.Status == keystate.StatusCompromised || !state.IsCurrent(signerDID) {
		return &types.SigningError{
			Op:  "keystate",
			Err: fmt.Errorf("%w: %s is %s", ErrKeyNotCurrent, log.ShortDID(signerDID), state.KeyStatus(signerDID)),
		}
	}

	if m.Modules == nil {
		m.Modules = &types.Modules{}
	}
	if m.Modules.Lineage == nil {
		m.Modules.Lineage = &types.Lineage{}
	}
	l := m.Modules.Lineage
	if l.KeyEventSequence == nil {
		seq := state.Sequence
		l.KeyEventSequence = &seq
	}
	if l.Controller == "" && signerDID != did.StripFragment(m.Subject) {
		l.Controller = signerDID
	}
	return nil
}

// ============================================================================
//                              验证
// ============================================================================

// VerifyOption 单次验证的附加输入
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	receipt    *interfaces.Receipt
	membership *merkle.Proof
}

// WithAnchorEvidence 提供凭证在锚定时间之前已存在的证据
//
// receipt 锚定的哈希是凭证内容哈希；给出 membership 时则是该成员证明
// 对应的批次根。回执本身的真实性由调用方向协作方核实。
func WithAnchorEvidence(receipt *interfaces.Receipt, membership *merkle.Proof) VerifyOption {
	return func(c *verifyConfig) {
		c.receipt = receipt
		c.membership = membership
	}
}

func newVerifyConfig(opts []VerifyOption) verifyConfig {
	var c verifyConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// anchoredAt 返回证据证明的凭证最晚存在时间
func (c verifyConfig) anchoredAt(m *types.ExitMarker) (time.Time, bool) {
	r := c.receipt
	if r == nil || r.AnchoredAt.IsZero() {
		return time.Time{}, false
	}
	leaf, err := ContentHash(m)
	if err != nil {
		return time.Time{}, false
	}
	if c.membership == nil {
		return r.AnchoredAt, r.Hash == leaf
	}
	return r.AnchoredAt, merkle.VerifyBatchMembership(c.membership, leaf, r.Hash)
}

// Verify 使用默认服务验证
func Verify(m *types.ExitMarker, opts ...VerifyOption) types.VerificationResult {
	return defaultService.Verify(m, opts...)
}

// Verify 验证 marker
//
// 结构校验、证明验证与密钥状态检查相互独立，全部失败原因一并返回。
// 签名密钥已被轮换或声明泄露时，lineage 序号由签名者填写，不能
// 证明签名时间，需要 WithAnchorEvidence 证明凭证早于密钥退出。
func (s *Service) Verify(m *types.ExitMarker, opts ...VerifyOption) types.VerificationResult {
	if m == nil {
		return types.Invalid("marker is missing")
	}

	res := types.Valid()
	if s.validator != nil {
		if report := s.validator.Validate(m); !report.Valid {
			reasons := report.Errors
			if len(reasons) == 0 {
				reasons = []string{"schema validation failed"}
			}
			res = res.Merge(types.Invalid(reasons...))
		}
	}

	signer := signerOf(m)
	res = res.Merge(proof.Verify(s.domainTag, m, signer, m.Proof, s.proofOptions()...))

	switch {
	case s.keys != nil:
		res = res.Merge(s.checkKeyState(m, did.StripFragment(signer), newVerifyConfig(opts)))
	case did.StripFragment(signer) != did.StripFragment(m.Subject):
		res = res.Merge(types.Invalid("controller cannot be checked without key state"))
	}

	if !res.Valid {
		logger.Debug("marker 验证失败", "id", m.ID, "errors", res.Errors)
	}
	return res
}

// checkKeyState 签名密钥在 lineage 序号上必须为当前密钥，无序号时取日志末端
func (s *Service) checkKeyState(m *types.ExitMarker, signer string, cfg verifyConfig) types.VerificationResult {
	at := uint64(math.MaxUint64)
	var hasSeq bool
	if l := lineageOf(m); l != nil && l.KeyEventSequence != nil {
		at, hasSeq = *l.KeyEventSequence, true
	}

	status, err := s.keys.KeyStatus(m.Subject, signer, at)
	if err != nil {
		return types.Invalid(fmt.Sprintf("key state unavailable: %v", err))
	}

	switch status {
	case keystate.KeyCurrent:
		return s.checkRetirement(m, signer, cfg)
	case keystate.KeyRotated:
		return types.Invalid("signing key was rotated out")
	case keystate.KeyCompromised:
		return types.Invalid("signing key is compromised")
	}

	// 主体没有密钥事件日志：did:key 自证，仅允许主体自己签名
	if signer != did.StripFragment(m.Subject) {
		return types.Invalid("signing key does not belong to subject")
	}
	if hasSeq {
		return types.Invalid(fmt.Sprintf("lineage references key event sequence %d but subject has no key event log", at))
	}
	return types.Valid()
}

// checkRetirement 签名密钥已退出时要求锚定时间早于退出事件
func (s *Service) checkRetirement(m *types.ExitMarker, signer string, cfg verifyConfig) types.VerificationResult {
	ret, retired, err := s.keys.Retirement(m.Subject, signer)
	if err != nil {
		return types.Invalid(fmt.Sprintf("key state unavailable: %v", err))
	}
	if !retired {
		return types.Valid()
	}
	if t, ok := cfg.anchoredAt(m); ok && t.Before(ret.At) {
		return types.Valid()
	}
	return types.Invalid(fmt.Sprintf(
		"signing key left the key set at sequence %d (%s); signing time is not proven by anchor evidence",
		ret.Sequence, ret.Type))
}

// ============================================================================
//                              信任评估
// ============================================================================

// KeyAssessment 签名密钥在签名时与当前的状态
type KeyAssessment struct {
	// Signer 签名密钥
	Signer string `json:"signer"`
	// Sequence lineage 中记录的序号，由签名者填写
	Sequence *uint64 `json:"sequence,omitempty"`
	// AtSigning 签名时（lineage 序号处）的状态
	AtSigning keystate.KeyStatus `json:"atSigning"`
	// Current 日志末端的状态
	Current keystate.KeyStatus `json:"current"`
	// RetiredAt 签名密钥离开当前密钥集的事件序号
	RetiredAt *uint64 `json:"retiredAt,omitempty"`
	// SigningTimeProven 锚定证据证明凭证早于密钥退出
	SigningTimeProven bool `json:"signingTimeProven"`
	// SignedBeforeCompromise 锚定证据证明签名早于泄露声明
	SignedBeforeCompromise bool `json:"signedBeforeCompromise"`
	// Successor 泄露声明指定的继任者
	Successor string `json:"successor,omitempty"`
}

// Assess 评估签名密钥的历史状态，供调用方决定是否信任泄露前签署的凭证
//
// lineage 序号只说明签名者声称的时间，SignedBeforeCompromise 只在
// 锚定证据成立时为 true。
func (s *Service) Assess(m *types.ExitMarker, opts ...VerifyOption) (KeyAssessment, error) {
	if m == nil {
		return KeyAssessment{}, ErrNilMarker
	}
	if s.keys == nil {
		return KeyAssessment{}, ErrNoKeyState
	}

	signer := did.StripFragment(signerOf(m))
	a := KeyAssessment{Signer: signer}

	state, err := s.keys.State(m.Subject)
	if err != nil {
		return a, err
	}
	a.Current = state.KeyStatus(signer)
	a.Successor = state.Successor

	at := uint64(math.MaxUint64)
	if l := lineageOf(m); l != nil && l.KeyEventSequence != nil {
		seq := *l.KeyEventSequence
		a.Sequence, at = &seq, seq
	}
	if a.AtSigning, err = s.keys.KeyStatus(m.Subject, signer, at); err != nil {
		return a, err
	}

	ret, retired, err := s.keys.Retirement(m.Subject, signer)
	if err != nil {
		return a, err
	}
	if retired {
		seq := ret.Sequence
		a.RetiredAt = &seq
		t, ok := newVerifyConfig(opts).anchoredAt(m)
		a.SigningTimeProven = ok && t.Before(ret.At) && a.AtSigning == keystate.KeyCurrent
	}
	a.SignedBeforeCompromise = state.CompromisedAt != nil && a.SigningTimeProven
	return a, nil
}

// Status 返回 marker 的争议聚合状态
func (s *Service) Status(m *types.ExitMarker) types.DisputeStatus {
	if m == nil {
		return types.DisputeNone
	}
	return dispute.AggregateStatus(m.Status, m.Disputes(), s.clock.Now())
}
