package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/internal/core/proof"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/did"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/google/uuid"
)

var logger = log.Logger("core/dispute")

// Service 争议服务
type Service struct {
	clock         clock.Clock
	domainTag     string
	defaultExpiry time.Duration
	verbose       bool
	maxSkew       time.Duration
	metrics       *metrics.Metrics
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

// WithDomainTag 设置裁决签名域标签
func WithDomainTag(tag string) Option {
	return func(s *Service) {
		if tag != "" {
			s.domainTag = tag
		}
	}
}

// WithDefaultExpiry 未指定过期时间时使用的时长，0 表示永不过期
func WithDefaultExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.defaultExpiry = d
		}
	}
}

// WithVerbose 裁决验证失败时记录底层原因
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

// WithMetrics 记录争议指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService 创建争议服务
func NewService(opts ...Option) *Service {
	s := &Service{
		clock:     clock.New(),
		domainTag: types.DisputeDomainTag,
		maxSkew:   proof.DefaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultService = NewService()

// ============================================================================
//                              登记
// ============================================================================

// CreateOption 登记选项
type CreateOption func(*createOptions)

type createOptions struct {
	evidence  []string
	expiresAt *time.Time
}

// WithEvidence 附加证据引用
func WithEvidence(refs ...string) CreateOption {
	return func(o *createOptions) {
		o.evidence = append(o.evidence, refs...)
	}
}

// WithExpiry 设置过期时间
func WithExpiry(t time.Time) CreateOption {
	return func(o *createOptions) {
		o.expiresAt = &t
	}
}

// Create 使用默认服务登记争议
func Create(markerID, reason, arbiter, filedBy string, opts ...CreateOption) (*types.Dispute, error) {
	return defaultService.Create(markerID, reason, arbiter, filedBy, opts...)
}

// Create 登记争议
//
// 四个字段都不能为空，arbiter 与 filedBy 必须是语法合法的 DID。
// 所有问题一次性以 *types.ValidationError 返回。
func (s *Service) Create(markerID, reason, arbiter, filedBy string, opts ...CreateOption) (*types.Dispute, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	var problems []string
	if markerID == "" {
		problems = append(problems, "markerId is required")
	}
	if reason == "" {
		problems = append(problems, "reason is required")
	}
	problems = append(problems, checkDID("arbiter", arbiter)...)
	problems = append(problems, checkDID("filedBy", filedBy)...)
	for i, ref := range o.evidence {
		if ref == "" {
			problems = append(problems, fmt.Sprintf("evidenceRefs[%d] is empty", i))
		}
	}

	now := s.clock.Now()
	if o.expiresAt != nil && !o.expiresAt.After(now) {
		problems = append(problems, "expiresAt must be in the future")
	}
	if len(problems) > 0 {
		return nil, types.NewValidationError(problems...)
	}

	d := &types.Dispute{
		ID:           "urn:uuid:" + uuid.NewString(),
		MarkerID:     markerID,
		Reason:       reason,
		FiledBy:      filedBy,
		Arbiter:      arbiter,
		FiledAt:      types.FormatTime(now),
		EvidenceRefs: append([]string{}, o.evidence...),
	}
	switch {
	case o.expiresAt != nil:
		d.ExpiresAt = types.FormatTime(*o.expiresAt)
	case s.defaultExpiry > 0:
		d.ExpiresAt = types.FormatTime(now.Add(s.defaultExpiry))
	}

	s.metrics.Dispute(metrics.DisputeFiled)
	logger.Info("争议已登记", "id", d.ID, "marker", markerID, "arbiter", log.ShortDID(arbiter))
	return d, nil
}

func checkDID(field, value string) []string {
	if value == "" {
		return []string{field + " is required"}
	}
	if !did.IsValidSyntax(value) {
		return []string{fmt.Sprintf("%s %q is not a valid DID", field, value)}
	}
	return nil
}

// ============================================================================
//                              裁决
// ============================================================================

// resolutionPayload 裁决签名覆盖的内容
type resolutionPayload struct {
	Outcome  types.Outcome `json:"outcome"`
	Summary  string        `json:"summary"`
	MarkerID string        `json:"markerId"`
}

// Resolve 使用默认服务裁决争议
func Resolve(ctx context.Context, d *types.Dispute, outcome types.Outcome, summary string, arbiter crypto.Signer) (*types.Dispute, error) {
	return defaultService.Resolve(ctx, d, outcome, summary, arbiter)
}

// Resolve 由仲裁方签署裁决，返回携带裁决的新争议值，d 不被修改
func (s *Service) Resolve(ctx context.Context, d *types.Dispute, outcome types.Outcome, summary string, arbiter crypto.Signer) (*types.Dispute, error) {
	if d == nil {
		return nil, types.NewValidationError("dispute is required")
	}
	if d.Resolved() {
		return nil, fmt.Errorf("%s: %w", d.ID, ErrAlreadyResolved)
	}
	if !outcome.Valid() {
		return nil, types.NewValidationError(fmt.Sprintf("unknown outcome %q", outcome))
	}
	if arbiter == nil {
		return nil, &types.SigningError{Op: "resolve", Err: proof.ErrNilSigner}
	}
	if did.StripFragment(arbiter.DID()) != did.StripFragment(d.Arbiter) {
		return nil, &types.SigningError{Op: "resolve", Err: ErrNotArbiter}
	}

	payload := resolutionPayload{Outcome: outcome, Summary: summary, MarkerID: d.MarkerID}
	p, err := proof.Attach(ctx, s.domainTag, payload, arbiter, proof.WithClock(s.clock))
	if err != nil {
		return nil, err
	}

	resolved := d.Clone()
	resolved.Resolution = &types.Resolution{
		Outcome:    outcome,
		Summary:    summary,
		ResolvedAt: p.Created,
		Proof:      p,
	}

	s.metrics.Dispute(metrics.DisputeResolved)
	logger.Info("争议已裁决", "id", d.ID, "outcome", outcome)
	return resolved, nil
}

// VerifyResolution 使用默认服务验证裁决
func VerifyResolution(d *types.Dispute) bool {
	return defaultService.VerifyResolution(d)
}

// VerifyResolution 验证裁决签名
//
// 未裁决时返回 false。裁决内容在签名后被修改同样返回 false。
func (s *Service) VerifyResolution(d *types.Dispute) bool {
	res := s.CheckResolution(d)
	return res.Valid
}

// CheckResolution 验证裁决并返回全部失败原因
func (s *Service) CheckResolution(d *types.Dispute) types.VerificationResult {
	if !d.Resolved() {
		return types.Invalid("dispute is not resolved")
	}
	r := d.Resolution
	payload := resolutionPayload{Outcome: r.Outcome, Summary: r.Summary, MarkerID: d.MarkerID}
	res := proof.Verify(s.domainTag, payload, d.Arbiter, r.Proof,
		proof.WithClock(s.clock), proof.WithVerbose(s.verbose), proof.WithMaxClockSkew(s.maxSkew))
	if !r.Outcome.Valid() {
		res = res.Merge(types.Invalid(fmt.Sprintf("unknown outcome %q", r.Outcome)))
	}
	if !res.Valid {
		logger.Debug("裁决验证失败", "id", d.ID, "errors", res.Errors)
	}
	return res
}

// ============================================================================
//                              聚合状态
// ============================================================================

// AggregateStatus 由凭证状态与嵌入的争议推导聚合状态
//
// 优先级：active > expired > resolved > none。凭证状态为 disputed 时
// 即使所有嵌入争议都已裁决，结果仍为 active。
func AggregateStatus(status types.MarkerStatus, disputes []types.Dispute, now time.Time) types.DisputeStatus {
	if status == types.StatusDisputed {
		return types.DisputeActive
	}

	expired := false
	for i := range disputes {
		d := &disputes[i]
		if d.Resolved() {
			continue
		}
		if isExpired(d, now) {
			expired = true
			continue
		}
		return types.DisputeActive
	}

	switch {
	case expired:
		return types.DisputeExpired
	case len(disputes) > 0:
		return types.DisputeResolved
	default:
		return types.DisputeNone
	}
}

// isExpired 过期时间无法解析时视为未过期
func isExpired(d *types.Dispute, now time.Time) bool {
	if d.ExpiresAt == "" {
		return false
	}
	t, err := types.ParseTime(d.ExpiresAt)
	if err != nil {
		return false
	}
	return !now.Before(t)
}
