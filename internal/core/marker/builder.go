package marker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/dep2p/go-exitmarker/pkg/lib/did"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/google/uuid"
)

// BuildOption 构建选项
type BuildOption func(*build)

type build struct {
	id         string
	timestamp  *time.Time
	disputes   []types.Dispute
	lineage    types.Lineage
	extensions map[string]json.RawMessage
	problems   []string
}

// WithID 使用指定标识符
func WithID(id string) BuildOption {
	return func(b *build) {
		b.id = id
	}
}

// WithTimestamp 使用指定离开时间
func WithTimestamp(t time.Time) BuildOption {
	return func(b *build) {
		b.timestamp = &t
	}
}

// WithDisputes 嵌入争议
func WithDisputes(disputes ...*types.Dispute) BuildOption {
	return func(b *build) {
		for _, d := range disputes {
			if d != nil {
				b.disputes = append(b.disputes, *d.Clone())
			}
		}
	}
}

// WithPrevious 记录同一主体的前一个凭证
func WithPrevious(prev *types.ExitMarker) BuildOption {
	return func(b *build) {
		h, err := ContentHash(prev)
		if err != nil {
			b.problems = append(b.problems, fmt.Sprintf("previous marker: %v", err))
			return
		}
		b.lineage.PreviousMarker = h
	}
}

// WithKeyEventSequence 记录签名时主体密钥事件日志的序号
func WithKeyEventSequence(seq uint64) BuildOption {
	return func(b *build) {
		b.lineage.KeyEventSequence = &seq
	}
}

// WithController 记录签名时控制主体的密钥
func WithController(controller string) BuildOption {
	return func(b *build) {
		b.lineage.Controller = controller
	}
}

// WithExtension 添加自定义扩展，值以规范编码保存
func WithExtension(name string, value any) BuildOption {
	return func(b *build) {
		raw, err := canonical.Marshal(value)
		if err != nil {
			b.problems = append(b.problems, fmt.Sprintf("extension %q: %v", name, err))
			return
		}
		if b.extensions == nil {
			b.extensions = make(map[string]json.RawMessage)
		}
		b.extensions[name] = raw
	}
}

// New 使用默认服务构建未签名的 marker
func New(subject, origin string, exitType types.ExitType, status types.MarkerStatus, opts ...BuildOption) (*types.ExitMarker, error) {
	return defaultService.New(subject, origin, exitType, status, opts...)
}

// New 构建未签名的 marker
//
// 所有结构问题一次性以 *types.ValidationError 返回。
func (s *Service) New(subject, origin string, exitType types.ExitType, status types.MarkerStatus, opts ...BuildOption) (*types.ExitMarker, error) {
	var b build
	for _, opt := range opts {
		opt(&b)
	}

	problems := b.problems
	switch {
	case subject == "":
		problems = append(problems, "subject is required")
	case !did.IsValidSyntax(subject):
		problems = append(problems, fmt.Sprintf("subject %q is not a valid DID", subject))
	}
	if origin == "" {
		problems = append(problems, "origin is required")
	}
	if !exitType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown exitType %q", exitType))
	}
	if !status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", status))
	}
	if c := b.lineage.Controller; c != "" && !did.IsValidSyntax(c) {
		problems = append(problems, fmt.Sprintf("controller %q is not a valid DID", c))
	}
	if len(problems) > 0 {
		return nil, types.NewValidationError(problems...)
	}

	ts := s.clock.Now()
	if b.timestamp != nil {
		ts = *b.timestamp
	}
	id := b.id
	if id == "" {
		id = "urn:uuid:" + uuid.NewString()
	}

	m := &types.ExitMarker{
		ID:        id,
		Subject:   subject,
		Origin:    origin,
		Timestamp: types.FormatTime(ts),
		ExitType:  exitType,
		Status:    status,
	}
	if len(b.disputes) > 0 || b.lineage != (types.Lineage{}) || len(b.extensions) > 0 {
		m.Modules = &types.Modules{Disputes: b.disputes, Extensions: b.extensions}
		if b.lineage != (types.Lineage{}) {
			l := b.lineage
			m.Modules.Lineage = &l
		}
	}
	return m, nil
}

// ContentHash 返回 marker（含证明）规范编码的 SHA-256 十六进制
//
// 与 Merkle 叶子哈希一致，可用于 lineage 中的 previousMarker。
func ContentHash(m *types.ExitMarker) (string, error) {
	if m == nil {
		return "", ErrNilMarker
	}
	return canonical.Digest(m)
}

func lineageOf(m *types.ExitMarker) *types.Lineage {
	if m == nil || m.Modules == nil {
		return nil
	}
	return m.Modules.Lineage
}

// signerOf 返回应当签署 m 的密钥：lineage 中的控制密钥，否则为主体
func signerOf(m *types.ExitMarker) string {
	if l := lineageOf(m); l != nil && l.Controller != "" {
		return l.Controller
	}
	return m.Subject
}
