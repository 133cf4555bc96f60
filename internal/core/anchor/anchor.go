package anchor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dep2p/go-exitmarker/internal/core/marker"
	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"go.uber.org/multierr"
)

var logger = log.Logger("core/anchor")

// ErrInvalidHash 待锚定的哈希不是 SHA-256 十六进制
var ErrInvalidHash = errors.New("anchor hash must be lower-case hex SHA-256")

// Anchoring 一次锚定的结果
type Anchoring struct {
	// Hash 被锚定的哈希
	Hash string `json:"hash"`
	// Receipts 成功的协作方回执，按 Timestamper、Ledger 顺序
	Receipts []*interfaces.Receipt `json:"receipts"`
}

// Service 锚定服务
type Service struct {
	timestamper interfaces.Timestamper
	ledger      interfaces.Ledger
}

// Option 服务选项
type Option func(*Service)

// WithTimestamper 注入时间戳服务
func WithTimestamper(t interfaces.Timestamper) Option {
	return func(s *Service) {
		s.timestamper = t
	}
}

// WithLedger 注入账本
func WithLedger(l interfaces.Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

// NewService 创建锚定服务
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled 是否至少配置了一个协作方
func (s *Service) Enabled() bool {
	return s.timestamper != nil || s.ledger != nil
}

// AnchorHash 依次交给已配置的协作方
//
// 每个协作方都会被尝试。部分失败时返回成功的回执以及合并后的错误。
func (s *Service) AnchorHash(ctx context.Context, hash string) (*Anchoring, error) {
	if _, err := canonical.DecodeHash(hash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if strings.ToLower(hash) != hash {
		return nil, ErrInvalidHash
	}

	out := &Anchoring{Hash: hash, Receipts: []*interfaces.Receipt{}}
	var errs error
	for _, a := range s.anchors() {
		if err := ctx.Err(); err != nil {
			return out, multierr.Append(errs, err)
		}
		r, err := a.Anchor(ctx, hash)
		if err != nil {
			logger.Warn("锚定失败", "provider", a.Name(), "hash", hash, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", a.Name(), err))
			continue
		}
		if r == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: empty receipt", a.Name()))
			continue
		}
		logger.Info("已锚定", "provider", a.Name(), "hash", hash, "reference", r.Reference)
		out.Receipts = append(out.Receipts, r)
	}
	return out, errs
}

// AnchorBatch 锚定批次根
func (s *Service) AnchorBatch(ctx context.Context, b *merkle.BatchExit) (*Anchoring, error) {
	if b == nil {
		return nil, merkle.ErrEmptyBatch
	}
	return s.AnchorHash(ctx, b.Root)
}

// AnchorMarker 锚定单个 marker 的内容哈希
func (s *Service) AnchorMarker(ctx context.Context, m *types.ExitMarker) (*Anchoring, error) {
	h, err := marker.ContentHash(m)
	if err != nil {
		return nil, err
	}
	return s.AnchorHash(ctx, h)
}

func (s *Service) anchors() []interfaces.Anchor {
	var out []interfaces.Anchor
	if s.timestamper != nil {
		out = append(out, s.timestamper)
	}
	if s.ledger != nil {
		out = append(out, s.ledger)
	}
	return out
}
