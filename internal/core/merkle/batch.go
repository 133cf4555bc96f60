package merkle

import (
	"context"
	"fmt"
	"runtime"

	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/sync/errgroup"
)

var logger = log.Logger("core/merkle")

// DefaultMaxBatchSize 默认批次上限
const DefaultMaxBatchSize = 1 << 16

// BatchExit 一批 marker 的 Merkle 承诺
type BatchExit struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	Size      int    `json:"size"`

	// MarkerIDs 与 MarkerHashes 一一对应，按输入顺序
	MarkerIDs    []string `json:"markerIds,omitempty"`
	MarkerHashes []string `json:"markerHashes"`

	// Root 十六进制 Merkle 根
	Root string `json:"root"`
	// RootCID 根的 CIDv1（raw + sha2-256）
	RootCID string `json:"rootCid"`

	levels [][][]byte
}

// Levels 返回树的层数（含叶子层与根）
func (b *BatchExit) Levels() int {
	if err := b.ensureLevels(); err != nil {
		return 0
	}
	return len(b.levels)
}

// ensureLevels 从 MarkerHashes 重建树，用于从存储加载的批次
func (b *BatchExit) ensureLevels() error {
	if b.levels != nil {
		return nil
	}
	if len(b.MarkerHashes) == 0 {
		return ErrEmptyBatch
	}
	leaves, err := decodeLeaves(b.MarkerHashes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	b.levels = buildLevels(leaves)
	return nil
}

// LeafHash 返回 marker 的叶子哈希（规范编码的 SHA-256 十六进制）
func LeafHash(m *types.ExitMarker) (string, error) {
	if m == nil {
		return "", ErrNilMarker
	}
	return canonical.Digest(m)
}

// RootCID 返回根哈希的 CIDv1（raw 编解码，sha2-256 多哈希）
func RootCID(root []byte) (cid.Cid, error) {
	mh, err := multihash.Encode(root, multihash.SHA2_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, multihash.Multihash(mh)), nil
}

// ============================================================================
//                              Builder
// ============================================================================

// Builder 批次构建器
type Builder struct {
	workers int
	maxSize int
	clock   clock.Clock
	metrics *metrics.Metrics
}

// Option 构建器选项
type Option func(*Builder)

// WithWorkers 设置叶子哈希并发数
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithMaxBatchSize 设置批次上限，0 表示不限制
func WithMaxBatchSize(n int) Option {
	return func(b *Builder) {
		if n >= 0 {
			b.maxSize = n
		}
	}
}

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(b *Builder) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithMetrics 记录批次指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// NewBuilder 创建构建器
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		workers: runtime.GOMAXPROCS(0),
		maxSize: DefaultMaxBatchSize,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateBatchExit 使用默认构建器创建批次
func CreateBatchExit(ctx context.Context, markers []*types.ExitMarker) (*BatchExit, error) {
	return NewBuilder().CreateBatchExit(ctx, markers)
}

// CreateBatchExit 计算每个 marker 的叶子哈希并构建 Merkle 树
//
// 叶子顺序与输入顺序一致。
func (b *Builder) CreateBatchExit(ctx context.Context, markers []*types.ExitMarker) (*BatchExit, error) {
	if err := b.checkSize(len(markers)); err != nil {
		return nil, err
	}

	hashes := make([]string, len(markers))
	ids := make([]string, len(markers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, m := range markers {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := LeafHash(m)
			if err != nil {
				return fmt.Errorf("marker %d: %w", i, err)
			}
			hashes[i] = h
			ids[i] = m.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch, err := b.FromHashes(hashes)
	if err != nil {
		return nil, err
	}
	batch.MarkerIDs = ids
	return batch, nil
}

// FromHashes 由已计算的叶子哈希构建批次
func (b *Builder) FromHashes(hashes []string) (*BatchExit, error) {
	if err := b.checkSize(len(hashes)); err != nil {
		return nil, err
	}
	leaves, err := decodeLeaves(hashes)
	if err != nil {
		return nil, err
	}

	levels := buildLevels(leaves)
	root := rootOf(levels)
	rc, err := RootCID(root)
	if err != nil {
		return nil, err
	}

	batch := &BatchExit{
		ID:           "urn:uuid:" + uuid.NewString(),
		CreatedAt:    types.FormatTime(b.clock.Now()),
		Size:         len(hashes),
		MarkerHashes: append([]string(nil), hashes...),
		Root:         toHex(root),
		RootCID:      rc.String(),
		levels:       levels,
	}

	b.metrics.BatchCreated(batch.Size)
	logger.Debug("已创建批次", "id", batch.ID, "size", batch.Size, "root", batch.Root)
	return batch, nil
}

func (b *Builder) checkSize(n int) error {
	if n == 0 {
		return ErrEmptyBatch
	}
	if b.maxSize > 0 && n > b.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, n, b.maxSize)
	}
	return nil
}
