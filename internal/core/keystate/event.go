package keystate

import (
	"context"
	"fmt"

	"github.com/dep2p/go-exitmarker/internal/core/proof"
	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/did"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// ============================================================================
//                              事件类型
// ============================================================================

// EventType 密钥事件类型
type EventType string

const (
	// EventInception 创世
	EventInception EventType = "icp"
	// EventRotation 轮换
	EventRotation EventType = "rot"
	// EventCompromise 泄露声明
	EventCompromise EventType = "cmp"
)

// Valid 检查事件类型是否合法
func (t EventType) Valid() bool {
	switch t {
	case EventInception, EventRotation, EventCompromise:
		return true
	default:
		return false
	}
}

// targetStatus 返回事件被接受后的状态
func (t EventType) targetStatus() Status {
	switch t {
	case EventInception:
		return StatusEstablished
	case EventRotation:
		return StatusRotated
	case EventCompromise:
		return StatusCompromised
	default:
		return StatusUnborn
	}
}

// ============================================================================
//                              Event
// ============================================================================

// Event 密钥事件
//
// JSON 形式参与签名与摘要，CBOR 形式用于持久化。切片字段为空时在两种
// 编码中都省略，保证往返后摘要不变。
type Event struct {
	Type       EventType `json:"type" cbor:"1,keyasint"`
	Identifier string    `json:"identifier" cbor:"2,keyasint"`
	Sequence   uint64    `json:"sequence" cbor:"3,keyasint"`

	// PriorSequence 与 PriorDigest 指向被扩展的尾部事件，创世事件没有
	PriorSequence *uint64 `json:"priorSequence,omitempty" cbor:"4,keyasint,omitempty"`
	PriorDigest   string  `json:"priorDigest,omitempty" cbor:"5,keyasint,omitempty"`

	// Keys 创世时为 [k0]，轮换时为揭示的新密钥
	Keys []string `json:"keys,omitempty" cbor:"6,keyasint,omitempty"`
	// NextKeyDigests 对下一组密钥的承诺
	NextKeyDigests []string `json:"nextKeyDigests,omitempty" cbor:"7,keyasint,omitempty"`
	// NonTransferable 创世时声明不可轮换
	NonTransferable bool `json:"nonTransferable,omitempty" cbor:"8,keyasint,omitempty"`

	// Successor 泄露声明可选指向的后继标识符
	Successor string `json:"successor,omitempty" cbor:"9,keyasint,omitempty"`
	Reason    string `json:"reason,omitempty" cbor:"10,keyasint,omitempty"`

	Proof *types.DataIntegrityProof `json:"proof,omitempty" cbor:"11,keyasint,omitempty"`
}

// Digest 返回事件（含证明）的规范摘要
//
// 后续事件的 priorDigest 引用此值。
func (e *Event) Digest() (string, error) {
	return canonical.Digest(e)
}

// Clone 返回深拷贝
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.PriorSequence != nil {
		ps := *e.PriorSequence
		c.PriorSequence = &ps
	}
	c.Keys = cloneStrings(e.Keys)
	c.NextKeyDigests = cloneStrings(e.NextKeyDigests)
	c.Proof = e.Proof.Clone()
	return &c
}

func (e *Event) String() string {
	return fmt.Sprintf("%s#%d", e.Type, e.Sequence)
}

// ============================================================================
//                              事件构造
// ============================================================================

// Commit 计算密钥承诺摘要 H(k)
func Commit(keyDIDs ...string) ([]string, error) {
	digests := make([]string, 0, len(keyDIDs))
	for _, k := range keyDIDs {
		d, err := did.KeyDigest(k)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", k, err)
		}
		digests = append(digests, d)
	}
	return digests, nil
}

// NewInception 构造并签署创世事件
//
// 标识符为 did(k0)，signer 持有 k0。nextDigests 是对下一把密钥的承诺，
// 下一把密钥本身不出现在事件中。
func NewInception(ctx context.Context, signer crypto.Signer, nextDigests []string, opts ...proof.Option) (*Event, error) {
	if len(nextDigests) == 0 {
		return nil, fmt.Errorf("%w: inception requires next key digests", ErrMalformedEvent)
	}
	return newInception(ctx, signer, nextDigests, false, opts)
}

// NewNonTransferableInception 构造不可轮换的创世事件
func NewNonTransferableInception(ctx context.Context, signer crypto.Signer, opts ...proof.Option) (*Event, error) {
	return newInception(ctx, signer, nil, true, opts)
}

func newInception(ctx context.Context, signer crypto.Signer, nextDigests []string, nonTransferable bool, opts []proof.Option) (*Event, error) {
	if signer == nil {
		return nil, &types.SigningError{Op: "inception", Err: proof.ErrNilSigner}
	}
	ev := &Event{
		Type:            EventInception,
		Identifier:      signer.DID(),
		Sequence:        0,
		Keys:            []string{signer.DID()},
		NextKeyDigests:  cloneStrings(nextDigests),
		NonTransferable: nonTransferable,
	}
	return sign(ctx, ev, signer, opts)
}

// NewRotation 构造并签署轮换事件
//
// signer 必须是 tip 状态下的当前密钥；revealed 为本次揭示的新密钥 DID，
// nextDigests 为对再下一组密钥的承诺。
func NewRotation(ctx context.Context, tip State, signer crypto.Signer, revealed []string, nextDigests []string, opts ...proof.Option) (*Event, error) {
	ev := extend(tip, EventRotation)
	ev.Keys = cloneStrings(revealed)
	ev.NextKeyDigests = cloneStrings(nextDigests)
	return sign(ctx, ev, signer, opts)
}

// NewCompromise 构造并签署泄露声明
//
// successor 可为空；非空时必须是合法的 did:key。
func NewCompromise(ctx context.Context, tip State, signer crypto.Signer, successor, reason string, opts ...proof.Option) (*Event, error) {
	ev := extend(tip, EventCompromise)
	ev.Successor = successor
	ev.Reason = reason
	return sign(ctx, ev, signer, opts)
}

func extend(tip State, typ EventType) *Event {
	prior := tip.Sequence
	return &Event{
		Type:          typ,
		Identifier:    tip.DID,
		Sequence:      tip.Sequence + 1,
		PriorSequence: &prior,
		PriorDigest:   tip.LastEventDigest,
	}
}

func sign(ctx context.Context, ev *Event, signer crypto.Signer, opts []proof.Option) (*Event, error) {
	p, err := proof.Attach(ctx, types.KeyEventDomainTag, ev, signer, opts...)
	if err != nil {
		return nil, err
	}
	ev.Proof = p
	return ev, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
