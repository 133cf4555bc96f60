package keystate

import (
	"fmt"
	"time"

	"github.com/dep2p/go-exitmarker/internal/core/proof"
	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/dep2p/go-exitmarker/pkg/lib/did"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// ReplayResult 回放结果
type ReplayResult struct {
	// State 最后一条合法事件之后的状态
	State State
	// Valid 全部事件均合法
	Valid bool
	// Applied 已接受的事件数
	Applied int
	// InvalidAt 第一条非法事件的下标，合法时为 -1
	InvalidAt int
	// Err 第一条非法事件的拒绝原因
	Err error
}

// Replay 从序号 0 开始折叠事件
//
// 遇到第一条非法事件即停止，之后的事件不再处理。
func Replay(events []*Event) ReplayResult {
	state := UnbornState()
	for i, ev := range events {
		next, err := apply(state, ev)
		if err != nil {
			return ReplayResult{State: state, Valid: false, Applied: i, InvalidAt: i, Err: err}
		}
		state = next
	}
	return ReplayResult{State: state, Valid: true, Applied: len(events), InvalidAt: -1}
}

// KeyStatusAt 返回 keyDID 在序号 at（含）时的状态
//
// 只折叠序号不超过 at 的事件。泄露声明不追溯：at 早于泄露序号时，
// 当时的当前密钥仍报告为 KeyCurrent，由调用方结合尾部状态自行判断。
func KeyStatusAt(events []*Event, keyDID string, at uint64) KeyStatus {
	n := 0
	for n < len(events) && events[n].Sequence <= at {
		n++
	}
	res := Replay(events[:n])
	if res.State.Status == StatusUnborn {
		return KeyUnknown
	}
	return statusOf(res.State, did.StripFragment(keyDID))
}

// Retirement 密钥离开当前密钥集的事件
type Retirement struct {
	// Sequence 轮换或泄露事件的序号
	Sequence uint64
	// Type 事件类型
	Type EventType
	// At 事件证明的创建时间，无法解析时为零值
	At time.Time
}

// RetirementOf 返回 keyDID 首次不再是当前密钥的事件
//
// 密钥从未成为当前密钥或至今仍为当前密钥时返回 false。泄露声明使
// 当时的全部当前密钥退出。
func RetirementOf(events []*Event, keyDID string) (Retirement, bool) {
	keyDID = did.StripFragment(keyDID)
	state := UnbornState()
	wasCurrent := false
	for _, ev := range events {
		next, err := apply(state, ev)
		if err != nil {
			break
		}
		state = next
		current := statusOf(state, keyDID) == KeyCurrent
		if wasCurrent && !current {
			r := Retirement{Sequence: ev.Sequence, Type: ev.Type}
			if ev.Proof != nil {
				r.At, _ = types.ParseTime(ev.Proof.Created)
			}
			return r, true
		}
		wasCurrent = wasCurrent || current
	}
	return Retirement{}, false
}

// ============================================================================
//                              状态转换
// ============================================================================

// apply 校验 ev 并返回新状态，不修改输入
func apply(state State, ev *Event) (State, error) {
	if ev == nil {
		return state, fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if !ev.Type.Valid() {
		return state, fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, ev.Type)
	}

	target := ev.Type.targetStatus()
	if !state.Status.allows(target) {
		return state, ceremonyError(state, target, "")
	}
	if ev.Type == EventRotation && state.NonTransferable {
		return state, ceremonyError(state, target, "identifier is non-transferable")
	}

	if err := checkLinkage(state, ev); err != nil {
		return state, err
	}

	var next State
	var err error
	switch ev.Type {
	case EventInception:
		next, err = applyInception(ev)
	case EventRotation:
		next, err = applyRotation(state, ev)
	case EventCompromise:
		next, err = applyCompromise(state, ev)
	}
	if err != nil {
		return state, err
	}

	// 签名由扩展前状态授权的密钥验证；创世事件由自身公开的密钥验证
	authorized := state.CurrentKeys
	if ev.Type == EventInception {
		authorized = ev.Keys
	}
	if err := checkSignature(ev, authorized); err != nil {
		return state, err
	}

	digest, err := ev.Digest()
	if err != nil {
		return state, fmt.Errorf("%s: %w: %v", ev, ErrMalformedEvent, err)
	}
	next.LastEventDigest = digest
	next.Sequence = ev.Sequence
	next.Status = target
	return next, nil
}

func ceremonyError(state State, target Status, reason string) *types.CeremonyError {
	next := state.Status.ValidNext()
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	return &types.CeremonyError{
		Current:   string(state.Status),
		Attempted: string(target),
		ValidNext: names,
		Reason:    reason,
	}
}

// checkLinkage 校验序号、前驱摘要与标识符
func checkLinkage(state State, ev *Event) error {
	if ev.Type == EventInception {
		if ev.Sequence != 0 || ev.PriorSequence != nil || ev.PriorDigest != "" {
			return fmt.Errorf("%s: %w: inception must start at sequence 0 without prior", ev, ErrSequenceMismatch)
		}
		return nil
	}

	if ev.Identifier != state.DID {
		return fmt.Errorf("%s: %w: event for %s, log for %s", ev, ErrIdentifierMismatch, ev.Identifier, state.DID)
	}
	if ev.PriorSequence == nil || *ev.PriorSequence != state.Sequence || ev.Sequence != state.Sequence+1 {
		return fmt.Errorf("%s: %w: tip is %d", ev, ErrSequenceMismatch, state.Sequence)
	}
	if ev.PriorDigest != state.LastEventDigest {
		return fmt.Errorf("%s: %w", ev, ErrPriorDigestMismatch)
	}
	return nil
}

func applyInception(ev *Event) (State, error) {
	if len(ev.Keys) == 0 {
		return State{}, fmt.Errorf("%s: %w: no keys", ev, ErrMalformedEvent)
	}
	// 自认证：标识符由创世密钥派生
	if ev.Identifier != ev.Keys[0] {
		return State{}, fmt.Errorf("%s: %w: identifier must equal first inception key", ev, ErrIdentifierMismatch)
	}
	if err := checkKeys(ev, ev.Keys); err != nil {
		return State{}, err
	}
	if err := checkCommitments(ev, ev.NonTransferable); err != nil {
		return State{}, err
	}
	return State{
		DID:             ev.Identifier,
		CurrentKeys:     cloneStrings(ev.Keys),
		NextKeyDigests:  cloneStrings(ev.NextKeyDigests),
		NonTransferable: ev.NonTransferable,
	}, nil
}

func applyRotation(state State, ev *Event) (State, error) {
	if len(ev.Keys) == 0 {
		return state, fmt.Errorf("%s: %w: rotation reveals no keys", ev, ErrMalformedEvent)
	}
	if ev.NonTransferable || ev.Successor != "" {
		return state, fmt.Errorf("%s: %w: unexpected fields on rotation", ev, ErrMalformedEvent)
	}
	if err := checkKeys(ev, ev.Keys); err != nil {
		return state, err
	}

	// 揭示的密钥必须逐一匹配承诺
	if len(ev.Keys) != len(state.NextKeyDigests) {
		return state, fmt.Errorf("%s: %w: revealed %d keys, committed %d", ev, ErrCommitmentMismatch, len(ev.Keys), len(state.NextKeyDigests))
	}
	for i, k := range ev.Keys {
		d, err := did.KeyDigest(k)
		if err != nil || d != state.NextKeyDigests[i] {
			return state, fmt.Errorf("%s: %w", ev, ErrCommitmentMismatch)
		}
	}
	if err := checkCommitments(ev, false); err != nil {
		return state, err
	}

	next := state.Clone()
	next.RotatedKeys = append(next.RotatedKeys, state.CurrentKeys...)
	next.CurrentKeys = cloneStrings(ev.Keys)
	next.NextKeyDigests = cloneStrings(ev.NextKeyDigests)
	return next, nil
}

func applyCompromise(state State, ev *Event) (State, error) {
	if len(ev.Keys) > 0 || len(ev.NextKeyDigests) > 0 || ev.NonTransferable {
		return state, fmt.Errorf("%s: %w: unexpected fields on compromise", ev, ErrMalformedEvent)
	}
	if ev.Successor != "" {
		if _, err := did.Decode(ev.Successor); err != nil {
			return state, fmt.Errorf("%s: %w: successor: %v", ev, ErrMalformedEvent, err)
		}
	}
	next := state.Clone()
	next.Successor = ev.Successor
	at := ev.Sequence
	next.CompromisedAt = &at
	return next, nil
}

func checkKeys(ev *Event, keys []string) error {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, err := did.Decode(k); err != nil {
			return fmt.Errorf("%s: %w: key %q: %v", ev, ErrMalformedEvent, k, err)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%s: %w: duplicate key", ev, ErrMalformedEvent)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// checkCommitments 校验承诺摘要：可轮换时非空，不可轮换时为空
func checkCommitments(ev *Event, nonTransferable bool) error {
	if nonTransferable {
		if len(ev.NextKeyDigests) > 0 {
			return fmt.Errorf("%s: %w: non-transferable inception carries next key digests", ev, ErrMalformedEvent)
		}
		return nil
	}
	if len(ev.NextKeyDigests) == 0 {
		return fmt.Errorf("%s: %w: next key digests required", ev, ErrMalformedEvent)
	}
	for _, d := range ev.NextKeyDigests {
		if _, err := canonical.DecodeHash(d); err != nil {
			return fmt.Errorf("%s: %w: %v", ev, ErrMalformedEvent, err)
		}
	}
	return nil
}

// checkSignature 校验证明由 authorized 中的密钥签署
func checkSignature(ev *Event, authorized []string) error {
	if ev.Proof == nil {
		return fmt.Errorf("%s: %w: proof is missing", ev, ErrInvalidEventSignature)
	}
	signer := did.StripFragment(ev.Proof.VerificationMethod)
	if !contains(authorized, signer) {
		return fmt.Errorf("%s: %w", ev, ErrUnauthorizedKey)
	}
	// 回放是纯折叠，不依赖当前时间
	res := proof.Verify(types.KeyEventDomainTag, ev, signer, ev.Proof, proof.WithMaxClockSkew(0))
	if !res.Valid {
		return fmt.Errorf("%s: %w: %w", ev, ErrInvalidEventSignature, res.Err())
	}
	return nil
}
