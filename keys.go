package exitmarker

import (
	"context"
	"fmt"

	"github.com/dep2p/go-exitmarker/internal/core/keystate"
	"github.com/dep2p/go-exitmarker/internal/core/proof"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dep2p/go-exitmarker/pkg/lib/signer"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              密钥库
// ════════════════════════════════════════════════════════════════════════════

// GenerateSigner 生成新密钥并以其 DID 为 ID 保存到密钥库
func (e *Engine) GenerateSigner(alg crypto.Algorithm) (*signer.KeySigner, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	priv, _, err := crypto.GenerateKeyPair(alg)
	if err != nil {
		return nil, err
	}
	s, err := signer.New(priv)
	if err != nil {
		return nil, err
	}
	if err := e.keystore.Put(s.DID(), priv); err != nil {
		s.Erase()
		return nil, fmt.Errorf("store key: %w", err)
	}

	logger.Info("已生成密钥", "did", log.ShortDID(s.DID()), "algorithm", alg.String())
	return s, nil
}

// Signer 从密钥库加载 DID 对应的签名者
//
// 调用方用完后应调用 Erase。
func (e *Engine) Signer(id string) (*signer.KeySigner, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return signer.FromKeystore(e.keystore, id)
}

// ════════════════════════════════════════════════════════════════════════════
//                              密钥事件
// ════════════════════════════════════════════════════════════════════════════

// Incept 为 s 的 DID 建立密钥事件日志
//
// next 为下一把密钥的 DID，只有其承诺摘要写入日志。next 为空时
// 建立不可轮换的日志。
func (e *Engine) Incept(ctx context.Context, s crypto.Signer, next ...string) (keystate.State, error) {
	if err := e.checkOpen(); err != nil {
		return keystate.State{}, err
	}

	var (
		ev  *keystate.Event
		err error
	)
	if len(next) == 0 {
		ev, err = keystate.NewNonTransferableInception(ctx, s, e.eventProofOptions()...)
	} else {
		digests, cerr := keystate.Commit(next...)
		if cerr != nil {
			return keystate.State{}, cerr
		}
		ev, err = keystate.NewInception(ctx, s, digests, e.eventProofOptions()...)
	}
	if err != nil {
		return keystate.State{}, err
	}
	return e.appendKeyEvent(ctx, ev)
}

// Rotate 轮换 identifier 的当前密钥
//
// current 是当前密钥的签名者；revealed 揭示此前承诺的新密钥，
// next 为再下一组密钥的 DID。
func (e *Engine) Rotate(ctx context.Context, identifier string, current crypto.Signer, revealed, next []string) (keystate.State, error) {
	if err := e.checkOpen(); err != nil {
		return keystate.State{}, err
	}

	tip, err := e.keyState.State(identifier)
	if err != nil {
		return keystate.State{}, err
	}
	digests, err := keystate.Commit(next...)
	if err != nil {
		return keystate.State{}, err
	}
	ev, err := keystate.NewRotation(ctx, tip, current, revealed, digests, e.eventProofOptions()...)
	if err != nil {
		return keystate.State{}, err
	}
	return e.appendKeyEvent(ctx, ev)
}

// DeclareCompromise 声明 identifier 的密钥已泄露
//
// 泄露不追溯：锚定时间早于声明的凭证仍然有效，需以 AnchorEvidence
// 证明，见 marker.Service.Assess。
func (e *Engine) DeclareCompromise(ctx context.Context, identifier string, current crypto.Signer, successor, reason string) (keystate.State, error) {
	if err := e.checkOpen(); err != nil {
		return keystate.State{}, err
	}

	tip, err := e.keyState.State(identifier)
	if err != nil {
		return keystate.State{}, err
	}
	ev, err := keystate.NewCompromise(ctx, tip, current, successor, reason, e.eventProofOptions()...)
	if err != nil {
		return keystate.State{}, err
	}
	return e.appendKeyEvent(ctx, ev)
}

// KeyStatus 返回密钥在 identifier 日志第 at 个事件时的状态
func (e *Engine) KeyStatus(identifier, keyDID string, at uint64) (keystate.KeyStatus, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}
	return e.keyState.KeyStatus(identifier, keyDID, at)
}

func (e *Engine) appendKeyEvent(ctx context.Context, ev *keystate.Event) (keystate.State, error) {
	st, err := e.keyState.Append(ctx, ev)
	if err != nil {
		return keystate.State{}, err
	}
	emit(e.emitters.keyEvent, types.EvtKeyEventAppended{
		Identifier: ev.Identifier,
		EventType:  string(ev.Type),
		Sequence:   ev.Sequence,
		Status:     string(st.Status),
	})
	return st, nil
}

func (e *Engine) eventProofOptions() []proof.Option {
	return []proof.Option{proof.WithClock(e.clock)}
}
