package marker

import (
	"context"
	"testing"
	"time"

	"github.com/dep2p/go-exitmarker/internal/core/keystate"
	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/signer"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identity 带密钥事件日志的主体：keys[0] 创世，keys[1] 为预承诺的下一把密钥
type identity struct {
	mgr  *keystate.Manager
	keys []*signer.KeySigner
	tip  keystate.State
}

func newIdentity(t *testing.T) *identity {
	t.Helper()
	mgr, err := keystate.NewManager(keystate.NewMemStore())
	require.NoError(t, err)

	id := &identity{mgr: mgr}
	for i := 0; i < 3; i++ {
		id.keys = append(id.keys, newSigner(t, crypto.AlgorithmEd25519))
	}

	icp, err := keystate.NewInception(context.Background(), id.keys[0], id.commit(t, 1))
	require.NoError(t, err)
	id.tip, err = mgr.Append(context.Background(), icp)
	require.NoError(t, err)
	return id
}

func (id *identity) did() string { return id.keys[0].DID() }

func (id *identity) commit(t *testing.T, i int) []string {
	t.Helper()
	digests, err := keystate.Commit(id.keys[i].DID())
	require.NoError(t, err)
	return digests
}

func (id *identity) rotate(t *testing.T) {
	t.Helper()
	ev, err := keystate.NewRotation(context.Background(), id.tip, id.keys[0],
		[]string{id.keys[1].DID()}, id.commit(t, 2))
	require.NoError(t, err)
	id.tip, err = id.mgr.Append(context.Background(), ev)
	require.NoError(t, err)
}

func (id *identity) compromise(t *testing.T, current *signer.KeySigner, successor string) {
	t.Helper()
	ev, err := keystate.NewCompromise(context.Background(), id.tip, current, successor, "device lost")
	require.NoError(t, err)
	id.tip, err = id.mgr.Append(context.Background(), ev)
	require.NoError(t, err)
}

// receiptBefore 构造早于 key 退出 offset 时长的锚定回执
func (id *identity) receiptBefore(t *testing.T, m *types.ExitMarker, key *signer.KeySigner, offset time.Duration) *interfaces.Receipt {
	t.Helper()
	ret, ok, err := id.mgr.Retirement(id.did(), key.DID())
	require.NoError(t, err)
	require.True(t, ok)
	h, err := ContentHash(m)
	require.NoError(t, err)
	return &interfaces.Receipt{Provider: "tsa", Hash: h, AnchoredAt: ret.At.Add(-offset)}
}

func TestSign_BindsLineage(t *testing.T) {
	id := newIdentity(t)
	svc, _ := newService(t, WithKeyState(id.mgr))

	signed, err := svc.Sign(context.Background(), buildMarker(t, svc, id.did()), id.keys[0])
	require.NoError(t, err)

	l := signed.Modules.Lineage
	require.NotNil(t, l)
	require.NotNil(t, l.KeyEventSequence)
	assert.Equal(t, uint64(0), *l.KeyEventSequence)
	assert.Empty(t, l.Controller)
	assert.True(t, svc.Verify(signed).Valid)
}

func TestSign_AfterRotation(t *testing.T) {
	id := newIdentity(t)
	svc, _ := newService(t, WithKeyState(id.mgr))
	ctx := context.Background()

	before, err := svc.Sign(ctx, buildMarker(t, svc, id.did()), id.keys[0])
	require.NoError(t, err)

	id.rotate(t)

	// 轮换前签署的凭证需要锚定证据证明签名时间
	res := svc.Verify(before)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "signing time is not proven")

	res = svc.Verify(before, WithAnchorEvidence(id.receiptBefore(t, before, id.keys[0], time.Minute), nil))
	assert.True(t, res.Valid, res.Errors)

	// 旧密钥不能再签名
	_, err = svc.Sign(ctx, buildMarker(t, svc, id.did()), id.keys[0])
	assert.ErrorIs(t, err, ErrKeyNotCurrent)

	after, err := svc.Sign(ctx, buildMarker(t, svc, id.did()), id.keys[1])
	require.NoError(t, err)
	l := after.Modules.Lineage
	assert.Equal(t, id.keys[1].DID(), l.Controller)
	assert.Equal(t, uint64(1), *l.KeyEventSequence)

	res = svc.Verify(after)
	assert.True(t, res.Valid, res.Errors)
}

func TestVerify_AnchorEvidence(t *testing.T) {
	id := newIdentity(t)
	svc, _ := newService(t, WithKeyState(id.mgr))
	ctx := context.Background()

	var markers []*types.ExitMarker
	for i := 0; i < 3; i++ {
		m, err := svc.Sign(ctx, buildMarker(t, svc, id.did()), id.keys[0])
		require.NoError(t, err)
		markers = append(markers, m)
	}
	batch, err := merkle.CreateBatchExit(ctx, markers)
	require.NoError(t, err)
	p, err := merkle.ComputeMerkleProof(batch, 1)
	require.NoError(t, err)

	id.rotate(t)
	ret, _, err := id.mgr.Retirement(id.did(), id.keys[0].DID())
	require.NoError(t, err)

	t.Run("batch root before rotation", func(t *testing.T) {
		r := &interfaces.Receipt{Hash: batch.Root, AnchoredAt: ret.At.Add(-time.Second)}
		res := svc.Verify(markers[1], WithAnchorEvidence(r, p))
		assert.True(t, res.Valid, res.Errors)
	})

	t.Run("anchored after rotation", func(t *testing.T) {
		r := &interfaces.Receipt{Hash: batch.Root, AnchoredAt: ret.At.Add(time.Second)}
		assert.False(t, svc.Verify(markers[1], WithAnchorEvidence(r, p)).Valid)
	})

	t.Run("proof for another marker", func(t *testing.T) {
		r := &interfaces.Receipt{Hash: batch.Root, AnchoredAt: ret.At.Add(-time.Second)}
		assert.False(t, svc.Verify(markers[0], WithAnchorEvidence(r, p)).Valid)
	})

	t.Run("receipt without time", func(t *testing.T) {
		r := &interfaces.Receipt{Hash: batch.Root}
		assert.False(t, svc.Verify(markers[1], WithAnchorEvidence(r, p)).Valid)
	})

	t.Run("no receipt", func(t *testing.T) {
		assert.False(t, svc.Verify(markers[1], WithAnchorEvidence(nil, p)).Valid)
	})
}

// 持有已退出密钥的人把 lineage 序号写成 0，冒充退出前签署
func TestVerify_BackdatedSequence(t *testing.T) {
	plain, _ := newService(t)
	ctx := context.Background()

	t.Run("rotated key", func(t *testing.T) {
		id := newIdentity(t)
		id.rotate(t)
		keyed, _ := newService(t, WithKeyState(id.mgr))

		forged, err := plain.Sign(ctx, buildMarker(t, plain, id.did(), WithKeyEventSequence(0)), id.keys[0])
		require.NoError(t, err)

		res := keyed.Verify(forged)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "signing key left the key set at sequence 1")

		a, err := keyed.Assess(forged)
		require.NoError(t, err)
		assert.Equal(t, keystate.KeyCurrent, a.AtSigning)
		assert.Equal(t, keystate.KeyRotated, a.Current)
		require.NotNil(t, a.RetiredAt)
		assert.Equal(t, uint64(1), *a.RetiredAt)
		assert.False(t, a.SigningTimeProven)
	})

	t.Run("compromised key", func(t *testing.T) {
		id := newIdentity(t)
		id.compromise(t, id.keys[0], id.keys[2].DID())
		keyed, _ := newService(t, WithKeyState(id.mgr))

		forged, err := plain.Sign(ctx, buildMarker(t, plain, id.did(), WithKeyEventSequence(0)), id.keys[0])
		require.NoError(t, err)

		res := keyed.Verify(forged)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "(cmp)")

		a, err := keyed.Assess(forged)
		require.NoError(t, err)
		assert.Equal(t, keystate.KeyCompromised, a.Current)
		assert.False(t, a.SignedBeforeCompromise)

		// 锚定时间晚于泄露声明的证据不能挽回
		late := id.receiptBefore(t, forged, id.keys[0], -time.Minute)
		assert.False(t, keyed.Verify(forged, WithAnchorEvidence(late, nil)).Valid)
		a, err = keyed.Assess(forged, WithAnchorEvidence(late, nil))
		require.NoError(t, err)
		assert.False(t, a.SignedBeforeCompromise)
	})
}

func TestVerify_RotatedKeyForgery(t *testing.T) {
	id := newIdentity(t)
	id.rotate(t)
	keyed, _ := newService(t, WithKeyState(id.mgr))
	plain, _ := newService(t)

	// 持有旧密钥的人声称在序号 1 签名
	forged, err := plain.Sign(context.Background(),
		buildMarker(t, plain, id.did(), WithKeyEventSequence(1)), id.keys[0])
	require.NoError(t, err)
	assert.True(t, plain.Verify(forged).Valid)

	res := keyed.Verify(forged)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "signing key was rotated out")

	// 不声明序号时按日志末端判断
	forged, err = plain.Sign(context.Background(), buildMarker(t, plain, id.did()), id.keys[0])
	require.NoError(t, err)
	assert.False(t, keyed.Verify(forged).Valid)
}

func TestVerify_ForeignController(t *testing.T) {
	id := newIdentity(t)
	keyed, _ := newService(t, WithKeyState(id.mgr))
	plain, _ := newService(t)
	stranger := newSigner(t, crypto.AlgorithmP256)

	m := buildMarker(t, plain, id.did(), WithController(stranger.DID()))
	forged, err := plain.Sign(context.Background(), m, stranger)
	require.NoError(t, err)

	res := keyed.Verify(forged)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "signing key does not belong to subject")
}

func TestVerify_NoKeyEventLog(t *testing.T) {
	mgr, err := keystate.NewManager(keystate.NewMemStore())
	require.NoError(t, err)
	svc, _ := newService(t, WithKeyState(mgr))
	k := newSigner(t, crypto.AlgorithmP256)

	// 没有日志的 did:key 自证
	signed, err := svc.Sign(context.Background(), buildMarker(t, svc, k.DID()), k)
	require.NoError(t, err)
	assert.Nil(t, signed.Modules)
	assert.True(t, svc.Verify(signed).Valid)

	signed, err = svc.Sign(context.Background(), buildMarker(t, svc, k.DID(), WithKeyEventSequence(2)), k)
	require.NoError(t, err)
	assert.False(t, svc.Verify(signed).Valid)
}

func TestCompromise_NotRetroactive(t *testing.T) {
	id := newIdentity(t)
	svc, _ := newService(t, WithKeyState(id.mgr))
	ctx := context.Background()

	id.rotate(t)
	before, err := svc.Sign(ctx, buildMarker(t, svc, id.did()), id.keys[1])
	require.NoError(t, err)

	id.compromise(t, id.keys[1], id.keys[2].DID())

	// 没有锚定证据时 lineage 序号不足以证明签名早于泄露
	assert.False(t, svc.Verify(before).Valid)
	a, err := svc.Assess(before)
	require.NoError(t, err)
	assert.False(t, a.SignedBeforeCompromise)

	evidence := WithAnchorEvidence(id.receiptBefore(t, before, id.keys[1], time.Minute), nil)
	res := svc.Verify(before, evidence)
	assert.True(t, res.Valid, res.Errors)

	a, err = svc.Assess(before, evidence)
	require.NoError(t, err)
	assert.Equal(t, id.keys[1].DID(), a.Signer)
	assert.Equal(t, keystate.KeyCurrent, a.AtSigning)
	assert.Equal(t, keystate.KeyCompromised, a.Current)
	assert.True(t, a.SigningTimeProven)
	assert.True(t, a.SignedBeforeCompromise)
	assert.Equal(t, id.keys[2].DID(), a.Successor)

	// 泄露后不能再签名
	_, err = svc.Sign(ctx, buildMarker(t, svc, id.did()), id.keys[1])
	assert.ErrorIs(t, err, ErrKeyNotCurrent)
	assert.True(t, types.IsSigningError(err))

	// 未声明序号的凭证按末端状态判为泄露
	plain, _ := newService(t)
	late, err := plain.Sign(ctx, buildMarker(t, plain, id.did(), WithController(id.keys[1].DID())), id.keys[1])
	require.NoError(t, err)
	res = svc.Verify(late)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "signing key is compromised")

	a, err = svc.Assess(late)
	require.NoError(t, err)
	assert.Equal(t, keystate.KeyCompromised, a.AtSigning)
	assert.False(t, a.SignedBeforeCompromise)
}

func TestAssess_Errors(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Assess(buildMarker(t, svc, "did:web:someone.example"))
	assert.ErrorIs(t, err, ErrNoKeyState)

	_, err = svc.Assess(nil)
	assert.ErrorIs(t, err, ErrNilMarker)
}
