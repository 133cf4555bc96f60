package dispute

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/signer"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarkerID = "urn:uuid:0b6c7e43-58a2-4c5e-9d8e-2f7b1c9a4d10"

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSigner(t *testing.T, alg crypto.Algorithm) *signer.KeySigner {
	t.Helper()
	s, err := signer.Generate(alg)
	require.NoError(t, err)
	t.Cleanup(s.Erase)
	return s
}

func newService(t *testing.T, opts ...Option) (*Service, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(epoch)
	return NewService(append([]Option{WithClock(mock)}, opts...)...), mock
}

func fileDispute(t *testing.T, svc *Service, arbiter string, opts ...CreateOption) *types.Dispute {
	t.Helper()
	d, err := svc.Create(testMarkerID, "marker misstates exit type", arbiter, "did:web:filer.example", opts...)
	require.NoError(t, err)
	return d
}

// ============================================================================
//                              Create
// ============================================================================

func TestCreate(t *testing.T) {
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)

	d := fileDispute(t, svc, arb.DID(), WithEvidence("ipfs://bafy-evidence"))

	assert.Regexp(t, `^urn:uuid:[0-9a-f-]{36}$`, d.ID)
	assert.Equal(t, testMarkerID, d.MarkerID)
	assert.Equal(t, arb.DID(), d.Arbiter)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", d.FiledAt)
	assert.Equal(t, []string{"ipfs://bafy-evidence"}, d.EvidenceRefs)
	assert.Empty(t, d.ExpiresAt)
	assert.False(t, d.Resolved())
}

func TestCreate_EvidenceDefaultsToEmpty(t *testing.T) {
	svc, _ := newService(t)
	d := fileDispute(t, svc, "did:web:arbiter.example")
	assert.NotNil(t, d.EvidenceRefs)
	assert.Empty(t, d.EvidenceRefs)
}

func TestCreate_Expiry(t *testing.T) {
	svc, _ := newService(t, WithDefaultExpiry(48*time.Hour))

	d := fileDispute(t, svc, "did:web:arbiter.example")
	assert.Equal(t, "2026-03-03T12:00:00.000Z", d.ExpiresAt)

	d = fileDispute(t, svc, "did:web:arbiter.example", WithExpiry(epoch.Add(time.Hour)))
	assert.Equal(t, "2026-03-01T13:00:00.000Z", d.ExpiresAt)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create("", "", "arbiter", "", WithExpiry(epoch.Add(-time.Hour)))
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))

	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 5)
}

// ============================================================================
//                              Resolve
// ============================================================================

func TestResolve_Verify(t *testing.T) {
	for _, alg := range crypto.Algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			svc, mock := newService(t)
			arb := newSigner(t, alg)
			d := fileDispute(t, svc, arb.DID())

			mock.Add(time.Hour)
			resolved, err := svc.Resolve(context.Background(), d, types.OutcomeDismissed, "no evidence of misstatement", arb)
			require.NoError(t, err)

			assert.False(t, d.Resolved(), "input must not be modified")
			require.True(t, resolved.Resolved())
			assert.Equal(t, types.OutcomeDismissed, resolved.Resolution.Outcome)
			assert.Equal(t, "2026-03-01T13:00:00.000Z", resolved.Resolution.ResolvedAt)
			assert.Equal(t, arb.DID(), resolved.Resolution.Proof.VerificationMethod)
			assert.True(t, svc.VerifyResolution(resolved))
		})
	}
}

func TestResolve_Twice(t *testing.T) {
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)
	d := fileDispute(t, svc, arb.DID())

	resolved, err := svc.Resolve(context.Background(), d, types.OutcomeUpheld, "upheld", arb)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), resolved, types.OutcomeDismissed, "again", arb)
	assert.True(t, IsAlreadyResolved(err))
}

func TestResolve_Errors(t *testing.T) {
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)
	other := newSigner(t, crypto.AlgorithmP256)
	d := fileDispute(t, svc, arb.DID())
	ctx := context.Background()

	_, err := svc.Resolve(ctx, d, types.Outcome("overturned"), "", arb)
	assert.True(t, types.IsValidationError(err))

	_, err = svc.Resolve(ctx, d, types.OutcomeUpheld, "", other)
	assert.True(t, types.IsSigningError(err))
	assert.ErrorIs(t, err, ErrNotArbiter)

	_, err = svc.Resolve(ctx, d, types.OutcomeUpheld, "", nil)
	assert.True(t, types.IsSigningError(err))

	_, err = svc.Resolve(ctx, nil, types.OutcomeUpheld, "", arb)
	assert.True(t, types.IsValidationError(err))
}

func TestResolve_ArbiterWithFragment(t *testing.T) {
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)
	d := fileDispute(t, svc, arb.DID()+"#key-1")

	resolved, err := svc.Resolve(context.Background(), d, types.OutcomeModified, "timestamp corrected", arb)
	require.NoError(t, err)
	assert.True(t, svc.VerifyResolution(resolved))
}

func TestVerifyResolution_Unresolved(t *testing.T) {
	svc, _ := newService(t)
	d := fileDispute(t, svc, "did:web:arbiter.example")
	assert.False(t, svc.VerifyResolution(d))
	assert.False(t, svc.VerifyResolution(nil))
}

func TestVerifyResolution_Tampered(t *testing.T) {
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)
	resolved, err := svc.Resolve(context.Background(), fileDispute(t, svc, arb.DID()),
		types.OutcomeDismissed, "dismissed", arb)
	require.NoError(t, err)

	t.Run("summary", func(t *testing.T) {
		d := resolved.Clone()
		d.Resolution.Summary = "upheld after all"
		assert.False(t, svc.VerifyResolution(d))
	})
	t.Run("outcome", func(t *testing.T) {
		d := resolved.Clone()
		d.Resolution.Outcome = types.OutcomeUpheld
		assert.False(t, svc.VerifyResolution(d))
	})
	t.Run("marker", func(t *testing.T) {
		d := resolved.Clone()
		d.MarkerID = "urn:uuid:other"
		assert.False(t, svc.VerifyResolution(d))
	})
	t.Run("arbiter", func(t *testing.T) {
		d := resolved.Clone()
		d.Arbiter = newSigner(t, crypto.AlgorithmEd25519).DID()
		res := svc.CheckResolution(d)
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Errors)
	})
}

func TestVerifyResolution_DomainSeparation(t *testing.T) {
	svc, _ := newService(t)
	other, _ := newService(t, WithDomainTag(types.DomainDispute.Tag("2.0")))
	arb := newSigner(t, crypto.AlgorithmEd25519)

	resolved, err := svc.Resolve(context.Background(), fileDispute(t, svc, arb.DID()),
		types.OutcomeUpheld, "upheld", arb)
	require.NoError(t, err)

	assert.True(t, svc.VerifyResolution(resolved))
	assert.False(t, other.VerifyResolution(resolved))
}

func TestService_Metrics(t *testing.T) {
	m, err := metrics.New(nil, "test")
	require.NoError(t, err)
	svc, _ := newService(t, WithMetrics(m))

	fileDispute(t, svc, "did:web:arbiter.example")
	fileDispute(t, svc, "did:web:arbiter.example")

	disputes := m.Collectors()[5]
	assert.Equal(t, 2.0, testutil.ToFloat64(disputes))
}

// ============================================================================
//                              AggregateStatus
// ============================================================================

func TestAggregateStatus(t *testing.T) {
	now := epoch
	open := types.Dispute{ID: "a"}
	expired := types.Dispute{ID: "b", ExpiresAt: types.FormatTime(now.Add(-time.Minute))}
	notYet := types.Dispute{ID: "c", ExpiresAt: types.FormatTime(now.Add(time.Minute))}
	resolved := types.Dispute{ID: "d", Resolution: &types.Resolution{Outcome: types.OutcomeDismissed}}
	expiredResolved := types.Dispute{ID: "e", ExpiresAt: expired.ExpiresAt, Resolution: resolved.Resolution}

	tests := []struct {
		name     string
		status   types.MarkerStatus
		disputes []types.Dispute
		want     types.DisputeStatus
	}{
		{"no disputes", types.StatusGoodStanding, nil, types.DisputeNone},
		{"disputed status alone", types.StatusDisputed, nil, types.DisputeActive},
		{"disputed status wins over resolved", types.StatusDisputed, []types.Dispute{resolved}, types.DisputeActive},
		{"open", types.StatusGoodStanding, []types.Dispute{open}, types.DisputeActive},
		{"not yet expired", types.StatusGoodStanding, []types.Dispute{notYet}, types.DisputeActive},
		{"expired", types.StatusGoodStanding, []types.Dispute{expired}, types.DisputeExpired},
		{"active beats expired", types.StatusGoodStanding, []types.Dispute{expired, open}, types.DisputeActive},
		{"expired beats resolved", types.StatusGoodStanding, []types.Dispute{resolved, expired}, types.DisputeExpired},
		{"all resolved", types.StatusUnverified, []types.Dispute{resolved, expiredResolved}, types.DisputeResolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateStatus(tt.status, tt.disputes, now))
		})
	}
}

func TestAggregateStatus_ExpiryBoundary(t *testing.T) {
	d := types.Dispute{ID: "a", ExpiresAt: types.FormatTime(epoch)}
	assert.Equal(t, types.DisputeActive, AggregateStatus(types.StatusGoodStanding, []types.Dispute{d}, epoch.Add(-time.Millisecond)))
	assert.Equal(t, types.DisputeExpired, AggregateStatus(types.StatusGoodStanding, []types.Dispute{d}, epoch))
}
