package proof

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

func newSigner(t *testing.T, alg crypto.Algorithm) *signer.KeySigner {
	t.Helper()
	s, err := signer.Generate(alg)
	require.NoError(t, err)
	t.Cleanup(s.Erase)
	return s
}

func newMarker(subject string) *types.ExitMarker {
	return &types.ExitMarker{
		ID:        "urn:uuid:7c1f4ad6-4b0e-4a55-9a5c-0d4f1b0e9a11",
		Subject:   subject,
		Origin:    "did:web:platform.example",
		Timestamp: "2026-01-01T00:00:00.000Z",
		ExitType:  types.ExitVoluntary,
		Status:    types.StatusGoodStanding,
	}
}

func signMarker(t *testing.T, s crypto.Signer, opts ...Option) *types.ExitMarker {
	t.Helper()
	m := newMarker(s.DID())
	p, err := Attach(context.Background(), types.MarkerDomainTag, m, s, opts...)
	require.NoError(t, err)
	m.Proof = p
	return m
}

func TestAttachVerify_RoundTrip(t *testing.T) {
	for _, alg := range crypto.Algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			s := newSigner(t, alg)
			m := signMarker(t, s)

			suite, _ := types.SuiteFor(alg)
			assert.Equal(t, suite, m.Proof.Type)
			assert.Equal(t, s.DID(), m.Proof.VerificationMethod)
			assert.Equal(t, types.ProofPurposeAssertion, m.Proof.ProofPurpose)
			assert.Equal(t, byte('z'), m.Proof.ProofValue[0])

			res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
			assert.True(t, res.Valid, res.Errors)
			assert.Empty(t, res.Errors)
		})
	}
}

func TestVerify_MutationInvalidates(t *testing.T) {
	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s)

	m.Origin = "did:web:other.example"
	res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{ReasonSignatureMismatch}, res.Errors)
}

func TestVerify_IDAndProofExcluded(t *testing.T) {
	s := newSigner(t, crypto.AlgorithmP256)
	m := signMarker(t, s)

	m.ID = "urn:uuid:00000000-0000-0000-0000-000000000000"
	res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
	assert.True(t, res.Valid, res.Errors)
}

func TestVerify_DomainSeparation(t *testing.T) {
	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s)

	res := Verify(types.DisputeDomainTag, m, m.Subject, m.Proof)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, ReasonSignatureMismatch)
}

func TestVerify_MissingProof(t *testing.T) {
	res := Verify(types.MarkerDomainTag, newMarker("did:key:zabc"), "did:key:zabc", nil)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{ReasonMissingProof}, res.Errors)
}

func TestVerify_SuiteAlgorithmMismatch(t *testing.T) {
	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s)

	m.Proof.Type = types.SuiteP256
	res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
	assert.False(t, res.Valid)
	found := false
	for _, e := range res.Errors {
		if e == "proof type EcdsaP256Signature2019 does not match key algorithm Ed25519" {
			found = true
		}
	}
	assert.True(t, found, res.Errors)
}

func TestVerify_UnknownSuite(t *testing.T) {
	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s)

	m.Proof.Type = "RsaSignature2018"
	res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, `unknown proof type "RsaSignature2018"`)
}

func TestVerify_KeySubstitution(t *testing.T) {
	victim := newSigner(t, crypto.AlgorithmEd25519)
	attacker := newSigner(t, crypto.AlgorithmEd25519)

	t.Run("claims victim key", func(t *testing.T) {
		m := newMarker(victim.DID())
		p, err := Attach(context.Background(), types.MarkerDomainTag, m, attacker)
		require.NoError(t, err)
		p.VerificationMethod = victim.DID()
		m.Proof = p

		res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors, ReasonSignatureMismatch)
	})

	t.Run("own key for victim subject", func(t *testing.T) {
		m := newMarker(victim.DID())
		p, err := Attach(context.Background(), types.MarkerDomainTag, m, attacker)
		require.NoError(t, err)
		m.Proof = p

		res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors, "verificationMethod does not match subject")
	})
}

func TestVerify_CollectsIndependentFailures(t *testing.T) {
	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s)

	m.Proof.Created = "yesterday"
	m.Proof.ProofPurpose = "authentication"
	m.Origin = "tampered"

	res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors, "created is not an RFC 3339 timestamp")
	assert.Contains(t, res.Errors, ReasonSignatureMismatch)
}

func TestVerify_FutureCreated(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now().Add(time.Hour))

	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s, WithClock(mock))

	res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "created is in the future")

	res = Verify(types.MarkerDomainTag, m, m.Subject, m.Proof, WithMaxClockSkew(0))
	assert.True(t, res.Valid, res.Errors)
}

func TestAttach_CreatedFromClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s, WithClock(mock))
	assert.Equal(t, "2026-03-01T12:00:00.000Z", m.Proof.Created)
}

func TestVerify_Verbose(t *testing.T) {
	s := newSigner(t, crypto.AlgorithmEd25519)
	m := signMarker(t, s)
	m.Proof.ProofValue = "not-multibase"

	res := Verify(types.MarkerDomainTag, m, m.Subject, m.Proof)
	assert.Equal(t, []string{ReasonSignatureMismatch}, res.Errors)

	res = Verify(types.MarkerDomainTag, m, m.Subject, m.Proof, WithVerbose(true))
	require.Len(t, res.Errors, 1)
	assert.NotEqual(t, ReasonSignatureMismatch, res.Errors[0])
	assert.Contains(t, res.Errors[0], ReasonSignatureMismatch)
}

func TestVerify_ResultErr(t *testing.T) {
	res := Verify(types.MarkerDomainTag, newMarker("did:key:zabc"), "did:key:zabc", nil)
	err := res.Err()
	require.Error(t, err)
	assert.True(t, types.IsVerificationError(err))
}

func TestAttach_Errors(t *testing.T) {
	_, err := Attach(context.Background(), types.MarkerDomainTag, newMarker("x"), nil)
	assert.True(t, types.IsSigningError(err))
	assert.ErrorIs(t, err, ErrNilSigner)

	s := newSigner(t, crypto.AlgorithmEd25519)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Attach(ctx, types.MarkerDomainTag, newMarker(s.DID()), s)
	assert.True(t, types.IsSigningError(err))
	assert.ErrorIs(t, err, context.Canceled)

	s.Erase()
	_, err = Attach(context.Background(), types.MarkerDomainTag, newMarker(s.DID()), s)
	assert.True(t, types.IsSigningError(err))
	assert.True(t, crypto.IsKeyErased(err))
}

func TestAttach_Metrics(t *testing.T) {
	m, err := metrics.New(nil, "proof")
	require.NoError(t, err)

	s := newSigner(t, crypto.AlgorithmEd25519)
	marker := signMarker(t, s, WithMetrics(m))
	Verify(types.MarkerDomainTag, marker, marker.Subject, marker.Proof, WithMetrics(m))

	collectors := m.Collectors()
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors[0]))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors[1]))
}

func TestSignable_PrefixesDomainTag(t *testing.T) {
	data, err := Signable(types.MarkerDomainTag, map[string]any{"b": 1, "a": "x", "id": "drop", "proof": "drop"})
	require.NoError(t, err)
	assert.Equal(t, `exit-marker-v1.1:{"a":"x","b":1}`, string(data))
}
