package marker

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/signer"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/stretchr/testify/require"
)

const testOrigin = "did:web:platform.example"

var epoch = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

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

func buildMarker(t *testing.T, svc *Service, subject string, opts ...BuildOption) *types.ExitMarker {
	t.Helper()
	m, err := svc.New(subject, testOrigin, types.ExitVoluntary, types.StatusGoodStanding, opts...)
	require.NoError(t, err)
	return m
}
