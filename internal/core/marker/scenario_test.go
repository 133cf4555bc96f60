package marker

import (
	"context"
	"fmt"
	"testing"

	"github.com/dep2p/go-exitmarker/internal/core/merkle"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 签名、篡改、批次锚定的端到端流程
func TestScenario_SignTamperBatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	k := newSigner(t, crypto.AlgorithmEd25519)

	m, err := svc.New(k.DID(), testOrigin, types.ExitVoluntary, types.StatusGoodStanding)
	require.NoError(t, err)
	s, err := svc.Sign(ctx, m, k)
	require.NoError(t, err)
	require.True(t, svc.Verify(s).Valid)

	mutated := s.Clone()
	mutated.Status = types.StatusDisputed
	assert.False(t, svc.Verify(mutated).Valid)

	markers := make([]*types.ExitMarker, 5)
	for i := range markers {
		mi := buildMarker(t, svc, k.DID(), WithID(fmt.Sprintf("urn:uuid:00000000-0000-4000-8000-%012d", i)))
		markers[i], err = svc.Sign(ctx, mi, k)
		require.NoError(t, err)
	}

	five, err := merkle.CreateBatchExit(ctx, markers)
	require.NoError(t, err)
	four, err := merkle.CreateBatchExit(ctx, []*types.ExitMarker{markers[0], markers[1], markers[3], markers[4]})
	require.NoError(t, err)
	require.NotEqual(t, five.Root, four.Root)

	p, err := merkle.ComputeMerkleProof(five, 3)
	require.NoError(t, err)
	leaf, err := ContentHash(markers[3])
	require.NoError(t, err)

	assert.True(t, merkle.VerifyBatchMembership(p, leaf, five.Root))
	assert.False(t, merkle.VerifyBatchMembership(p, leaf, four.Root))
}
