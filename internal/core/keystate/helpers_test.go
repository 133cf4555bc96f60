package keystate

import (
	"context"
	"testing"

	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/lib/signer"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T, alg crypto.Algorithm) *signer.KeySigner {
	t.Helper()
	s, err := signer.Generate(alg)
	require.NoError(t, err)
	return s
}

func commitTo(t *testing.T, keys ...*signer.KeySigner) []string {
	t.Helper()
	dids := make([]string, len(keys))
	for i, k := range keys {
		dids[i] = k.DID()
	}
	digests, err := Commit(dids...)
	require.NoError(t, err)
	return digests
}

// chain 一组预生成的密钥：keys[0] 创世，其余依次轮换
type chain struct {
	keys []*signer.KeySigner
}

func newChain(t *testing.T, n int) *chain {
	t.Helper()
	c := &chain{}
	for i := 0; i < n; i++ {
		alg := crypto.AlgorithmEd25519
		if i%2 == 1 {
			alg = crypto.AlgorithmP256
		}
		c.keys = append(c.keys, newKey(t, alg))
	}
	return c
}

func (c *chain) did() string { return c.keys[0].DID() }

func (c *chain) inception(t *testing.T) *Event {
	t.Helper()
	ev, err := NewInception(context.Background(), c.keys[0], commitTo(t, c.keys[1]))
	require.NoError(t, err)
	return ev
}

// rotation 构造第 gen 次轮换：keys[gen-1] 签名，揭示 keys[gen]，承诺 keys[gen+1]
func (c *chain) rotation(t *testing.T, tip State, gen int) *Event {
	t.Helper()
	ev, err := NewRotation(context.Background(), tip, c.keys[gen-1],
		[]string{c.keys[gen].DID()}, commitTo(t, c.keys[gen+1]))
	require.NoError(t, err)
	return ev
}
