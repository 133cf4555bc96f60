package keystate

import (
	"testing"

	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKVStore(t *testing.T) *KVStore {
	t.Helper()
	eng, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	s, err := NewKVStore(storage.NewKVStore(eng, storage.PrefixKeyEvents))
	require.NoError(t, err)
	return s
}

func testStores(t *testing.T) map[string]Store {
	return map[string]Store{
		"kv":  newKVStore(t),
		"mem": NewMemStore(),
	}
}

func TestStore_AppendLoad(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			c := newChain(t, 5)
			events := buildLog(t, c, 3).Events()

			for _, ev := range events {
				require.NoError(t, store.Append(ev))
			}

			loaded, err := store.Load(c.did())
			require.NoError(t, err)
			require.Len(t, loaded, len(events))

			// 往返后摘要不变，回放结果一致
			for i := range events {
				want, err := events[i].Digest()
				require.NoError(t, err)
				got, err := loaded[i].Digest()
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			res := Replay(loaded)
			assert.True(t, res.Valid, "%v", res.Err)
			assert.Equal(t, uint64(3), res.State.Sequence)
		})
	}
}

func TestStore_RefusesOverwrite(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			c := newChain(t, 2)
			ev := c.inception(t)

			require.NoError(t, store.Append(ev))
			err := store.Append(ev)
			require.Error(t, err)
			assert.True(t, storage.IsExists(err))
			assert.True(t, types.IsStorageError(err))
		})
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			events, err := store.Load("did:key:zUnknown")
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestKVStore_IsolatesIdentifiers(t *testing.T) {
	store := newKVStore(t)
	a, b := newChain(t, 2), newChain(t, 2)

	require.NoError(t, store.Append(a.inception(t)))
	require.NoError(t, store.Append(b.inception(t)))

	events, err := store.Load(a.did())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, a.did(), events[0].Identifier)
}

func TestKVStore_CorruptedValue(t *testing.T) {
	eng, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer eng.Close()

	kvs := storage.NewKVStore(eng, storage.PrefixKeyEvents)
	store, err := NewKVStore(kvs)
	require.NoError(t, err)

	require.NoError(t, kvs.Put(eventKey("did:key:zX", 0), []byte{0xff, 0x00}))

	_, err = store.Load("did:key:zX")
	require.Error(t, err)
	assert.True(t, storage.IsCorrupted(err))
}
