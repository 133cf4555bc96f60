package kv

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore 创建测试用 Store
func testStore(t *testing.T, prefix string) *Store {
	t.Helper()

	cfg := engine.DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	cfg.SyncWrites = false
	eng, err := badger.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, eng.Close())
	})

	return New(eng, []byte(prefix))
}

func TestStore_PutGetDelete(t *testing.T) {
	s := testStore(t, "m/")

	require.NoError(t, s.Put([]byte("urn:uuid:1"), []byte("v1")))

	got, err := s.Get([]byte("urn:uuid:1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	ok, err := s.Has([]byte("urn:uuid:1"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete([]byte("urn:uuid:1")))
	_, err = s.Get([]byte("urn:uuid:1"))
	assert.True(t, engine.IsNotFound(err))
}

func TestStore_PrefixIsolation(t *testing.T) {
	root := testStore(t, "")
	markers := root.SubStore([]byte("m/"))
	disputes := root.SubStore([]byte("d/"))

	require.NoError(t, markers.Put([]byte("x"), []byte("marker")))
	require.NoError(t, disputes.Put([]byte("x"), []byte("dispute")))

	got, err := markers.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "marker", string(got))

	got, err = disputes.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "dispute", string(got))

	got, err = root.Get([]byte("m/x"))
	require.NoError(t, err)
	assert.Equal(t, "marker", string(got))
}

func TestStore_PutIfAbsent(t *testing.T) {
	s := testStore(t, "k/")

	require.NoError(t, s.PutIfAbsent([]byte("seq0"), []byte("first")))

	err := s.PutIfAbsent([]byte("seq0"), []byte("second"))
	assert.True(t, engine.IsExists(err))

	got, err := s.Get([]byte("seq0"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(got), "existing value must not be overwritten")
}

func TestStore_PutIfAbsentConcurrent(t *testing.T) {
	s := testStore(t, "k/")

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.PutIfAbsent([]byte("tip"), []byte(fmt.Sprintf("writer-%d", i)))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.True(t, engine.IsExists(err) || engine.IsConflict(err), "unexpected error: %v", err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
}

func TestStore_JSON(t *testing.T) {
	s := testStore(t, "b/")

	type batch struct {
		ID   string `json:"id"`
		Size int    `json:"size"`
	}
	require.NoError(t, s.PutJSON([]byte("b1"), batch{ID: "b1", Size: 5}))

	var got batch
	require.NoError(t, s.GetJSON([]byte("b1"), &got))
	assert.Equal(t, batch{ID: "b1", Size: 5}, got)

	require.NoError(t, s.Put([]byte("bad"), []byte("{")))
	err := s.GetJSON([]byte("bad"), &got)
	assert.True(t, engine.IsCorrupted(err))
}

func TestStore_PrefixScanOrdered(t *testing.T) {
	s := testStore(t, "k/")

	for i := 9; i >= 0; i-- {
		require.NoError(t, s.Put([]byte(fmt.Sprintf("did/%02d", i)), []byte{byte(i)}))
	}
	require.NoError(t, s.Put([]byte("other/00"), []byte{0xff}))

	var seen []byte
	require.NoError(t, s.PrefixScan([]byte("did/"), func(_, value []byte) bool {
		seen = append(seen, value[0])
		return true
	}))
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)

	count, err := s.Count([]byte("did/"))
	require.NoError(t, err)
	assert.EqualValues(t, 10, count)

	keys, err := s.Keys([]byte("other/"))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "other/00", string(keys[0]))
}

func TestStore_PrefixScanStop(t *testing.T) {
	s := testStore(t, "")
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put([]byte{byte('a' + i)}, []byte{1}))
	}

	n := 0
	require.NoError(t, s.PrefixScan(nil, func(_, _ []byte) bool {
		n++
		return n < 2
	}))
	assert.Equal(t, 2, n)
}

func TestBatch_Write(t *testing.T) {
	s := testStore(t, "d/")

	b := s.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	require.NoError(t, b.PutJSON([]byte("b"), map[string]int{"n": 2}))
	assert.Equal(t, 2, b.Size())
	require.NoError(t, b.Write())
	assert.Equal(t, 0, b.Size())

	count, err := s.Count(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	b.Delete([]byte("a"))
	require.NoError(t, b.Write())
	ok, err := s.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatch_GuardAbortsWholeBatch(t *testing.T) {
	s := testStore(t, "m/")
	require.NoError(t, s.Put([]byte("r/1"), []byte("original")))

	b := s.NewBatch()
	b.PutIfAbsent([]byte("r/1"), []byte("replacement"))
	b.Put([]byte("s/alice/1"), []byte("1"))
	assert.True(t, engine.IsExists(b.Write()))
	assert.Equal(t, 0, b.Size())

	got, err := s.Get([]byte("r/1"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
	ok, err := s.Has([]byte("s/alice/1"))
	require.NoError(t, err)
	assert.False(t, ok, "index must not be written when the record already exists")

	b.PutIfAbsent([]byte("r/2"), []byte("new"))
	b.Put([]byte("s/alice/2"), []byte("2"))
	require.NoError(t, b.Write())

	count, err := s.Count([]byte("s/"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
