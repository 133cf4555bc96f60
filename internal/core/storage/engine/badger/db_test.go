package badger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	cfg := engine.DefaultConfig(path).WithSyncWrites(false)
	eng, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng, path
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = New(engine.DefaultConfig(""))
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	cfg := engine.DefaultConfig(t.TempDir())
	cfg.GCDiscardRatio = 1.5
	_, err = New(cfg)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}

func TestEngine_BasicOps(t *testing.T) {
	eng, _ := testEngine(t)

	require.NoError(t, eng.Put([]byte("k"), []byte("v")))
	got, err := eng.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := eng.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, eng.Delete([]byte("k")))
	_, err = eng.Get([]byte("k"))
	assert.True(t, engine.IsNotFound(err))

	ok, err = eng.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	// 删除不存在的键不报错
	require.NoError(t, eng.Delete([]byte("missing")))
}

func TestEngine_EmptyKey(t *testing.T) {
	eng, _ := testEngine(t)

	_, err := eng.Get(nil)
	assert.ErrorIs(t, err, engine.ErrEmptyKey)
	assert.ErrorIs(t, eng.Put(nil, []byte("v")), engine.ErrEmptyKey)
	assert.ErrorIs(t, eng.Delete([]byte{}), engine.ErrEmptyKey)
}

func TestEngine_Closed(t *testing.T) {
	eng, _ := testEngine(t)
	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	_, err := eng.Get([]byte("k"))
	assert.True(t, engine.IsClosed(err))
	assert.True(t, engine.IsClosed(eng.Put([]byte("k"), nil)))
	assert.True(t, engine.IsClosed(eng.Start()))
}

func TestEngine_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	eng, err := New(engine.DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, eng.Put([]byte("k/did/0"), []byte("icp")))
	require.NoError(t, eng.Close())

	eng, err = New(engine.DefaultConfig(path).WithReadOnly(true))
	require.NoError(t, err)
	defer eng.Close()

	got, err := eng.Get([]byte("k/did/0"))
	require.NoError(t, err)
	assert.Equal(t, "icp", string(got))
	assert.ErrorIs(t, eng.Put([]byte("x"), []byte("y")), engine.ErrReadOnly)
}

func TestEngine_TransactionConflict(t *testing.T) {
	eng, _ := testEngine(t)

	t1 := eng.NewTransaction(true)
	t2 := eng.NewTransaction(true)
	defer t1.Discard()
	defer t2.Discard()

	_, err := t1.Get([]byte("tip"))
	assert.True(t, engine.IsNotFound(err))
	_, err = t2.Get([]byte("tip"))
	assert.True(t, engine.IsNotFound(err))

	require.NoError(t, t1.Set([]byte("tip"), []byte("1")))
	require.NoError(t, t2.Set([]byte("tip"), []byte("2")))

	require.NoError(t, t1.Commit())
	assert.True(t, engine.IsConflict(t2.Commit()))

	got, err := eng.Get([]byte("tip"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}

func TestEngine_ReadOnlyTransaction(t *testing.T) {
	eng, _ := testEngine(t)

	txn := eng.NewTransaction(false)
	defer txn.Discard()
	assert.ErrorIs(t, txn.Set([]byte("k"), []byte("v")), engine.ErrReadOnly)

	txn.Discard()
	_, err := txn.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrTransactionDiscarded)
}

func TestEngine_PrefixIterator(t *testing.T) {
	eng, _ := testEngine(t)

	require.NoError(t, eng.Put([]byte("a/1"), []byte("1")))
	require.NoError(t, eng.Put([]byte("a/2"), []byte("2")))
	require.NoError(t, eng.Put([]byte("b/1"), []byte("3")))

	iter := eng.NewPrefixIterator([]byte("a/"))
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	require.NoError(t, iter.Error())
	assert.Equal(t, []string{"a/1", "a/2"}, keys)
}

func TestEngine_TransactionAndStats(t *testing.T) {
	eng, _ := testEngine(t)

	txn := eng.NewTransaction(true)
	require.NoError(t, txn.Set([]byte("x"), []byte("1")))
	require.NoError(t, txn.Set([]byte("y"), []byte("2")))
	assert.ErrorIs(t, txn.Set(nil, []byte("bad")), engine.ErrEmptyKey)
	require.NoError(t, txn.Commit())
	txn.Discard()

	// 丢弃的事务不计入写入
	txn = eng.NewTransaction(true)
	require.NoError(t, txn.Set([]byte("z"), []byte("3")))
	txn.Discard()

	stats := eng.Stats()
	assert.EqualValues(t, 2, stats.KeyCount)
	assert.EqualValues(t, 2, stats.NumWrites)
	assert.Equal(t, stats.KeyCount, stats.ToPublicStats().KeyCount)
}

func TestEngine_StartWithGC(t *testing.T) {
	cfg := engine.DefaultConfig(filepath.Join(t.TempDir(), "db")).WithGC(10*time.Millisecond, 0.5)
	eng, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, eng.Start())
	require.NoError(t, eng.Put([]byte("k"), []byte("v")))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, eng.Sync())
	require.NoError(t, eng.Close())
}
