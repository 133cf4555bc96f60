package badger

import (
	"sync/atomic"

	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/dgraph-io/badger/v4"
)

// Transaction BadgerDB 乐观事务
type Transaction struct {
	db        *Engine
	txn       *badger.Txn
	writes    int64
	writable  bool
	committed atomic.Bool
	discarded atomic.Bool
}

// Get 在事务中读取值，读取的键进入冲突检测集合
func (t *Transaction) Get(key []byte) ([]byte, error) {
	if t.discarded.Load() {
		return nil, engine.ErrTransactionDiscarded
	}
	if len(key) == 0 {
		return nil, engine.ErrEmptyKey
	}
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, convertError(err)
	}
	return item.ValueCopy(nil)
}

// Set 在事务中写入
func (t *Transaction) Set(key, value []byte) error {
	if err := t.checkWritable(key); err != nil {
		return err
	}
	if err := t.txn.Set(key, value); err != nil {
		return convertError(err)
	}
	t.writes++
	return nil
}

// Delete 在事务中删除
func (t *Transaction) Delete(key []byte) error {
	if err := t.checkWritable(key); err != nil {
		return err
	}
	if err := t.txn.Delete(key); err != nil {
		return convertError(err)
	}
	t.writes++
	return nil
}

func (t *Transaction) checkWritable(key []byte) error {
	if t.discarded.Load() {
		return engine.ErrTransactionDiscarded
	}
	if !t.writable {
		return engine.ErrReadOnly
	}
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	return nil
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.discarded.Load() {
		return engine.ErrTransactionDiscarded
	}
	if t.committed.Swap(true) {
		return nil
	}
	if t.db.closed.Load() {
		return engine.ErrClosed
	}
	if err := t.txn.Commit(); err != nil {
		return convertError(err)
	}
	t.db.stats.numWrites.Add(t.writes)
	return nil
}

// Discard 丢弃事务，提交后调用无副作用
func (t *Transaction) Discard() {
	if t.discarded.Swap(true) {
		return
	}
	t.txn.Discard()
}

var _ engine.Transaction = (*Transaction)(nil)
