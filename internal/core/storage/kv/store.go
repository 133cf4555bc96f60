package kv

import (
	"encoding/json"
	"errors"

	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
)

// Store 带前缀隔离的 KV 存储
//
// 所有键自动加上前缀，扫描结果返回去掉前缀的键。
type Store struct {
	engine engine.InternalEngine
	prefix []byte
}

// New 创建 Store
func New(eng engine.InternalEngine, prefix []byte) *Store {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	return &Store{engine: eng, prefix: p}
}

func (s *Store) prefixKey(key []byte) []byte {
	prefixed := make([]byte, len(s.prefix)+len(key))
	copy(prefixed, s.prefix)
	copy(prefixed[len(s.prefix):], key)
	return prefixed
}

func (s *Store) stripPrefix(key []byte) []byte {
	if len(key) < len(s.prefix) {
		return key
	}
	return key[len(s.prefix):]
}

// ============================================================================
//                              基础操作
// ============================================================================

// Get 获取值
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.prefixKey(key))
}

// Put 写入值，已存在则覆盖
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// Delete 删除键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// PutIfAbsent 仅在键不存在时写入
//
// 键已存在返回 ErrExists。读和写在同一事务中完成，并发写入同一个键时
// 只有一方提交成功，另一方得到 ErrTransactionConflict。
func (s *Store) PutIfAbsent(key, value []byte) error {
	b := s.NewBatch()
	b.PutIfAbsent(key, value)
	return b.Write()
}

// GetJSON 读取并解码 JSON 值
func (s *Store) GetJSON(key []byte, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(engine.ErrCorrupted, err)
	}
	return nil
}

// PutJSON 编码并写入 JSON 值
func (s *Store) PutJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// ============================================================================
//                              前缀扫描
// ============================================================================

// PrefixScan 按键序扫描子前缀下的键值对，fn 返回 false 时停止
func (s *Store) PrefixScan(subPrefix []byte, fn func(key, value []byte) bool) error {
	iter := s.engine.NewPrefixIterator(s.prefixKey(subPrefix))
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(s.stripPrefix(iter.Key()), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Keys 返回子前缀下的全部键
func (s *Store) Keys(subPrefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.PrefixScan(subPrefix, func(key, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	return keys, err
}

// Count 统计子前缀下的键数量
func (s *Store) Count(subPrefix []byte) (int64, error) {
	var count int64
	err := s.PrefixScan(subPrefix, func(_, _ []byte) bool {
		count++
		return true
	})
	return count, err
}

// ============================================================================
//                              批量写入
// ============================================================================

// Batch 带前缀的批量写入
//
// 全部操作在一个读写事务中提交：任一 PutIfAbsent 的键已存在时整批放弃，
// 不会留下只写了一半的记录与索引。非并发安全。
type Batch struct {
	store  *Store
	ops    []batchOp
	guards [][]byte
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// NewBatch 创建批量写入
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Put 添加写入操作
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: b.store.prefixKey(key), value: value})
}

// PutIfAbsent 添加写入操作，提交时键已存在则整批返回 ErrExists
func (b *Batch) PutIfAbsent(key, value []byte) {
	full := b.store.prefixKey(key)
	b.guards = append(b.guards, full)
	b.ops = append(b.ops, batchOp{key: full, value: value})
}

// PutJSON 添加 JSON 写入操作
func (b *Batch) PutJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Put(key, data)
	return nil
}

// Delete 添加删除操作
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: b.store.prefixKey(key), delete: true})
}

// Write 原子提交并清空
func (b *Batch) Write() error {
	defer b.Reset()

	txn := b.store.engine.NewTransaction(true)
	defer txn.Discard()

	for _, key := range b.guards {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return engine.ErrExists
		case !errors.Is(err, engine.ErrNotFound):
			return err
		}
	}
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = txn.Delete(op.key)
		} else {
			err = txn.Set(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return txn.Commit()
}

// Reset 丢弃未提交的操作
func (b *Batch) Reset() {
	b.ops = b.ops[:0]
	b.guards = b.guards[:0]
}

// Size 返回待写入操作数量
func (b *Batch) Size() int {
	return len(b.ops)
}

// ============================================================================
//                              辅助方法
// ============================================================================

// Prefix 返回前缀
func (s *Store) Prefix() []byte {
	return s.prefix
}

// SubStore 在当前前缀上追加子前缀
func (s *Store) SubStore(subPrefix []byte) *Store {
	return New(s.engine, s.prefixKey(subPrefix))
}
