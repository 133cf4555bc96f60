package engine

import (
	"github.com/dep2p/go-exitmarker/pkg/interfaces"
)

// InternalEngine 内部扩展接口
type InternalEngine interface {
	interfaces.Engine

	// ────────────────────────────────────────────────────────────────────
	// 迭代与事务
	// ────────────────────────────────────────────────────────────────────

	// NewPrefixIterator 创建前缀迭代器，调用方负责 Close
	NewPrefixIterator(prefix []byte) Iterator

	// NewTransaction 创建事务，调用方负责 Commit 或 Discard
	NewTransaction(writable bool) Transaction

	// ────────────────────────────────────────────────────────────────────
	// 维护
	// ────────────────────────────────────────────────────────────────────

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Sync 将已写入数据刷到磁盘
	Sync() error

	// Stats 统计信息快照
	Stats() *Stats
}

// Iterator 前缀迭代器
//
// 使用模式:
//
//	iter := eng.NewPrefixIterator([]byte("k/"))
//	defer iter.Close()
//	for iter.First(); iter.Valid(); iter.Next() {
//	    key, value := iter.Key(), iter.Value()
//	}
//	return iter.Error()
type Iterator interface {
	First() bool
	Next() bool
	Valid() bool
	// Key 返回当前键的副本
	Key() []byte
	// Value 返回当前值的副本
	Value() []byte
	Close()
	Error() error
}

// Transaction 事务
//
// 读写事务提交时若读集合被并发修改，返回 ErrTransactionConflict。
type Transaction interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Discard()
}

// Stats 引擎统计信息
type Stats struct {
	KeyCount   int64 `json:"key_count"`
	DiskSize   int64 `json:"disk_size"`
	LSMSize    int64 `json:"lsm_size"`
	VlogSize   int64 `json:"vlog_size"`
	NumReads   int64 `json:"num_reads"`
	NumWrites  int64 `json:"num_writes"`
	NumDeletes int64 `json:"num_deletes"`
}

// ToPublicStats 转换为公共统计信息
func (s *Stats) ToPublicStats() *interfaces.EngineStats {
	return &interfaces.EngineStats{
		KeyCount: s.KeyCount,
		DiskSize: s.DiskSize,
	}
}
