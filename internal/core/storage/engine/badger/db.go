package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/dep2p/go-exitmarker/pkg/lib/log"
	"github.com/dgraph-io/badger/v4"
)

var logger = log.Logger("storage/badger")

// Engine BadgerDB 存储引擎
type Engine struct {
	db     *badger.DB
	config *engine.Config
	closed atomic.Bool

	stats struct {
		numReads   atomic.Int64
		numWrites  atomic.Int64
		numDeletes atomic.Int64
	}

	gcCtx    context.Context
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
}

// New 打开 BadgerDB 存储引擎
func New(cfg *engine.Config) (*Engine, error) {
	if cfg == nil {
		return nil, engine.ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}

	db, err := badger.Open(buildOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		db:       db,
		config:   cfg,
		gcCtx:    ctx,
		gcCancel: cancel,
	}, nil
}

// buildOptions 根据配置构建 BadgerDB 选项
func buildOptions(cfg *engine.Config) badger.Options {
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithReadOnly(cfg.ReadOnly).
		WithNumVersionsToKeep(1).
		WithBlockCacheSize(cfg.BlockCacheSize).
		WithValueLogFileSize(cfg.ValueLogFileSize)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{l: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	return opts
}

// badgerLogger 将 slog 适配到 badger.Logger
type badgerLogger struct {
	l *slog.Logger
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Info(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动后台值日志 GC
func (e *Engine) Start() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	if e.config.GCInterval > 0 && !e.config.ReadOnly {
		e.startGC()
	}
	return nil
}

func (e *Engine) startGC() {
	e.gcWg.Add(1)
	go func() {
		defer e.gcWg.Done()

		ticker := time.NewTicker(e.config.GCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-e.gcCtx.Done():
				return
			case <-ticker.C:
				e.runGC()
			}
		}
	}()
}

// runGC 反复回收直到没有可回收的值日志文件
func (e *Engine) runGC() {
	for !e.closed.Load() {
		if err := e.db.RunValueLogGC(e.config.GCDiscardRatio); err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				logger.Debug("值日志 GC 结束", "error", err)
			}
			return
		}
	}
}

// Close 关闭引擎，可重复调用
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.gcCancel()
	e.gcWg.Wait()
	return e.db.Close()
}

// ============================================================================
//                              基础操作
// ============================================================================

// Get 获取值的副本
func (e *Engine) Get(key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, engine.ErrClosed
	}
	if len(key) == 0 {
		return nil, engine.ErrEmptyKey
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	e.stats.numReads.Add(1)
	if err != nil {
		return nil, convertError(err)
	}
	return value, nil
}

// Put 写入键值对
func (e *Engine) Put(key, value []byte) error {
	if err := e.checkWritable(key); err != nil {
		return err
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err == nil {
		e.stats.numWrites.Add(1)
	}
	return convertError(err)
}

// Delete 删除键
func (e *Engine) Delete(key []byte) error {
	if err := e.checkWritable(key); err != nil {
		return err
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err == nil {
		e.stats.numDeletes.Add(1)
	}
	return convertError(err)
}

// Has 检查键是否存在
func (e *Engine) Has(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, engine.ErrClosed
	}
	if len(key) == 0 {
		return false, engine.ErrEmptyKey
	}

	var exists bool
	err := e.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			exists = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	return exists, convertError(err)
}

func (e *Engine) checkWritable(key []byte) error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	if e.config.ReadOnly {
		return engine.ErrReadOnly
	}
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	return nil
}

// ============================================================================
//                              扩展操作
// ============================================================================

// NewPrefixIterator 创建前缀迭代器
func (e *Engine) NewPrefixIterator(prefix []byte) engine.Iterator {
	txn := e.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	return &Iterator{
		txn:    txn,
		iter:   txn.NewIterator(opts),
		prefix: prefix,
	}
}

// NewTransaction 创建事务
func (e *Engine) NewTransaction(writable bool) engine.Transaction {
	return &Transaction{
		db:       e,
		txn:      e.db.NewTransaction(writable && !e.config.ReadOnly),
		writable: writable && !e.config.ReadOnly,
	}
}

// Sync 同步数据到磁盘
func (e *Engine) Sync() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	return e.db.Sync()
}

// Stats 统计信息快照
func (e *Engine) Stats() *engine.Stats {
	lsm, vlog := e.db.Size()
	return &engine.Stats{
		KeyCount:   e.countKeys(),
		DiskSize:   lsm + vlog,
		LSMSize:    lsm,
		VlogSize:   vlog,
		NumReads:   e.stats.numReads.Load(),
		NumWrites:  e.stats.numWrites.Load(),
		NumDeletes: e.stats.numDeletes.Load(),
	}
}

// countKeys 统计键数量，超过上限时返回采样值
func (e *Engine) countKeys() int64 {
	const limit = 100000

	var count int64
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid() && count < limit; it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		logger.Debug("统计键数量失败", "error", err)
		return 0
	}
	return count
}

// convertError 将 BadgerDB 错误转换为引擎错误
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return engine.ErrNotFound
	case errors.Is(err, badger.ErrEmptyKey):
		return engine.ErrEmptyKey
	case errors.Is(err, badger.ErrTxnTooBig):
		return engine.ErrTransactionTooLarge
	case errors.Is(err, badger.ErrConflict):
		return engine.ErrTransactionConflict
	case errors.Is(err, badger.ErrDiscardedTxn):
		return engine.ErrTransactionDiscarded
	case errors.Is(err, badger.ErrReadOnlyTxn):
		return engine.ErrReadOnly
	default:
		return err
	}
}

var _ engine.InternalEngine = (*Engine)(nil)
