package storage

import (
	"github.com/dep2p/go-exitmarker/internal/core/storage/engine"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// 重导出 engine 包的错误
var (
	ErrNotFound            = engine.ErrNotFound
	ErrExists              = engine.ErrExists
	ErrClosed              = engine.ErrClosed
	ErrInvalidConfig       = engine.ErrInvalidConfig
	ErrTransactionConflict = engine.ErrTransactionConflict
	ErrCorrupted           = engine.ErrCorrupted
)

// 重导出错误检查函数
var (
	IsNotFound  = engine.IsNotFound
	IsExists    = engine.IsExists
	IsClosed    = engine.IsClosed
	IsConflict  = engine.IsConflict
	IsCorrupted = engine.IsCorrupted
)

// Wrap 将存储错误包装为 *types.StorageError，nil 原样返回
//
// 底层错误保留在错误链中，errors.Is(err, ErrNotFound) 依然成立。
func Wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &types.StorageError{Op: op, Key: key, Err: err}
}
