package interfaces

// Engine 键值存储引擎
//
// 密钥事件日志、凭证、争议与批次都持久化在该接口之上。默认实现为
// BadgerDB，调用方可以替换为自定义后端。
//
// 实现必须保证并发安全。
type Engine interface {
	// Get 获取值的副本，键不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 写入键值对，已存在则覆盖
	Put(key, value []byte) error

	// Delete 删除键，键不存在不报错
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// Close 关闭引擎，可重复调用
	Close() error
}

// EngineStats 引擎统计信息
type EngineStats struct {
	KeyCount int64 `json:"key_count"`
	DiskSize int64 `json:"disk_size"`
}
