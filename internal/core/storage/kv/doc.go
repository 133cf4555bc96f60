// Package kv 提供带前缀隔离的 KV 存储
//
// 每个仓储使用独立前缀，共享同一个存储引擎：
//
//	k/   - 密钥事件日志（k/<did>/<seq 大端 8 字节>）
//	m/   - Exit Marker
//	d/   - 争议
//	b/   - 批次
package kv
