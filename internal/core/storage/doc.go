// Package storage 提供统一的持久化存储服务
//
// 基于 BadgerDB，为密钥事件日志、凭证、争议与批次提供同一个存储引擎，
// 各仓储通过键前缀隔离：
//
//	前缀  | 使用方              | 说明
//	------|---------------------|-------------------------------
//	k/    | keystate.Store      | 密钥事件（只追加，不可覆盖）
//	m/    | marker.Repository   | 已签名的 Exit Marker
//	d/    | dispute.Repository  | 争议与裁决
//	b/    | merkle.Repository   | 批次
//
// # 使用示例
//
//	app := fx.New(
//	    storage.Module(),
//	    // ...
//	)
//
// 手动创建：
//
//	eng, err := storage.New("/var/lib/exitmarker/exitmarker.db")
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//	markers := storage.NewKVStore(eng, storage.PrefixMarkers)
package storage
