// Package badger 实现基于 BadgerDB 的存储引擎
//
// 提供持久化键值存储、前缀迭代、乐观事务与后台值日志 GC。
//
// # 使用示例
//
//	cfg := engine.DefaultConfig("/var/lib/exitmarker/store")
//	eng, err := badger.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	if err := eng.Start(); err != nil {
//	    return err
//	}
package badger
