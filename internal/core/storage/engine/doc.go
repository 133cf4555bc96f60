// Package engine 定义存储引擎的内部接口
//
// 在 pkg/interfaces.Engine 之上补充前缀迭代与事务。
// 多键写入（kv.Batch）同样建立在事务之上。
// 密钥事件日志的"不可覆盖追加"依赖事务的读后写冲突检测实现。
//
//	pkg/interfaces.Engine   - 公共基础接口
//	    ↓
//	engine.InternalEngine   - 内部扩展接口
package engine
