// Package interfaces 定义 go-exitmarker 的公共接口
//
// 核心只依赖这些接口，不依赖具体实现：
//   - storage.go    - 键值存储引擎（默认 BadgerDB 实现）
//   - validator.go  - 结构校验（外部协作方，可选）
//   - anchor.go     - 时间戳/账本锚定（外部协作方，可选）
//   - eventbus.go   - 进程内事件总线
//
// 签名接口 Signer 位于 pkg/lib/crypto，与密钥类型放在一起。
//
// 所有协作方都是可选的：核心在协作方缺省时直接跳过对应步骤，
// 不做运行时探测。
package interfaces
