// Package types 定义 Exit Marker 系统的公共数据结构
//
// 这是整个系统的最底层包之一，只依赖 pkg/lib 下的基础库。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - marker.go   - ExitMarker, ExitType, MarkerStatus, Modules, Lineage
//   - proof.go    - DataIntegrityProof, 签名套件映射
//   - dispute.go  - Dispute, Resolution, Outcome, DisputeStatus
//   - result.go   - VerificationResult, ValidationReport
//   - protocol.go - 协议版本与域分隔标签
//   - time.go     - 时间戳格式
//   - events.go   - 引擎事件
//   - errors.go   - 错误分类
//
// 所有需要签名的结构都使用 JSON tag 描述其规范编码，字段名一经发布
// 不可更改，否则旧签名将无法验证。
package types
