// Package marker 构建、签名与验证 Exit Marker
//
// 签名载荷为 types.MarkerDomainTag 加上去掉 id 与 proof 后的规范编码，
// 由 internal/core/proof 完成。本包在其上增加：
//
//   - 构建器 New：urn:uuid 标识符与时钟时间戳
//   - 可选的结构校验器（interfaces.SchemaValidator）
//   - 可选的密钥状态检查：主体存在密钥事件日志时，签名密钥必须在
//     lineage 记录的序号上为当前密钥
//   - 基于 KV 存储的 Repository
//
// lineage 序号由签名者填写，只能说明签名者声称的时间。签名密钥已被
// 轮换或声明泄露时，凭证只有在 WithAnchorEvidence 证明其锚定时间早于
// 密钥退出事件时才通过验证；是否信任由调用方结合 Assess 的结果决定。
package marker
