// Package keystate 实现预轮换（commit-reveal）密钥状态机
//
// 每个标识符拥有一条只追加的密钥事件日志（KEL），当前状态是对日志的
// 纯折叠。状态转换：
//
//	Unborn ──icp──▶ Established ──rot──▶ Rotated(n) ──rot──▶ Rotated(n+1)
//	                     │                   │
//	                     └───────cmp─────────┴──────▶ Compromised（终态）
//
// # 预轮换
//
// 创世事件（icp）公开 k0，并只承诺下一把密钥的摘要 H(k1)。轮换事件（rot）
// 揭示 k1，H(k1) 必须等于上一次承诺的摘要，同时承诺 H(k2)。攻击者即使
// 拿到 k0，也无法把身份轮换到自己的密钥上。
//
// H(k) = SHA-256( varint(multicodec) || 公钥 )，见 did.KeyDigest。
//
// # 事件约束
//
//   - sequence 严格加一，priorSequence 等于日志尾部序号
//   - priorDigest 等于尾部事件的摘要
//   - 证明由尾部状态授权的密钥签署，签名域为 types.KeyEventDomainTag
//   - 违反任何约束的事件被拒绝；回放遇到第一条非法事件即停止，不跳过
//
// # 持久化
//
// Manager 先将事件写入 Store（预写），再更新内存日志。回放（Replay）
// 是独立的读路径，历史事件永不修改。
//
// # 密钥退出
//
// RetirementOf 返回密钥离开当前密钥集的事件（rot 或 cmp）及其证明时间，
// 供验证方判断凭证是否可证明地早于该事件。
package keystate
