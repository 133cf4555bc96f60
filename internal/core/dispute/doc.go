// Package dispute 实现争议的登记与仲裁签名
//
// 状态机：Filed -> Resolved（终态）。裁决只能发生一次，对已裁决的争议
// 再次裁决返回 ErrAlreadyResolved，不是幂等操作。
//
// 裁决签名覆盖规范编码的 {outcome, summary, markerId}，签名域为
// types.DisputeDomainTag，签名者必须是争议指定的仲裁方。
//
// 仲裁资格（谁可以担任仲裁方）由调用方决定，本包只负责签名协议。
package dispute
