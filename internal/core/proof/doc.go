// Package proof 实现域分隔的多算法签名协议
//
// 签名载荷：
//
//	signable = domainTag || canonical(record 去掉 proof 与 id)
//
// domainTag 取自 types.Domain.Tag(version)，不同用途（marker、争议裁决、
// 密钥事件）的签名互不可重放。
//
// # 签名
//
//	p, err := proof.Attach(ctx, types.MarkerDomainTag, marker, signer)
//	marker.Proof = p
//
// # 验证
//
// Verify 不返回错误，而是返回 types.VerificationResult，全部独立检查的
// 失败原因都会被收集：
//   - proof 缺失
//   - 未知签名套件
//   - verificationMethod 与主体不一致
//   - 套件隐含的算法与 DID 编码的算法不一致
//   - created 不是 RFC 3339 时间戳，或超出允许的时钟偏差
//   - proofPurpose 不是 assertionMethod
//   - 签名验证失败
//
// 默认情况下签名失败只报告 "signature verification failed"，
// WithVerbose(true) 时附带底层原因。
package proof
