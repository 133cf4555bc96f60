// Package merkle 实现 Exit Marker 的 Merkle 批量锚定
//
// 每个 marker 的叶子为其规范编码的 SHA-256。树按层构建：某层节点数为
// 奇数时复制最后一个节点，父节点为 SHA-256(left || right)（原始 32 字节
// 拼接），重复直到只剩一个根。单个叶子时叶子即为根。
//
// 叶子哈希并行计算（errgroup 限制并发），树的归约严格按顺序进行。
//
//	batch, err := merkle.CreateBatchExit(ctx, markers)
//	p, err := merkle.ComputeMerkleProof(batch, 3)
//	ok := merkle.VerifyBatchMembership(p, batch.MarkerHashes[3], batch.Root)
//
// 外部锚定只需提交 batch.Root（或 batch.RootCID），之后任一 marker 的
// 成员关系都可以单独证明，无需重新锚定或公开整个批次。
//
// # 已知限制
//
// 叶子与内部节点没有域分隔前缀，奇数层又复制最后一个节点，因此：
//
//   - [a, b, c] 与 [a, b, c, c] 的根相同，根不能说明批次大小，批次
//     的成员列表以保存的 BatchExit.MarkerIDs 为准
//   - VerifyBatchMembership 接受任意 32 字节叶子哈希，内部节点也能
//     作为"叶子"通过验证
//
// 为了与已锚定的根保持兼容，树的构造不做改动。需要证明凭证成员关系
// 时，使用从凭证本身推导叶子的 exitmarker.VerifyMembership（或先调用
// LeafHash 再验证），不要直接信任调用方提供的叶子哈希：凭证的规范
// 编码是 JSON 对象，不会等于两个内部节点的原始拼接。
package merkle
