// Package anchor 将 marker 或批次根交给外部锚定协作方
//
// 时间戳服务与账本都是可选的能力注入：未提供的协作方直接跳过，
// 不做运行时探测。协作方只接收预先计算好的哈希，返回对本包不透明的回执。
package anchor
