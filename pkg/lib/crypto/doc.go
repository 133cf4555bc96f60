// Package crypto 提供 Exit Marker 使用的密码学原语
//
// 本包提供密钥生成、签名验证、密钥擦除和加密存储。
//
// # 支持的算法
//
//   - Ed25519：默认推荐
//   - P-256：ECDSA over NIST P-256，签名为 64 字节 r||s
//
// 算法集合是封闭的，新增算法意味着协议版本升级。
//
// # 快速开始
//
//	priv, pub, err := crypto.GenerateKeyPair(crypto.AlgorithmEd25519)
//	sig, err := priv.Sign(data)
//	ok, err := crypto.Verify(pub, data, sig)
//
// 密钥存储：
//
//	ks, err := crypto.NewFSKeystore("/path/to/keys", password)
//	err = ks.Put(did, priv)
//
// # 密钥擦除
//
// 私钥实现了 Eraser。Erase 清零当前持有的密钥字节，但 Go 运行时
// 可能已经复制过这些数据，擦除不能作为安全保证，只能缩小暴露窗口。
package crypto
