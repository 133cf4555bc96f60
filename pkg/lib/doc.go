// Package lib 包含基础设施工具库
//
// 本目录包含与业务组件无关的通用工具库：
//
//   - canonical: 规范 JSON 编码与 SHA-256 摘要
//   - crypto: 密钥、签名者接口与加密密钥库
//   - did: did:key 编解码
//   - signer: 基于内存私钥的签名者
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含三类内容：
//
//   - interfaces/: 外部协作方与事件总线接口
//   - types/: 公共数据结构
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import (
//	    "github.com/dep2p/go-exitmarker/pkg/lib/crypto"
//	    "github.com/dep2p/go-exitmarker/pkg/lib/log"
//	    "github.com/dep2p/go-exitmarker/pkg/lib/signer"
//	)
package lib
