// Package exitmarker 提供可验证的离开凭证（Exit Marker）
//
// 离开者在离开平台时签发一份带数据完整性证明的凭证，任何人都可以
// 离线验证。凭证可以批量锚定到 Merkle 根，也可以被争议并由仲裁者
// 签名裁决。主体的密钥轮换与泄露由预承诺的密钥事件日志约束。
//
// # 核心概念
//
//   - Engine: 组装所有组件的入口，持有存储、密钥状态与密钥库
//   - ExitMarker: 带证明的离开凭证
//   - Key Event Log: 主体 DID 的只追加密钥事件日志
//   - BatchExit: 一批凭证的 Merkle 承诺
//   - Dispute: 针对凭证的争议及其签名裁决
//
// # 快速开始
//
//	eng, err := exitmarker.Start(ctx,
//	    exitmarker.WithDataDir("/var/lib/exitmarker"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	// 1. 生成密钥并建立密钥事件日志
//	s, err := eng.GenerateSigner(crypto.AlgorithmEd25519)
//	next, err := eng.GenerateSigner(crypto.AlgorithmEd25519)
//	_, err = eng.Incept(ctx, s, next.DID())
//
//	// 2. 签发凭证
//	m, err := eng.NewMarker(s.DID(), "did:web:forum.example", types.ExitVoluntary, types.StatusGoodStanding)
//	signed, err := eng.IssueMarker(ctx, m, s)
//
//	// 3. 验证
//	res := eng.VerifyMarker(signed)
//
// # 组件
//
// Engine 通过 Fx 组装以下模块：
//
//   - storage: BadgerDB 存储引擎
//   - metrics: Prometheus 指标（可选）
//   - eventbus: 进程内事件总线
//   - keystate: 密钥事件日志与状态机
//   - marker: 凭证签名、验证与存储
//   - merkle: 批次构建与成员证明
//   - dispute: 争议创建、裁决与存储
//   - anchor: 时间戳与账本锚定（协作者可选）
//
// 外部协作者（SchemaValidator、Timestamper、Ledger）通过 Option 注入，
// 未提供时跳过对应步骤。
//
// # 事件
//
// 每个写操作成功后发出 pkg/types 中对应的 Evt* 事件：
//
//	sub, err := eng.Subscribe(new(types.EvtMarkerIssued))
//	for evt := range sub.Out() {
//	    fmt.Println(evt.(types.EvtMarkerIssued).MarkerID)
//	}
package exitmarker
