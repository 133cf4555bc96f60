// Package metrics 提供 Prometheus 监控指标
//
// 指标注册在调用方提供的 prometheus.Registerer 上，包内不持有全局注册表。
//
//	reg := prometheus.NewRegistry()
//	m, err := metrics.New(reg, "exitmarker")
//	m.ProofSigned(crypto.AlgorithmEd25519)
//
// # 指标
//
//	<ns>_proofs_signed_total{algorithm}
//	<ns>_proof_verifications_total{result}
//	<ns>_key_events_total{type,result}
//	<ns>_batches_created_total
//	<ns>_batch_size
//	<ns>_disputes_total{action}
//
// nil *Metrics 的所有方法都是空操作，组件在未启用指标时无需判断。
package metrics
