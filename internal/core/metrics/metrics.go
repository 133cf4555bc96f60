package metrics

import (
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/prometheus/client_golang/prometheus"
)

// 指标名称
const (
	MetricProofsSigned       = "proofs_signed_total"
	MetricProofVerifications = "proof_verifications_total"
	MetricKeyEvents          = "key_events_total"
	MetricBatchesCreated     = "batches_created_total"
	MetricBatchSize          = "batch_size"
	MetricDisputes           = "disputes_total"
)

// 结果标签
const (
	ResultValid    = "valid"
	ResultInvalid  = "invalid"
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// 争议动作标签
const (
	DisputeFiled    = "filed"
	DisputeResolved = "resolved"
)

// Metrics Exit Marker 指标集合，并发安全
type Metrics struct {
	proofsSigned       *prometheus.CounterVec
	proofVerifications *prometheus.CounterVec
	keyEvents          *prometheus.CounterVec
	batchesCreated     prometheus.Counter
	batchSize          prometheus.Histogram
	disputes           *prometheus.CounterVec
}

// New 创建指标并注册到 reg
//
// reg 为 nil 时只创建不注册，适合测试。
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		proofsSigned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricProofsSigned,
				Help:      "Total number of data integrity proofs created by algorithm",
			},
			[]string{"algorithm"},
		),
		proofVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricProofVerifications,
				Help:      "Total number of proof verifications by result",
			},
			[]string{"result"},
		),
		keyEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricKeyEvents,
				Help:      "Total number of key events appended by event type and result",
			},
			[]string{"type", "result"},
		),
		batchesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricBatchesCreated,
				Help:      "Total number of Merkle batches created",
			},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      MetricBatchSize,
				Help:      "Number of markers per Merkle batch",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
			},
		),
		disputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricDisputes,
				Help:      "Total number of dispute actions",
			},
			[]string{"action"},
		),
	}

	if reg != nil {
		for _, c := range m.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Collectors 返回全部收集器
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.proofsSigned,
		m.proofVerifications,
		m.keyEvents,
		m.batchesCreated,
		m.batchSize,
		m.disputes,
	}
}

// ProofSigned 记录一次签名
func (m *Metrics) ProofSigned(alg crypto.Algorithm) {
	if m == nil {
		return
	}
	m.proofsSigned.WithLabelValues(alg.String()).Inc()
}

// ProofVerified 记录一次验证结果
func (m *Metrics) ProofVerified(valid bool) {
	if m == nil {
		return
	}
	result := ResultInvalid
	if valid {
		result = ResultValid
	}
	m.proofVerifications.WithLabelValues(result).Inc()
}

// KeyEvent 记录一次密钥事件追加
func (m *Metrics) KeyEvent(eventType string, accepted bool) {
	if m == nil {
		return
	}
	result := ResultRejected
	if accepted {
		result = ResultAccepted
	}
	m.keyEvents.WithLabelValues(eventType, result).Inc()
}

// BatchCreated 记录一次批次创建
func (m *Metrics) BatchCreated(size int) {
	if m == nil {
		return
	}
	m.batchesCreated.Inc()
	m.batchSize.Observe(float64(size))
}

// Dispute 记录一次争议动作
func (m *Metrics) Dispute(action string) {
	if m == nil {
		return
	}
	m.disputes.WithLabelValues(action).Inc()
}
