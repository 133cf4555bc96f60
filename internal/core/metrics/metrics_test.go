package metrics

import (
	"sync"
	"testing"

	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "test")
	require.NoError(t, err)

	m.ProofSigned(crypto.AlgorithmEd25519)
	m.ProofVerified(true)
	m.KeyEvent("rot", false)
	m.BatchCreated(8)
	m.Dispute(DisputeFiled)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"test_" + MetricProofsSigned,
		"test_" + MetricProofVerifications,
		"test_" + MetricKeyEvents,
		"test_" + MetricBatchesCreated,
		"test_" + MetricBatchSize,
		"test_" + MetricDisputes,
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "dup")
	require.NoError(t, err)

	_, err = New(reg, "dup")
	assert.Error(t, err)
}

func TestCounters(t *testing.T) {
	m, err := New(nil, "c")
	require.NoError(t, err)

	m.ProofSigned(crypto.AlgorithmP256)
	m.ProofSigned(crypto.AlgorithmP256)
	m.ProofVerified(false)
	m.KeyEvent("icp", true)
	m.Dispute(DisputeResolved)
	m.BatchCreated(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.proofsSigned.WithLabelValues("P-256")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.proofVerifications.WithLabelValues(ResultInvalid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.proofVerifications.WithLabelValues(ResultValid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyEvents.WithLabelValues("icp", ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disputes.WithLabelValues(DisputeResolved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesCreated))
}

func TestNilMetrics_NoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ProofSigned(crypto.AlgorithmEd25519)
		m.ProofVerified(true)
		m.KeyEvent("cmp", true)
		m.BatchCreated(1)
		m.Dispute(DisputeFiled)
	})
	assert.Nil(t, m.Collectors())
}

func TestConcurrentUpdates(t *testing.T) {
	m, err := New(nil, "conc")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.ProofVerified(true)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50.0, testutil.ToFloat64(m.proofVerifications.WithLabelValues(ResultValid)))
}

// ============================================================================
// Fx 模块测试
// ============================================================================

func TestModule_DisabledByDefault(t *testing.T) {
	var m *Metrics
	app := fxtest.New(t,
		Module(),
		fx.Populate(&m),
	)
	defer app.RequireStart().RequireStop()

	assert.Nil(t, m)
}

func TestModule_Enabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = true
	reg := prometheus.NewRegistry()

	var m *Metrics
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() prometheus.Registerer { return reg }),
		Module(),
		fx.Populate(&m),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, m)
	m.BatchCreated(2)

	count, err := testutil.GatherAndCount(reg, "exitmarker_"+MetricBatchesCreated)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
