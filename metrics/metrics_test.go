package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Register(prometheus.NewRegistry())
		m.IssuanceOutcome("success", "Done")
		m.VerificationResult("cid", true, false)
		m.ObserveChainWrite("issueTranscripts", "ok", time.Second)
		m.AddPinnedBytes(10)
	})
}

func TestUnregisteredMetricsIsNoop(t *testing.T) {
	m := NewMetrics("test")
	assert.NotPanics(t, func() {
		m.LifecycleOutcome("verify", "success")
		m.SetDirectoryNextBlock(10)
	})
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("trv")
	m.Register(reg)
	m.Register(reg)

	m.IssuanceOutcome("partial_success", "Persisting")
	m.IssuanceOutcome("partial_success", "Persisting")
	m.VerificationResult("document", false, true)
	m.AddPinnedBytes(128)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.issuanceOutcomes.WithLabelValues("partial_success", "Persisting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verificationResults.WithLabelValues("document", "false", "true")))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.pinnedBytes))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewRequiresAddress(t *testing.T) {
	_, err := New("trv", "")
	assert.Error(t, err)

	srv, err := New("trv", "127.0.0.1:0")
	require.NoError(t, err)
	assert.NotNil(t, srv.Metrics())
	assert.NotNil(t, srv.Registry())
}
