package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	namespace string

	issuanceOutcomes     *prometheus.CounterVec
	revocationOutcomes   *prometheus.CounterVec
	verificationResults  *prometheus.CounterVec
	lifecycleOutcomes    *prometheus.CounterVec
	pinnedBytes          prometheus.Counter
	chainWriteDuration   *prometheus.HistogramVec
	directoryNextBlock prometheus.Gauge

	registerOnce sync.Once
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{namespace: namespace}
}

// Register registers the metrics with the given registry. Subsequent calls are no-ops.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if m == nil || registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.issuanceOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "issuance_outcomes_total",
			Help:      "Credential issuance outcomes by kind and last stage reached",
		}, []string{"kind", "stage"})

		m.revocationOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "revocation_outcomes_total",
			Help:      "Credential revocation outcomes by kind",
		}, []string{"kind"})

		m.verificationResults = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "verification_results_total",
			Help:      "Verification results by method, validity and whether the chain was unreachable",
		}, []string{"method", "valid", "degraded"})

		m.lifecycleOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "institution_lifecycle_outcomes_total",
			Help:      "Institution lifecycle outcomes by action and kind",
		}, []string{"action", "kind"})

		m.pinnedBytes = factory.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "pinned_bytes_total",
			Help:      "Total number of document bytes pinned",
		})

		m.chainWriteDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "chain_write_duration_seconds",
			Help:      "Time from submission to confirmation of registry transactions",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"method", "result"})

		m.directoryNextBlock = factory.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      "directory_next_block",
			Help:      "First block not yet indexed by the institution directory cache",
		})
	})
}

func (m *Metrics) registered() bool {
	return m != nil && m.issuanceOutcomes != nil
}

func (m *Metrics) IssuanceOutcome(kind, stage string) {
	if !m.registered() {
		return
	}
	m.issuanceOutcomes.WithLabelValues(kind, stage).Inc()
}

func (m *Metrics) RevocationOutcome(kind string) {
	if !m.registered() {
		return
	}
	m.revocationOutcomes.WithLabelValues(kind).Inc()
}

func (m *Metrics) VerificationResult(method string, valid, degraded bool) {
	if !m.registered() {
		return
	}
	m.verificationResults.WithLabelValues(method, strconv.FormatBool(valid), strconv.FormatBool(degraded)).Inc()
}

func (m *Metrics) LifecycleOutcome(action, kind string) {
	if !m.registered() {
		return
	}
	m.lifecycleOutcomes.WithLabelValues(action, kind).Inc()
}

func (m *Metrics) AddPinnedBytes(n int64) {
	if !m.registered() || n <= 0 {
		return
	}
	m.pinnedBytes.Add(float64(n))
}

// ObserveChainWrite records a transaction's confirmation latency. result is "ok" or an error kind.
func (m *Metrics) ObserveChainWrite(method, result string, d time.Duration) {
	if !m.registered() {
		return
	}
	m.chainWriteDuration.WithLabelValues(method, result).Observe(d.Seconds())
}

func (m *Metrics) SetDirectoryNextBlock(block uint64) {
	if !m.registered() {
		return
	}
	m.directoryNextBlock.Set(float64(block))
}
