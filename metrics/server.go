// Package metrics exposes Prometheus counters for issuance, verification and
// institution lifecycle outcomes, and serves them on a dedicated listener.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	registry *prometheus.Registry
	metrics  *Metrics
	srv      *http.Server
}

// New creates a metrics server with a fresh registry holding the process and Go
// collectors plus the service metrics under namespace.
func New(namespace, addr string) (*MetricsServer, error) {
	if addr == "" {
		return nil, errors.New("metrics address must not be empty")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := NewMetrics(namespace)
	m.Register(registry)

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		registry: registry,
		metrics:  m,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Metrics returns the service metrics registered with this server.
func (s *MetricsServer) Metrics() *Metrics {
	return s.metrics
}

func (s *MetricsServer) Registry() *prometheus.Registry {
	return s.registry
}

func (s *MetricsServer) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
