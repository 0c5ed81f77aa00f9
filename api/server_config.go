package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig contains the listener and lifecycle settings of the API server.
type HTTPServerConfig struct {
	// ListenAddr is the address and port the API listens on.
	ListenAddr string

	// MetricsAddr is the address and port of the Prometheus listener.
	// If empty, metrics are collected but not served.
	MetricsAddr string

	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps reporting not ready before the
	// drain is logged as complete, giving load balancers time to react.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds how long Shutdown waits for in-flight requests.
	GracefulShutdownDuration time.Duration

	// ReadTimeout covers the whole request including multipart uploads, so it
	// should allow for the largest accepted document.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
