/*
Package servers runs the API listener.

A Server mounts the handler routes behind the slog request logger and a panic
recoverer, and adds the operational endpoints:

  - /livez and /readyz for probes
  - /drain and /undrain to take the instance out of rotation
  - /debug/pprof when EnablePprof is set

When MetricsAddr is configured a second listener serves /metrics.

	srv, err := servers.New(cfg, handler)
	if err != nil {
	    return err
	}
	issuer.SetMetrics(srv.Metrics())
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package servers
