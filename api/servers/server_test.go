package servers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/transcript-registry-backend/api"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(mux chi.Router) {
	mux.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	mux.Get("/api/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("handler bug")
	})
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, pingRoutes{})
	require.NoError(t, err)
	return srv, srv.srv.Handler
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Routes(t *testing.T) {
	srv, h := newTestServer(t)
	require.NotNil(t, srv.Metrics())

	w := get(h, "/api/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = get(h, "/api/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = get(h, "/livez")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())

	w = get(h, "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_DrainUndrain(t *testing.T) {
	_, h := newTestServer(t)

	w := get(h, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(h, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, w.Body.String())
	w = get(h, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, w.Body.String())

	w = get(h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(h, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	w = get(h, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, w.Body.String())

	w = get(h, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Shutdown(t *testing.T) {
	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		MetricsAddr:              "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		GracefulShutdownDuration: time.Second,
	}, pingRoutes{})
	require.NoError(t, err)
	require.NotNil(t, srv.Metrics())

	srv.RunInBackground()
	srv.Shutdown()
}
