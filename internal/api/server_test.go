package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestServer_StartStop(t *testing.T) {
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Handler: HandlerConfig{Version: "v1"}})
	require.NoError(t, err)
	require.Positive(t, srv.Port())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	require.Equal(t, "v1", health.Version)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.True(t, errors.Is(<-errCh, http.ErrServerClosed))
}

func TestNewServer_BadAddr(t *testing.T) {
	_, err := NewServer(ServerConfig{Addr: "not-an-addr:xyz"})
	require.Error(t, err)
}

func TestLoggingMiddleware_PassesStatusThrough(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTeapot, w.Code)
}

func TestWithDefaults_RecordsSpanPerRoute(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(rec))
	h := WithDefaults(NewHandler(HandlerConfig{}).Routes(), tp.Tracer("test"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Contains(t, spans[0].Name(), "/health")
}
