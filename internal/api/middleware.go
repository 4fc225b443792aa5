package api

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/tracing"
)

// WithDefaults wraps a handler with request logging and, when tracer is
// non-nil, a server span per request.
func WithDefaults(h http.Handler, tracer trace.Tracer) http.Handler {
	if tracer != nil {
		h = tracing.HTTPMiddleware(tracer, h)
	}
	return LoggingMiddleware(h)
}

// LoggingMiddleware logs all requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)
		log.Info(log.CatAPI, "request", "method", r.Method, "path", r.URL.Path,
			"status", lw.status, "elapsed", time.Since(start))
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (lw *loggingResponseWriter) WriteHeader(status int) {
	lw.status = status
	lw.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE working through the wrapper.
func (lw *loggingResponseWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
