package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporterRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "file"

	_, err := NewProvider(cfg)
	require.ErrorContains(t, err, "file_path")
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"

	_, err := NewProvider(cfg)
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestFileExporter_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	tracer := tp.Tracer("test")

	ctx, run := tracer.Start(context.Background(), SpanWorkflowRun)
	run.SetAttributes(attribute.String(AttrRunID, "run-1"))
	_, node := tracer.Start(ctx, SpanNodePrefix+"image")
	node.SetStatus(codes.Error, "boom")
	node.End()
	run.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []SpanRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)

	// Children end first.
	require.Equal(t, "node.image", records[0].Name)
	require.Equal(t, "ERROR", records[0].Status)
	require.Equal(t, records[1].SpanID, records[0].ParentSpanID)
	require.Equal(t, "run-1", records[1].Attributes[AttrRunID])
}

func TestHTTPMiddleware_RecordsStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := HTTPMiddleware(tp.Tracer("test"), mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.Int(AttrHTTPStatus, 500))
}

func TestRunIDContext(t *testing.T) {
	ctx := ContextWithRunID(context.Background(), "abc")
	require.Equal(t, "abc", RunIDFromContext(ctx))
	require.Empty(t, RunIDFromContext(context.Background()))
	require.Equal(t, context.Background(), ContextWithRunID(context.Background(), ""))
}
