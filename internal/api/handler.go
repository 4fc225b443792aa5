// Package api exposes workflow execution, validation, run history and the
// model catalog over HTTP, with server-sent events for run progress.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/provider"
	"github.com/zjrosen/canvasflow/internal/pubsub"
	"github.com/zjrosen/canvasflow/internal/sequencer"
	"github.com/zjrosen/canvasflow/internal/store"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

// maxGraphBytes bounds request bodies carrying a graph snapshot.
const maxGraphBytes = 10 << 20

// heartbeatInterval keeps idle SSE connections open through proxies.
var heartbeatInterval = 30 * time.Second

// Handler provides the HTTP endpoints.
type Handler struct {
	orch      *workflow.Orchestrator
	catalog   *catalog.Catalog
	registry  *provider.Registry
	runs      store.RunRepository
	events    *pubsub.Broker[workflow.RunEvent]
	sequencer *sequencer.Runner
	version   string
}

// HandlerConfig configures the API handler.
type HandlerConfig struct {
	// Orchestrator executes runs (required).
	Orchestrator *workflow.Orchestrator
	// Catalog serves /models and credit estimates (required).
	Catalog *catalog.Catalog
	// Registry lists the configured providers on /health (optional).
	Registry *provider.Registry
	// Runs persists executed runs (optional). Without it the history
	// endpoints answer 503.
	Runs store.RunRepository
	// Events is the broker the orchestrator publishes to (optional).
	// Without it /events answers 503.
	Events *pubsub.Broker[workflow.RunEvent]
	// Sequencer serves /sequence (optional).
	Sequencer *sequencer.Runner
	Version   string
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		orch:      cfg.Orchestrator,
		catalog:   cfg.Catalog,
		registry:  cfg.Registry,
		runs:      cfg.Runs,
		events:    cfg.Events,
		sequencer: cfg.Sequencer,
		version:   cfg.Version,
	}
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Execution
	mux.HandleFunc("POST /runs", h.CreateRun)
	mux.HandleFunc("POST /validate", h.Validate)
	mux.HandleFunc("POST /estimate", h.Estimate)
	mux.HandleFunc("POST /sequence", h.Sequence)

	// History
	mux.HandleFunc("GET /runs", h.ListRuns)
	mux.HandleFunc("GET /runs/{id}", h.GetRun)
	mux.HandleFunc("DELETE /runs/{id}", h.DeleteRun)

	// Catalog
	mux.HandleFunc("GET /models", h.ListModels)

	// Event streaming
	mux.HandleFunc("GET /events", h.StreamEvents)
	mux.HandleFunc("GET /logs", h.StreamLogs)

	// Health check
	mux.HandleFunc("GET /health", h.Health)

	return mux
}

// === Request/Response Types ===

// ErrorResponse is the response body for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ListRunsResponse is the response body for listing runs.
type ListRunsResponse struct {
	Runs  []*store.Run `json:"runs"`
	Total int          `json:"total"`
}

// ListModelsResponse is the response body for listing models.
type ListModelsResponse struct {
	Models []catalog.ModelConfig `json:"models"`
	Total  int                   `json:"total"`
}

// EstimateResponse is the response body for a credit estimate.
type EstimateResponse struct {
	Credits int `json:"credits"`
}

// HealthResponse is the response body for the health check.
type HealthResponse struct {
	Status    string   `json:"status"`
	Version   string   `json:"version,omitempty"`
	Providers []string `json:"providers"`
	Models    int      `json:"models"`
}

// === Handlers ===

// CreateRun executes the posted graph and returns its result. The run is
// persisted when a repository is configured.
// POST /runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	g, ok := h.decodeGraph(w, r)
	if !ok {
		return
	}

	res := h.orch.Execute(r.Context(), g.Nodes, g.Edges, nil)

	if h.runs != nil {
		run, err := store.NewRun(g, res, "api")
		if err == nil {
			err = h.runs.Save(r.Context(), run)
		}
		if err != nil {
			log.ErrorErr(log.CatAPI, "Failed to persist run", err, "run_id", res.RunID)
		}
	}

	h.writeJSON(w, http.StatusOK, res)
}

// Validate reports structural problems with the posted graph.
// POST /validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	g, ok := h.decodeGraph(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, workflow.Validate(g.Nodes, g.Edges))
}

// Estimate returns the credits a run of the posted graph would cost.
// POST /estimate
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	g, ok := h.decodeGraph(w, r)
	if !ok {
		return
	}
	settings := h.orch.Executor().Settings()
	credits := h.catalog.EstimateCredits(g.Nodes, map[canvas.NodeType]string{
		canvas.TypeImage: settings.ImageModel,
		canvas.TypeVideo: settings.VideoModel,
	})
	h.writeJSON(w, http.StatusOK, EstimateResponse{Credits: credits})
}

// Sequence runs the posted canvas through the sequential queue and
// returns the settled node states.
// POST /sequence
func (h *Handler) Sequence(w http.ResponseWriter, r *http.Request) {
	if h.sequencer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "sequencer_unavailable", "Sequential runs are not enabled", "")
		return
	}
	g, ok := h.decodeGraph(w, r)
	if !ok {
		return
	}
	out, err := h.sequencer.Run(r.Context(), g.Nodes, g.Edges, nil)
	switch {
	case errors.Is(err, workflow.ErrCycle), errors.Is(err, workflow.ErrUnknownNode):
		h.writeError(w, http.StatusUnprocessableEntity, "invalid_graph", err.Error(), "")
		return
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, "sequence_failed", "Sequential run failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ListRuns lists recent runs, newest first.
// GET /runs?limit=N&graph_hash=H
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	opts := store.ListOptions{GraphHash: r.URL.Query().Get("graph_hash")}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", "")
			return
		}
		opts.Limit = n
	}

	runs, err := h.runs.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list runs", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, ListRunsResponse{Runs: runs, Total: len(runs)})
}

// GetRun returns a stored run with its graph and results.
// GET /runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	run, err := h.runs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Run not found", "")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "get_failed", "Failed to load run", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// DeleteRun removes a stored run.
// DELETE /runs/{id}
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	err := h.runs.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Run not found", "")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete run", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListModels lists catalog models, optionally filtered by type.
// GET /models?type=image
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	var models []catalog.ModelConfig
	if t := r.URL.Query().Get("type"); t != "" {
		m := catalog.Modality(t)
		if !m.Valid() {
			h.writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("unknown model type %q", t), "")
			return
		}
		models = h.catalog.ByType(m)
	} else {
		models = h.catalog.Models()
	}
	if models == nil {
		models = []catalog.ModelConfig{}
	}
	h.writeJSON(w, http.StatusOK, ListModelsResponse{Models: models, Total: len(models)})
}

// StreamEvents streams run and node progress as server-sent events.
// GET /events?run_id=R
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeError(w, http.StatusServiceUnavailable, "events_unavailable", "Event streaming is not enabled", "")
		return
	}
	var keep func(pubsub.Event[workflow.RunEvent]) bool
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		keep = func(e pubsub.Event[workflow.RunEvent]) bool { return e.Payload.RunID == runID }
	}
	h.streamEvents(w, r, h.events.SubscribeFunc(r.Context(), keep))
}

// Health reports liveness and what the server can dispatch to.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: h.version, Providers: []string{}}
	if h.registry != nil {
		resp.Providers = h.registry.Names()
	}
	if h.catalog != nil {
		resp.Models = len(h.catalog.Models())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// === Helpers ===

func (h *Handler) decodeGraph(w http.ResponseWriter, r *http.Request) (canvas.Graph, bool) {
	var g canvas.Graph
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGraphBytes)).Decode(&g); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid graph JSON", err.Error())
		return canvas.Graph{}, false
	}
	return g, true
}

func (h *Handler) requireRuns(w http.ResponseWriter) bool {
	if h.runs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Run history is not enabled", "")
		return false
	}
	return true
}

// StreamLogs tails the server log as server-sent "log" events, one entry
// per event.
// GET /logs
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	listener := log.NewListener(r.Context())
	if listener == nil {
		h.writeError(w, http.StatusServiceUnavailable, "logs_unavailable", "Logging is not initialized", "")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-listener.C():
			if !ok {
				return
			}
			data, _ := json.Marshal(strings.TrimSuffix(event.Payload, "\n"))
			_, _ = fmt.Fprintf(w, "event: log\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request, events <-chan pubsub.Event[workflow.RunEvent]) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported", "")
		return
	}

	_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Payload)
			if err != nil {
				log.Error(log.CatAPI, "Failed to marshal event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatAPI, "Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
