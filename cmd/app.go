package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/config"
	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/provider"
	"github.com/zjrosen/canvasflow/internal/pubsub"
	"github.com/zjrosen/canvasflow/internal/sequencer"
	"github.com/zjrosen/canvasflow/internal/store"
	"github.com/zjrosen/canvasflow/internal/store/sqlite"
	"github.com/zjrosen/canvasflow/internal/tracing"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

// app holds everything a command needs to execute graphs.
type app struct {
	catalog      *catalog.Catalog
	registry     *provider.Registry
	executor     *workflow.Executor
	orchestrator *workflow.Orchestrator
	sequencer    *sequencer.Runner
	events       *pubsub.Broker[workflow.RunEvent]
	tracing      *tracing.Provider

	db   *sqlite.DB
	runs store.RunRepository // nil when the store is disabled
}

// appOptions toggles the optional parts of an app.
type appOptions struct {
	store bool
}

// newApp builds the execution stack from c:
// catalog -> providers -> dispatcher (+ cache) -> executor -> orchestrator.
func newApp(c config.Config, opts appOptions) (*app, error) {
	cat, err := catalog.Load(c.Catalog.File)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	providers, err := c.BuildProviders()
	if err != nil {
		return nil, err
	}
	reg, err := provider.NewRegistry(providers...)
	if err != nil {
		return nil, fmt.Errorf("registering providers: %w", err)
	}
	if len(reg.Names()) == 0 {
		log.Warn(log.CatConfig, "No providers configured; set GEMINI_API_KEY, OPENAI_API_KEY or providers.mock.enabled")
	}

	var gen provider.Generator = provider.NewDispatcher(cat, reg)
	if c.Cache.Enabled {
		gen = provider.NewCachingDispatcher(gen, c.Cache.TTL)
	}

	tp, err := tracing.NewProvider(c.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	events := pubsub.NewBroker[workflow.RunEvent]()
	exec := workflow.NewExecutor(gen, c.Workflow.Settings, workflow.WithExecutorTracer(tp.Tracer()))
	orch := workflow.NewOrchestrator(exec,
		workflow.WithCatalog(cat),
		workflow.WithEvents(events),
		workflow.WithTracer(tp.Tracer()),
	)

	a := &app{
		catalog:      cat,
		registry:     reg,
		executor:     exec,
		orchestrator: orch,
		sequencer:    sequencer.NewRunner(exec),
		events:       events,
		tracing:      tp,
	}

	if opts.store && c.Store.Enabled {
		db, err := sqlite.NewDB(c.Store.Path)
		if err != nil {
			_ = a.Close(context.Background())
			return nil, fmt.Errorf("opening run store: %w", err)
		}
		a.db = db
		a.runs = db.RunRepository()
	}
	return a, nil
}

// tracer returns the request tracer for the API, or nil when tracing is
// disabled.
func (a *app) requestTracer() trace.Tracer {
	if a.tracing == nil || !a.tracing.Enabled() {
		return nil
	}
	return a.tracing.Tracer()
}

// record persists an execution. Failures are logged, never returned: a
// run that executed is reported even when history cannot be written.
func (a *app) record(ctx context.Context, g canvas.Graph, res workflow.ExecutionResult, source string) {
	if a.runs == nil {
		return
	}
	run, err := store.NewRun(g, res, source)
	if err == nil {
		err = a.runs.Save(ctx, run)
	}
	if err != nil {
		log.ErrorErr(log.CatStore, "Failed to record run", err, "runId", res.RunID)
	}
}

// Close releases the store and flushes spans.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	a.events.Close()
	if a.tracing != nil {
		errs = append(errs, a.tracing.Shutdown(ctx))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// readGraph loads a graph from path, or from stdin when path is "-".
func readGraph(path string, stdin io.Reader) (canvas.Graph, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied graph file
	}
	if err != nil {
		return canvas.Graph{}, fmt.Errorf("reading graph: %w", err)
	}

	g, err := canvas.ParseGraph(data)
	if err != nil {
		return canvas.Graph{}, fmt.Errorf("parsing graph %s: %w", path, err)
	}
	return g, nil
}
