package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/pubsub"
	"github.com/zjrosen/canvasflow/internal/tracing"
)

// RunEvent is published on the orchestrator's broker. Node is empty for
// run lifecycle events and Result is set only on RunFinishedEvent.
type RunEvent struct {
	RunID  string           `json:"runId"`
	NodeID canvas.NodeID    `json:"nodeId,omitempty"`
	Status ProgressStatus   `json:"status,omitempty"`
	Result *ExecutionResult `json:"result,omitempty"`
}

// Orchestrator drives whole runs through an Executor.
type Orchestrator struct {
	executor *Executor
	catalog  *catalog.Catalog
	events   pubsub.Publisher[RunEvent]
	tracer   trace.Tracer
	newRunID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCatalog enables credit accounting against cat.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(o *Orchestrator) { o.catalog = cat }
}

// WithEvents publishes run and node progress to p, usually a
// *pubsub.Broker.
func WithEvents(p pubsub.Publisher[RunEvent]) Option {
	return func(o *Orchestrator) { o.events = p }
}

// WithTracer records a span per run.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// NewOrchestrator creates an orchestrator over exec.
func NewOrchestrator(exec *Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		executor: exec,
		tracer:   noop.NewTracerProvider().Tracer("workflow"),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Executor returns the node executor shared with other drivers.
func (o *Orchestrator) Executor() *Executor {
	return o.executor
}

// Execute runs the graph to completion, one node at a time in topological
// order. A graph that cannot be ordered fails the run before any node
// executes. Node failures are recorded and the run continues. If ctx is
// cancelled, nodes that have not started are recorded as cancelled and the
// run reports failure.
func (o *Orchestrator) Execute(ctx context.Context, nodes []canvas.Node, edges []canvas.Edge, onProgress ProgressFunc) ExecutionResult {
	start := time.Now()
	runID := o.newRunID()
	ctx = tracing.ContextWithRunID(ctx, runID)

	ctx, span := o.tracer.Start(ctx, tracing.SpanWorkflowRun, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.Int(tracing.AttrRunNodes, len(nodes)),
		attribute.Int(tracing.AttrRunEdges, len(edges)),
	))
	defer span.End()

	log.Info(log.CatWorkflow, "run started", "run_id", runID, "nodes", len(nodes), "edges", len(edges))
	o.publish(pubsub.RunStartedEvent, RunEvent{RunID: runID})

	_, sortSpan := o.tracer.Start(ctx, tracing.SpanWorkflowSort)
	sorted, err := TopologicalSort(nodes, edges)
	sortSpan.End()
	if err != nil {
		span.AddEvent(tracing.EventCycleDetected)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatWorkflow, "run aborted", err, "run_id", runID)
		return o.finish(span, ExecutionResult{
			RunID:     runID,
			Success:   false,
			Results:   []Result{},
			Error:     err.Error(),
			TotalTime: time.Since(start),
		})
	}

	progress := func(id canvas.NodeID, status ProgressStatus) {
		notify(onProgress, id, status)
		o.publish(pubsub.NodeProgressEvent, RunEvent{RunID: runID, NodeID: id, Status: status})
	}

	results := NewResults()
	var cancelErr error
	for i, node := range sorted {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			for _, rest := range sorted[i:] {
				results.Record(Result{NodeID: rest.ID, Type: rest.Type, Error: ErrRunCancelled.Error(), Err: ErrRunCancelled})
			}
			span.AddEvent(tracing.EventRunCancelled)
			break
		}
		input := ResolveInput(node.ID, edges, results)
		results.Record(o.executor.ExecuteNode(ctx, node, input, progress))
	}

	res := ExecutionResult{
		RunID:       runID,
		Success:     cancelErr == nil,
		Results:     results.All(),
		TotalTime:   time.Since(start),
		CreditsUsed: o.credits(results),
	}
	if cancelErr != nil {
		res.Error = ErrRunCancelled.Error() + ": " + cancelErr.Error()
		span.SetStatus(codes.Error, res.Error)
	}

	log.Info(log.CatWorkflow, "run finished", "run_id", runID, "success", res.Success,
		"failed_nodes", len(res.Failures()), "credits", res.CreditsUsed, "elapsed", res.TotalTime)
	return o.finish(span, res)
}

func (o *Orchestrator) finish(span trace.Span, res ExecutionResult) ExecutionResult {
	span.SetAttributes(
		attribute.Bool(tracing.AttrRunSuccess, res.Success),
		attribute.Int(tracing.AttrRunCredits, res.CreditsUsed),
	)
	o.publish(pubsub.RunFinishedEvent, RunEvent{RunID: res.RunID, Result: &res})
	return res
}

// credits sums the catalog cost of every node that dispatched successfully.
func (o *Orchestrator) credits(results *Results) int {
	if o.catalog == nil {
		return 0
	}
	total := 0
	for _, r := range results.All() {
		if r.Model != "" && !r.Failed() {
			total += o.catalog.Cost(r.Model)
		}
	}
	return total
}

func (o *Orchestrator) publish(t pubsub.EventType, ev RunEvent) {
	if o.events != nil {
		o.events.Publish(t, ev)
	}
}
