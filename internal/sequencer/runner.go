package sequencer

import (
	"context"
	"fmt"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

// Runner executes the queue with the same Executor the batch orchestrator
// uses, so both drivers share node semantics.
type Runner struct {
	executor *workflow.Executor
}

// NewRunner creates a runner over exec.
func NewRunner(exec *workflow.Executor) *Runner {
	return &Runner{executor: exec}
}

// Outcome is the final canvas state of a sequential run.
type Outcome struct {
	Nodes       []canvas.Node     `json:"nodes"`
	Results     []workflow.Result `json:"results"`
	Transitions []Transition      `json:"transitions"`
}

// Run triggers the queue and advances it until it settles. Each generator
// that becomes running is executed; its input is resolved from upstream
// pass-through nodes and from generators that already finished. A node
// that fails is marked error and halts the queue. Generated asset URLs are
// written back into the node payloads.
func (r *Runner) Run(ctx context.Context, nodes []canvas.Node, edges []canvas.Edge, onChange func(Transition)) (Outcome, error) {
	if _, err := workflow.TopologicalSort(nodes, edges); err != nil {
		return Outcome{Nodes: nodes}, err
	}

	var transitions []Transition
	emit := func(tr Transition) {
		transitions = append(transitions, tr)
		log.Debug(log.CatQueue, "transition", "node", tr.NodeID, "from", tr.From, "to", tr.To)
		if onChange != nil {
			onChange(tr)
		}
	}

	nodes, ok := Trigger(nodes)
	if ok {
		for _, n := range nodes {
			if n.Status == canvas.StatusQueued {
				emit(Transition{NodeID: n.ID, From: canvas.StatusIdle, To: canvas.StatusQueued})
			}
		}
	}

	results := workflow.NewResults()
	index := canvas.Index(nodes)

	for {
		if err := ctx.Err(); err != nil {
			return r.outcome(nodes, results, transitions), fmt.Errorf("%w: %w", workflow.ErrRunCancelled, err)
		}

		next, tr, changed := Advance(nodes)
		if !changed {
			break
		}
		nodes = next
		emit(tr)
		if tr.To != canvas.StatusRunning {
			continue
		}

		node, ok := Running(nodes)
		if !ok || node.ID != tr.NodeID {
			return r.outcome(nodes, results, transitions), fmt.Errorf("node %s started but is not the running node", tr.NodeID)
		}
		r.prepare(ctx, node.ID, nodes, edges, results, index)
		res := r.executor.ExecuteNode(ctx, node, workflow.ResolveInput(node.ID, edges, results), nil)
		results.Record(res)

		final := canvas.StatusCompleted
		if res.Failed() {
			final = canvas.StatusError
		}
		nodes, tr, _ = SetStatus(nodes, node.ID, final)
		nodes[index[node.ID]].Data = withAsset(nodes[index[node.ID]].Data, res.Output)
		emit(tr)
	}

	return r.outcome(nodes, results, transitions), nil
}

// prepare records results for the pass-through nodes upstream of id that
// have not executed yet. Generators only contribute once they have run.
func (r *Runner) prepare(ctx context.Context, id canvas.NodeID, nodes []canvas.Node, edges []canvas.Edge, results *workflow.Results, index map[canvas.NodeID]int) {
	for _, e := range edges {
		if e.Target != id {
			continue
		}
		if _, done := results.Get(e.Source); done {
			continue
		}
		src := nodes[index[e.Source]]
		if src.Type.IsGenerator() {
			continue
		}
		r.prepare(ctx, src.ID, nodes, edges, results, index)
		results.Record(r.executor.ExecuteNode(ctx, src, workflow.ResolveInput(src.ID, edges, results), nil))
	}
}

func (r *Runner) outcome(nodes []canvas.Node, results *workflow.Results, transitions []Transition) Outcome {
	var generated []workflow.Result
	for _, res := range results.All() {
		if res.Type.IsGenerator() {
			generated = append(generated, res)
		}
	}
	return Outcome{Nodes: nodes, Results: generated, Transitions: transitions}
}

// withAsset copies a generated URL into the node payload.
func withAsset(data canvas.Payload, out any) canvas.Payload {
	switch d := data.(type) {
	case canvas.ImageData:
		if o, ok := out.(workflow.ImageOutput); ok {
			d.ImageURL = o.URL
			d.IsGenerating = false
			return d
		}
	case canvas.VideoData:
		if o, ok := out.(workflow.VideoOutput); ok {
			d.VideoURL = o.URL
			d.IsGenerating = false
			return d
		}
	}
	return data
}
