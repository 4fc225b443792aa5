package workflow

import (
	"encoding/json"
	"time"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

// ProgressStatus is reported to a ProgressFunc around each node.
type ProgressStatus string

const (
	ProgressRunning  ProgressStatus = "running"
	ProgressComplete ProgressStatus = "complete"
	ProgressError    ProgressStatus = "error"
)

// ProgressFunc is called synchronously on the run goroutine.
type ProgressFunc func(nodeID canvas.NodeID, status ProgressStatus)

// Node outputs. Results decoded from JSON carry map[string]any instead.
type (
	TextOutput struct {
		Text string `json:"text"`
	}
	ImageOutput struct {
		URL    string `json:"url"`
		Prompt string `json:"prompt"`
	}
	VideoOutput struct {
		URL      string `json:"url"`
		Prompt   string `json:"prompt"`
		Duration int    `json:"duration"`
	}
	LinkOutput struct {
		URL string `json:"url"`
	}
)

// Result is the outcome of executing one node.
type Result struct {
	NodeID  canvas.NodeID   `json:"nodeId"`
	Type    canvas.NodeType `json:"type"`
	Output  any             `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
	Warning string          `json:"warning,omitempty"`

	// Model is the catalog model the node dispatched to, if any.
	Model string `json:"model,omitempty"`

	ExecutionTime time.Duration `json:"-"`

	// Err is the typed error behind Error. It is not serialized.
	Err error `json:"-"`
}

// Failed reports whether the node recorded an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

type resultJSON Result

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		resultJSON
		ExecutionTime int64 `json:"executionTime"`
	}{resultJSON(r), r.ExecutionTime.Milliseconds()})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var aux struct {
		resultJSON
		ExecutionTime int64 `json:"executionTime"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Result(aux.resultJSON)
	r.ExecutionTime = time.Duration(aux.ExecutionTime) * time.Millisecond
	return nil
}

// Results holds one Result per node in the order they were recorded.
type Results struct {
	list  []Result
	index map[canvas.NodeID]int
}

// NewResults returns an empty result set.
func NewResults() *Results {
	return &Results{index: make(map[canvas.NodeID]int)}
}

// Record stores r. Recording a node twice replaces the earlier result in
// place.
func (rs *Results) Record(r Result) {
	if i, ok := rs.index[r.NodeID]; ok {
		rs.list[i] = r
		return
	}
	rs.index[r.NodeID] = len(rs.list)
	rs.list = append(rs.list, r)
}

// Get returns the result recorded for id.
func (rs *Results) Get(id canvas.NodeID) (Result, bool) {
	i, ok := rs.index[id]
	if !ok {
		return Result{}, false
	}
	return rs.list[i], true
}

// Len returns the number of recorded results.
func (rs *Results) Len() int {
	return len(rs.list)
}

// All returns a copy of the results in recording order.
func (rs *Results) All() []Result {
	out := make([]Result, len(rs.list))
	copy(out, rs.list)
	return out
}

// ExecutionResult is the aggregate outcome of a run.
type ExecutionResult struct {
	RunID       string        `json:"runId"`
	Success     bool          `json:"success"`
	Results     []Result      `json:"results"`
	TotalTime   time.Duration `json:"-"`
	Error       string        `json:"error,omitempty"`
	CreditsUsed int           `json:"creditsUsed"`
}

// Failures returns the results that recorded an error.
func (r ExecutionResult) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

type executionResultJSON ExecutionResult

func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		executionResultJSON
		TotalTime int64 `json:"totalTime"`
	}{executionResultJSON(r), r.TotalTime.Milliseconds()})
}

func (r *ExecutionResult) UnmarshalJSON(b []byte) error {
	var aux struct {
		executionResultJSON
		TotalTime int64 `json:"totalTime"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = ExecutionResult(aux.executionResultJSON)
	r.TotalTime = time.Duration(aux.TotalTime) * time.Millisecond
	return nil
}
