// Package store defines the run history record and its repository.
package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lukechampine.com/blake3"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted workflow execution.
type Run struct {
	ID          string        `json:"runId"`
	GraphHash   string        `json:"graphHash"`
	Source      string        `json:"source,omitempty"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	CreditsUsed int           `json:"creditsUsed"`
	NodeCount   int           `json:"nodeCount"`
	TotalTime   time.Duration `json:"-"`
	CreatedAt   time.Time     `json:"createdAt"`

	// Graph and Results are empty on records returned by List.
	Graph   canvas.Graph      `json:"graph,omitzero"`
	Results []workflow.Result `json:"results,omitempty"`
}

// ListOptions filters List.
type ListOptions struct {
	Limit     int
	GraphHash string
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// RunRepository persists runs.
type RunRepository interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, opts ListOptions) ([]*Run, error)
	Delete(ctx context.Context, id string) error
}

// NewRun builds the record of an execution of g. source names where the
// graph came from, such as a file path or "api".
func NewRun(g canvas.Graph, res workflow.ExecutionResult, source string) (*Run, error) {
	hash, err := HashGraph(g)
	if err != nil {
		return nil, err
	}
	return &Run{
		ID:          res.RunID,
		GraphHash:   hash,
		Source:      source,
		Success:     res.Success,
		Error:       res.Error,
		CreditsUsed: res.CreditsUsed,
		NodeCount:   len(g.Nodes),
		TotalTime:   res.TotalTime,
		CreatedAt:   time.Now(),
		Graph:       g,
		Results:     res.Results,
	}, nil
}

// HashGraph returns the hex blake3 digest of the canonical JSON form of g.
func HashGraph(g canvas.Graph) (string, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encoding graph: %w", err)
	}
	return HashBytes(b), nil
}

// HashBytes returns the hex blake3 digest of b.
func HashBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// MarshalJSON writes totalTime in milliseconds.
func (r Run) MarshalJSON() ([]byte, error) {
	type alias Run
	return json.Marshal(struct {
		alias
		TotalTime int64 `json:"totalTime"`
	}{alias(r), r.TotalTime.Milliseconds()})
}
