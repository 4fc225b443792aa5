package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

var (
	// ErrCycle is matched by every CycleError.
	ErrCycle = errors.New("circular dependency detected")

	// ErrUnknownNode is matched by every UnknownNodeError.
	ErrUnknownNode = errors.New("edge references unknown node")

	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrRunCancelled is recorded on nodes that never started because the
	// run's context was cancelled.
	ErrRunCancelled = errors.New("run cancelled")
)

// CycleError reports the nodes that could not be ordered.
type CycleError struct {
	Unsorted []canvas.NodeID
}

func (e *CycleError) Error() string {
	ids := make([]string, len(e.Unsorted))
	for i, id := range e.Unsorted {
		ids[i] = string(id)
	}
	return fmt.Sprintf("%s: nodes [%s] are in or downstream of a cycle", ErrCycle, strings.Join(ids, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// UnknownNodeError reports an edge endpoint missing from the node set.
type UnknownNodeError struct {
	Edge   canvas.Edge
	NodeID canvas.NodeID
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("edge %s -> %s references unknown node %s", e.Edge.Source, e.Edge.Target, e.NodeID)
}

func (e *UnknownNodeError) Unwrap() error { return ErrUnknownNode }
