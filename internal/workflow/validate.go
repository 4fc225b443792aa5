package workflow

import (
	"errors"
	"fmt"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

// ValidationReport is the outcome of Validate.
//
// Valid reflects structural problems only: no nodes, duplicate ids, edges
// to missing nodes, self-loops and cycles. Isolated nodes in a multi-node
// graph are listed in Warnings and also appended to Errors, leaving the
// caller to decide whether they block a run.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks a graph without executing it.
func Validate(nodes []canvas.Node, edges []canvas.Edge) ValidationReport {
	if len(nodes) == 0 {
		return ValidationReport{Errors: []string{"workflow has no nodes"}, Warnings: []string{}}
	}

	var errs, warnings []string

	known := make(map[canvas.NodeID]bool, len(nodes))
	duplicates := false
	for _, n := range nodes {
		if known[n.ID] {
			errs = append(errs, fmt.Sprintf("%s: %s", ErrDuplicateNode, n.ID))
			duplicates = true
			continue
		}
		known[n.ID] = true
	}

	connected := make(map[canvas.NodeID]bool, len(nodes))
	sortable := make([]canvas.Edge, 0, len(edges))
	for _, e := range edges {
		connected[e.Source] = true
		connected[e.Target] = true

		switch {
		case !known[e.Source]:
			errs = append(errs, (&UnknownNodeError{Edge: e, NodeID: e.Source}).Error())
		case !known[e.Target]:
			errs = append(errs, (&UnknownNodeError{Edge: e, NodeID: e.Target}).Error())
		case e.Source == e.Target:
			errs = append(errs, fmt.Sprintf("node %s has an edge to itself", e.Source))
		default:
			sortable = append(sortable, e)
		}
	}

	if !duplicates {
		var cycle *CycleError
		if _, err := TopologicalSort(nodes, sortable); errors.As(err, &cycle) {
			errs = append(errs, cycle.Error())
		}
	}
	valid := len(errs) == 0

	if len(nodes) > 1 {
		for _, n := range nodes {
			if !connected[n.ID] {
				warnings = append(warnings, fmt.Sprintf("node %s is not connected to any other node", n.ID))
			}
		}
	}

	return ValidationReport{
		Valid:    valid,
		Errors:   append(nonNil(errs), warnings...),
		Warnings: nonNil(warnings),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
