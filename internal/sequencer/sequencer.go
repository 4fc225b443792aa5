// Package sequencer implements the interactive canvas queue: generator
// nodes run one at a time, driven only by their workflow status.
//
// The transition table is:
//
//	Trigger:  first generator -> queued, every other node -> idle
//	Advance:  a node is running                       -> no change
//	          a node is queued                        -> it becomes running
//	          a node errored                          -> no change
//	          a node completed, an idle generator     -> that generator queued
//
// Trigger and Advance are pure and return new slices. Runner drives
// Advance to a fixpoint and performs the generation of each node that
// becomes running.
package sequencer

import (
	"github.com/zjrosen/canvasflow/internal/canvas"
)

// Transition is one status change of one node.
type Transition struct {
	NodeID canvas.NodeID `json:"nodeId"`
	From   canvas.Status `json:"from"`
	To     canvas.Status `json:"to"`
}

// Trigger starts a sequential run. It reports false when the canvas has no
// generator nodes, in which case every node is left idle.
func Trigger(nodes []canvas.Node) ([]canvas.Node, bool) {
	out := make([]canvas.Node, len(nodes))
	queued := false
	for i, n := range nodes {
		n.Status = canvas.StatusIdle
		if !queued && n.Type.IsGenerator() {
			n.Status = canvas.StatusQueued
			queued = true
		}
		out[i] = n
	}
	return out, queued
}

// Advance applies one step of the transition table. It reports false when
// nothing changes.
func Advance(nodes []canvas.Node) ([]canvas.Node, Transition, bool) {
	queued, completed, errored := -1, false, false
	for i, n := range nodes {
		switch status(n) {
		case canvas.StatusRunning:
			return nodes, Transition{}, false
		case canvas.StatusQueued:
			if queued < 0 {
				queued = i
			}
		case canvas.StatusCompleted:
			completed = true
		case canvas.StatusError:
			errored = true
		}
	}

	if queued >= 0 {
		return withStatus(nodes, queued, canvas.StatusRunning)
	}
	if errored || !completed {
		return nodes, Transition{}, false
	}
	for i, n := range nodes {
		if n.Type.IsGenerator() && status(n) == canvas.StatusIdle {
			return withStatus(nodes, i, canvas.StatusQueued)
		}
	}
	return nodes, Transition{}, false
}

// SetStatus returns a copy of nodes with id moved to s.
func SetStatus(nodes []canvas.Node, id canvas.NodeID, s canvas.Status) ([]canvas.Node, Transition, bool) {
	for i, n := range nodes {
		if n.ID == id {
			return withStatus(nodes, i, s)
		}
	}
	return nodes, Transition{}, false
}

// Running returns the node currently running, if any.
func Running(nodes []canvas.Node) (canvas.Node, bool) {
	for _, n := range nodes {
		if n.Status == canvas.StatusRunning {
			return n, true
		}
	}
	return canvas.Node{}, false
}

func withStatus(nodes []canvas.Node, i int, s canvas.Status) ([]canvas.Node, Transition, bool) {
	out := make([]canvas.Node, len(nodes))
	copy(out, nodes)
	tr := Transition{NodeID: out[i].ID, From: status(out[i]), To: s}
	out[i].Status = s
	return out, tr, true
}

// status treats an unset status as idle.
func status(n canvas.Node) canvas.Status {
	if n.Status == "" {
		return canvas.StatusIdle
	}
	return n.Status
}
