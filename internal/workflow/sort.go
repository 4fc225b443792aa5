package workflow

import (
	"fmt"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

// TopologicalSort orders nodes so every edge's source precedes its target.
//
// Nodes with no pending dependencies are emitted first-in first-out,
// seeded in node-list order, and dependents are released in edge-list
// order, so the result is deterministic for a given input. When the graph
// has a cycle the partial order is returned together with a *CycleError.
func TopologicalSort(nodes []canvas.Node, edges []canvas.Edge) ([]canvas.Node, error) {
	index := make(map[canvas.NodeID]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		index[n.ID] = i
	}

	inDegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for _, e := range edges {
		src, ok := index[e.Source]
		if !ok {
			return nil, &UnknownNodeError{Edge: e, NodeID: e.Source}
		}
		dst, ok := index[e.Target]
		if !ok {
			return nil, &UnknownNodeError{Edge: e, NodeID: e.Target}
		}
		dependents[src] = append(dependents[src], dst)
		inDegree[dst]++
	}

	queue := make([]int, 0, len(nodes))
	for i := range nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	sorted := make([]canvas.Node, 0, len(nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		sorted = append(sorted, nodes[i])

		for _, d := range dependents[i] {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(sorted) < len(nodes) {
		var unsorted []canvas.NodeID
		for i, n := range nodes {
			if inDegree[i] > 0 {
				unsorted = append(unsorted, n.ID)
			}
		}
		return sorted, &CycleError{Unsorted: unsorted}
	}
	return sorted, nil
}
