// Package workflow runs a canvas graph snapshot to completion.
//
// A run sorts the nodes topologically (Kahn's algorithm with node-list
// tie-breaking), then folds over the sorted list one node at a time: the
// node's input is resolved from the recorded results of its upstream
// neighbours, the node is executed, and its result is recorded before the
// next node starts. Node failures are captured in the node's Result and
// never stop the run; only a structural problem with the graph (a cycle or
// an edge to a missing node) aborts it before any node executes.
package workflow
