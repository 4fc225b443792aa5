package canvas

import (
	"encoding/json"
	"fmt"
)

// NodeID identifies a node within one graph snapshot.
type NodeID string

// NodeType is the type tag of a canvas node.
type NodeType string

const (
	TypeText    NodeType = "text"
	TypeImage   NodeType = "image"
	TypeVideo   NodeType = "video"
	TypeAudio   NodeType = "audio"
	TypeNote    NodeType = "note"
	TypeChat    NodeType = "chat"
	TypeYouTube NodeType = "youtube"
)

// IsGenerator reports whether nodes of this type call an image or video
// provider. Only generators take part in the sequential canvas queue.
func (t NodeType) IsGenerator() bool {
	return t == TypeImage || t == TypeVideo
}

// Status is a node's position in the sequential canvas queue.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Node is a unit of work on the canvas.
type Node struct {
	ID     NodeID
	Type   NodeType
	Data   Payload
	Status Status
}

// Edge is a directed dependency: Target receives context from Source.
type Edge struct {
	Source NodeID `json:"source"`
	Target NodeID `json:"target"`
}

// Graph is a snapshot of nodes and edges as stored by the canvas.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type nodeJSON struct {
	ID             NodeID          `json:"id"`
	Type           NodeType        `json:"type"`
	Data           json.RawMessage `json:"data,omitempty"`
	WorkflowStatus Status          `json:"workflowStatus,omitempty"`
}

// UnmarshalJSON decodes the payload variant selected by the node type.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return fmt.Errorf("node is missing an id")
	}
	data, err := DecodePayload(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}
	n.ID = raw.ID
	n.Type = raw.Type
	n.Data = data
	n.Status = raw.WorkflowStatus
	return nil
}

// MarshalJSON writes the node in canvas wire format.
func (n Node) MarshalJSON() ([]byte, error) {
	var data json.RawMessage
	if n.Data != nil {
		b, err := json.Marshal(n.Data)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(nodeJSON{
		ID:             n.ID,
		Type:           n.Type,
		Data:           data,
		WorkflowStatus: n.Status,
	})
}

// ParseGraph decodes a JSON graph snapshot.
func ParseGraph(b []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(b, &g); err != nil {
		return Graph{}, fmt.Errorf("parsing graph: %w", err)
	}
	return g, nil
}

// Index returns a lookup from node id to position in nodes.
func Index(nodes []Node) map[NodeID]int {
	idx := make(map[NodeID]int, len(nodes))
	for i, n := range nodes {
		idx[n.ID] = i
	}
	return idx
}
