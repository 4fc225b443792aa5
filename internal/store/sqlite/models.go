package sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/store"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

// RunModel is the database row for the runs table. Graph and Results hold
// zstd-compressed JSON.
type RunModel struct {
	ID          string
	GraphHash   string
	Source      string
	Success     bool
	Error       *string // nullable
	CreditsUsed int
	NodeCount   int
	TotalTimeMS int64
	Graph       []byte
	Results     []byte
	CreatedAt   int64 // Unix milliseconds
}

func toRunModel(r *store.Run) (*RunModel, error) {
	graph, err := compressJSON(r.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	results := r.Results
	if results == nil {
		results = []workflow.Result{}
	}
	res, err := compressJSON(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}

	m := &RunModel{
		ID:          r.ID,
		GraphHash:   r.GraphHash,
		Source:      r.Source,
		Success:     r.Success,
		CreditsUsed: r.CreditsUsed,
		NodeCount:   r.NodeCount,
		TotalTimeMS: r.TotalTime.Milliseconds(),
		Graph:       graph,
		Results:     res,
		CreatedAt:   r.CreatedAt.UnixMilli(),
	}
	if r.Error != "" {
		e := r.Error
		m.Error = &e
	}
	return m, nil
}

// toDomain converts the row back. When full is false the blobs are not
// decoded.
func (m *RunModel) toDomain(full bool) (*store.Run, error) {
	r := &store.Run{
		ID:          m.ID,
		GraphHash:   m.GraphHash,
		Source:      m.Source,
		Success:     m.Success,
		CreditsUsed: m.CreditsUsed,
		NodeCount:   m.NodeCount,
		TotalTime:   time.Duration(m.TotalTimeMS) * time.Millisecond,
		CreatedAt:   time.UnixMilli(m.CreatedAt),
	}
	if m.Error != nil {
		r.Error = *m.Error
	}
	if !full {
		return r, nil
	}

	var g canvas.Graph
	if err := decompressJSON(m.Graph, &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	var results []workflow.Result
	if err := decompressJSON(m.Results, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	r.Graph = g
	r.Results = results
	return r, nil
}

func compressJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(raw); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressJSON(blob []byte, v any) error {
	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return err
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
