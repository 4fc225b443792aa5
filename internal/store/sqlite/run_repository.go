package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/store"
)

const runSummaryColumns = `id, graph_hash, source, success, error, credits_used, node_count, total_time_ms, created_at`

// runRepository implements store.RunRepository using SQLite.
type runRepository struct {
	db *sql.DB
}

func newRunRepository(db *sql.DB) *runRepository {
	return &runRepository{db: db}
}

var _ store.RunRepository = (*runRepository)(nil)

// scanRun scans the summary columns followed by any extra destinations.
func scanRun(scanner interface{ Scan(...any) error }, m *RunModel, extra ...any) error {
	dest := []any{
		&m.ID, &m.GraphHash, &m.Source, &m.Success, &m.Error,
		&m.CreditsUsed, &m.NodeCount, &m.TotalTimeMS, &m.CreatedAt,
	}
	return scanner.Scan(append(dest, extra...)...)
}

// Save inserts the run, replacing any earlier record with the same id.
func (r *runRepository) Save(ctx context.Context, run *store.Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	m, err := toRunModel(run)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (
			id, graph_hash, source, success, error, credits_used, node_count, total_time_ms,
			graph, results, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.GraphHash, m.Source, m.Success, m.Error, m.CreditsUsed, m.NodeCount, m.TotalTimeMS,
		m.Graph, m.Results, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	log.Debug(log.CatStore, "run saved", "run_id", m.ID, "graph_hash", m.GraphHash, "bytes", len(m.Graph)+len(m.Results))
	return nil
}

// Get returns the full run, including its graph and results.
func (r *runRepository) Get(ctx context.Context, id string) (*store.Run, error) {
	var m RunModel
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runSummaryColumns+`, graph, results FROM runs WHERE id = ?`, id)
	err := scanRun(row, &m, &m.Graph, &m.Results)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return m.toDomain(true)
}

// List returns run summaries, newest first.
func (r *runRepository) List(ctx context.Context, opts store.ListOptions) ([]*store.Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	query := `SELECT ` + runSummaryColumns + ` FROM runs`
	var args []any
	if opts.GraphHash != "" {
		query += ` WHERE graph_hash = ?`
		args = append(args, opts.GraphHash)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []*store.Run{}
	for rows.Next() {
		var m RunModel
		if err := scanRun(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := m.toDomain(false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Delete removes a run.
func (r *runRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	return nil
}
