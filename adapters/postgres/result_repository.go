package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"epifam/domain/core"
	"epifam/domain/inference"
	"epifam/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepository persists run results for the reporting surface.
type ResultRepository struct {
	db *sqlx.DB
}

var _ ports.ResultStorePort = (*ResultRepository)(nil)

// NewResultRepository creates a new result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Schema is the DDL for the analysis results tables, applied by cmd/migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	run_id     TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analysis_results (
	id            BIGSERIAL PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES analysis_runs(run_id) ON DELETE CASCADE,
	position      INT NOT NULL,
	outcome       TEXT NOT NULL,
	scope         TEXT NOT NULL,
	grouping      TEXT NOT NULL,
	prior_variant TEXT NOT NULL,
	status        TEXT NOT NULL,
	payload       JSONB NOT NULL,
	UNIQUE (run_id, position)
);
`

// SaveResults stores the ordered result sequence of one run.
func (r *ResultRepository) SaveResults(ctx context.Context, runID core.RunID, results []inference.AnalysisResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_runs (run_id, created_at) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		runID.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	const query = `
		INSERT INTO analysis_results (run_id, position, outcome, scope, grouping, prior_variant, status, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, res := range results {
		payload, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal result %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, query,
			runID.String(), i, string(res.Outcome), res.Scope, res.Grouping,
			res.PriorVariant, string(res.Status), payload)
		if err != nil {
			return fmt.Errorf("failed to insert result %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListResults returns the results of a run in their stored order.
func (r *ResultRepository) ListResults(ctx context.Context, runID core.RunID) ([]inference.AnalysisResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM analysis_results WHERE run_id = $1 ORDER BY position`,
		runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []inference.AnalysisResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var res inference.AnalysisResult
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// LatestRun returns the most recently created run ID.
func (r *ResultRepository) LatestRun(ctx context.Context) (core.RunID, error) {
	var runID string
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id FROM analysis_runs ORDER BY created_at DESC LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return core.RunID(runID), nil
}
