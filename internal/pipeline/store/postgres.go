package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"rosterboard/internal/pipeline"
	dErrors "rosterboard/pkg/domainerrors"
	"rosterboard/pkg/platform/sentinel"
)

// Postgres persists runs as one JSONB document per run. Reports are
// written once and read whole, so a document column beats a wide schema
// that would need migrating every time the report shape grows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the runs table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			actor      TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL,
			payload    JSONB NOT NULL
		)
	`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, run pipeline.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	query := `
		INSERT INTO runs (id, status, actor, started_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status  = EXCLUDED.status,
			payload = EXCLUDED.payload
	`
	if _, err := p.db.ExecContext(ctx, query, run.ID, string(run.Status), run.Actor, run.StartedAt, payload); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (pipeline.Run, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return pipeline.Run{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, fmt.Sprintf("run %s", id))
	}
	if err != nil {
		return pipeline.Run{}, fmt.Errorf("query run: %w", err)
	}

	var run pipeline.Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return pipeline.Run{}, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return run, nil
}

func (p *Postgres) List(ctx context.Context) ([]pipeline.Summary, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT payload FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []pipeline.Summary
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var run pipeline.Run
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, fmt.Errorf("unmarshal run: %w", err)
		}
		summaries = append(summaries, run.Summarize())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return summaries, nil
}
