package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PipelineRun is one recorded execution of a periodic pipeline.
type PipelineRun struct {
	ID         int64           `db:"id"`
	Kind       string          `db:"kind"`
	StartedAt  time.Time       `db:"started_at"`
	FinishedAt time.Time       `db:"finished_at"`
	Detail     json.RawMessage `db:"detail"`
}

// RunLog records pipeline executions for operational visibility.
type RunLog struct {
	db *sqlx.DB
}

func NewRunLog(db *sqlx.DB) *RunLog {
	return &RunLog{db: db}
}

// Record stores one finished run. Detail is any JSON-marshalable summary.
func (r *RunLog) Record(ctx context.Context, kind string, startedAt, finishedAt time.Time, detail any) error {
	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode run detail: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (kind, started_at, finished_at, detail)
		VALUES ($1, $2, $3, $4)`,
		kind, startedAt, finishedAt, body,
	)
	if err != nil {
		return fmt.Errorf("record pipeline run: %w", err)
	}
	return nil
}

// Recent returns the latest runs of one kind, newest first.
func (r *RunLog) Recent(ctx context.Context, kind string, limit int) ([]PipelineRun, error) {
	var runs []PipelineRun
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, kind, started_at, finished_at, detail
		FROM pipeline_runs
		WHERE kind = $1
		ORDER BY started_at DESC
		LIMIT $2`,
		kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pipeline runs: %w", err)
	}
	return runs, nil
}
