package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// JobStore persists canonical jobs. Upsert merges by the natural key and
// reports whether the row was created or refreshed.
type JobStore interface {
	Upsert(ctx context.Context, job domain.Job) (created bool, err error)
}

// IngestReport counts what one batch did to the catalog.
type IngestReport struct {
	Created  int
	Updated  int
	Rejected int
}

// Engine runs raw postings through normalization and into the store.
type Engine struct {
	store  JobStore
	logger *slog.Logger
}

func NewEngine(store JobStore, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Ingest merges a batch of raw postings. Rejected postings are skipped and
// counted; a store failure aborts the batch since every upsert already
// applied is idempotent and the next cycle re-covers the rest.
func (e *Engine) Ingest(ctx context.Context, batch []domain.RawPosting) (IngestReport, error) {
	var report IngestReport

	for _, raw := range batch {
		job, err := Normalize(raw)
		if err != nil {
			if errors.Is(err, domain.ErrMissingField) {
				report.Rejected++
				e.logger.Debug("posting rejected",
					slog.String("source", raw.Source),
					slog.String("source_job_id", raw.SourceJobID),
					slog.String("reason", err.Error()),
				)
				continue
			}
			return report, err
		}

		created, err := e.store.Upsert(ctx, job)
		if err != nil {
			return report, fmt.Errorf("upsert %s/%s: %w", job.Source, job.SourceJobID, err)
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	e.logger.Info("ingest batch complete",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("rejected", report.Rejected),
	)
	return report, nil
}
