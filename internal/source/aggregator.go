package source

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// SourceResult is the per-adapter outcome of one collection run.
type SourceResult struct {
	Source   string
	Fetched  int
	Err      error
	Duration time.Duration
}

// AggregateReport summarizes one collection run across all adapters.
type AggregateReport struct {
	Results []SourceResult
}

// Failed reports how many sources ended the run with an error.
func (r AggregateReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Aggregator fans a query out over its adapters with bounded concurrency.
// One failing source never aborts the others; its error lands in the report.
type Aggregator struct {
	adapters      []Adapter
	limiter       *Limiter
	logger        *slog.Logger
	maxConcurrent int64
	retryAttempts int
	retryBackoff  time.Duration
}

// NewAggregator wires the adapters behind a shared concurrency bound.
func NewAggregator(
	adapters []Adapter,
	limiter *Limiter,
	logger *slog.Logger,
	maxConcurrent int,
	retryAttempts int,
	retryBackoff time.Duration,
) *Aggregator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Aggregator{
		adapters:      adapters,
		limiter:       limiter,
		logger:        logger,
		maxConcurrent: int64(maxConcurrent),
		retryAttempts: retryAttempts,
		retryBackoff:  retryBackoff,
	}
}

// Collect runs the query against every adapter concurrently and returns all
// postings in adapter registration order. Within one adapter the order the
// source returned is preserved.
func (a *Aggregator) Collect(ctx context.Context, q Query) ([]domain.RawPosting, AggregateReport, error) {
	sem := semaphore.NewWeighted(a.maxConcurrent)
	results := make([]SourceResult, len(a.adapters))
	batches := make([][]domain.RawPosting, len(a.adapters))

	var wg sync.WaitGroup
	for i, adapter := range a.adapters {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, AggregateReport{Results: results[:i]}, err
		}

		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			postings, err := a.fetchWithRetry(ctx, adapter, q)
			results[i] = SourceResult{
				Source:   adapter.Name(),
				Fetched:  len(postings),
				Err:      err,
				Duration: time.Since(start),
			}
			batches[i] = postings

			if err != nil {
				a.logger.Warn("source fetch failed",
					slog.String("source", adapter.Name()),
					slog.String("keyword", q.Keyword),
					slog.String("error", err.Error()),
				)
				return
			}
			a.logger.Info("source fetch complete",
				slog.String("source", adapter.Name()),
				slog.String("keyword", q.Keyword),
				slog.Int("fetched", len(postings)),
			)
		}(i, adapter)
	}
	wg.Wait()

	var all []domain.RawPosting
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return all, AggregateReport{Results: results}, nil
}

// fetchWithRetry paces the source, then retries transient failures with
// exponential backoff. Parse failures are surfaced immediately; retrying a
// request the source no longer understands cannot help.
func (a *Aggregator) fetchWithRetry(ctx context.Context, adapter Adapter, q Query) ([]domain.RawPosting, error) {
	var lastErr error
	for attempt := 0; attempt <= a.retryAttempts; attempt++ {
		if attempt > 0 {
			backoff := a.retryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := a.limiter.Wait(ctx, adapter.Name()); err != nil {
			return nil, err
		}

		postings, err := adapter.Fetch(ctx, q)
		if err == nil {
			return postings, nil
		}
		lastErr = err

		if !domain.IsSourceRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}
