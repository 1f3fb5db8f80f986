// Package linkcheck re-validates stored application URLs and demotes jobs
// whose links keep failing.
package linkcheck

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jobdigest/jobdigest/internal/domain"
)

const probeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Store is the catalog surface the monitor needs.
type Store interface {
	// JobsNeedingCheck returns active jobs whose last probe is older than
	// the staleness threshold, up to limit rows.
	JobsNeedingCheck(ctx context.Context, staleness time.Duration, limit int) ([]domain.Job, error)
	// RecordLinkResult persists one probe outcome and deactivates the job
	// once consecutive failures reach the configured threshold.
	RecordLinkResult(ctx context.Context, jobID int64, working bool, checkedAt time.Time, brokenThreshold int) error
}

// Prober answers whether an application URL still resolves.
type Prober interface {
	Probe(ctx context.Context, url string) bool
}

// HTTPProber checks a URL with HEAD, falling back to GET when the site
// rejects HEAD outright.
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: timeout}}
}

// Probe reports whether the URL answered with a non-error status. Transport
// failures and 4xx/5xx all count as broken.
func (p *HTTPProber) Probe(ctx context.Context, url string) bool {
	status, err := p.do(ctx, http.MethodHead, url)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = p.do(ctx, http.MethodGet, url)
	}
	if err != nil {
		return false
	}
	return status < 400
}

func (p *HTTPProber) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// HealthReport summarizes one sweep.
type HealthReport struct {
	Checked int
	Working int
	Broken  int
}

// Monitor runs the periodic link sweep.
type Monitor struct {
	store           Store
	prober          Prober
	logger          *slog.Logger
	batchSize       int
	staleness       time.Duration
	concurrency     int64
	brokenThreshold int
}

func NewMonitor(
	store Store,
	prober Prober,
	logger *slog.Logger,
	batchSize int,
	staleness time.Duration,
	concurrency int,
	brokenThreshold int,
) *Monitor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Monitor{
		store:           store,
		prober:          prober,
		logger:          logger,
		batchSize:       batchSize,
		staleness:       staleness,
		concurrency:     int64(concurrency),
		brokenThreshold: brokenThreshold,
	}
}

// Sweep probes one batch of stale links and records every outcome. Probes run
// concurrently; the store writes happen from the probing goroutines, each an
// independent single-row update.
func (m *Monitor) Sweep(ctx context.Context) (HealthReport, error) {
	jobs, err := m.store.JobsNeedingCheck(ctx, m.staleness, m.batchSize)
	if err != nil {
		return HealthReport{}, err
	}
	if len(jobs) == 0 {
		return HealthReport{}, nil
	}

	sem := semaphore.NewWeighted(m.concurrency)
	outcomes := make([]bool, len(jobs))
	errs := make([]error, len(jobs))

	for i, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			return HealthReport{}, err
		}
		go func(i int, job domain.Job) {
			defer sem.Release(1)
			working := m.prober.Probe(ctx, job.ApplyURL)
			outcomes[i] = working
			errs[i] = m.store.RecordLinkResult(ctx, job.ID, working, time.Now().UTC(), m.brokenThreshold)
		}(i, job)
	}
	if err := sem.Acquire(ctx, m.concurrency); err != nil {
		return HealthReport{}, err
	}

	report := HealthReport{Checked: len(jobs)}
	for i, working := range outcomes {
		if errs[i] != nil {
			m.logger.Error("recording link result failed",
				slog.Int64("job_id", jobs[i].ID),
				slog.String("error", errs[i].Error()),
			)
			continue
		}
		if working {
			report.Working++
		} else {
			report.Broken++
		}
	}

	m.logger.Info("link sweep complete",
		slog.Int("checked", report.Checked),
		slog.Int("working", report.Working),
		slog.Int("broken", report.Broken),
	)
	return report, nil
}
