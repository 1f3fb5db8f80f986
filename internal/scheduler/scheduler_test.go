package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdigest/jobdigest/internal/domain"
	"github.com/jobdigest/jobdigest/internal/ingest"
	"github.com/jobdigest/jobdigest/internal/linkcheck"
	"github.com/jobdigest/jobdigest/internal/notify"
	"github.com/jobdigest/jobdigest/internal/source"
)

func TestQueriesFromSkills(t *testing.T) {
	queries := QueriesFromSkills([]string{"python", "", "data science"})

	require.Len(t, queries, 2)
	assert.Equal(t, "python", queries[0].Keyword)
	assert.Equal(t, "data science", queries[1].Keyword)
}

type stubSkills struct{ skills []string }

func (s stubSkills) DistinctSkills(_ context.Context, limit int) ([]string, error) {
	if len(s.skills) > limit {
		return s.skills[:limit], nil
	}
	return s.skills, nil
}

type stubCollector struct {
	queries  []source.Query
	postings []domain.RawPosting
}

func (c *stubCollector) Collect(_ context.Context, q source.Query) ([]domain.RawPosting, source.AggregateReport, error) {
	c.queries = append(c.queries, q)
	return c.postings, source.AggregateReport{}, nil
}

type stubIngester struct {
	batches int
	total   int
}

func (i *stubIngester) Ingest(_ context.Context, batch []domain.RawPosting) (ingest.IngestReport, error) {
	i.batches++
	i.total += len(batch)
	return ingest.IngestReport{Created: len(batch)}, nil
}

type stubSweeper struct{ calls int }

func (s *stubSweeper) Sweep(_ context.Context) (linkcheck.HealthReport, error) {
	s.calls++
	return linkcheck.HealthReport{}, nil
}

type stubPruner struct{ calls int }

func (p *stubPruner) PruneInactive(_ context.Context, _ time.Time) (int64, error) {
	p.calls++
	return 0, nil
}

type stubDispatcher struct{ calls int }

func (d *stubDispatcher) RunDue(_ context.Context, _ time.Time) (notify.DispatchReport, error) {
	d.calls++
	return notify.DispatchReport{}, nil
}

type stubRuns struct{ kinds []string }

func (r *stubRuns) Record(_ context.Context, kind string, _, _ time.Time, _ any) error {
	r.kinds = append(r.kinds, kind)
	return nil
}

func testScheduler(skills SkillSource, collector Collector, ingester Ingester) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{
		ScrapeSpec:   "@every 6h",
		SweepSpec:    "@every 1h",
		DueCheckSpec: "@every 1m",
		RunLockTTL:   time.Minute,
		MaxQueries:   10,
	}
	return New(cfg, skills, collector, ingester, &stubSweeper{}, &stubPruner{}, &stubDispatcher{}, &stubRuns{}, nil, logger)
}

func TestScheduler_RunScrape(t *testing.T) {
	collector := &stubCollector{postings: []domain.RawPosting{
		{Source: "adzuna", SourceJobID: "1", Title: "Engineer", ApplyURL: "https://example.com/1"},
	}}
	ingester := &stubIngester{}
	s := testScheduler(stubSkills{skills: []string{"python", "sql"}}, collector, ingester)

	s.runScrape(context.Background())

	require.Len(t, collector.queries, 2)
	assert.Equal(t, "python", collector.queries[0].Keyword)
	assert.Equal(t, 2, ingester.batches)
	assert.Equal(t, 2, ingester.total)
}

func TestScheduler_RunScrape_NoSkills(t *testing.T) {
	collector := &stubCollector{}
	ingester := &stubIngester{}
	s := testScheduler(stubSkills{}, collector, ingester)

	s.runScrape(context.Background())

	assert.Empty(t, collector.queries)
	assert.Zero(t, ingester.batches)
}

func TestScheduler_RunSweep_RecordsRun(t *testing.T) {
	sweeper := &stubSweeper{}
	pruner := &stubPruner{}
	runs := &stubRuns{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{RunLockTTL: time.Minute, MaxQueries: 10}
	s := New(cfg, stubSkills{}, &stubCollector{}, &stubIngester{}, sweeper, pruner, &stubDispatcher{}, runs, nil, logger)

	s.runSweep(context.Background())

	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 1, pruner.calls)
	assert.Equal(t, []string{runKindSweep}, runs.kinds)
}

func TestScheduler_RunDueCheck(t *testing.T) {
	dispatcher := &stubDispatcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{RunLockTTL: time.Minute}
	s := New(cfg, stubSkills{}, &stubCollector{}, &stubIngester{}, &stubSweeper{}, &stubPruner{}, dispatcher, &stubRuns{}, nil, logger)

	s.runDueCheck(context.Background())
	assert.Equal(t, 1, dispatcher.calls)
}
