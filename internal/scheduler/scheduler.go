// Package scheduler drives the periodic pipelines: scrape+ingest, link-health
// sweep, and the notification due-check. Cross-instance exclusion for the
// heavyweight pipelines uses Redis locks; the due-check needs none because
// the notification ledger's uniqueness constraint already dedupes.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/jobdigest/jobdigest/internal/domain"
	"github.com/jobdigest/jobdigest/internal/ingest"
	"github.com/jobdigest/jobdigest/internal/linkcheck"
	"github.com/jobdigest/jobdigest/internal/notify"
	"github.com/jobdigest/jobdigest/internal/source"
)

const (
	runKindScrape = "scrape"
	runKindSweep  = "sweep"
	runKindNotify = "due-check"

	pruneAfter = 30 * 24 * time.Hour
)

// SkillSource yields the skills scrape queries are derived from.
type SkillSource interface {
	DistinctSkills(ctx context.Context, limit int) ([]string, error)
}

// Collector is the source aggregation surface.
type Collector interface {
	Collect(ctx context.Context, q source.Query) ([]domain.RawPosting, source.AggregateReport, error)
}

// Ingester merges raw postings into the catalog.
type Ingester interface {
	Ingest(ctx context.Context, batch []domain.RawPosting) (ingest.IngestReport, error)
}

// Sweeper runs one link-health pass.
type Sweeper interface {
	Sweep(ctx context.Context) (linkcheck.HealthReport, error)
}

// Pruner removes stale inactive jobs.
type Pruner interface {
	PruneInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

// Dispatcher runs notification due-checks.
type Dispatcher interface {
	RunDue(ctx context.Context, now time.Time) (notify.DispatchReport, error)
}

// RunRecorder persists pipeline run summaries.
type RunRecorder interface {
	Record(ctx context.Context, kind string, startedAt, finishedAt time.Time, detail any) error
}

// Config holds the cron specs and lock settings.
type Config struct {
	ScrapeSpec   string
	SweepSpec    string
	DueCheckSpec string
	RunLockTTL   time.Duration
	MaxQueries   int
}

// Scheduler owns the cron runner and the pipeline wiring.
type Scheduler struct {
	cfg        Config
	skills     SkillSource
	collector  Collector
	ingester   Ingester
	sweeper    Sweeper
	pruner     Pruner
	dispatcher Dispatcher
	runs       RunRecorder
	rdb        *redis.Client
	logger     *slog.Logger
	cron       *cron.Cron
}

func New(
	cfg Config,
	skills SkillSource,
	collector Collector,
	ingester Ingester,
	sweeper Sweeper,
	pruner Pruner,
	dispatcher Dispatcher,
	runs RunRecorder,
	rdb *redis.Client,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		skills:     skills,
		collector:  collector,
		ingester:   ingester,
		sweeper:    sweeper,
		pruner:     pruner,
		dispatcher: dispatcher,
		runs:       runs,
		rdb:        rdb,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start registers the cron entries and kicks off an immediate scrape so a
// fresh deployment has a catalog before the first scheduled run.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.ScrapeSpec, func() { s.runScrape(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.SweepSpec, func() { s.runSweep(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.DueCheckSpec, func() { s.runDueCheck(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	go s.runScrape(ctx)

	s.logger.Info("scheduler started",
		slog.String("scrape_spec", s.cfg.ScrapeSpec),
		slog.String("sweep_spec", s.cfg.SweepSpec),
		slog.String("due_check_spec", s.cfg.DueCheckSpec),
	)
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

// acquireLock takes the named run lock. Lost-Redis degrades to running
// anyway: every pipeline is idempotent, the lock only avoids wasted work.
func (s *Scheduler) acquireLock(ctx context.Context, name string) bool {
	if s.rdb == nil {
		return true
	}
	ok, err := s.rdb.SetNX(ctx, "runlock:"+name, 1, s.cfg.RunLockTTL).Result()
	if err != nil {
		s.logger.Warn("run lock unavailable, proceeding",
			slog.String("lock", name),
			slog.String("error", err.Error()),
		)
		return true
	}
	return ok
}

func (s *Scheduler) releaseLock(ctx context.Context, name string) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, "runlock:"+name)
}

func (s *Scheduler) runScrape(ctx context.Context) {
	if !s.acquireLock(ctx, runKindScrape) {
		s.logger.Info("scrape already running elsewhere, skipping")
		return
	}
	defer s.releaseLock(ctx, runKindScrape)

	started := time.Now().UTC()

	queries, err := s.planQueries(ctx)
	if err != nil {
		s.logger.Error("planning scrape queries failed", slog.String("error", err.Error()))
		return
	}
	if len(queries) == 0 {
		s.logger.Info("no subscriber skills yet, skipping scrape")
		return
	}

	var totals ingest.IngestReport
	failedSources := 0
	for _, q := range queries {
		postings, report, err := s.collector.Collect(ctx, q)
		if err != nil {
			s.logger.Error("collection aborted", slog.String("error", err.Error()))
			return
		}
		failedSources += report.Failed()

		ingested, err := s.ingester.Ingest(ctx, postings)
		totals.Created += ingested.Created
		totals.Updated += ingested.Updated
		totals.Rejected += ingested.Rejected
		if err != nil {
			s.logger.Error("ingest aborted, retrying next cycle", slog.String("error", err.Error()))
			return
		}
	}

	finished := time.Now().UTC()
	s.logger.Info("scrape cycle complete",
		slog.Int("queries", len(queries)),
		slog.Int("created", totals.Created),
		slog.Int("updated", totals.Updated),
		slog.Int("rejected", totals.Rejected),
		slog.Int("failed_sources", failedSources),
		slog.Duration("took", finished.Sub(started)),
	)

	s.recordRun(ctx, runKindScrape, started, finished, map[string]int{
		"queries":        len(queries),
		"created":        totals.Created,
		"updated":        totals.Updated,
		"rejected":       totals.Rejected,
		"failed_sources": failedSources,
	})
}

// planQueries derives source queries from the skills active subscribers ask
// for, one query per distinct skill.
func (s *Scheduler) planQueries(ctx context.Context) ([]source.Query, error) {
	skills, err := s.skills.DistinctSkills(ctx, s.cfg.MaxQueries)
	if err != nil {
		return nil, err
	}
	return QueriesFromSkills(skills), nil
}

// QueriesFromSkills maps skill keywords to source queries.
func QueriesFromSkills(skills []string) []source.Query {
	queries := make([]source.Query, 0, len(skills))
	for _, skill := range skills {
		if skill == "" {
			continue
		}
		queries = append(queries, source.Query{Keyword: skill})
	}
	return queries
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if !s.acquireLock(ctx, runKindSweep) {
		s.logger.Info("sweep already running elsewhere, skipping")
		return
	}
	defer s.releaseLock(ctx, runKindSweep)

	started := time.Now().UTC()
	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("link sweep failed", slog.String("error", err.Error()))
		return
	}

	pruned, err := s.pruner.PruneInactive(ctx, started.Add(-pruneAfter))
	if err != nil {
		s.logger.Error("pruning inactive jobs failed", slog.String("error", err.Error()))
	}

	finished := time.Now().UTC()
	s.recordRun(ctx, runKindSweep, started, finished, map[string]int64{
		"checked": int64(report.Checked),
		"working": int64(report.Working),
		"broken":  int64(report.Broken),
		"pruned":  pruned,
	})
}

// runDueCheck deliberately takes no run lock: the ledger's uniqueness
// constraint makes concurrent due-checks safe, and a lock would delay slots
// when an instance dies mid-run.
func (s *Scheduler) runDueCheck(ctx context.Context) {
	started := time.Now().UTC()
	report, err := s.dispatcher.RunDue(ctx, started)
	if err != nil {
		s.logger.Error("due-check failed", slog.String("error", err.Error()))
		return
	}
	if report.Subscribers == 0 {
		return
	}

	finished := time.Now().UTC()
	s.recordRun(ctx, runKindNotify, started, finished, map[string]int{
		"subscribers": report.Subscribers,
		"sent":        report.Sent,
		"skipped":     report.Skipped,
		"failed":      report.Failed,
	})
}

func (s *Scheduler) recordRun(ctx context.Context, kind string, started, finished time.Time, detail any) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Record(ctx, kind, started, finished, detail); err != nil {
		s.logger.Error("recording pipeline run failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
