// Package catalog is the persistence layer: the job catalog, the notification
// ledger and the preference store, all backed by PostgreSQL. Uniqueness
// constraints on (source, source_job_id) and (subscriber_id, job_id) are the
// synchronization primitives the pipelines rely on.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// JobStore persists canonical jobs.
type JobStore struct {
	db *sqlx.DB
}

func NewJobStore(db *sqlx.DB) *JobStore {
	return &JobStore{db: db}
}

type jobRow struct {
	ID            int64             `db:"id"`
	Source        string            `db:"source"`
	SourceJobID   string            `db:"source_job_id"`
	Title         string            `db:"title"`
	Company       string            `db:"company"`
	Location      string            `db:"location"`
	Description   string            `db:"description"`
	JobType       string            `db:"job_type"`
	ApplyURL      string            `db:"apply_url"`
	Skills        pq.StringArray    `db:"skills"`
	IsRemote      bool              `db:"is_remote"`
	Active        bool              `db:"active"`
	LinkStatus    string            `db:"link_status"`
	LinkCheckedAt *time.Time        `db:"link_checked_at"`
	LinkFailures  int               `db:"link_failures"`
	FirstSeenAt   time.Time         `db:"first_seen_at"`
	LastSeenAt    time.Time         `db:"last_seen_at"`
}

func (r jobRow) toDomain() domain.Job {
	return domain.Job{
		ID:            r.ID,
		Source:        r.Source,
		SourceJobID:   r.SourceJobID,
		Title:         r.Title,
		Company:       r.Company,
		Location:      r.Location,
		Description:   r.Description,
		JobType:       domain.JobType(r.JobType),
		ApplyURL:      r.ApplyURL,
		Skills:        []string(r.Skills),
		IsRemote:      r.IsRemote,
		Active:        r.Active,
		LinkStatus:    domain.LinkStatus(r.LinkStatus),
		LinkCheckedAt: r.LinkCheckedAt,
		LinkFailures:  r.LinkFailures,
		FirstSeenAt:   r.FirstSeenAt,
		LastSeenAt:    r.LastSeenAt,
	}
}

const jobColumns = `id, source, source_job_id, title, company, location, description,
	job_type, apply_url, skills, is_remote, active, link_status,
	link_checked_at, link_failures, first_seen_at, last_seen_at`

// Upsert merges a job by its natural key. Content fields are last-writer-wins
// and last_seen_at is refreshed; first_seen_at and the link-health fields are
// never touched on update. The (xmax = 0) check tells a fresh insert from a
// conflict update within the same statement.
func (s *JobStore) Upsert(ctx context.Context, job domain.Job) (bool, error) {
	const query = `
		INSERT INTO jobs (
			source, source_job_id, title, company, location, description,
			job_type, apply_url, skills, is_remote, active, link_status,
			first_seen_at, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, NOW(), NOW())
		ON CONFLICT (source, source_job_id) DO UPDATE SET
			title        = EXCLUDED.title,
			company      = EXCLUDED.company,
			location     = EXCLUDED.location,
			description  = EXCLUDED.description,
			job_type     = EXCLUDED.job_type,
			apply_url    = EXCLUDED.apply_url,
			skills       = EXCLUDED.skills,
			is_remote    = EXCLUDED.is_remote,
			last_seen_at = NOW()
		RETURNING (xmax = 0) AS created`

	var created bool
	err := s.db.QueryRowContext(ctx, query,
		job.Source,
		job.SourceJobID,
		job.Title,
		job.Company,
		job.Location,
		job.Description,
		string(job.JobType),
		job.ApplyURL,
		pq.Array(job.Skills),
		job.IsRemote,
		string(domain.LinkStatusUnknown),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert job: %w", err)
	}
	return created, nil
}

// ByKey fetches a job by its natural key.
func (s *JobStore) ByKey(ctx context.Context, key domain.JobKey) (domain.Job, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+jobColumns+` FROM jobs WHERE source = $1 AND source_job_id = $2`,
		key.Source, key.SourceJobID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return row.toDomain(), nil
}

// JobsNeedingCheck selects active jobs whose link has not been probed within
// the staleness window, never-probed jobs first.
func (s *JobStore) JobsNeedingCheck(ctx context.Context, staleness time.Duration, limit int) ([]domain.Job, error) {
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE active
		  AND (link_checked_at IS NULL OR link_checked_at < NOW() - MAKE_INTERVAL(secs => $1))
		ORDER BY link_checked_at ASC NULLS FIRST
		LIMIT $2`,
		staleness.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select jobs needing check: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toDomain())
	}
	return jobs, nil
}

// RecordLinkResult stores one probe outcome. A working probe resets the
// failure streak; reaching brokenThreshold consecutive failures deactivates
// the job in the same statement.
func (s *JobStore) RecordLinkResult(ctx context.Context, jobID int64, working bool, checkedAt time.Time, brokenThreshold int) error {
	const query = `
		UPDATE jobs SET
			link_checked_at = $2,
			link_status     = CASE WHEN $3 THEN 'working' ELSE 'broken' END,
			link_failures   = CASE WHEN $3 THEN 0 ELSE link_failures + 1 END,
			active          = CASE WHEN NOT $3 AND link_failures + 1 >= $4 THEN FALSE ELSE active END
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, jobID, checkedAt, working, brokenThreshold)
	if err != nil {
		return fmt.Errorf("record link result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// EligibleJobs returns jobs a subscriber may still be notified about: active,
// link not broken, and no ledger row for the pair.
func (s *JobStore) EligibleJobs(ctx context.Context, subscriberID string, limit int) ([]domain.Job, error) {
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+jobColumns+`
		FROM jobs j
		WHERE j.active
		  AND j.link_status <> 'broken'
		  AND NOT EXISTS (
			SELECT 1 FROM notifications n
			WHERE n.subscriber_id = $1 AND n.job_id = j.id
		  )
		ORDER BY j.last_seen_at DESC, j.source, j.source_job_id
		LIMIT $2`,
		subscriberID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select eligible jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toDomain())
	}
	return jobs, nil
}

// SourceCounts returns the number of active jobs per source.
func (s *JobStore) SourceCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM jobs WHERE active GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count jobs per source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// PruneInactive deletes inactive jobs not seen since the cutoff. Jobs that
// appear in the notification ledger are kept so click tracking and stats stay
// consistent.
func (s *JobStore) PruneInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs j
		WHERE NOT j.active
		  AND j.last_seen_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM notifications n WHERE n.job_id = j.id
		  )`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune inactive jobs: %w", err)
	}
	return res.RowsAffected()
}
