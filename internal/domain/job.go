// Package domain defines the entities shared across the ingestion, matching
// and notification pipelines.
package domain

import "time"

// LinkStatus is the last known health of a job's application URL.
type LinkStatus string

const (
	LinkStatusUnknown LinkStatus = "unknown"
	LinkStatusWorking LinkStatus = "working"
	LinkStatusBroken  LinkStatus = "broken"
)

// JobType is the canonical employment-type vocabulary. Free-text values from
// source sites are mapped into this set during normalization.
type JobType string

const (
	JobTypeFullTime  JobType = "full-time"
	JobTypePartTime  JobType = "part-time"
	JobTypeContract  JobType = "contract"
	JobTypeFreelance JobType = "freelance"
	JobTypeRemote    JobType = "remote"
)

// RawPosting is a posting as fetched from an external source, before
// normalization. Only Source and SourceJobID are trusted at this point.
type RawPosting struct {
	Source      string
	SourceJobID string
	Title       string
	Company     string
	Location    string
	Description string
	JobType     string
	ApplyURL    string
	Skills      []string
	IsRemote    bool
}

// JobKey is the natural key of a posting: unique and immutable across
// re-ingestion of the same offer.
type JobKey struct {
	Source      string
	SourceJobID string
}

// Job is a catalog row. Identity and FirstSeenAt never change after creation;
// content fields are refreshed on every re-ingestion, link fields are owned by
// the link health monitor.
type Job struct {
	ID           int64      `db:"id"`
	Source       string     `db:"source"`
	SourceJobID  string     `db:"source_job_id"`
	Title        string     `db:"title"`
	Company      string     `db:"company"`
	Location     string     `db:"location"`
	Description  string     `db:"description"`
	JobType      JobType    `db:"job_type"`
	ApplyURL     string     `db:"apply_url"`
	Skills       []string   `db:"-"`
	IsRemote     bool       `db:"is_remote"`
	Active       bool       `db:"active"`
	LinkStatus   LinkStatus `db:"link_status"`
	LinkCheckedAt *time.Time `db:"link_checked_at"`
	LinkFailures int        `db:"link_failures"`
	FirstSeenAt  time.Time  `db:"first_seen_at"`
	LastSeenAt   time.Time  `db:"last_seen_at"`
}

// Key returns the job's natural key.
func (j *Job) Key() JobKey {
	return JobKey{Source: j.Source, SourceJobID: j.SourceJobID}
}
