package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// NotificationLedger persists notification records. The (subscriber_id,
// job_id) uniqueness constraint makes Reserve the at-most-once guard for the
// dispatcher.
type NotificationLedger struct {
	db *sqlx.DB
}

func NewNotificationLedger(db *sqlx.DB) *NotificationLedger {
	return &NotificationLedger{db: db}
}

// Reserve claims the (subscriber, job) pair. Zero rows affected means another
// run already claimed it.
func (l *NotificationLedger) Reserve(ctx context.Context, subscriberID string, jobID int64, kind domain.NotificationKind, at time.Time) error {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO notifications (subscriber_id, job_id, kind, sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subscriber_id, job_id) DO NOTHING`,
		subscriberID, jobID, string(kind), at,
	)
	if err != nil {
		return fmt.Errorf("reserve notification: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve notification: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyNotified
	}
	return nil
}

// Retract removes a reservation whose send definitively did not happen.
func (l *NotificationLedger) Retract(ctx context.Context, subscriberID string, jobID int64) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE subscriber_id = $1 AND job_id = $2`,
		subscriberID, jobID,
	)
	if err != nil {
		return fmt.Errorf("retract notification: %w", err)
	}
	return nil
}

// SentInSlotToday reports whether a scheduled record exists for the
// subscriber within the slot's minute on the given day. Reservations are
// stamped with the due-check tick time, so the one-minute window matches the
// tick granularity.
func (l *NotificationLedger) SentInSlotToday(ctx context.Context, subscriberID string, slot string, day time.Time) (bool, error) {
	slotTime, err := time.Parse("15:04", slot)
	if err != nil {
		return false, fmt.Errorf("parse slot %q: %w", slot, err)
	}
	day = day.UTC()
	slotStart := time.Date(day.Year(), day.Month(), day.Day(), slotTime.Hour(), slotTime.Minute(), 0, 0, time.UTC)

	var exists bool
	err = l.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE subscriber_id = $1
			  AND kind = $2
			  AND sent_at >= $3
			  AND sent_at < $3 + INTERVAL '1 minute'
		)`,
		subscriberID, string(domain.NotificationScheduled), slotStart,
	)
	if err != nil {
		return false, fmt.Errorf("check slot ledger: %w", err)
	}
	return exists, nil
}

// MarkClicked records that the subscriber followed the notification's apply
// link. Marking twice keeps the first click time.
func (l *NotificationLedger) MarkClicked(ctx context.Context, subscriberID string, jobID int64, at time.Time) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE notifications
		SET clicked = TRUE, clicked_at = COALESCE(clicked_at, $3)
		WHERE subscriber_id = $1 AND job_id = $2`,
		subscriberID, jobID, at,
	)
	if err != nil {
		return fmt.Errorf("mark notification clicked: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// Stats aggregates pipeline-wide delivery numbers.
type Stats struct {
	ActiveSubscribers  int `db:"active_subscribers"`
	ActiveJobs         int `db:"active_jobs"`
	TotalJobs          int `db:"total_jobs"`
	TotalNotifications int `db:"total_notifications"`
	ClickedCount       int `db:"clicked_count"`
}

// Stats returns delivery statistics across the whole catalog.
func (l *NotificationLedger) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := l.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM subscribers WHERE active)          AS active_subscribers,
			(SELECT COUNT(*) FROM jobs WHERE active)                 AS active_jobs,
			(SELECT COUNT(*) FROM jobs)                              AS total_jobs,
			(SELECT COUNT(*) FROM notifications)                     AS total_notifications,
			(SELECT COUNT(*) FROM notifications WHERE clicked)       AS clicked_count`)
	if err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return stats, nil
}
