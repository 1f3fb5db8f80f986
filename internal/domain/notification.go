package domain

import "time"

// NotificationKind distinguishes how a notification was triggered.
type NotificationKind string

const (
	NotificationScheduled NotificationKind = "scheduled"
	NotificationManual    NotificationKind = "manual"
	NotificationUrgent    NotificationKind = "urgent"
)

// Notification is a ledger row proving that a job was offered to a
// subscriber. The (SubscriberID, JobID) pair is unique: it doubles as the
// reservation that makes delivery at-most-once. Rows are never deleted except
// when a reservation is retracted before any delivery attempt.
type Notification struct {
	SubscriberID string           `db:"subscriber_id"`
	JobID        int64            `db:"job_id"`
	Kind         NotificationKind `db:"kind"`
	SentAt       time.Time        `db:"sent_at"`
	Clicked      bool             `db:"clicked"`
	ClickedAt    *time.Time       `db:"clicked_at"`
}

// NotificationPayload is the message handed to the messaging gateway for a
// single (subscriber, job) pair.
type NotificationPayload struct {
	SubscriberID string           `json:"subscriber_id"`
	Kind         NotificationKind `json:"kind"`
	JobID        int64            `json:"job_id"`
	Title        string           `json:"title"`
	Company      string           `json:"company,omitempty"`
	Location     string           `json:"location,omitempty"`
	ApplyURL     string           `json:"apply_url"`
	Score        int              `json:"score"`
}
