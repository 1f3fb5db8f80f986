package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// PreferenceStore persists subscribers and their matching preferences.
type PreferenceStore struct {
	db *sqlx.DB
}

func NewPreferenceStore(db *sqlx.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

type preferenceRow struct {
	SubscriberID     string         `db:"subscriber_id"`
	Language         string         `db:"language"`
	LocationMode     string         `db:"location_mode"`
	PreferredCountry string         `db:"preferred_country"`
	Skills           pq.StringArray `db:"skills"`
	Cadence          int            `db:"cadence"`
	Slots            pq.StringArray `db:"slots"`
}

func (r preferenceRow) toDomain() domain.Preference {
	return domain.Preference{
		SubscriberID:     r.SubscriberID,
		Language:         domain.LanguageScope(r.Language),
		LocationMode:     domain.LocationMode(r.LocationMode),
		PreferredCountry: r.PreferredCountry,
		Skills:           []string(r.Skills),
		Cadence:          r.Cadence,
		Slots:            []string(r.Slots),
	}
}

// ActiveSubscribers lists subscribers eligible for scheduled notifications.
func (s *PreferenceStore) ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	var subs []domain.Subscriber
	err := s.db.SelectContext(ctx, &subs,
		`SELECT id, active, created_at FROM subscribers WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select active subscribers: %w", err)
	}
	return subs, nil
}

// Subscriber fetches one subscriber regardless of active state.
func (s *PreferenceStore) Subscriber(ctx context.Context, subscriberID string) (domain.Subscriber, error) {
	var sub domain.Subscriber
	err := s.db.GetContext(ctx, &sub,
		`SELECT id, active, created_at FROM subscribers WHERE id = $1`, subscriberID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subscriber{}, domain.ErrSubscriberNotFound
	}
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("get subscriber: %w", err)
	}
	return sub, nil
}

// Preference fetches a subscriber's matching criteria.
func (s *PreferenceStore) Preference(ctx context.Context, subscriberID string) (domain.Preference, error) {
	var row preferenceRow
	err := s.db.GetContext(ctx, &row, `
		SELECT subscriber_id, language, location_mode, preferred_country, skills, cadence, slots
		FROM preferences WHERE subscriber_id = $1`,
		subscriberID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Preference{}, domain.ErrPreferenceNotFound
	}
	if err != nil {
		return domain.Preference{}, fmt.Errorf("get preference: %w", err)
	}
	return row.toDomain(), nil
}

// ReplacePreference stores the whole preference record atomically, creating
// or reactivating the subscriber row as needed.
func (s *PreferenceStore) ReplacePreference(ctx context.Context, pref domain.Preference) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace preference: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscribers (id, active, created_at)
		VALUES ($1, TRUE, NOW())
		ON CONFLICT (id) DO UPDATE SET active = TRUE`,
		pref.SubscriberID,
	)
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO preferences (subscriber_id, language, location_mode, preferred_country, skills, cadence, slots)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subscriber_id) DO UPDATE SET
			language          = EXCLUDED.language,
			location_mode     = EXCLUDED.location_mode,
			preferred_country = EXCLUDED.preferred_country,
			skills            = EXCLUDED.skills,
			cadence           = EXCLUDED.cadence,
			slots             = EXCLUDED.slots`,
		pref.SubscriberID,
		string(pref.Language),
		string(pref.LocationMode),
		pref.PreferredCountry,
		pq.Array(pref.Skills),
		pref.Cadence,
		pq.Array(pref.Slots),
	)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}

	return tx.Commit()
}

// DeactivateSubscriber stops all scheduled notifications for the subscriber.
// The preference record stays so reactivation restores it.
func (s *PreferenceStore) DeactivateSubscriber(ctx context.Context, subscriberID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET active = FALSE WHERE id = $1`, subscriberID)
	if err != nil {
		return fmt.Errorf("deactivate subscriber: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSubscriberNotFound
	}
	return nil
}

// DistinctSkills returns the unique skills across active subscribers, capped.
// The scrape planner derives source queries from them.
func (s *PreferenceStore) DistinctSkills(ctx context.Context, limit int) ([]string, error) {
	var skills []string
	err := s.db.SelectContext(ctx, &skills, `
		SELECT DISTINCT LOWER(skill)
		FROM preferences p
		JOIN subscribers s ON s.id = p.subscriber_id AND s.active
		CROSS JOIN LATERAL UNNEST(p.skills) AS skill
		ORDER BY 1
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select distinct skills: %w", err)
	}
	return skills, nil
}
