package domain

import (
	"fmt"
	"time"
)

// LanguageScope selects which groups of job sources apply to a subscriber.
type LanguageScope string

const (
	LanguageArabic LanguageScope = "arabic"
	LanguageGlobal LanguageScope = "global"
	LanguageBoth   LanguageScope = "both"
)

// LocationMode controls how job locations are matched against a preference.
type LocationMode string

const (
	LocationSpecific LocationMode = "specific"
	LocationRemote   LocationMode = "remote"
	LocationEither   LocationMode = "both"
)

// Subscriber is a notification recipient.
type Subscriber struct {
	ID        string    `db:"id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

// Preference is a subscriber's matching criteria. There is at most one active
// record per subscriber and updates replace the whole record atomically.
type Preference struct {
	SubscriberID     string
	Language         LanguageScope
	LocationMode     LocationMode
	PreferredCountry string
	Skills           []string
	// Cadence is the number of scheduled notification passes per day.
	// Zero means on-demand only.
	Cadence int
	// Slots are "HH:MM" times of day (UTC) at which scheduled passes run.
	Slots []string
}

// MaxCadence bounds how many scheduled passes per day a preference may request.
const MaxCadence = 5

// Validate checks vocabulary values, cadence bounds and slot format.
func (p *Preference) Validate() error {
	switch p.Language {
	case LanguageArabic, LanguageGlobal, LanguageBoth:
	default:
		return fmt.Errorf("invalid language scope: %q", p.Language)
	}

	switch p.LocationMode {
	case LocationSpecific, LocationRemote, LocationEither:
	default:
		return fmt.Errorf("invalid location mode: %q", p.LocationMode)
	}

	if p.LocationMode == LocationSpecific && p.PreferredCountry == "" {
		return fmt.Errorf("preferred country is required for location mode %q", LocationSpecific)
	}

	if p.Cadence < 0 || p.Cadence > MaxCadence {
		return fmt.Errorf("cadence must be between 0 and %d, got %d", MaxCadence, p.Cadence)
	}

	if p.Cadence > 0 && len(p.Slots) == 0 {
		return fmt.Errorf("at least one notification slot is required when cadence > 0")
	}

	for _, slot := range p.Slots {
		if _, err := time.Parse("15:04", slot); err != nil {
			return fmt.Errorf("invalid notification slot %q: %w", slot, err)
		}
	}

	return nil
}
