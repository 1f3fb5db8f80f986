package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validPreference() Preference {
	return Preference{
		SubscriberID: "sub-1",
		Language:     LanguageGlobal,
		LocationMode: LocationRemote,
		Skills:       []string{"Python"},
		Cadence:      2,
		Slots:        []string{"09:00", "18:00"},
	}
}

func TestPreference_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Preference)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(p *Preference) {},
		},
		{
			name:   "on-demand only needs no slots",
			mutate: func(p *Preference) { p.Cadence = 0; p.Slots = nil },
		},
		{
			name:    "unknown language",
			mutate:  func(p *Preference) { p.Language = "klingon" },
			wantErr: "invalid language scope",
		},
		{
			name:    "unknown location mode",
			mutate:  func(p *Preference) { p.LocationMode = "anywhere" },
			wantErr: "invalid location mode",
		},
		{
			name: "specific mode requires country",
			mutate: func(p *Preference) {
				p.LocationMode = LocationSpecific
				p.PreferredCountry = ""
			},
			wantErr: "preferred country is required",
		},
		{
			name:    "cadence above bound",
			mutate:  func(p *Preference) { p.Cadence = MaxCadence + 1 },
			wantErr: "cadence must be between",
		},
		{
			name:    "cadence without slots",
			mutate:  func(p *Preference) { p.Slots = nil },
			wantErr: "at least one notification slot",
		},
		{
			name:    "malformed slot",
			mutate:  func(p *Preference) { p.Slots = []string{"9am"} },
			wantErr: "invalid notification slot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pref := validPreference()
			tt.mutate(&pref)

			err := pref.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestErrorWrappers(t *testing.T) {
	transient := NewTransient(ErrSourceUnavailable)
	assert.ErrorIs(t, transient, ErrSourceUnavailable)
	assert.True(t, IsSourceRetryable(transient))
	assert.False(t, IsSourceRetryable(ErrSourceParse))

	perm := &PermanentError{Reason: "unroutable", Attempted: false, Err: ErrJobNotFound}
	assert.ErrorIs(t, perm, ErrJobNotFound)
	assert.Contains(t, perm.Error(), "unroutable")
}
