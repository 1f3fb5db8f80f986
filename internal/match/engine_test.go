package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdigest/jobdigest/internal/domain"
)

func job(source, id string, skills []string, remote bool, lastSeen time.Time) domain.Job {
	return domain.Job{
		Source:      source,
		SourceJobID: id,
		Title:       "Engineer",
		Company:     "Acme",
		Location:    "Remote",
		Skills:      skills,
		IsRemote:    remote,
		Active:      true,
		LastSeenAt:  lastSeen,
	}
}

func TestRank_RemoteOnlyScenario(t *testing.T) {
	now := time.Now()
	pref := domain.Preference{
		SubscriberID: "sub-1",
		Language:     domain.LanguageGlobal,
		LocationMode: domain.LocationRemote,
		Skills:       []string{"Python", "SQL"},
	}

	jobA := job("adzuna", "a", []string{"Python"}, true, now)
	jobB := job("adzuna", "b", []string{"Java"}, true, now)

	ranked := Rank(pref, []domain.Job{jobB, jobA}, now, 0)
	require.Len(t, ranked, 2)

	assert.Equal(t, "a", ranked[0].Job.SourceJobID)
	assert.Equal(t, 6, ranked[0].Score)
	assert.Equal(t, "b", ranked[1].Job.SourceJobID)
	assert.Equal(t, 3, ranked[1].Score)
}

func TestRank_Deterministic(t *testing.T) {
	now := time.Now()
	pref := domain.Preference{
		SubscriberID: "sub-1",
		Language:     domain.LanguageGlobal,
		LocationMode: domain.LocationEither,
		Skills:       []string{"Go"},
	}

	jobs := []domain.Job{
		job("remotive", "5", []string{"Go"}, true, now.Add(-time.Hour)),
		job("adzuna", "9", nil, false, now.Add(-2*time.Hour)),
		job("remoteok", "2", []string{"Go"}, true, now.Add(-time.Hour)),
	}

	first := Rank(pref, jobs, now, 0)
	second := Rank(pref, jobs, now, 0)
	assert.Equal(t, first, second)

	// Same score and last-seen resolve on natural key.
	assert.Equal(t, "remoteok", first[0].Job.Source)
	assert.Equal(t, "remotive", first[1].Job.Source)
}

func TestRank_TieBreakByLastSeen(t *testing.T) {
	now := time.Now()
	pref := domain.Preference{
		SubscriberID: "sub-1",
		LocationMode: domain.LocationRemote,
		Skills:       []string{"Python"},
	}

	older := job("adzuna", "old", []string{"Python"}, true, now.Add(-2*time.Hour))
	newer := job("adzuna", "new", []string{"Python"}, true, now.Add(-time.Hour))

	ranked := Rank(pref, []domain.Job{older, newer}, now, 0)
	require.Len(t, ranked, 2)
	assert.Equal(t, "new", ranked[0].Job.SourceJobID)
	assert.Equal(t, "old", ranked[1].Job.SourceJobID)
}

func TestRank_Limit(t *testing.T) {
	now := time.Now()
	pref := domain.Preference{SubscriberID: "sub-1", LocationMode: domain.LocationEither}

	jobs := []domain.Job{
		job("adzuna", "1", nil, false, now),
		job("adzuna", "2", nil, false, now),
		job("adzuna", "3", nil, false, now),
	}

	ranked := Rank(pref, jobs, now, 2)
	assert.Len(t, ranked, 2)
}

func TestScore(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		pref domain.Preference
		job  domain.Job
		want int
	}{
		{
			name: "specific country match",
			pref: domain.Preference{LocationMode: domain.LocationSpecific, PreferredCountry: "Egypt", Skills: []string{"SQL"}},
			job: domain.Job{
				Location:   "Cairo, Egypt",
				Skills:     []string{"SQL", "Python"},
				LastSeenAt: now.Add(-time.Hour),
			},
			want: 6,
		},
		{
			name: "specific country miss",
			pref: domain.Preference{LocationMode: domain.LocationSpecific, PreferredCountry: "Egypt"},
			job: domain.Job{
				Location:   "Berlin, Germany",
				LastSeenAt: now.Add(-48 * time.Hour),
			},
			want: 0,
		},
		{
			name: "either mode always gets one",
			pref: domain.Preference{LocationMode: domain.LocationEither},
			job: domain.Job{
				Location:   "Berlin, Germany",
				LastSeenAt: now.Add(-48 * time.Hour),
			},
			want: 1,
		},
		{
			name: "stale job loses recency",
			pref: domain.Preference{LocationMode: domain.LocationRemote, Skills: []string{"Python"}},
			job: domain.Job{
				IsRemote:   true,
				Skills:     []string{"Python"},
				LastSeenAt: now.Add(-25 * time.Hour),
			},
			want: 5,
		},
		{
			name: "skill match is case-insensitive",
			pref: domain.Preference{LocationMode: domain.LocationRemote, Skills: []string{"python"}},
			job: domain.Job{
				IsRemote:   true,
				Skills:     []string{"Python"},
				LastSeenAt: now,
			},
			want: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.pref, tt.job, now))
		})
	}
}
