// Package match scores catalog jobs against subscriber preferences. Ranking
// is a pure function of its inputs so the same snapshot always yields the
// same order.
package match

import (
	"sort"
	"strings"
	"time"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// Integer weights are pinned; changing them changes which jobs subscribers
// see first.
const (
	skillOverlapWeight   = 3
	locationExactWeight  = 2
	locationEitherWeight = 1
	recencyWeight        = 1

	recencyWindow = 24 * time.Hour
)

// Candidate pairs a job with its relevance score.
type Candidate struct {
	Job   domain.Job
	Score int
}

// Rank scores every job against the preference and returns the top candidates,
// at most limit. Callers pass jobs already filtered for eligibility (active,
// link not broken, not yet notified).
func Rank(pref domain.Preference, jobs []domain.Job, now time.Time, limit int) []Candidate {
	candidates := make([]Candidate, 0, len(jobs))
	for _, job := range jobs {
		candidates = append(candidates, Candidate{Job: job, Score: Score(pref, job, now)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Job.LastSeenAt.Equal(b.Job.LastSeenAt) {
			return a.Job.LastSeenAt.After(b.Job.LastSeenAt)
		}
		if a.Job.Source != b.Job.Source {
			return a.Job.Source < b.Job.Source
		}
		return a.Job.SourceJobID < b.Job.SourceJobID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Score computes the integer relevance of one job for one preference.
func Score(pref domain.Preference, job domain.Job, now time.Time) int {
	score := 0
	if skillsOverlap(pref.Skills, job.Skills) {
		score += skillOverlapWeight
	}
	score += locationScore(pref, job)
	if now.Sub(job.LastSeenAt) < recencyWindow {
		score += recencyWeight
	}
	return score
}

func skillsOverlap(want, have []string) bool {
	if len(want) == 0 || len(have) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(want))
	for _, s := range want {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	for _, s := range have {
		if _, ok := set[strings.ToLower(strings.TrimSpace(s))]; ok {
			return true
		}
	}
	return false
}

func locationScore(pref domain.Preference, job domain.Job) int {
	switch pref.LocationMode {
	case domain.LocationRemote:
		if job.IsRemote {
			return locationExactWeight
		}
	case domain.LocationSpecific:
		if pref.PreferredCountry != "" &&
			strings.Contains(strings.ToLower(job.Location), strings.ToLower(pref.PreferredCountry)) {
			return locationExactWeight
		}
	case domain.LocationEither:
		return locationEitherWeight
	}
	return 0
}
