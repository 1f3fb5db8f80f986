// Package ingest normalizes raw postings and merges them into the catalog,
// deduplicating on the (source, source_job_id) natural key.
package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// commonSkills are matched case-insensitively against the description when a
// source carries no tags of its own.
var commonSkills = []string{
	"python", "javascript", "java", "react", "node.js", "sql", "html", "css",
	"aws", "docker", "kubernetes", "git", "linux", "mongodb", "postgresql",
	"machine learning", "data science", "ui/ux", "figma", "photoshop",
	"project management", "agile", "scrum", "marketing", "seo", "content writing",
}

// Normalize validates a raw posting and produces its canonical form. Missing
// title or apply URL is a rejection, not a retryable failure.
func Normalize(raw domain.RawPosting) (domain.Job, error) {
	title := strings.TrimSpace(raw.Title)
	applyURL := strings.TrimSpace(raw.ApplyURL)
	if title == "" {
		return domain.Job{}, fmt.Errorf("%w: title", domain.ErrMissingField)
	}
	if applyURL == "" {
		return domain.Job{}, fmt.Errorf("%w: apply_url", domain.ErrMissingField)
	}
	if strings.TrimSpace(raw.Source) == "" || strings.TrimSpace(raw.SourceJobID) == "" {
		return domain.Job{}, fmt.Errorf("%w: source identity", domain.ErrMissingField)
	}

	company := strings.TrimSpace(raw.Company)
	if company == "" {
		company = "Unknown"
	}

	location := strings.TrimSpace(raw.Location)
	isRemote := raw.IsRemote || looksRemote(location, raw.Description)
	if location == "" && isRemote {
		location = "Remote"
	}

	skills := raw.Skills
	if len(skills) == 0 {
		skills = ExtractSkills(raw.Description)
	}

	return domain.Job{
		Source:      strings.TrimSpace(raw.Source),
		SourceJobID: strings.TrimSpace(raw.SourceJobID),
		Title:       title,
		Company:     company,
		Location:    location,
		Description: strings.TrimSpace(raw.Description),
		JobType:     canonicalJobType(raw.JobType, raw.Description, isRemote),
		ApplyURL:    applyURL,
		Skills:      dedupeSkills(skills),
		IsRemote:    isRemote,
		Active:      true,
		LinkStatus:  domain.LinkStatusUnknown,
	}, nil
}

// ExtractSkills scans a description for well-known skill keywords.
func ExtractSkills(description string) []string {
	if description == "" {
		return nil
	}
	lower := strings.ToLower(description)

	var found []string
	for _, skill := range commonSkills {
		if strings.Contains(lower, skill) {
			found = append(found, titleCaseSkill(skill))
		}
	}
	return found
}

func looksRemote(location, description string) bool {
	text := strings.ToLower(location + " " + description)
	for _, kw := range []string{"remote", "work from home", "telecommute", "distributed"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func canonicalJobType(raw, description string, isRemote bool) domain.JobType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "full_time", "full-time", "fulltime", "permanent":
		return domain.JobTypeFullTime
	case "part_time", "part-time", "parttime":
		return domain.JobTypePartTime
	case "contract":
		return domain.JobTypeContract
	case "freelance":
		return domain.JobTypeFreelance
	case "remote":
		return domain.JobTypeRemote
	}

	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "full-time") || strings.Contains(lower, "full time"):
		return domain.JobTypeFullTime
	case strings.Contains(lower, "part-time") || strings.Contains(lower, "part time"):
		return domain.JobTypePartTime
	case strings.Contains(lower, "contract"):
		return domain.JobTypeContract
	case strings.Contains(lower, "freelance"):
		return domain.JobTypeFreelance
	case isRemote:
		return domain.JobTypeRemote
	default:
		return domain.JobTypeFullTime
	}
}

func dedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func titleCaseSkill(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
