package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jobdigest/jobdigest/internal/domain"
)

const remoteOKMaxResults = 20

// RemoteOKAdapter fetches remote postings from the RemoteOK JSON API. The
// API returns the whole feed; filtering by keyword happens client-side.
type RemoteOKAdapter struct {
	apiURL string
	client *http.Client
}

// NewRemoteOKAdapter constructs the adapter with a bounded HTTP timeout.
func NewRemoteOKAdapter(timeout time.Duration) *RemoteOKAdapter {
	return &RemoteOKAdapter{
		apiURL: "https://remoteok.com/api",
		client: &http.Client{Timeout: timeout},
	}
}

func (a *RemoteOKAdapter) Name() string { return "remoteok" }

type remoteOKItem struct {
	ID       json.Number `json:"id"`
	Position string      `json:"position"`
	Company  string      `json:"company"`
	Tags     []string    `json:"tags"`
	Descr    string      `json:"description"`
	URL      string      `json:"url"`
}

// Fetch downloads the feed and keeps postings whose title, description or
// tags contain the query keyword. The first feed element is a legal notice,
// not a posting; items without a position are skipped.
func (a *RemoteOKAdapter) Fetch(ctx context.Context, q Query) ([]domain.RawPosting, error) {
	body, err := doJSON(ctx, a.client, a.apiURL, nil)
	if err != nil {
		return nil, err
	}

	var items []remoteOKItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceParse, err)
	}

	keyword := strings.ToLower(q.Keyword)
	var postings []domain.RawPosting
	for _, item := range items {
		if item.Position == "" || item.Company == "" {
			continue
		}
		if keyword != "" && !remoteOKMatches(item, keyword) {
			continue
		}

		id := item.ID.String()
		applyURL := item.URL
		if applyURL == "" && id != "" {
			applyURL = "https://remoteok.com/job/" + id
		}

		skills := make([]string, 0, len(item.Tags))
		for _, tag := range item.Tags {
			if tag != "" {
				skills = append(skills, titleCase(tag))
			}
		}

		postings = append(postings, domain.RawPosting{
			Source:      a.Name(),
			SourceJobID: id,
			Title:       item.Position,
			Company:     item.Company,
			Location:    "Remote",
			Description: item.Descr,
			JobType:     string(domain.JobTypeRemote),
			ApplyURL:    applyURL,
			Skills:      skills,
			IsRemote:    true,
		})
		if len(postings) >= remoteOKMaxResults {
			break
		}
	}

	return postings, nil
}

func remoteOKMatches(item remoteOKItem, keyword string) bool {
	if strings.Contains(strings.ToLower(item.Position), keyword) {
		return true
	}
	if strings.Contains(strings.ToLower(item.Descr), keyword) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), keyword) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
