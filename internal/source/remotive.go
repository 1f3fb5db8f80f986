package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jobdigest/jobdigest/internal/domain"
)

const remotiveMaxResults = 20

// RemotiveAdapter fetches remote postings from the Remotive public API.
type RemotiveAdapter struct {
	apiURL string
	client *http.Client
}

// NewRemotiveAdapter constructs the adapter with a bounded HTTP timeout.
func NewRemotiveAdapter(timeout time.Duration) *RemotiveAdapter {
	return &RemotiveAdapter{
		apiURL: "https://remotive.com/api/remote-jobs",
		client: &http.Client{Timeout: timeout},
	}
}

func (a *RemotiveAdapter) Name() string { return "remotive" }

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	CompanyName string   `json:"company_name"`
	Location    string   `json:"candidate_required_location"`
	JobType     string   `json:"job_type"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Fetch queries the API with the keyword; Remotive filters server-side.
func (a *RemotiveAdapter) Fetch(ctx context.Context, q Query) ([]domain.RawPosting, error) {
	params := url.Values{}
	if q.Keyword != "" {
		params.Set("search", q.Keyword)
	}
	params.Set("limit", strconv.Itoa(remotiveMaxResults))

	body, err := doJSON(ctx, a.client, a.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var apiResp remotiveResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceParse, err)
	}

	postings := make([]domain.RawPosting, 0, len(apiResp.Jobs))
	for _, j := range apiResp.Jobs {
		location := j.Location
		if location == "" {
			location = "Remote"
		}

		skills := make([]string, 0, len(j.Tags))
		for _, tag := range j.Tags {
			if tag != "" {
				skills = append(skills, titleCase(tag))
			}
		}

		postings = append(postings, domain.RawPosting{
			Source:      a.Name(),
			SourceJobID: strconv.FormatInt(j.ID, 10),
			Title:       j.Title,
			Company:     j.CompanyName,
			Location:    location,
			Description: j.Description,
			JobType:     j.JobType,
			ApplyURL:    j.URL,
			Skills:      skills,
			IsRemote:    true,
		})
	}

	return postings, nil
}
