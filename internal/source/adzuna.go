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

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3
)

// AdzunaAdapter fetches offers from the Adzuna public API, paging until the
// results run out or adzunaMaxPages is reached.
type AdzunaAdapter struct {
	appID   string
	appKey  string
	country string
	client  *http.Client
}

// NewAdzunaAdapter constructs the adapter. Credentials are required; the
// caller decides whether to register the adapter at all when they are absent.
func NewAdzunaAdapter(appID, appKey, country string, timeout time.Duration) *AdzunaAdapter {
	if country == "" {
		country = "gb"
	}
	return &AdzunaAdapter{
		appID:   appID,
		appKey:  appKey,
		country: country,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *AdzunaAdapter) Name() string { return "adzuna" }

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	RedirectURL  string  `json:"redirect_url"`
	ContractTime string  `json:"contract_time"`
	ContractType string  `json:"contract_type"`
	Company      struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
}

// Fetch retrieves all available offers for the query.
func (a *AdzunaAdapter) Fetch(ctx context.Context, q Query) ([]domain.RawPosting, error) {
	var postings []domain.RawPosting

	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := a.fetchPage(ctx, q, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		postings = append(postings, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}

	return postings, nil
}

func (a *AdzunaAdapter) fetchPage(ctx context.Context, q Query, page int) ([]domain.RawPosting, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", adzunaBaseURL, a.country, page)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.Keyword)
	if q.Location != "" {
		params.Set("where", q.Location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	body, err := doJSON(ctx, a.client, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceParse, err)
	}

	postings := make([]domain.RawPosting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		postings = append(postings, domain.RawPosting{
			Source:      a.Name(),
			SourceJobID: r.ID,
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: r.Description,
			JobType:     r.ContractType,
			ApplyURL:    r.RedirectURL,
			IsRemote:    q.Remote,
		})
	}

	return postings, nil
}
