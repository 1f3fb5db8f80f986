// Package source implements the job source adapters and the aggregator that
// fans out over them with bounded concurrency, per-source pacing and retry.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jobdigest/jobdigest/internal/domain"
)

// Query describes one search request handed to every adapter.
type Query struct {
	Keyword  string
	Location string
	Remote   bool
}

// Adapter is the uniform capability wrapping one external job source.
// Fetch fails with one of the closed set: domain.ErrSourceUnavailable,
// domain.ErrSourceRateLimited, domain.ErrSourceParse.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]domain.RawPosting, error)
}

// doJSON issues a GET request and returns the body, translating transport and
// status failures into the closed source error set shared by all adapters.
func doJSON(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrSourceUnavailable, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrSourceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	default:
		// 4xx other than 429 means our request shape no longer matches
		// what the site expects.
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceParse, resp.StatusCode)
	}
}
