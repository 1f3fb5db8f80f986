package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdigest/jobdigest/internal/domain"
)

type fakeAdapter struct {
	name     string
	postings []domain.RawPosting
	errs     []error
	calls    int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, _ Query) ([]domain.RawPosting, error) {
	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return f.postings, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func posting(source, id string) domain.RawPosting {
	return domain.RawPosting{
		Source:      source,
		SourceJobID: id,
		Title:       "Backend Engineer",
		Company:     "Acme",
		ApplyURL:    "https://example.com/" + id,
	}
}

func TestAggregator_Collect(t *testing.T) {
	a := &fakeAdapter{name: "alpha", postings: []domain.RawPosting{posting("alpha", "1"), posting("alpha", "2")}}
	b := &fakeAdapter{name: "beta", postings: []domain.RawPosting{posting("beta", "7")}}

	agg := NewAggregator([]Adapter{a, b}, nil, testLogger(), 2, 0, 0)

	postings, report, err := agg.Collect(context.Background(), Query{Keyword: "go"})
	require.NoError(t, err)

	require.Len(t, postings, 3)
	assert.Equal(t, "1", postings[0].SourceJobID)
	assert.Equal(t, "2", postings[1].SourceJobID)
	assert.Equal(t, "7", postings[2].SourceJobID)

	require.Len(t, report.Results, 2)
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, 2, report.Results[0].Fetched)
	assert.Equal(t, 1, report.Results[1].Fetched)
}

func TestAggregator_Collect_FailureIsolated(t *testing.T) {
	broken := &fakeAdapter{
		name: "broken",
		errs: []error{fmt.Errorf("%w: status 502", domain.ErrSourceUnavailable)},
	}
	healthy := &fakeAdapter{name: "healthy", postings: []domain.RawPosting{posting("healthy", "9")}}

	agg := NewAggregator([]Adapter{broken, healthy}, nil, testLogger(), 2, 0, 0)

	postings, report, err := agg.Collect(context.Background(), Query{Keyword: "go"})
	require.NoError(t, err)

	require.Len(t, postings, 1)
	assert.Equal(t, "healthy", postings[0].Source)

	assert.Equal(t, 1, report.Failed())
	assert.ErrorIs(t, report.Results[0].Err, domain.ErrSourceUnavailable)
	assert.NoError(t, report.Results[1].Err)
}

func TestAggregator_Collect_RetriesRateLimited(t *testing.T) {
	flaky := &fakeAdapter{
		name:     "flaky",
		postings: []domain.RawPosting{posting("flaky", "3")},
		errs: []error{
			fmt.Errorf("%w: status 429", domain.ErrSourceRateLimited),
			fmt.Errorf("%w: status 429", domain.ErrSourceRateLimited),
		},
	}

	agg := NewAggregator([]Adapter{flaky}, nil, testLogger(), 1, 2, time.Millisecond)

	postings, report, err := agg.Collect(context.Background(), Query{Keyword: "go"})
	require.NoError(t, err)

	assert.Equal(t, 3, flaky.calls)
	require.Len(t, postings, 1)
	assert.Equal(t, 0, report.Failed())
}

func TestAggregator_Collect_ParseErrorNotRetried(t *testing.T) {
	stale := &fakeAdapter{
		name: "stale",
		errs: []error{fmt.Errorf("%w: status 410", domain.ErrSourceParse)},
	}

	agg := NewAggregator([]Adapter{stale}, nil, testLogger(), 1, 3, time.Millisecond)

	postings, report, err := agg.Collect(context.Background(), Query{Keyword: "go"})
	require.NoError(t, err)

	assert.Equal(t, 1, stale.calls)
	assert.Empty(t, postings)
	assert.Equal(t, 1, report.Failed())
	assert.ErrorIs(t, report.Results[0].Err, domain.ErrSourceParse)
}
