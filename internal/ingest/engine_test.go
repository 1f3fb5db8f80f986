package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdigest/jobdigest/internal/domain"
)

type memStore struct {
	jobs    map[domain.JobKey]domain.Job
	failOn  string
	upserts int
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[domain.JobKey]domain.Job)}
}

func (m *memStore) Upsert(_ context.Context, job domain.Job) (bool, error) {
	if m.failOn != "" && job.SourceJobID == m.failOn {
		return false, errors.New("connection reset")
	}
	m.upserts++
	key := job.Key()
	_, exists := m.jobs[key]
	m.jobs[key] = job
	return !exists, nil
}

func raw(id, title string) domain.RawPosting {
	return domain.RawPosting{
		Source:      "adzuna",
		SourceJobID: id,
		Title:       title,
		Company:     "Acme",
		ApplyURL:    "https://example.com/" + id,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_Ingest(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, discardLogger())

	report, err := engine.Ingest(context.Background(), []domain.RawPosting{
		raw("1", "Backend Engineer"),
		raw("2", "Frontend Engineer"),
		{Source: "adzuna", SourceJobID: "3", ApplyURL: "https://example.com/3"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 1, report.Rejected)
	assert.Len(t, store.jobs, 2)
}

func TestEngine_Ingest_Idempotent(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, discardLogger())
	batch := []domain.RawPosting{raw("1", "Backend Engineer"), raw("2", "Frontend Engineer")}

	first, err := engine.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := engine.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Len(t, store.jobs, 2)
}

func TestEngine_Ingest_StoreFailureAborts(t *testing.T) {
	store := newMemStore()
	store.failOn = "2"
	engine := NewEngine(store, discardLogger())

	report, err := engine.Ingest(context.Background(), []domain.RawPosting{
		raw("1", "Backend Engineer"),
		raw("2", "Frontend Engineer"),
		raw("3", "Data Engineer"),
	})
	require.Error(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, store.upserts)
}
