package linkcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdigest/jobdigest/internal/domain"
)

type stubStore struct {
	mu      sync.Mutex
	pending []domain.Job
	results map[int64][]bool
}

func newStubStore(jobs ...domain.Job) *stubStore {
	return &stubStore{pending: jobs, results: make(map[int64][]bool)}
}

func (s *stubStore) JobsNeedingCheck(_ context.Context, _ time.Duration, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubStore) RecordLinkResult(_ context.Context, jobID int64, working bool, _ time.Time, brokenThreshold int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobID] = append(s.results[jobID], working)

	consecutive := 0
	for _, w := range s.results[jobID] {
		if w {
			consecutive = 0
		} else {
			consecutive++
		}
	}
	if consecutive >= brokenThreshold {
		for i, job := range s.pending {
			if job.ID == jobID {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				break
			}
		}
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPProber_Probe(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()

	goneSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer goneSrv.Close()

	headHostile := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer headHostile.Close()

	prober := NewHTTPProber(2 * time.Second)
	ctx := context.Background()

	assert.True(t, prober.Probe(ctx, okSrv.URL))
	assert.False(t, prober.Probe(ctx, goneSrv.URL))
	assert.True(t, prober.Probe(ctx, headHostile.URL))
	assert.False(t, prober.Probe(ctx, "http://127.0.0.1:1"))
}

func TestMonitor_Sweep(t *testing.T) {
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer working.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer broken.Close()

	store := newStubStore(
		domain.Job{ID: 1, ApplyURL: working.URL},
		domain.Job{ID: 2, ApplyURL: broken.URL},
	)

	monitor := NewMonitor(store, NewHTTPProber(2*time.Second), discardLogger(), 100, time.Hour, 2, 3)

	report, err := monitor.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Working)
	assert.Equal(t, 1, report.Broken)
	assert.Equal(t, []bool{true}, store.results[1])
	assert.Equal(t, []bool{false}, store.results[2])
}

func TestMonitor_Sweep_DeactivatesAfterThreshold(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer broken.Close()

	store := newStubStore(domain.Job{ID: 7, ApplyURL: broken.URL})
	monitor := NewMonitor(store, NewHTTPProber(2*time.Second), discardLogger(), 100, time.Hour, 1, 3)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := monitor.Sweep(ctx)
		require.NoError(t, err)
	}
	assert.Len(t, store.results[7], 3)

	// Deactivated job is filtered out of the next selection, so a fourth
	// probe never happens.
	report, err := monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)
	assert.Len(t, store.results[7], 3)
}

func TestMonitor_Sweep_EmptyBatch(t *testing.T) {
	store := newStubStore()
	monitor := NewMonitor(store, NewHTTPProber(time.Second), discardLogger(), 100, time.Hour, 2, 3)

	report, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report)
}
