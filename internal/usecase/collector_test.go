package usecase

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
	"github.com/woodsj1206/github-repo-stats/internal/gateway"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchRepositories(ctx context.Context) ([]gateway.Repository, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.Repository), args.Error(1)
}

func (m *mockFetcher) FetchTraffic(ctx context.Context, owner, repo string) (map[domain.MetricKind][]domain.TrafficPoint, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.MetricKind][]domain.TrafficPoint), args.Error(1)
}

// memStore is an in-memory Store for collector tests.
type memStore struct {
	data    map[string][]domain.TrafficPoint
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]domain.TrafficPoint)}
}

func (s *memStore) key(repo string, kind domain.MetricKind) string {
	return repo + "/" + string(kind)
}

func (s *memStore) Load(repo string, kind domain.MetricKind) ([]domain.TrafficPoint, error) {
	return s.data[s.key(repo, kind)], nil
}

func (s *memStore) Save(repo string, kind domain.MetricKind, points []domain.TrafficPoint) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[s.key(repo, kind)] = points
	return nil
}

func newTestCollector(fetcher gateway.Fetcher, st *memStore) *Collector {
	c := NewCollector(fetcher, st, log.New(io.Discard, "", 0))
	c.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCollector_Run(t *testing.T) {
	repoA := gateway.Repository{Owner: "someone", Name: "repo-a", Stars: 10, Forks: 2, Watchers: 10}
	repoB := gateway.Repository{Owner: "someone", Name: "repo-b", Stars: 1, Forks: 0, Watchers: 1}

	trafficA := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: {point("2024-01-14", 3, 2)},
		domain.Views:  {point("2024-01-14", 8, 5)},
	}
	trafficB := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: {},
		domain.Views:  {point("2024-01-14", 2, 1)},
	}

	fetcher := new(mockFetcher)
	fetcher.On("FetchRepositories", mock.Anything).Return([]gateway.Repository{repoA, repoB}, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-a").Return(trafficA, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-b").Return(trafficB, nil)

	st := newMemStore()
	collector := newTestCollector(fetcher, st)

	result, err := collector.Run(context.Background())
	require.NoError(t, err)

	// Snapshot table: one row per repository, sorted by name.
	require.Len(t, result.Snapshots, 2)
	assert.Equal(t, "repo-a", result.Snapshots[0].Name)
	assert.Equal(t, 10, result.Snapshots[0].Stars)
	assert.Equal(t, "repo-b", result.Snapshots[1].Name)

	// Totals: repo-b has no clone point that day, so it contributes zero.
	assert.Equal(t, []domain.TotalTrafficPoint{
		{Date: day("2024-01-14"), Count: 3, Uniques: 2},
	}, result.Totals[domain.Clones])
	assert.Equal(t, []domain.TotalTrafficPoint{
		{Date: day("2024-01-14"), Count: 10, Uniques: 6},
	}, result.Totals[domain.Views])

	// Merged sets were persisted.
	saved, err := st.Load("repo-a", domain.Views)
	require.NoError(t, err)
	assert.Equal(t, []domain.TrafficPoint{point("2024-01-14", 8, 5)}, saved)

	assert.Empty(t, result.Skipped)
	fetcher.AssertExpectations(t)
}

func TestCollector_Run_SkipsFailedRepository(t *testing.T) {
	repoA := gateway.Repository{Owner: "someone", Name: "repo-a", Stars: 10}
	repoB := gateway.Repository{Owner: "someone", Name: "repo-b", Stars: 1}

	trafficA := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: {point("2024-01-14", 3, 2)},
		domain.Views:  {point("2024-01-14", 8, 5)},
	}

	fetcher := new(mockFetcher)
	fetcher.On("FetchRepositories", mock.Anything).Return([]gateway.Repository{repoA, repoB}, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-a").Return(trafficA, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-b").Return(nil, gateway.ErrNoTrafficData)

	st := newMemStore()
	// Pre-seed history for the failing repository; it must stay untouched.
	st.data[st.key("repo-b", domain.Views)] = []domain.TrafficPoint{point("2024-01-01", 5, 3)}

	collector := newTestCollector(fetcher, st)

	result, err := collector.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"repo-b"}, result.Skipped)
	require.Len(t, result.Snapshots, 1)
	assert.Equal(t, "repo-a", result.Snapshots[0].Name)

	// History of the skipped repository is untouched.
	saved, err := st.Load("repo-b", domain.Views)
	require.NoError(t, err)
	assert.Equal(t, []domain.TrafficPoint{point("2024-01-01", 5, 3)}, saved)

	fetcher.AssertExpectations(t)
}

// TestCollector_Run_SkippedHistoryStaysInTotals covers the failure
// semantics: a repository whose fetch failed this run still contributes its
// accumulated history to the total traffic series, exactly as if an empty
// window had been merged. The totals must never shrink because one fetch
// failed.
func TestCollector_Run_SkippedHistoryStaysInTotals(t *testing.T) {
	repoA := gateway.Repository{Owner: "someone", Name: "repo-a"}
	repoB := gateway.Repository{Owner: "someone", Name: "repo-b"}

	trafficA := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: {point("2024-01-14", 1, 1)},
		domain.Views:  {},
	}

	fetcher := new(mockFetcher)
	fetcher.On("FetchRepositories", mock.Anything).Return([]gateway.Repository{repoA, repoB}, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-a").Return(trafficA, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-b").Return(nil, gateway.ErrNoTrafficData)

	st := newMemStore()
	st.data[st.key("repo-b", domain.Clones)] = []domain.TrafficPoint{point("2024-01-01", 100, 40)}

	collector := newTestCollector(fetcher, st)

	result, err := collector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"repo-b"}, result.Skipped)

	// The skipped repository's past days remain in the series.
	assert.Equal(t, []domain.TotalTrafficPoint{
		{Date: day("2024-01-01"), Count: 100, Uniques: 40},
		{Date: day("2024-01-14"), Count: 1, Uniques: 1},
	}, result.Totals[domain.Clones])
	assert.Equal(t, []domain.TrafficPoint{point("2024-01-01", 100, 40)}, result.Merged[domain.Clones]["repo-b"])

	// Its summary contribution comes from history too.
	for _, s := range result.Summaries {
		if s.Name == "clones" {
			assert.Equal(t, 101, s.Total)
			assert.Equal(t, []string{"repo-b"}, s.TopRepos)
		}
	}
}

func TestCollector_Run_AbortsOnStoreFailure(t *testing.T) {
	repoA := gateway.Repository{Owner: "someone", Name: "repo-a"}
	trafficA := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: {point("2024-01-14", 3, 2)},
		domain.Views:  {point("2024-01-14", 8, 5)},
	}

	fetcher := new(mockFetcher)
	fetcher.On("FetchRepositories", mock.Anything).Return([]gateway.Repository{repoA}, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-a").Return(trafficA, nil)

	st := newMemStore()
	st.saveErr = errors.New("disk full")

	collector := newTestCollector(fetcher, st)

	result, err := collector.Run(context.Background())
	assert.Error(t, err)
	assert.ErrorContains(t, err, "failed to persist history")
	assert.Nil(t, result)
}

func TestCollector_Run_ListFailureIsFatal(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchRepositories", mock.Anything).Return(nil, errors.New("github api error"))

	collector := newTestCollector(fetcher, newMemStore())

	result, err := collector.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, result)
}

// TestCollector_Run_MergesAcrossRuns drives two runs over the same store and
// checks the accumulated history: the overlapping day takes the fresher
// value, days outside the new window survive.
func TestCollector_Run_MergesAcrossRuns(t *testing.T) {
	repoA := gateway.Repository{Owner: "someone", Name: "repo-a"}

	firstWindow := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: {point("2024-01-01", 5, 3), point("2024-01-02", 2, 1)},
		domain.Views:  {},
	}
	secondWindow := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: {point("2024-01-02", 9, 4), point("2024-01-03", 1, 1)},
		domain.Views:  {},
	}

	st := newMemStore()

	fetcher := new(mockFetcher)
	fetcher.On("FetchRepositories", mock.Anything).Return([]gateway.Repository{repoA}, nil)
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-a").Return(firstWindow, nil).Once()
	fetcher.On("FetchTraffic", mock.Anything, "someone", "repo-a").Return(secondWindow, nil).Once()

	collector := newTestCollector(fetcher, st)

	_, err := collector.Run(context.Background())
	require.NoError(t, err)
	result, err := collector.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.TrafficPoint{
		point("2024-01-01", 5, 3),
		point("2024-01-02", 9, 4),
		point("2024-01-03", 1, 1),
	}, result.Merged[domain.Clones]["repo-a"])
}
