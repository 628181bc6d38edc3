package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
	"github.com/woodsj1206/github-repo-stats/internal/gateway"
	"github.com/woodsj1206/github-repo-stats/internal/store"
)

// maxConcurrentFetches bounds the traffic fan-out against the API.
const maxConcurrentFetches = 5

// Collector runs one full pipeline pass: fetch, merge, persist, aggregate.
type Collector struct {
	fetcher gateway.Fetcher
	store   store.Store
	logger  *log.Logger
	now     func() time.Time
}

// RunResult is everything a single run produced, consumed by the report
// emitters.
type RunResult struct {
	Snapshots []domain.RepositorySnapshot                            `json:"snapshots"`
	Merged    map[domain.MetricKind]map[string][]domain.TrafficPoint `json:"-"`
	Totals    map[domain.MetricKind][]domain.TotalTrafficPoint       `json:"totals"`
	Summaries []domain.MetricSummary                                 `json:"summaries"`
	Skipped   []string                                               `json:"skipped,omitempty"`
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, st store.Store, logger *log.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		store:   st,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one collection pass. Per-repository fetch failures are
// contained: the repository is skipped for this run and its history left
// untouched. A history write failure aborts the run before any aggregate is
// produced, since a half-written history would corrupt the next run's
// baseline.
func (c *Collector) Run(ctx context.Context) (*RunResult, error) {
	c.logger.Println("Collector: starting run...")

	repos, err := c.fetcher.FetchRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	samples, skipped := c.fetchSamples(ctx, repos)
	c.logger.Printf("Collector: fetched %d samples, skipped %d repositories.\n", len(samples), len(skipped))

	merged, err := c.mergeAndPersist(samples)
	if err != nil {
		return nil, err
	}
	if err := c.loadSkippedHistory(skipped, merged); err != nil {
		return nil, err
	}

	result := &RunResult{
		Snapshots: Snapshots(samples),
		Merged:    merged,
		Totals:    make(map[domain.MetricKind][]domain.TotalTrafficPoint, len(domain.Kinds)),
		Skipped:   skipped,
	}
	for _, kind := range domain.Kinds {
		result.Totals[kind] = TotalTraffic(merged[kind])
	}
	result.Summaries = c.summarize(samples, merged)

	c.logger.Println("Collector: run complete.")
	return result, nil
}

// fetchSamples fetches traffic for every repository with a bounded number of
// requests in flight. Each slot of the results slice is owned by exactly one
// goroutine, so no locking is needed.
func (c *Collector) fetchSamples(ctx context.Context, repos []gateway.Repository) ([]domain.RepoSample, []string) {
	results := make([]*domain.RepoSample, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			traffic, err := c.fetcher.FetchTraffic(gctx, repo.Owner, repo.Name)
			if err != nil {
				c.logger.Printf("Warning: skipping %s this run: %v\n", repo.Name, err)
				return nil
			}
			results[i] = &domain.RepoSample{
				Name:      repo.Name,
				Stars:     repo.Stars,
				Forks:     repo.Forks,
				Watchers:  repo.Watchers,
				FetchedAt: c.now().UTC(),
				Traffic:   traffic,
			}
			return nil
		})
	}
	// Goroutines only ever return nil; per-repo failures are contained above.
	_ = g.Wait()

	samples := make([]domain.RepoSample, 0, len(repos))
	var skipped []string
	for i, sample := range results {
		if sample == nil {
			skipped = append(skipped, repos[i].Name)
			continue
		}
		samples = append(samples, *sample)
	}
	return samples, skipped
}

// mergeAndPersist reconciles each sample's traffic windows against the
// stored history and writes the merged sets back, returning them grouped by
// kind and repository.
func (c *Collector) mergeAndPersist(samples []domain.RepoSample) (map[domain.MetricKind]map[string][]domain.TrafficPoint, error) {
	merged := make(map[domain.MetricKind]map[string][]domain.TrafficPoint, len(domain.Kinds))
	for _, kind := range domain.Kinds {
		merged[kind] = make(map[string][]domain.TrafficPoint, len(samples))
	}

	for _, sample := range samples {
		for _, kind := range domain.Kinds {
			existing, err := c.store.Load(sample.Name, kind)
			if err != nil {
				return nil, fmt.Errorf("failed to load history: %w", err)
			}
			points := Merge(existing, sample.Traffic[kind])
			if err := c.store.Save(sample.Name, kind, points); err != nil {
				return nil, fmt.Errorf("failed to persist history: %w", err)
			}
			merged[kind][sample.Name] = points
		}
	}
	return merged, nil
}

// loadSkippedHistory folds the persisted history of repositories skipped
// this run into the merged sets, so the cross-repository totals keep
// covering their accumulated days. Skipping a repository is equivalent to
// merging an empty window: nothing is written back, but the history still
// counts.
func (c *Collector) loadSkippedHistory(skipped []string, merged map[domain.MetricKind]map[string][]domain.TrafficPoint) error {
	for _, name := range skipped {
		for _, kind := range domain.Kinds {
			existing, err := c.store.Load(name, kind)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			if len(existing) > 0 {
				merged[kind][name] = existing
			}
		}
	}
	return nil
}

func (c *Collector) summarize(samples []domain.RepoSample, merged map[domain.MetricKind]map[string][]domain.TrafficPoint) []domain.MetricSummary {
	stars := make(map[string]int, len(samples))
	forks := make(map[string]int, len(samples))
	watchers := make(map[string]int, len(samples))
	for _, s := range samples {
		stars[s.Name] = s.Stars
		forks[s.Name] = s.Forks
		watchers[s.Name] = s.Watchers
	}
	return []domain.MetricSummary{
		Summarize("stars", stars),
		Summarize("forks", forks),
		Summarize("watchers", watchers),
		Summarize("views", TrafficTotalsByRepo(merged[domain.Views])),
		Summarize("unique visitors", TrafficUniquesByRepo(merged[domain.Views])),
		Summarize("clones", TrafficTotalsByRepo(merged[domain.Clones])),
		Summarize("unique cloners", TrafficUniquesByRepo(merged[domain.Clones])),
	}
}
