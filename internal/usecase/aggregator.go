package usecase

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
)

// TotalTraffic folds the merged per-repository point sets for one metric
// kind into a cross-repository series: for each day with at least one
// contributing repository, the sum of counts and the sum of uniques. A
// repository with no point on a given day simply contributes nothing, so
// the reduction is insensitive to map iteration order.
func TotalTraffic(perRepo map[string][]domain.TrafficPoint) []domain.TotalTrafficPoint {
	byDay := make(map[time.Time]*domain.TotalTrafficPoint)
	for _, points := range perRepo {
		for _, p := range points {
			day := domain.Day(p.Date)
			total, ok := byDay[day]
			if !ok {
				total = &domain.TotalTrafficPoint{Date: day}
				byDay[day] = total
			}
			total.Count += p.Count
			total.Uniques += p.Uniques
		}
	}

	series := make([]domain.TotalTrafficPoint, 0, len(byDay))
	for _, total := range byDay {
		series = append(series, *total)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// Snapshots builds the latest-value table from this run's samples, one row
// per repository, sorted by name. The table fully replaces the prior run's.
func Snapshots(samples []domain.RepoSample) []domain.RepositorySnapshot {
	snapshots := make([]domain.RepositorySnapshot, 0, len(samples))
	for _, s := range samples {
		snapshots = append(snapshots, domain.RepositorySnapshot{
			Name:      s.Name,
			Stars:     s.Stars,
			Forks:     s.Forks,
			Watchers:  s.Watchers,
			Timestamp: s.FetchedAt,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Name < snapshots[j].Name })
	return snapshots
}

// Summarize condenses one metric's per-repository values into a summary:
// grand total, best value, the repositories holding it, and the mean.
func Summarize(name string, perRepo map[string]int) domain.MetricSummary {
	summary := domain.MetricSummary{Name: name}
	if len(perRepo) == 0 {
		return summary
	}

	values := make([]float64, 0, len(perRepo))
	for _, v := range perRepo {
		values = append(values, float64(v))
	}
	// These cannot fail on a non-empty input.
	total, _ := stats.Sum(values)
	max, _ := stats.Max(values)
	mean, _ := stats.Mean(values)

	summary.Total = int(total)
	summary.Max = int(max)
	summary.Mean = mean
	for repo, v := range perRepo {
		if v == summary.Max {
			summary.TopRepos = append(summary.TopRepos, repo)
		}
	}
	sort.Strings(summary.TopRepos)
	return summary
}

// TrafficTotalsByRepo sums one metric kind's merged counts per repository,
// as input for Summarize.
func TrafficTotalsByRepo(perRepo map[string][]domain.TrafficPoint) map[string]int {
	totals := make(map[string]int, len(perRepo))
	for repo, points := range perRepo {
		sum := 0
		for _, p := range points {
			sum += p.Count
		}
		totals[repo] = sum
	}
	return totals
}

// TrafficUniquesByRepo sums one metric kind's merged uniques per repository.
func TrafficUniquesByRepo(perRepo map[string][]domain.TrafficPoint) map[string]int {
	totals := make(map[string]int, len(perRepo))
	for repo, points := range perRepo {
		sum := 0
		for _, p := range points {
			sum += p.Uniques
		}
		totals[repo] = sum
	}
	return totals
}
