// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// MetricKind identifies one of the two independently tracked traffic categories.
type MetricKind string

const (
	Clones MetricKind = "clones"
	Views  MetricKind = "views"
)

// Kinds lists all metric kinds in a fixed order, for deterministic iteration.
var Kinds = []MetricKind{Clones, Views}

// TrafficPoint is one day of traffic for one repository and one metric kind.
// Date carries no time component; together with the repository name and the
// metric kind it is the natural key of the row.
type TrafficPoint struct {
	Date    time.Time `json:"date"`
	Count   int       `json:"count"`
	Uniques int       `json:"uniques"`
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RepoSample is one fetched metric sample: the repository's current
// popularity counters plus the trailing-window traffic returned by the API.
type RepoSample struct {
	Name      string
	Stars     int
	Forks     int
	Watchers  int
	FetchedAt time.Time
	// Traffic holds the trailing 14-day window per metric kind,
	// ordered oldest to newest. A missing kind means the API
	// returned no data for it.
	Traffic map[MetricKind][]TrafficPoint
}

// RepositorySnapshot is one row of the latest-value table: the popularity
// counters of a single repository at fetch time. The table is fully replaced
// each run.
type RepositorySnapshot struct {
	Name      string    `json:"name"`
	Stars     int       `json:"stars"`
	Forks     int       `json:"forks"`
	Watchers  int       `json:"watchers"`
	Timestamp time.Time `json:"timestamp"`
}

// TotalTrafficPoint is one day of traffic summed across all repositories.
type TotalTrafficPoint struct {
	Date    time.Time `json:"date"`
	Count   int       `json:"total_count"`
	Uniques int       `json:"total_uniques"`
}

// MetricSummary condenses one popularity or traffic metric across all
// repositories: the grand total, the best repository value, which
// repositories hold it, and the mean per-repository value.
type MetricSummary struct {
	Name     string   `json:"name"`
	Total    int      `json:"total"`
	Max      int      `json:"max"`
	TopRepos []string `json:"top_repos"`
	Mean     float64  `json:"mean"`
}
