// Package usecase contains the business logic of the application.
package usecase

import (
	"sort"
	"time"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
)

// Merge reconciles a freshly fetched traffic window against the persisted
// history for the same repository and metric kind. The result holds exactly
// one point per calendar day seen in either input, ordered by ascending date.
//
// Days present in both inputs take the incoming value: GitHub keeps accruing
// counts for days still inside the trailing window, so the fresh fetch is
// the more complete observation. Days present only in the history are older
// than the window and are preserved unchanged, which is how the accumulated
// history grows without bound despite the API exposing only 14 days.
//
// Merge is a pure function and idempotent: applying the same incoming batch
// twice yields the same result as applying it once. An empty existing slice
// is the normal first-run state, not an error.
func Merge(existing, incoming []domain.TrafficPoint) []domain.TrafficPoint {
	byDay := make(map[time.Time]domain.TrafficPoint, len(existing)+len(incoming))
	for _, p := range existing {
		p.Date = domain.Day(p.Date)
		byDay[p.Date] = p
	}
	for _, p := range incoming {
		p.Date = domain.Day(p.Date)
		byDay[p.Date] = p
	}

	merged := make([]domain.TrafficPoint, 0, len(byDay))
	for _, p := range byDay {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}
