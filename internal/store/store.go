// Package store persists per-repository traffic history between runs.
package store

import (
	"github.com/woodsj1206/github-repo-stats/internal/domain"
)

// Store is the persistence interface for traffic history. The collector
// depends only on this interface; the on-disk format is an implementation
// detail as long as rows round-trip with their date key intact.
type Store interface {
	// Load returns all persisted points for one repository and metric
	// kind, ordered by ascending date. An absent key yields an empty
	// slice, which is the expected first-run state.
	Load(repo string, kind domain.MetricKind) ([]domain.TrafficPoint, error)
	// Save replaces the full persisted record set for the key.
	Save(repo string, kind domain.MetricKind, points []domain.TrafficPoint) error
}
