package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{"date", "count", "uniques"}

// CSVStore keeps one CSV file per (repository, metric kind) key under a
// single directory. Rows are `date,count,uniques` with dates formatted
// 2006-01-02.
type CSVStore struct {
	dir    string
	logger *log.Logger
}

// NewCSVStore creates the data directory if needed and returns a store
// rooted there.
func NewCSVStore(dir string, logger *log.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &CSVStore{dir: dir, logger: logger}, nil
}

func (s *CSVStore) path(repo string, kind domain.MetricKind) string {
	// Repository names may not be safe file names verbatim.
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, repo)
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", safe, kind))
}

// Load reads all persisted points for the key, ordered by ascending date.
// A missing file is the first-run state and yields an empty slice. Rows that
// fail to parse are dropped with a warning rather than aborting the load.
func (s *CSVStore) Load(repo string, kind domain.MetricKind) ([]domain.TrafficPoint, error) {
	f, err := os.Open(s.path(repo, kind))
	if errors.Is(err, os.ErrNotExist) {
		return []domain.TrafficPoint{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history for %s/%s: %w", repo, kind, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	points := []domain.TrafficPoint{}
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		// A row with broken framing (stray quotes and the like) is
		// dropped just like one with an unparseable value; only
		// I/O-level failures abort the load.
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			s.logger.Printf("Warning: dropping malformed history row %d for %s/%s: %v\n", row, repo, kind, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history for %s/%s: %w", repo, kind, err)
		}
		if row == 1 && len(record) > 0 && record[0] == csvHeader[0] {
			continue
		}
		point, err := parseRecord(record)
		if err != nil {
			s.logger.Printf("Warning: dropping malformed history row %d for %s/%s: %v\n", row, repo, kind, err)
			continue
		}
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// Save replaces the full record set for the key. The write goes to a
// temporary file first and is renamed into place, so a failed run cannot
// leave a truncated history behind as the next run's baseline.
func (s *CSVStore) Save(repo string, kind domain.MetricKind, points []domain.TrafficPoint) error {
	path := s.path(repo, kind)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file for %s/%s: %w", repo, kind, err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history header for %s/%s: %w", repo, kind, err)
	}
	for _, p := range points {
		row := []string{
			p.Date.UTC().Format(dateLayout),
			strconv.Itoa(p.Count),
			strconv.Itoa(p.Uniques),
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write history row for %s/%s: %w", repo, kind, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush history for %s/%s: %w", repo, kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp history file for %s/%s: %w", repo, kind, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace history for %s/%s: %w", repo, kind, err)
	}
	return nil
}

func parseRecord(record []string) (domain.TrafficPoint, error) {
	if len(record) != 3 {
		return domain.TrafficPoint{}, fmt.Errorf("expected 3 fields, got %d", len(record))
	}
	date, err := time.ParseInLocation(dateLayout, record[0], time.UTC)
	if err != nil {
		return domain.TrafficPoint{}, fmt.Errorf("invalid date %q: %w", record[0], err)
	}
	count, err := strconv.Atoi(record[1])
	if err != nil {
		return domain.TrafficPoint{}, fmt.Errorf("invalid count %q: %w", record[1], err)
	}
	uniques, err := strconv.Atoi(record[2])
	if err != nil {
		return domain.TrafficPoint{}, fmt.Errorf("invalid uniques %q: %w", record[2], err)
	}
	return domain.TrafficPoint{Date: date, Count: count, Uniques: uniques}, nil
}
