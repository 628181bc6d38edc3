// Package report writes the run's aggregated output as CSV tables and an
// HTML summary page.
package report

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
	"github.com/woodsj1206/github-repo-stats/internal/usecase"
)

const dateLayout = "2006-01-02"

// CSVEmitter writes the CSV report files into an output directory.
type CSVEmitter struct {
	dir    string
	logger *log.Logger
}

// NewCSVEmitter creates the output directory if needed.
func NewCSVEmitter(dir string, logger *log.Logger) (*CSVEmitter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &CSVEmitter{dir: dir, logger: logger}, nil
}

// Emit writes all CSV reports for one run: the repository snapshot table,
// one per-repository traffic table and one total-traffic table per metric
// kind, and the combined total-traffic table.
func (e *CSVEmitter) Emit(result *usecase.RunResult) error {
	if err := e.writeSnapshots(result.Snapshots); err != nil {
		return err
	}
	for _, kind := range domain.Kinds {
		if err := e.writeTraffic(kind, result.Merged[kind]); err != nil {
			return err
		}
		if err := e.writeTotals(kind, result.Totals[kind]); err != nil {
			return err
		}
	}
	return e.writeCombinedTotals(result.Totals)
}

func (e *CSVEmitter) writeSnapshots(snapshots []domain.RepositorySnapshot) error {
	rows := [][]string{{"repository", "stars", "forks", "watchers", "timestamp"}}
	for _, s := range snapshots {
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.Stars),
			strconv.Itoa(s.Forks),
			strconv.Itoa(s.Watchers),
			s.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return e.writeFile("repository_metrics.csv", rows)
}

func (e *CSVEmitter) writeTraffic(kind domain.MetricKind, perRepo map[string][]domain.TrafficPoint) error {
	repos := make([]string, 0, len(perRepo))
	for repo := range perRepo {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	rows := [][]string{{"date", "repository", "count", "uniques"}}
	for _, repo := range repos {
		for _, p := range perRepo[repo] {
			rows = append(rows, []string{
				p.Date.UTC().Format(dateLayout),
				repo,
				strconv.Itoa(p.Count),
				strconv.Itoa(p.Uniques),
			})
		}
	}
	return e.writeFile(fmt.Sprintf("traffic_%s.csv", kind), rows)
}

func (e *CSVEmitter) writeTotals(kind domain.MetricKind, totals []domain.TotalTrafficPoint) error {
	rows := [][]string{{"date", "total_count", "total_uniques"}}
	for _, t := range totals {
		rows = append(rows, []string{
			t.Date.UTC().Format(dateLayout),
			strconv.Itoa(t.Count),
			strconv.Itoa(t.Uniques),
		})
	}
	return e.writeFile(fmt.Sprintf("total_traffic_%s.csv", kind), rows)
}

// writeCombinedTotals writes the per-date table with views and clones side
// by side. Dates present for one kind but not the other get zeros.
func (e *CSVEmitter) writeCombinedTotals(totals map[domain.MetricKind][]domain.TotalTrafficPoint) error {
	type combined struct {
		views, uniqueVisitors, clones, uniqueCloners int
	}
	byDate := make(map[string]*combined)
	for _, t := range totals[domain.Views] {
		key := t.Date.UTC().Format(dateLayout)
		byDate[key] = &combined{views: t.Count, uniqueVisitors: t.Uniques}
	}
	for _, t := range totals[domain.Clones] {
		key := t.Date.UTC().Format(dateLayout)
		c, ok := byDate[key]
		if !ok {
			c = &combined{}
			byDate[key] = c
		}
		c.clones = t.Count
		c.uniqueCloners = t.Uniques
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	rows := [][]string{{"date", "total_views", "unique_visitors", "total_clones", "unique_cloners"}}
	for _, date := range dates {
		c := byDate[date]
		rows = append(rows, []string{
			date,
			strconv.Itoa(c.views),
			strconv.Itoa(c.uniqueVisitors),
			strconv.Itoa(c.clones),
			strconv.Itoa(c.uniqueCloners),
		})
	}
	return e.writeFile("total_traffic.csv", rows)
}

func (e *CSVEmitter) writeFile(name string, rows [][]string) error {
	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write report %s: %w", name, err)
	}
	e.logger.Printf("Wrote %s (%d rows).\n", path, len(rows)-1)
	return nil
}
