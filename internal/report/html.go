package report

import (
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
	"github.com/woodsj1206/github-repo-stats/internal/usecase"
)

const summaryTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Repository Statistics for {{.User}}</title>
</head>
<body>
<h1>Repository Statistics for {{.User}}</h1>

<h2>Metric Summaries</h2>
<table border="1">
<tr><th>Metric</th><th>Total</th><th>Max</th><th>Top Repositories</th></tr>
{{- range .Summaries}}
<tr><td>{{.Name}}</td><td>{{.Total}}</td><td>{{.Max}}</td><td>{{range $i, $r := .TopRepos}}{{if $i}}, {{end}}{{$r}}{{end}}</td></tr>
{{- end}}
</table>

<h2>Repositories</h2>
<table border="1">
<tr><th>Repository</th><th>Stars</th><th>Forks</th><th>Watchers</th></tr>
{{- range .Snapshots}}
<tr><td>{{.Name}}</td><td>{{.Stars}}</td><td>{{.Forks}}</td><td>{{.Watchers}}</td></tr>
{{- end}}
</table>

<h2>Total Traffic</h2>
<table border="1">
<tr><th>Date</th><th>Views</th><th>Unique Visitors</th><th>Clones</th><th>Unique Cloners</th></tr>
{{- range .Traffic}}
<tr><td>{{.Date}}</td><td>{{.Views}}</td><td>{{.UniqueVisitors}}</td><td>{{.Clones}}</td><td>{{.UniqueCloners}}</td></tr>
{{- end}}
</table>
{{- if .Skipped}}

<p>Skipped this run: {{range $i, $r := .Skipped}}{{if $i}}, {{end}}{{$r}}{{end}}</p>
{{- end}}
</body>
</html>
`

// trafficRow is one date of the combined traffic table on the summary page.
type trafficRow struct {
	Date           string
	Views          int
	UniqueVisitors int
	Clones         int
	UniqueCloners  int
}

type summaryData struct {
	User      string
	Summaries []domain.MetricSummary
	Snapshots []domain.RepositorySnapshot
	Traffic   []trafficRow
	Skipped   []string
}

// HTMLEmitter renders the run summary as a single static HTML page.
type HTMLEmitter struct {
	dir    string
	user   string
	tmpl   *template.Template
	logger *log.Logger
}

// NewHTMLEmitter creates the output directory if needed.
func NewHTMLEmitter(dir, user string, logger *log.Logger) (*HTMLEmitter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmpl, err := template.New("summary").Parse(summaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary template: %w", err)
	}
	return &HTMLEmitter{dir: dir, user: user, tmpl: tmpl, logger: logger}, nil
}

// Emit writes index.html for one run.
func (e *HTMLEmitter) Emit(result *usecase.RunResult) error {
	data := summaryData{
		User:      e.user,
		Summaries: result.Summaries,
		Snapshots: result.Snapshots,
		Traffic:   combineTraffic(result.Totals),
		Skipped:   result.Skipped,
	}

	path := filepath.Join(e.dir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary page: %w", err)
	}
	defer f.Close()

	if err := e.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render summary page: %w", err)
	}
	e.logger.Printf("Wrote %s.\n", path)
	return nil
}

func combineTraffic(totals map[domain.MetricKind][]domain.TotalTrafficPoint) []trafficRow {
	byDate := make(map[string]*trafficRow)
	for _, t := range totals[domain.Views] {
		key := t.Date.UTC().Format(dateLayout)
		byDate[key] = &trafficRow{Date: key, Views: t.Count, UniqueVisitors: t.Uniques}
	}
	for _, t := range totals[domain.Clones] {
		key := t.Date.UTC().Format(dateLayout)
		row, ok := byDate[key]
		if !ok {
			row = &trafficRow{Date: key}
			byDate[key] = row
		}
		row.Clones = t.Count
		row.UniqueCloners = t.Uniques
	}

	rows := make([]trafficRow, 0, len(byDate))
	for _, row := range byDate {
		rows = append(rows, *row)
	}
	// Date strings are zero-padded ISO dates, so string order is date order.
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}
