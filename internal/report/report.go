package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	"ingest-stack/shared/storage"
)

// Summary aggregates a window of run history.
type Summary struct {
	Runs           int                  `json:"runs"`
	RunsWithErrors int                  `json:"runs_with_errors"`
	Queries        []string             `json:"queries,omitempty"`
	PagesSearched  int                  `json:"pages_searched"`
	VideosFound    int                  `json:"videos_found"`
	VideosUnique   int                  `json:"videos_unique"`
	VideosPosted   int                  `json:"videos_posted"`
	VideosFailed   int                  `json:"videos_failed"`
	Duplicates     int                  `json:"duplicates"`
	FirstRun       time.Time            `json:"first_run"`
	LastRun        time.Time            `json:"last_run"`
	TotalDuration  time.Duration        `json:"total_duration"`
	Records        []*storage.RunRecord `json:"records"`
}

// Generate folds run records, ordered newest first, into a summary.
func Generate(records []*storage.RunRecord) *Summary {
	summary := &Summary{
		Runs:    len(records),
		Records: records,
	}

	seenQueries := make(map[string]bool)
	for _, r := range records {
		summary.PagesSearched += r.PagesSearched
		summary.VideosFound += r.VideosFound
		summary.VideosUnique += r.VideosUnique
		summary.VideosPosted += r.VideosPosted
		summary.VideosFailed += r.VideosFailed
		summary.Duplicates += r.Duplicates
		summary.TotalDuration += r.Duration

		if r.VideosFailed > 0 || len(r.Errors) > 0 {
			summary.RunsWithErrors++
		}

		for _, q := range r.Queries {
			if !seenQueries[q] {
				seenQueries[q] = true
				summary.Queries = append(summary.Queries, q)
			}
		}
	}
	sort.Strings(summary.Queries)

	if len(records) > 0 {
		summary.LastRun = records[0].StartedAt
		summary.FirstRun = records[len(records)-1].StartedAt
	}

	return summary
}

const textReport = `{{if eq .Runs 0}}No runs recorded.
{{else}}Ingest history: {{.Runs}} runs ({{.RunsWithErrors}} with failures)
Window: {{fmtTime .FirstRun}} to {{fmtTime .LastRun}}
{{if .Queries}}Queries: {{join .Queries ", "}}
{{end}}Pages searched: {{.PagesSearched}}
Videos found: {{.VideosFound}} ({{.VideosUnique}} new)
Submitted: {{.VideosPosted}} posted, {{.Duplicates}} duplicates, {{.VideosFailed}} failed
Total time: {{fmtDuration .TotalDuration}}

{{range .Records}}{{fmtTime .StartedAt}}  {{.RunID}}  posted={{.VideosPosted}} duplicates={{.Duplicates}} failed={{.VideosFailed}}{{if .Errors}} errors={{len .Errors}}{{end}}
{{end}}{{end}}`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"fmtTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
	"fmtDuration": func(d time.Duration) string {
		return d.Round(time.Second).String()
	},
	"join": strings.Join,
}).Parse(textReport))

// WriteText renders the summary as a plain-text report.
func WriteText(w io.Writer, summary *Summary) error {
	if err := reportTemplate.Execute(w, summary); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteJSON renders the summary as indented JSON.
func WriteJSON(w io.Writer, summary *Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
