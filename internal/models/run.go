package models

import "time"

// SubmitOutcome classifies the result of posting one video to the catalog.
type SubmitOutcome int

const (
	SubmitPosted SubmitOutcome = iota
	SubmitDuplicate
	SubmitFailed
)

func (o SubmitOutcome) String() string {
	switch o {
	case SubmitPosted:
		return "posted"
	case SubmitDuplicate:
		return "duplicate"
	case SubmitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunResult summarizes one pipeline invocation. Built once per run and
// read-only after return.
type RunResult struct {
	RunID            string        `json:"run_id"`
	QueriesProcessed int           `json:"queries_processed"`
	PagesSearched    int           `json:"pages_searched"`
	VideosFound      int           `json:"videos_found"`
	VideosUnique     int           `json:"videos_unique"`
	VideosPosted     int           `json:"videos_posted"`
	VideosFailed     int           `json:"videos_failed"`
	Duplicates       int           `json:"duplicates"`
	Errors           []string      `json:"errors,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
}
