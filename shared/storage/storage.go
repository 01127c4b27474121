package storage

import (
	"context"
	"time"

	"ingest-stack/internal/models"
)

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	RunID            string        `json:"run_id"`
	Queries          []string      `json:"queries,omitempty"`
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

// FromResult converts a finished run into its history record.
func FromResult(result *models.RunResult) *RunRecord {
	return &RunRecord{
		RunID:            result.RunID,
		QueriesProcessed: result.QueriesProcessed,
		PagesSearched:    result.PagesSearched,
		VideosFound:      result.VideosFound,
		VideosUnique:     result.VideosUnique,
		VideosPosted:     result.VideosPosted,
		VideosFailed:     result.VideosFailed,
		Duplicates:       result.Duplicates,
		Errors:           result.Errors,
		StartedAt:        result.StartedAt,
		Duration:         result.Duration,
	}
}

// Filter narrows a history query. Query matches records whose query list
// contains the text.
type Filter struct {
	RunID       string
	Query       string
	Since       *time.Time
	HadFailures *bool
	Limit       int
	Offset      int
}

// Backend stores and queries run history. Query returns records ordered
// newest first.
type Backend interface {
	Save(ctx context.Context, record *RunRecord) error
	Query(ctx context.Context, filter Filter) ([]*RunRecord, error)
	Close() error
}
