package monitoring

import (
	"ingest-stack/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingest runs by outcome",
		},
		[]string{"outcome"},
	)

	VideosTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_videos_total",
			Help: "Total number of videos submitted to the catalog by outcome",
		},
		[]string{"outcome"},
	)

	PagesSearchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_pages_searched_total",
			Help: "Total number of search result pages fetched",
		},
	)

	VideosFoundTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_videos_found_total",
			Help: "Total number of videos returned by search before deduplication",
		},
	)

	VideosUniqueTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_videos_unique_total",
			Help: "Total number of videos that survived deduplication",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Duration of ingest runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// RecordRun updates the metrics from a finished run.
func RecordRun(result *models.RunResult, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	RunsTotal.WithLabelValues(outcome).Inc()

	if result == nil {
		return
	}

	PagesSearchedTotal.Add(float64(result.PagesSearched))
	VideosFoundTotal.Add(float64(result.VideosFound))
	VideosUniqueTotal.Add(float64(result.VideosUnique))
	VideosTotal.WithLabelValues("posted").Add(float64(result.VideosPosted))
	VideosTotal.WithLabelValues("duplicate").Add(float64(result.Duplicates))
	VideosTotal.WithLabelValues("failed").Add(float64(result.VideosFailed))
	RunDuration.Observe(result.Duration.Seconds())
}
