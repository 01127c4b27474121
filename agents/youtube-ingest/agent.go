package youtubeingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"ingest-stack/agents/youtube-ingest/catalog"
	"ingest-stack/agents/youtube-ingest/youtube"
	"ingest-stack/internal/models"
	"ingest-stack/shared/config"
	"ingest-stack/shared/monitoring"
	"ingest-stack/shared/scheduler"
	"ingest-stack/shared/storage"
)

// IngestMetrics summarizes one ingest run
type IngestMetrics struct {
	QueriesProcessed int `json:"queries_processed"`
	PagesSearched    int `json:"pages_searched"`
	VideosFound      int `json:"videos_found"`
	VideosUnique     int `json:"videos_unique"`
	VideosPosted     int `json:"videos_posted"`
	Duplicates       int `json:"duplicates"`
	VideosFailed     int `json:"videos_failed"`
}

// GetSummary implements the scheduler.Metrics interface
func (m IngestMetrics) GetSummary() string {
	return fmt.Sprintf("%d posted, %d duplicates, %d failed (%d found across %d pages)",
		m.VideosPosted, m.Duplicates, m.VideosFailed, m.VideosFound, m.PagesSearched)
}

// IngestAgent implements the scheduler.Agent interface
type IngestAgent struct {
	config   *config.Config
	pipeline *Pipeline
	history  storage.Backend
}

// NewIngestAgent creates the agent. history may be nil when run history is
// disabled.
func NewIngestAgent(cfg *config.Config, history storage.Backend) *IngestAgent {
	return &IngestAgent{
		config:  cfg,
		history: history,
	}
}

func (a *IngestAgent) Name() string {
	return "YouTube Ingest"
}

func (a *IngestAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())

	if a.pipeline == nil {
		searchClient, err := youtube.NewClient(context.Background(), &a.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		log.Println("YouTube client initialized")

		catalogClient := catalog.NewClient(&a.config.Catalog)
		log.Printf("Catalog client initialized for %s", a.config.Catalog.BaseURL)

		a.pipeline = NewPipeline(a.config, searchClient, catalogClient)
	}

	log.Printf("Configured %d queries (target %d videos, up to %d pages per query)",
		len(a.config.Pipeline.Queries), a.config.Pipeline.TargetCount, a.config.Pipeline.MaxPages)

	return nil
}

func (a *IngestAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	result, err := a.pipeline.Run(ctx, a.searchQueries())
	duration := time.Since(startTime)

	monitoring.RecordRun(result, err == nil)
	a.saveHistory(ctx, result)

	if err != nil {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(fmt.Errorf("ingest run failed: %w", err), duration)
		}
		return fmt.Errorf("ingest run failed: %w", err)
	}

	log.Printf("Ingest summary for run %s:", result.RunID)
	log.Printf("  queries: %d, pages: %d, found: %d, new: %d",
		result.QueriesProcessed, result.PagesSearched, result.VideosFound, result.VideosUnique)
	log.Printf("  posted: %d, duplicates: %d, failed: %d in %v",
		result.VideosPosted, result.Duplicates, result.VideosFailed, result.Duration.Round(time.Millisecond))

	if len(result.Errors) > 0 {
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(fmt.Errorf("run %s finished with %d errors", result.RunID, len(result.Errors)), duration)
		}
	}

	metrics := IngestMetrics{
		QueriesProcessed: result.QueriesProcessed,
		PagesSearched:    result.PagesSearched,
		VideosFound:      result.VideosFound,
		VideosUnique:     result.VideosUnique,
		VideosPosted:     result.VideosPosted,
		Duplicates:       result.Duplicates,
		VideosFailed:     result.VideosFailed,
	}
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}

	return nil
}

// searchQueries expands the configured queries, resolving relative
// publication windows against the current time.
func (a *IngestAgent) searchQueries() []models.SearchQuery {
	queries := make([]models.SearchQuery, 0, len(a.config.Pipeline.Queries))

	for _, qc := range a.config.Pipeline.Queries {
		query := models.SearchQuery{
			Query:             qc.Query,
			Order:             qc.Order,
			MaxResults:        a.config.YouTube.MaxResults,
			RegionCode:        a.config.YouTube.RegionCode,
			RelevanceLanguage: a.config.YouTube.RelevanceLanguage,
		}
		if qc.PublishedWithinDays > 0 {
			after := time.Now().AddDate(0, 0, -qc.PublishedWithinDays)
			query.PublishedAfter = &after
		}
		queries = append(queries, query)
	}

	return queries
}

// saveHistory persists the run record. History failures never fail a run.
func (a *IngestAgent) saveHistory(ctx context.Context, result *models.RunResult) {
	if a.history == nil || result == nil {
		return
	}

	record := storage.FromResult(result)
	for _, q := range a.config.Pipeline.Queries {
		record.Queries = append(record.Queries, q.Query)
	}

	if err := a.history.Save(ctx, record); err != nil {
		log.Printf("Warning: Failed to save run history: %v", err)
	}
}
