package youtubeingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"ingest-stack/agents/youtube-ingest/dedup"
	"ingest-stack/agents/youtube-ingest/enrich"
	"ingest-stack/agents/youtube-ingest/youtube"
	"ingest-stack/internal/models"
	"ingest-stack/shared/config"

	"github.com/google/uuid"
)

// SearchProvider returns one page of search results and the continuation
// token for the next page. An empty token means the provider has no more
// pages for this query.
type SearchProvider interface {
	FetchPage(ctx context.Context, query models.SearchQuery, pageToken string) ([]*models.Video, string, error)
}

// Catalog is the submission target. FetchExistingURLs returns every content
// URL the catalog already holds; Submit posts a single video.
type Catalog interface {
	FetchExistingURLs(ctx context.Context) (models.URLSet, error)
	Submit(ctx context.Context, video *models.Video) (models.SubmitOutcome, error)
}

// Pipeline drives one ingest run: list what the catalog already has, search
// for candidates until enough new ones are collected, then enrich and
// submit them one by one.
type Pipeline struct {
	config   *config.Config
	search   SearchProvider
	catalog  Catalog
	filter   *dedup.Filter
	enricher enrich.Enricher
}

func NewPipeline(cfg *config.Config, search SearchProvider, catalog Catalog) *Pipeline {
	return &Pipeline{
		config:   cfg,
		search:   search,
		catalog:  catalog,
		filter:   dedup.NewFilter(cfg.Pipeline.DeduplicationEnabled()),
		enricher: enrich.New(cfg.Pipeline.EnrichmentEnabled()),
	}
}

// Run executes the pipeline for every configured query with the configured
// target count and page budget. The existing-URL set is fetched once and
// shared across queries, so a video surfaced by two queries is submitted
// only once.
func (p *Pipeline) Run(ctx context.Context, queries []models.SearchQuery) (*models.RunResult, error) {
	return p.run(ctx, queries, p.config.Pipeline.TargetCount, p.config.Pipeline.MaxPages)
}

// RunIncrementalSearch executes the pipeline for a single query with an
// explicit target count and page budget.
func (p *Pipeline) RunIncrementalSearch(ctx context.Context, query models.SearchQuery, targetCount, maxPages int) (*models.RunResult, error) {
	return p.run(ctx, []models.SearchQuery{query}, targetCount, maxPages)
}

func (p *Pipeline) run(ctx context.Context, queries []models.SearchQuery, targetCount, maxPages int) (*models.RunResult, error) {
	start := time.Now()
	result := &models.RunResult{
		RunID:     uuid.New().String(),
		StartedAt: start.UTC(),
	}
	defer func() { result.Duration = time.Since(start) }()

	log.Printf("Starting ingest run %s with %d queries (target %d, up to %d pages each)",
		result.RunID, len(queries), targetCount, maxPages)

	// Without the existing-URL set every run would resubmit the whole
	// catalog, so failing to fetch it ends the run.
	known, err := p.catalog.FetchExistingURLs(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch existing catalog URLs: %w", err)
	}
	log.Printf("Catalog already holds %d URLs", known.Len())

	var collection []*models.Video
	for _, query := range queries {
		videos, err := p.collectNewVideos(ctx, query, known, targetCount, maxPages, result)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			if youtube.IsQuotaOrAuthError(err) {
				return result, fmt.Errorf("aborting run: %w", err)
			}
			log.Printf("Warning: Query %q failed, moving on: %v", query.Query, err)
			continue
		}
		result.QueriesProcessed++
		collection = append(collection, videos...)
	}
	result.VideosUnique = len(collection)

	for _, video := range collection {
		p.enricher.Enrich(video)
	}

	for _, video := range collection {
		if ctx.Err() != nil {
			return result, fmt.Errorf("run cancelled: %w", ctx.Err())
		}

		outcome, err := p.catalog.Submit(ctx, video)
		switch outcome {
		case models.SubmitPosted:
			result.VideosPosted++
			if p.config.Debug() {
				log.Printf("Posted video %s: %s", video.ID, video.Title)
			}
		case models.SubmitDuplicate:
			result.Duplicates++
			if p.config.Debug() {
				log.Printf("Duplicate video found: %s", video.WatchURL())
			}
		default:
			result.VideosFailed++
			if err != nil {
				log.Printf("Warning: %v", err)
				result.Errors = append(result.Errors, err.Error())
			}
		}
	}

	log.Printf("Run %s finished: %d posted, %d duplicates, %d failed",
		result.RunID, result.VideosPosted, result.Duplicates, result.VideosFailed)

	return result, nil
}

// collectNewVideos pages through search results for one query, filtering
// each page against known, until a stop condition is met. The conditions
// are checked in priority order: enough videos collected, provider
// exhausted, page budget spent. A final page that overshoots the target is
// kept whole rather than trimmed. A page fetch error discards the query's
// collection entirely so partially searched queries never submit.
func (p *Pipeline) collectNewVideos(ctx context.Context, query models.SearchQuery, known models.URLSet, targetCount, maxPages int, result *models.RunResult) ([]*models.Video, error) {
	var collected []*models.Video

	pageToken := ""
	pagesSearched := 0

	for {
		if len(collected) >= targetCount {
			break
		}
		if pagesSearched > 0 && pageToken == "" {
			log.Printf("Provider exhausted for %q after %d pages with %d of %d videos",
				query.Query, pagesSearched, len(collected), targetCount)
			break
		}
		if pagesSearched >= maxPages {
			log.Printf("Warning: Hit the page budget (%d) for %q with %d of %d videos",
				maxPages, query.Query, len(collected), targetCount)
			break
		}

		videos, nextToken, err := p.search.FetchPage(ctx, query, pageToken)
		if err != nil {
			return nil, err
		}
		pagesSearched++
		result.PagesSearched++
		result.VideosFound += len(videos)

		kept := p.filter.Apply(videos, known)
		collected = append(collected, kept...)

		log.Printf("Page %d for %q: %d results, %d new (have %d/%d)",
			pagesSearched, query.Query, len(videos), len(kept), len(collected), targetCount)

		pageToken = nextToken
	}

	return collected, nil
}
