package enrich

import (
	"strings"

	"ingest-stack/internal/models"
)

// Enricher derives extra metadata for a video before submission.
// Implementations must work offline from fields already on the video.
type Enricher interface {
	Enrich(video *models.Video)
}

// New picks the enricher matching the pipeline configuration.
func New(enabled bool) Enricher {
	if enabled {
		return &MetadataEnricher{}
	}
	return &NoopEnricher{}
}

// NoopEnricher leaves videos untouched.
type NoopEnricher struct{}

func (e *NoopEnricher) Enrich(video *models.Video) {}

// MetadataEnricher attaches derived metrics that are cheap to compute
// locally. The results ride along on the video for reporting and history
// but are never part of the catalog submission.
type MetadataEnricher struct{}

func (e *MetadataEnricher) Enrich(video *models.Video) {
	views := video.ViewCount
	if views == 0 {
		views = 1
	}

	video.Enrichment = map[string]any{
		"word_count":       len(strings.Fields(video.Description)),
		"has_tags":         len(video.Tags) > 0,
		"engagement_ratio": float64(video.LikeCount+video.CommentCount) / float64(views),
	}
}
