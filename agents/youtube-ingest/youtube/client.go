package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"ingest-stack/internal/models"
	"ingest-stack/shared/config"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// Titles longer than this break the catalog's column constraint.
	maxTitleLength = 1000

	// Videos.List accepts at most 50 comma-joined IDs per call.
	detailBatchSize = 50
)

type Client struct {
	service *youtube.Service
	config  *config.YouTubeConfig

	// Category names for the configured region, loaded once on first use.
	catOnce    sync.Once
	categories map[string]string
}

func NewClient(ctx context.Context, cfg *config.YouTubeConfig, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service: service,
		config:  cfg,
	}, nil
}

// FetchPage runs one search page and resolves every result into a full
// record. The search call asks for IDs only; details arrive through a single
// batched Videos.List call per page, which costs a fraction of the quota of
// per-ID lookups. The returned token is empty once the provider is exhausted.
func (c *Client) FetchPage(ctx context.Context, query models.SearchQuery, pageToken string) ([]*models.Video, string, error) {
	call := c.service.Search.List([]string{"id"}).
		Q(query.Query).
		Type("video").
		MaxResults(query.MaxResults).
		Order(query.Order)

	if query.RegionCode != "" {
		call = call.RegionCode(query.RegionCode)
	}
	if query.RelevanceLanguage != "" {
		call = call.RelevanceLanguage(query.RelevanceLanguage)
	}
	if query.PublishedAfter != nil {
		call = call.PublishedAfter(query.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if query.PublishedBefore != nil {
		call = call.PublishedBefore(query.PublishedBefore.UTC().Format(time.RFC3339))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to search videos for %q: %w", query.Query, err)
	}

	var videoIDs []string
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			log.Println("Warning: Skipping search result without a video ID")
			continue
		}
		videoIDs = append(videoIDs, item.Id.VideoId)
	}

	if len(videoIDs) == 0 {
		return nil, resp.NextPageToken, nil
	}

	videos, err := c.videoDetails(ctx, videoIDs)
	if err != nil {
		return nil, "", err
	}

	return videos, resp.NextPageToken, nil
}

func (c *Client) videoDetails(ctx context.Context, videoIDs []string) ([]*models.Video, error) {
	var videos []*models.Video

	for i := 0; i < len(videoIDs); i += detailBatchSize {
		end := i + detailBatchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		batchIDs := videoIDs[i:end]
		detailsCall := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(strings.Join(batchIDs, ","))

		detailsResponse, err := detailsCall.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get video details: %w", err)
		}

		for _, item := range detailsResponse.Items {
			video, err := c.buildVideo(ctx, item)
			if err != nil {
				log.Printf("Warning: Skipping malformed video %q: %v", item.Id, err)
				continue
			}
			videos = append(videos, video)
		}
	}

	return videos, nil
}

func (c *Client) buildVideo(ctx context.Context, item *youtube.Video) (*models.Video, error) {
	if item.Id == "" || item.Snippet == nil {
		return nil, fmt.Errorf("missing id or snippet")
	}

	video := &models.Video{
		ID:                   item.Id,
		Title:                truncateTitle(item.Snippet.Title),
		Description:          item.Snippet.Description,
		ChannelID:            item.Snippet.ChannelId,
		ChannelTitle:         item.Snippet.ChannelTitle,
		Tags:                 item.Snippet.Tags,
		CategoryID:           item.Snippet.CategoryId,
		ThumbnailURL:         bestThumbnail(item.Snippet.Thumbnails),
		DefaultLanguage:      item.Snippet.DefaultLanguage,
		DefaultAudioLanguage: item.Snippet.DefaultAudioLanguage,
	}

	if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		video.PublishedAt = publishedAt.UTC()
	}

	if item.ContentDetails != nil {
		video.Duration = item.ContentDetails.Duration
		video.DurationSeconds = parseDurationSeconds(item.ContentDetails.Duration)
		video.Definition = item.ContentDetails.Definition
		// The API reports caption as text; anything but "true" means no.
		video.Caption = item.ContentDetails.Caption == "true"
	}

	if item.Statistics != nil {
		video.ViewCount = item.Statistics.ViewCount
		video.LikeCount = item.Statistics.LikeCount
		video.CommentCount = item.Statistics.CommentCount
	}

	if video.CategoryID != "" {
		video.CategoryName = c.categoryName(ctx, video.CategoryID)
	}

	return video, nil
}

// categoryName resolves a category ID to its display name. The full category
// list for the configured region is fetched once per client; lookups after
// that never touch the network. Unknown IDs resolve to an empty name.
func (c *Client) categoryName(ctx context.Context, categoryID string) string {
	c.catOnce.Do(func() {
		c.categories = make(map[string]string)

		categoriesCall := c.service.VideoCategories.List([]string{"snippet"}).
			RegionCode(c.config.RegionCode)

		resp, err := categoriesCall.Context(ctx).Do()
		if err != nil {
			log.Printf("Warning: Failed to load video categories for region %s: %v", c.config.RegionCode, err)
			return
		}

		for _, item := range resp.Items {
			if item.Snippet != nil {
				c.categories[item.Id] = item.Snippet.Title
			}
		}
		log.Printf("Loaded %d video categories for region %s", len(c.categories), c.config.RegionCode)
	})

	return c.categories[categoryID]
}

// IsQuotaOrAuthError reports whether the provider rejected our credentials
// or quota. Neither recovers within a run, so callers abort instead of
// trying further pages.
func IsQuotaOrAuthError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength])
}

// bestThumbnail picks the highest-resolution thumbnail available.
func bestThumbnail(thumbs *youtube.ThumbnailDetails) string {
	if thumbs == nil {
		return ""
	}
	for _, t := range []*youtube.Thumbnail{thumbs.Maxres, thumbs.High, thumbs.Medium, thumbs.Default_} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}

func parseDurationSeconds(duration string) int {
	if duration == "" {
		return 0
	}

	// Parse ISO 8601 duration format (e.g., "PT1M30S", "PT45S", "PT2H15M30S")
	re := regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)
	matches := re.FindStringSubmatch(duration)

	if len(matches) == 0 {
		return 0
	}

	var totalSeconds int

	// Hours
	if matches[1] != "" {
		if hours, err := strconv.Atoi(matches[1]); err == nil {
			totalSeconds += hours * 3600
		}
	}

	// Minutes
	if matches[2] != "" {
		if minutes, err := strconv.Atoi(matches[2]); err == nil {
			totalSeconds += minutes * 60
		}
	}

	// Seconds
	if matches[3] != "" {
		if seconds, err := strconv.Atoi(matches[3]); err == nil {
			totalSeconds += seconds
		}
	}

	return totalSeconds
}
