package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"ingest-stack/internal/models"
	"ingest-stack/shared/config"

	"golang.org/x/oauth2"
)

// Client talks to the content catalog's REST API. Every request carries the
// configured bearer token.
type Client struct {
	config     *config.CatalogConfig
	httpClient *http.Client
}

func NewClient(cfg *config.CatalogConfig) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken})

	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = cfg.Timeout()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// catalogItem carries the one listing field we care about.
type catalogItem struct {
	URL string `json:"url"`
}

// listingPage is one decoded page of the catalog listing. hasPaging is false
// when the server answered with a bare array, which means the whole listing
// arrived in one response.
type listingPage struct {
	items       []catalogItem
	totalPages  int
	currentPage int
	hasPaging   bool
}

// FetchExistingURLs walks the catalog's paged listing and collects every
// known content URL. Deployments differ in what the listing endpoint
// returns, so each page is decoded tolerantly: either a paging envelope
// (content or items plus totalPages/currentPage) or a bare array holding
// the complete listing. A 404 means the catalog has nothing more to say.
// On any other failure the set collected so far is returned along with the
// error so the caller can decide whether to proceed.
func (c *Client) FetchExistingURLs(ctx context.Context) (models.URLSet, error) {
	known := models.NewURLSet()

	page := 0
	for {
		if page >= c.config.MaxListPages {
			log.Printf("Warning: Stopped listing the catalog after %d pages", c.config.MaxListPages)
			break
		}

		listing, status, err := c.fetchListingPage(ctx, page)
		if err != nil {
			return known, err
		}
		if status == http.StatusNotFound {
			break
		}

		for _, item := range listing.items {
			if item.URL != "" {
				known.Add(item.URL)
			}
		}

		if len(listing.items) == 0 {
			break
		}
		if !listing.hasPaging {
			break
		}
		if listing.currentPage >= listing.totalPages-1 {
			break
		}

		page++
	}

	return known, nil
}

func (c *Client) fetchListingPage(ctx context.Context, page int) (*listingPage, int, error) {
	url := fmt.Sprintf("%s/paged?page=%d&size=%d", c.config.BaseURL, page, c.config.PageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create catalog listing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list catalog page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("catalog listing returned status %d for page %d", resp.StatusCode, page)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read catalog listing: %w", err)
	}

	listing, err := decodeListing(data)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return listing, resp.StatusCode, nil
}

func decodeListing(data []byte) (*listingPage, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []catalogItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode catalog listing: %w", err)
		}
		return &listingPage{items: items}, nil
	}

	var envelope struct {
		Content     []catalogItem `json:"content"`
		Items       []catalogItem `json:"items"`
		TotalPages  *int          `json:"totalPages"`
		CurrentPage int           `json:"currentPage"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode catalog listing: %w", err)
	}

	listing := &listingPage{
		items:       envelope.Content,
		currentPage: envelope.CurrentPage,
	}
	if listing.items == nil {
		listing.items = envelope.Items
	}
	if envelope.TotalPages != nil {
		listing.totalPages = *envelope.TotalPages
		listing.hasPaging = true
	}

	return listing, nil
}

// Submit posts one video to the catalog. A response with the configured
// duplicate status means the catalog already holds this URL; that is an
// expected outcome, not an error.
func (c *Client) Submit(ctx context.Context, video *models.Video) (models.SubmitOutcome, error) {
	payload, err := json.Marshal(video.ToSubmission())
	if err != nil {
		return models.SubmitFailed, fmt.Errorf("failed to encode submission for %s: %w", video.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return models.SubmitFailed, fmt.Errorf("failed to create submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.SubmitFailed, fmt.Errorf("failed to submit video %s: %w", video.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return models.SubmitPosted, nil
	case resp.StatusCode == c.config.DuplicateStatus:
		return models.SubmitDuplicate, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.SubmitFailed, fmt.Errorf("catalog rejected video %s with status %d: %s",
			video.ID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
