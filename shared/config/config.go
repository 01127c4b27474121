package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ingest-stack/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	History    HistoryConfig    `yaml:"history"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule" env:"INGEST_SCHEDULE"`
	LogLevel   string           `yaml:"log_level" env:"LOG_LEVEL"`
}

type YouTubeConfig struct {
	APIKey            string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	RegionCode        string `yaml:"region_code" env:"YOUTUBE_REGION_CODE"`
	RelevanceLanguage string `yaml:"relevance_language" env:"YOUTUBE_RELEVANCE_LANGUAGE"`
	MaxResults        int64  `yaml:"max_results" env:"MAX_RESULTS_PER_QUERY"`
}

type CatalogConfig struct {
	BaseURL         string `yaml:"base_url" env:"CONTENT_API_BASE_URL"`
	BearerToken     string `yaml:"bearer_token" env:"CONTENT_API_BEARER_TOKEN"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" env:"CATALOG_TIMEOUT_SECONDS"`
	PageSize        int    `yaml:"page_size" env:"CATALOG_PAGE_SIZE"`
	MaxListPages    int    `yaml:"max_list_pages" env:"CATALOG_MAX_LIST_PAGES"`
	DuplicateStatus int    `yaml:"duplicate_status" env:"CATALOG_DUPLICATE_STATUS"`
}

// Timeout returns the per-request catalog timeout.
func (c *CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type QueryConfig struct {
	Query               string `yaml:"query"`
	Order               string `yaml:"order"`
	PublishedWithinDays int    `yaml:"published_within_days"`
}

type PipelineConfig struct {
	Queries             []QueryConfig `yaml:"queries"`
	TargetCount         int           `yaml:"target_count" env:"TARGET_COUNT"`
	MaxPages            int           `yaml:"max_pages" env:"MAX_PAGES"`
	EnableDeduplication *bool         `yaml:"enable_deduplication" env:"ENABLE_DEDUPLICATION"`
	EnableEnrichment    *bool         `yaml:"enable_enrichment" env:"ENABLE_ENRICHMENT"`
}

// DeduplicationEnabled resolves the toggle; unset means enabled.
func (p *PipelineConfig) DeduplicationEnabled() bool {
	return p.EnableDeduplication == nil || *p.EnableDeduplication
}

// EnrichmentEnabled resolves the toggle; unset means enabled.
func (p *PipelineConfig) EnrichmentEnabled() bool {
	return p.EnableEnrichment == nil || *p.EnableEnrichment
}

type HistoryConfig struct {
	Driver string `yaml:"driver" env:"HISTORY_DRIVER"`
	DSN    string `yaml:"dsn" env:"HISTORY_DSN"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port" env:"HEALTH_PORT"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	explicit := configFile != ""
	if configFile == "" {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	if err != nil {
		// Environment-only deployments carry no config file; only an
		// explicitly named file is required to exist.
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	envString("YOUTUBE_API_KEY", &c.YouTube.APIKey)
	envString("YOUTUBE_REGION_CODE", &c.YouTube.RegionCode)
	envString("YOUTUBE_RELEVANCE_LANGUAGE", &c.YouTube.RelevanceLanguage)
	if err := envInt64("MAX_RESULTS_PER_QUERY", &c.YouTube.MaxResults); err != nil {
		return err
	}

	envString("CONTENT_API_BASE_URL", &c.Catalog.BaseURL)
	envString("CONTENT_API_BEARER_TOKEN", &c.Catalog.BearerToken)
	if err := envInt("CATALOG_TIMEOUT_SECONDS", &c.Catalog.TimeoutSeconds); err != nil {
		return err
	}
	if err := envInt("CATALOG_PAGE_SIZE", &c.Catalog.PageSize); err != nil {
		return err
	}
	if err := envInt("CATALOG_MAX_LIST_PAGES", &c.Catalog.MaxListPages); err != nil {
		return err
	}
	if err := envInt("CATALOG_DUPLICATE_STATUS", &c.Catalog.DuplicateStatus); err != nil {
		return err
	}

	if len(c.Pipeline.Queries) == 0 {
		if q := os.Getenv("SEARCH_QUERY"); q != "" {
			c.Pipeline.Queries = []QueryConfig{{Query: q}}
		}
	}
	if err := envInt("TARGET_COUNT", &c.Pipeline.TargetCount); err != nil {
		return err
	}
	if err := envInt("MAX_PAGES", &c.Pipeline.MaxPages); err != nil {
		return err
	}
	if err := envBool("ENABLE_DEDUPLICATION", &c.Pipeline.EnableDeduplication); err != nil {
		return err
	}
	if err := envBool("ENABLE_ENRICHMENT", &c.Pipeline.EnableEnrichment); err != nil {
		return err
	}

	envString("HISTORY_DRIVER", &c.History.Driver)
	envString("HISTORY_DSN", &c.History.DSN)

	if err := envInt("HEALTH_PORT", &c.Monitoring.HealthPort); err != nil {
		return err
	}
	envString("INGEST_SCHEDULE", &c.Schedule)
	envString("LOG_LEVEL", &c.LogLevel)

	return nil
}

func (c *Config) applyDefaults() {
	if c.YouTube.RegionCode == "" {
		c.YouTube.RegionCode = "US"
	}
	if c.YouTube.MaxResults == 0 {
		c.YouTube.MaxResults = 50
	}

	if c.Catalog.TimeoutSeconds == 0 {
		c.Catalog.TimeoutSeconds = 10
	}
	if c.Catalog.PageSize == 0 {
		c.Catalog.PageSize = 50
	}
	if c.Catalog.MaxListPages == 0 {
		c.Catalog.MaxListPages = 100
	}
	if c.Catalog.DuplicateStatus == 0 {
		// This catalog answers 500 for an already-known URL, not 409.
		c.Catalog.DuplicateStatus = 500
	}

	if c.Pipeline.TargetCount == 0 {
		c.Pipeline.TargetCount = 10
	}
	if c.Pipeline.MaxPages == 0 {
		c.Pipeline.MaxPages = 5
	}
	for i := range c.Pipeline.Queries {
		if c.Pipeline.Queries[i].Order == "" {
			c.Pipeline.Queries[i].Order = "relevance"
		}
	}

	if c.History.Driver == "" {
		c.History.Driver = "sqlite"
	}
	if c.History.DSN == "" {
		switch c.History.Driver {
		case "sqlite":
			c.History.DSN = "data/ingest_history.db"
		case "json":
			c.History.DSN = "data/ingest_history.json"
		}
	}

	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 0 9,21 * * *" // Twice daily at 9 AM and 9 PM
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("YouTube API key is required (set YOUTUBE_API_KEY or youtube.api_key)")
	}
	if c.YouTube.MaxResults < 1 || c.YouTube.MaxResults > 50 {
		return fmt.Errorf("youtube.max_results must be between 1 and 50, got %d", c.YouTube.MaxResults)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base URL is required (set CONTENT_API_BASE_URL or catalog.base_url)")
	}
	if c.Catalog.BearerToken == "" {
		return fmt.Errorf("catalog bearer token is required (set CONTENT_API_BEARER_TOKEN or catalog.bearer_token)")
	}
	if len(c.Pipeline.Queries) == 0 {
		return fmt.Errorf("at least one search query is required (set SEARCH_QUERY or pipeline.queries)")
	}
	for _, q := range c.Pipeline.Queries {
		if strings.TrimSpace(q.Query) == "" {
			return fmt.Errorf("search query text must be non-empty")
		}
		if !models.ValidOrders[q.Order] {
			return fmt.Errorf("invalid sort order %q for query %q", q.Order, q.Query)
		}
		if q.PublishedWithinDays < 0 {
			return fmt.Errorf("published_within_days must not be negative for query %q", q.Query)
		}
	}
	if c.Pipeline.TargetCount < 1 {
		return fmt.Errorf("pipeline.target_count must be at least 1, got %d", c.Pipeline.TargetCount)
	}
	if c.Pipeline.MaxPages < 1 {
		return fmt.Errorf("pipeline.max_pages must be at least 1, got %d", c.Pipeline.MaxPages)
	}
	switch c.History.Driver {
	case "sqlite", "postgres", "json", "none":
	default:
		return fmt.Errorf("unknown history driver %q (expected sqlite, postgres, json or none)", c.History.Driver)
	}
	if c.History.Driver == "postgres" && c.History.DSN == "" {
		return fmt.Errorf("history DSN is required for the postgres driver (set HISTORY_DSN or history.dsn)")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", c.LogLevel)
	}
	return nil
}

// Debug reports whether per-item trace logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

func envString(key string, target *string) {
	if *target == "" {
		*target = os.Getenv(key)
	}
}

func envInt(key string, target *int) error {
	if *target != 0 {
		return nil
	}
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %q", key, v)
	}
	*target = n
	return nil
}

func envInt64(key string, target *int64) error {
	if *target != 0 {
		return nil
	}
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %q", key, v)
	}
	*target = n
	return nil
}

func envBool(key string, target **bool) error {
	if *target != nil {
		return nil
	}
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %q", key, v)
	}
	*target = &b
	return nil
}
