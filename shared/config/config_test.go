package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setRequiredEnv fills the minimum environment for a valid config.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("YOUTUBE_API_KEY", "test-api-key")
	t.Setenv("CONTENT_API_BASE_URL", "https://catalog.example.com/api/videos")
	t.Setenv("CONTENT_API_BEARER_TOKEN", "test-token")
	t.Setenv("SEARCH_QUERY", "golang tutorial")
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.YouTube.APIKey != "test-api-key" {
		t.Errorf("APIKey = %s", cfg.YouTube.APIKey)
	}
	if cfg.YouTube.RegionCode != "US" {
		t.Errorf("RegionCode default = %s, want US", cfg.YouTube.RegionCode)
	}
	if cfg.YouTube.MaxResults != 50 {
		t.Errorf("MaxResults default = %d, want 50", cfg.YouTube.MaxResults)
	}
	if cfg.Catalog.PageSize != 50 {
		t.Errorf("PageSize default = %d, want 50", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.TimeoutSeconds != 10 {
		t.Errorf("TimeoutSeconds default = %d, want 10", cfg.Catalog.TimeoutSeconds)
	}
	if cfg.Catalog.DuplicateStatus != 500 {
		t.Errorf("DuplicateStatus default = %d, want 500", cfg.Catalog.DuplicateStatus)
	}
	if len(cfg.Pipeline.Queries) != 1 || cfg.Pipeline.Queries[0].Query != "golang tutorial" {
		t.Errorf("Queries = %+v", cfg.Pipeline.Queries)
	}
	if cfg.Pipeline.Queries[0].Order != "relevance" {
		t.Errorf("Order default = %s, want relevance", cfg.Pipeline.Queries[0].Order)
	}
	if cfg.Pipeline.TargetCount != 10 {
		t.Errorf("TargetCount default = %d, want 10", cfg.Pipeline.TargetCount)
	}
	if cfg.Pipeline.MaxPages != 5 {
		t.Errorf("MaxPages default = %d, want 5", cfg.Pipeline.MaxPages)
	}
	if !cfg.Pipeline.DeduplicationEnabled() {
		t.Error("Deduplication should default to enabled")
	}
	if !cfg.Pipeline.EnrichmentEnabled() {
		t.Error("Enrichment should default to enabled")
	}
	if cfg.History.Driver != "sqlite" {
		t.Errorf("History driver default = %s, want sqlite", cfg.History.Driver)
	}
	if cfg.History.DSN != "data/ingest_history.db" {
		t.Errorf("History DSN default = %s", cfg.History.DSN)
	}
	if cfg.Monitoring.HealthPort != 8080 {
		t.Errorf("HealthPort default = %d, want 8080", cfg.Monitoring.HealthPort)
	}
	if cfg.Schedule != "0 0 9,21 * * *" {
		t.Errorf("Schedule default = %s", cfg.Schedule)
	}
	if cfg.Debug() {
		t.Error("Debug should be off at the default log level")
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SEARCH_QUERY", "")
	t.Setenv("YOUTUBE_API_KEY", "")

	yamlContent := `
youtube:
  api_key: yaml-api-key
  region_code: GB
  max_results: 25
pipeline:
  queries:
    - query: artificial intelligence tutorial
      order: date
      published_within_days: 30
    - query: machine learning explained
  target_count: 15
  enable_deduplication: false
history:
  driver: none
log_level: debug
`
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", configFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.YouTube.APIKey != "yaml-api-key" {
		t.Errorf("APIKey = %s, want yaml-api-key", cfg.YouTube.APIKey)
	}
	if cfg.YouTube.RegionCode != "GB" {
		t.Errorf("RegionCode = %s, want GB", cfg.YouTube.RegionCode)
	}
	if cfg.YouTube.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", cfg.YouTube.MaxResults)
	}
	// Bearer token absent from YAML falls back to the environment.
	if cfg.Catalog.BearerToken != "test-token" {
		t.Errorf("BearerToken = %s, want env fallback", cfg.Catalog.BearerToken)
	}
	if len(cfg.Pipeline.Queries) != 2 {
		t.Fatalf("Queries = %d, want 2", len(cfg.Pipeline.Queries))
	}
	if cfg.Pipeline.Queries[0].Order != "date" {
		t.Errorf("Order = %s, want date", cfg.Pipeline.Queries[0].Order)
	}
	if cfg.Pipeline.Queries[0].PublishedWithinDays != 30 {
		t.Errorf("PublishedWithinDays = %d, want 30", cfg.Pipeline.Queries[0].PublishedWithinDays)
	}
	if cfg.Pipeline.Queries[1].Order != "relevance" {
		t.Errorf("second query order = %s, want relevance default", cfg.Pipeline.Queries[1].Order)
	}
	if cfg.Pipeline.TargetCount != 15 {
		t.Errorf("TargetCount = %d, want 15", cfg.Pipeline.TargetCount)
	}
	if cfg.Pipeline.DeduplicationEnabled() {
		t.Error("Deduplication should be disabled by YAML")
	}
	if cfg.History.Driver != "none" {
		t.Errorf("History driver = %s, want none", cfg.History.Driver)
	}
	if !cfg.Debug() {
		t.Error("Debug should be on with log_level: debug")
	}
}

func TestExplicitConfigFileMissing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Expected error for explicitly named missing config file")
	}
}

func TestEnvToggles(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENABLE_DEDUPLICATION", "false")
	t.Setenv("ENABLE_ENRICHMENT", "False")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Pipeline.DeduplicationEnabled() {
		t.Error("Deduplication should be disabled by env")
	}
	if cfg.Pipeline.EnrichmentEnabled() {
		t.Error("Enrichment should be disabled by env")
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "MissingAPIKey",
			env:     map[string]string{"YOUTUBE_API_KEY": ""},
			wantErr: "YouTube API key",
		},
		{
			name:    "MissingBaseURL",
			env:     map[string]string{"CONTENT_API_BASE_URL": ""},
			wantErr: "catalog base URL",
		},
		{
			name:    "MissingBearerToken",
			env:     map[string]string{"CONTENT_API_BEARER_TOKEN": ""},
			wantErr: "bearer token",
		},
		{
			name:    "MissingQuery",
			env:     map[string]string{"SEARCH_QUERY": ""},
			wantErr: "search query",
		},
		{
			name:    "MaxResultsTooLarge",
			env:     map[string]string{"MAX_RESULTS_PER_QUERY": "100"},
			wantErr: "between 1 and 50",
		},
		{
			name:    "BadBoolean",
			env:     map[string]string{"ENABLE_DEDUPLICATION": "banana"},
			wantErr: "invalid boolean",
		},
		{
			name:    "BadInteger",
			env:     map[string]string{"TARGET_COUNT": "ten"},
			wantErr: "invalid integer",
		},
		{
			name:    "NegativeTargetCount",
			env:     map[string]string{"TARGET_COUNT": "-3"},
			wantErr: "target_count",
		},
		{
			name:    "UnknownHistoryDriver",
			env:     map[string]string{"HISTORY_DRIVER": "cassandra"},
			wantErr: "unknown history driver",
		},
		{
			name:    "BadLogLevel",
			env:     map[string]string{"LOG_LEVEL": "loud"},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}
