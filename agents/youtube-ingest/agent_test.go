package youtubeingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ingest-stack/shared/config"
	"ingest-stack/shared/scheduler"
	"ingest-stack/shared/storage"
	"ingest-stack/shared/storage/jsonfile"
)

func agentConfig(queries ...string) *config.Config {
	cfg := pipelineConfig(5, 5)
	cfg.YouTube.MaxResults = 25
	cfg.YouTube.RegionCode = "US"
	for _, q := range queries {
		cfg.Pipeline.Queries = append(cfg.Pipeline.Queries, config.QueryConfig{Query: q, Order: "relevance"})
	}
	return cfg
}

func newTestHistory(t *testing.T) storage.Backend {
	t.Helper()

	backend, err := jsonfile.New(filepath.Join(t.TempDir(), "runs.ndjson"))
	if err != nil {
		t.Fatalf("failed to create history backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	return backend
}

// eventRecorder captures scheduler callbacks for assertions.
type eventRecorder struct {
	summary  string
	partial  error
	critical error
}

func (r *eventRecorder) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		OnSuccess: func(m scheduler.Metrics, _ time.Duration) {
			r.summary = m.GetSummary()
		},
		OnPartialFailure: func(err error, _ time.Duration) {
			r.partial = err
		},
		OnCriticalFailure: func(err error, _ time.Duration) {
			r.critical = err
		},
	}
}

func TestIngestMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name    string
		metrics IngestMetrics
		want    string
	}{
		{
			"typical run",
			IngestMetrics{VideosPosted: 12, Duplicates: 3, VideosFailed: 1, VideosFound: 40, PagesSearched: 4},
			"12 posted, 3 duplicates, 1 failed (40 found across 4 pages)",
		},
		{
			"empty run",
			IngestMetrics{},
			"0 posted, 0 duplicates, 0 failed (0 found across 0 pages)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.metrics.GetSummary(); got != tt.want {
				t.Errorf("GetSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunOnceSuccess(t *testing.T) {
	provider := &stubProvider{pages: map[string]stubPage{
		"golang|": {ids: []string{"a", "b"}, next: ""},
	}}
	cat := &stubCatalog{}
	cfg := agentConfig("golang")
	history := newTestHistory(t)

	agent := NewIngestAgent(cfg, history)
	agent.pipeline = NewPipeline(cfg, provider, cat)

	if err := agent.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	recorder := &eventRecorder{}
	if err := agent.RunOnce(context.Background(), recorder.events()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if !strings.Contains(recorder.summary, "2 posted") {
		t.Errorf("success summary = %q", recorder.summary)
	}
	if recorder.critical != nil {
		t.Errorf("critical failure reported: %v", recorder.critical)
	}
	if recorder.partial != nil {
		t.Errorf("partial failure reported: %v", recorder.partial)
	}

	records, err := history.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("failed to query history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history has %d records, want 1", len(records))
	}
	if records[0].VideosPosted != 2 {
		t.Errorf("recorded posted = %d, want 2", records[0].VideosPosted)
	}
}

func TestRunOnceCriticalFailure(t *testing.T) {
	provider := &stubProvider{}
	cat := &stubCatalog{fetchErr: errors.New("catalog unreachable")}
	cfg := agentConfig("golang")
	history := newTestHistory(t)

	agent := NewIngestAgent(cfg, history)
	agent.pipeline = NewPipeline(cfg, provider, cat)

	recorder := &eventRecorder{}
	if err := agent.RunOnce(context.Background(), recorder.events()); err == nil {
		t.Fatal("expected RunOnce to fail when the existing-URL fetch fails")
	}

	if recorder.critical == nil {
		t.Error("critical failure event did not fire")
	}
	if recorder.summary != "" {
		t.Errorf("success event fired on a failed run: %q", recorder.summary)
	}

	// Even a failed run leaves a history record.
	records, err := history.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("failed to query history: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("history has %d records, want 1", len(records))
	}
}

func TestRunOncePartialFailure(t *testing.T) {
	provider := &stubProvider{pages: map[string]stubPage{
		"broken|":  {err: errors.New("search backend hiccup")},
		"healthy|": {ids: []string{"a"}, next: ""},
	}}
	cat := &stubCatalog{}
	cfg := agentConfig("broken", "healthy")

	agent := NewIngestAgent(cfg, nil)
	agent.pipeline = NewPipeline(cfg, provider, cat)

	recorder := &eventRecorder{}
	if err := agent.RunOnce(context.Background(), recorder.events()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if recorder.partial == nil {
		t.Error("partial failure event did not fire")
	}
	if !strings.Contains(recorder.summary, "1 posted") {
		t.Errorf("success summary = %q", recorder.summary)
	}
}

func TestRunOnceNilEvents(t *testing.T) {
	provider := &stubProvider{pages: map[string]stubPage{
		"golang|": {ids: []string{"a"}, next: ""},
	}}
	cfg := agentConfig("golang")

	agent := NewIngestAgent(cfg, nil)
	agent.pipeline = NewPipeline(cfg, provider, &stubCatalog{})

	if err := agent.RunOnce(context.Background(), nil); err != nil {
		t.Fatalf("RunOnce with nil events failed: %v", err)
	}
}

func TestSearchQueries(t *testing.T) {
	cfg := agentConfig("golang tutorials")
	cfg.Pipeline.Queries = append(cfg.Pipeline.Queries,
		config.QueryConfig{Query: "go concurrency", Order: "date", PublishedWithinDays: 30})
	cfg.YouTube.RelevanceLanguage = "en"

	agent := NewIngestAgent(cfg, nil)
	queries := agent.searchQueries()

	if len(queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(queries))
	}

	first := queries[0]
	if first.Query != "golang tutorials" || first.Order != "relevance" {
		t.Errorf("first query = %+v", first)
	}
	if first.MaxResults != 25 || first.RegionCode != "US" || first.RelevanceLanguage != "en" {
		t.Errorf("provider settings not propagated: %+v", first)
	}
	if first.PublishedAfter != nil {
		t.Error("query without a window has PublishedAfter set")
	}

	second := queries[1]
	if second.PublishedAfter == nil {
		t.Fatal("publication window was not resolved")
	}
	wantAfter := time.Now().AddDate(0, 0, -30)
	if second.PublishedAfter.Before(wantAfter.Add(-time.Minute)) || second.PublishedAfter.After(wantAfter.Add(time.Minute)) {
		t.Errorf("PublishedAfter = %v, want about %v", second.PublishedAfter, wantAfter)
	}
}
