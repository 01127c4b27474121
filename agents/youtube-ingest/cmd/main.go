package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	youtubeingest "ingest-stack/agents/youtube-ingest"
	"ingest-stack/internal/report"
	"ingest-stack/shared/config"
	"ingest-stack/shared/scheduler"
	"ingest-stack/shared/storage"
	"ingest-stack/shared/storage/jsonfile"
	"ingest-stack/shared/storage/postgres"
	"ingest-stack/shared/storage/sqlite"
)

func main() {
	once := flag.Bool("once", false, "run a single ingest cycle and exit")
	showReport := flag.Bool("report", false, "print a summary of recorded runs and exit")
	format := flag.String("format", "text", "report output format (text or json)")
	limit := flag.Int("limit", 20, "maximum runs to include in the report")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	history, err := openHistory(cfg)
	if err != nil {
		log.Fatalf("Failed to open run history: %v", err)
	}
	if history != nil {
		defer history.Close()
	}

	if *showReport {
		if err := printReport(history, *format, *limit); err != nil {
			log.Fatalf("Failed to generate report: %v", err)
		}
		return
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := youtubeingest.NewIngestAgent(cfg, history)
	s := scheduler.New(cfg, agent)

	if *once {
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			log.Fatalf("Failed to initialize agent: %v", err)
		}

		if err := s.RunOnce(ctx); err != nil {
			log.Fatalf("Failed to run: %v", err)
		}
		return
	}

	fmt.Println("Starting scheduler...")

	if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

// openHistory builds the run history backend named by the configuration.
// An empty or "none" driver disables history entirely.
func openHistory(cfg *config.Config) (storage.Backend, error) {
	switch cfg.History.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.History.DSN)
	case "postgres":
		return postgres.New(context.Background(), cfg.History.DSN)
	case "json":
		return jsonfile.New(cfg.History.DSN)
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}
}

func printReport(history storage.Backend, format string, limit int) error {
	if history == nil {
		return fmt.Errorf("run history is not configured")
	}

	records, err := history.Query(context.Background(), storage.Filter{Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to query run history: %w", err)
	}

	summary := report.Generate(records)
	switch format {
	case "json":
		return report.WriteJSON(os.Stdout, summary)
	case "text":
		return report.WriteText(os.Stdout, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
