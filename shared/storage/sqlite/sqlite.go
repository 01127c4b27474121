package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ingest-stack/shared/storage"

	_ "modernc.org/sqlite"
)

var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id TEXT PRIMARY KEY,
	queries TEXT NOT NULL,
	queries_processed INTEGER NOT NULL,
	pages_searched INTEGER NOT NULL,
	videos_found INTEGER NOT NULL,
	videos_unique INTEGER NOT NULL,
	videos_posted INTEGER NOT NULL,
	videos_failed INTEGER NOT NULL,
	duplicates INTEGER NOT NULL,
	errors TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL
);
`

// New opens an SQLite-backed run history at the given DSN.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run history schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	queriesJSON, err := json.Marshal(record.Queries)
	if err != nil {
		return fmt.Errorf("failed to encode run queries: %w", err)
	}
	errorsJSON, err := json.Marshal(record.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}

	query := `
	INSERT INTO ingest_runs (
		run_id, queries, queries_processed, pages_searched, videos_found, videos_unique,
		videos_posted, videos_failed, duplicates, errors, started_at, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		record.RunID,
		string(queriesJSON),
		record.QueriesProcessed,
		record.PagesSearched,
		record.VideosFound,
		record.VideosUnique,
		record.VideosPosted,
		record.VideosFailed,
		record.Duplicates,
		string(errorsJSON),
		record.StartedAt,
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT run_id, queries, queries_processed, pages_searched, videos_found, videos_unique,
		videos_posted, videos_failed, duplicates, errors, started_at, duration_ms
		FROM ingest_runs WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Query != "" {
		query += ` AND queries LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Since != nil {
		query += ` AND started_at >= ?`
		args = append(args, *filter.Since)
	}
	if filter.HadFailures != nil {
		if *filter.HadFailures {
			query += ` AND videos_failed > 0`
		} else {
			query += ` AND videos_failed = 0`
		}
	}

	query += ` ORDER BY started_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var records []*storage.RunRecord
	for rows.Next() {
		var r storage.RunRecord
		var queriesJSON, errorsJSON string
		var durationMs int64

		err := rows.Scan(
			&r.RunID, &queriesJSON, &r.QueriesProcessed, &r.PagesSearched, &r.VideosFound, &r.VideosUnique,
			&r.VideosPosted, &r.VideosFailed, &r.Duplicates, &errorsJSON, &r.StartedAt, &durationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(queriesJSON), &r.Queries); err != nil {
			return nil, fmt.Errorf("failed to decode run queries: %w", err)
		}
		if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode run errors: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
