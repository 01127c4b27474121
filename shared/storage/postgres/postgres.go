package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ingest-stack/shared/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id TEXT PRIMARY KEY,
	queries JSONB NOT NULL,
	queries_processed INTEGER NOT NULL,
	pages_searched INTEGER NOT NULL,
	videos_found INTEGER NOT NULL,
	videos_unique INTEGER NOT NULL,
	videos_posted INTEGER NOT NULL,
	videos_failed INTEGER NOT NULL,
	duplicates INTEGER NOT NULL,
	errors JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);
`

// New connects to a Postgres-backed run history at the given DSN.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create run history schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.RunRecord) error {
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
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = b.pool.Exec(ctx, query,
		record.RunID,
		queriesJSON,
		record.QueriesProcessed,
		record.PagesSearched,
		record.VideosFound,
		record.VideosUnique,
		record.VideosPosted,
		record.VideosFailed,
		record.Duplicates,
		errorsJSON,
		record.StartedAt,
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT run_id, queries, queries_processed, pages_searched, videos_found, videos_unique,
		videos_posted, videos_failed, duplicates, errors, started_at, duration_ms
		FROM ingest_runs WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Query != "" {
		query += fmt.Sprintf(` AND queries::text ILIKE $%d`, paramCount)
		args = append(args, "%"+filter.Query+"%")
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND started_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
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
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var records []*storage.RunRecord
	for rows.Next() {
		var r storage.RunRecord
		var queriesJSON, errorsJSON []byte
		var durationMs int64

		err := rows.Scan(
			&r.RunID, &queriesJSON, &r.QueriesProcessed, &r.PagesSearched, &r.VideosFound, &r.VideosUnique,
			&r.VideosPosted, &r.VideosFailed, &r.Duplicates, &errorsJSON, &r.StartedAt, &durationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(queriesJSON, &r.Queries); err != nil {
			return nil, fmt.Errorf("failed to decode run queries: %w", err)
		}
		if err := json.Unmarshal(errorsJSON, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode run errors: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
