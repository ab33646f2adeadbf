package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaLockKey int64 = 2026101901

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	worker_id TEXT NOT NULL,
	domains JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batches_worker_id ON batches(worker_id);

CREATE TABLE IF NOT EXISTS batch_documents (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	byte_size BIGINT NOT NULL,
	storage_path TEXT NOT NULL,
	position INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_documents_batch_id ON batch_documents(batch_id, position);

CREATE TABLE IF NOT EXISTS assessments (
	id TEXT PRIMARY KEY,
	worker_id TEXT NOT NULL,
	batch_id TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL,
	status TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	red_flag BOOLEAN NOT NULL,
	reasons JSONB NOT NULL DEFAULT '[]'::jsonb,
	facts JSONB NOT NULL,
	checks JSONB NOT NULL,
	narrative TEXT NOT NULL,
	narrative_source TEXT NOT NULL,
	notices JSONB NOT NULL DEFAULT '[]'::jsonb,
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_worker ON assessments(worker_id, generated_at);

CREATE TABLE IF NOT EXISTS worker_summaries (
	worker_id TEXT PRIMARY KEY,
	worker_name TEXT NOT NULL,
	case_reference TEXT NOT NULL,
	latest_status TEXT NOT NULL,
	latest_risk_level TEXT NOT NULL,
	red_flag BOOLEAN NOT NULL,
	assessment_count INT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_worker_summaries_updated_at ON worker_summaries(updated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
