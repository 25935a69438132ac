package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qmetl/internal/storage"
)

// Repo implements storage.Repository for Postgres, the shared warehouse
// downstream consumers query. Payloads are JSONB so the warehouse can index
// into record fields directly.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
	record_type      TEXT NOT NULL,
	performance_year INT  NOT NULL,
	record_id        TEXT NOT NULL,
	payload          JSONB NOT NULL,
	PRIMARY KEY (record_type, performance_year, record_id)
)`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// UpsertRecords publishes the collection in one batch inside a transaction;
// ON CONFLICT overwrite makes re-publication idempotent.
func (r *Repo) UpsertRecords(ctx context.Context, recordType string, year int, ids []string, payloads [][]byte) (int64, error) {
	if len(ids) != len(payloads) {
		return 0, fmt.Errorf("postgres: %d ids for %d payloads", len(ids), len(payloads))
	}
	if len(ids) == 0 {
		return 0, nil
	}

	const q = `
INSERT INTO records (record_type, performance_year, record_id, payload)
VALUES ($1, $2, $3, $4)
ON CONFLICT (record_type, performance_year, record_id)
DO UPDATE SET payload = EXCLUDED.payload`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, id := range ids {
		if id == "" {
			return 0, fmt.Errorf("postgres: record %d has empty id", i)
		}
		batch.Queue(q, recordType, year, id, payloads[i])
	}

	br := tx.SendBatch(ctx, batch)
	var n int64
	for range ids {
		ct, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("upsert batch: %w", err)
		}
		n += ct.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}
