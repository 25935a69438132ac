package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"qmetl/internal/storage"
)

// Repo implements storage.Repository for SQLite. The embedded database is
// the local publication artifact: a single file that ships alongside the
// JSON output and can be queried without a server.
//
// Payloads are stored as TEXT; modernc.org/sqlite has no JSON column type,
// and consumers use json_extract over the text anyway.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
	record_type      TEXT NOT NULL,
	performance_year INTEGER NOT NULL,
	record_id        TEXT NOT NULL,
	payload          TEXT NOT NULL,
	PRIMARY KEY (record_type, performance_year, record_id)
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// UpsertRecords writes the collection in one transaction. INSERT OR REPLACE
// relies on the primary key, so re-publishing a run is idempotent.
func (r *Repo) UpsertRecords(ctx context.Context, recordType string, year int, ids []string, payloads [][]byte) (int64, error) {
	if len(ids) != len(payloads) {
		return 0, fmt.Errorf("sqlite: %d ids for %d payloads", len(ids), len(payloads))
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO records (record_type, performance_year, record_id, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for i, id := range ids {
		if id == "" {
			return 0, fmt.Errorf("sqlite: record %d has empty id", i)
		}
		if _, err := stmt.ExecContext(ctx, recordType, year, id, string(payloads[i])); err != nil {
			return 0, fmt.Errorf("upsert record %q: %w", id, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
