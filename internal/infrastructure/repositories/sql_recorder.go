package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/avatarctic/node-cache/internal/infrastructure/db"
)

// SQLRecorder implements ports.Recorder on the rpc_cache table. Every Record is committed
// immediately, so Save only has to push the storage engine to a checkpoint.
type SQLRecorder struct {
	db *db.Database

	getQuery    string
	upsertQuery string
}

// NewSQLRecorder creates a recorder over an already migrated database.
func NewSQLRecorder(database *db.Database) *SQLRecorder {
	return &SQLRecorder{
		db:       database,
		getQuery: database.DB.Rebind(`SELECT value FROM rpc_cache WHERE cache_key = ?`),
		upsertQuery: database.DB.Rebind(`
		INSERT INTO rpc_cache (cache_key, value)
		VALUES (?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET value = excluded.value`),
	}
}

func (r *SQLRecorder) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.DB.GetContext(ctx, &value, r.getQuery, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return value, true, nil
}

func (r *SQLRecorder) Record(ctx context.Context, key string, value []byte) error {
	// Sent as text so postgres can parse it into JSONB.
	if _, err := r.db.DB.ExecContext(ctx, r.upsertQuery, key, string(value)); err != nil {
		return fmt.Errorf("failed to record cache entry: %w", err)
	}
	return nil
}

// Save checkpoints the SQLite WAL into the main database file. Postgres commits are
// already durable, so there it only confirms the connection is alive.
func (r *SQLRecorder) Save(ctx context.Context) error {
	switch r.db.Driver {
	case db.DriverSQLite:
		if _, err := r.db.DB.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			return fmt.Errorf("failed to checkpoint sqlite: %w", err)
		}
	default:
		if err := r.db.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to reach database: %w", err)
		}
	}
	return nil
}

// Count returns the number of recorded entries.
func (r *SQLRecorder) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM rpc_cache`); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

func (r *SQLRecorder) Close() error {
	return r.db.Close()
}

var _ ports.Recorder = (*SQLRecorder)(nil)
