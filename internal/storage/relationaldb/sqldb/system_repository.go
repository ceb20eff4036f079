package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
)

// SystemRepository implements relationaldb.SystemRepository
type SystemRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func (r *SystemRepository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return relationaldb.ErrDatabaseClosed
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return relationaldb.NewConnectionError("ping", "database ping failed", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version
func (r *SystemRepository) SchemaVersion(ctx context.Context) (uint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, relationaldb.NewSchemaError("schema_version", "failed to read schema version", err)
	}
	return uint(version), nil
}
