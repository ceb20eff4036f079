// Package sqldb implements the relational escrow index on database/sql.
// PostgreSQL is reached through lib/pq and SQLite through the pure Go
// modernc.org/sqlite driver; both share one schema and one set of queries.
package sqldb

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
)

// RepositoryManager implements relationaldb.RepositoryManager
type RepositoryManager struct {
	db     *sql.DB
	config *relationaldb.Config
	d      dialect

	escrowRepo      *EscrowRepository
	transactionRepo *TransactionRepository
	systemRepo      *SystemRepository
}

// NewRepositoryManager creates a repository manager for config.Driver
func NewRepositoryManager(config *relationaldb.Config) (*RepositoryManager, error) {
	if err := config.Validate(); err != nil {
		return nil, relationaldb.NewConfigurationError("new_repository_manager", "invalid configuration", err)
	}

	return &RepositoryManager{
		config: config,
		d:      dialectFor(config.Driver),
	}, nil
}

// Open connects, migrates the schema and builds the repositories
func (rm *RepositoryManager) Open(ctx context.Context) error {
	connStr, err := rm.config.BuildConnectionString()
	if err != nil {
		return relationaldb.NewConfigurationError("open", "failed to build connection string", err)
	}

	sqlDB, err := sql.Open(rm.config.Driver, connStr)
	if err != nil {
		return relationaldb.NewConnectionError("open", "failed to open database connection", err)
	}

	sqlDB.SetMaxOpenConns(rm.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(rm.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(rm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(rm.config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, rm.config.DefaultTimeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return relationaldb.NewConnectionError("open", "failed to ping database", err).WithCode("CONNECTION_FAILED")
	}

	if err := migrateUp(rm.config.Driver, connStr); err != nil {
		sqlDB.Close()
		return relationaldb.NewSchemaError("open", "failed to migrate schema", err)
	}

	rm.db = sqlDB
	rm.escrowRepo = newEscrowRepository(sqlDB, rm.d, rm.config.DefaultTimeout)
	rm.transactionRepo = newTransactionRepository(sqlDB, rm.d, rm.config.DefaultTimeout)
	rm.systemRepo = &SystemRepository{db: sqlDB, timeout: rm.config.DefaultTimeout}

	return nil
}

// Close closes the connection pool
func (rm *RepositoryManager) Close(ctx context.Context) error {
	if rm.db == nil {
		return nil
	}

	err := rm.db.Close()
	rm.db = nil
	rm.escrowRepo = nil
	rm.transactionRepo = nil
	rm.systemRepo = nil

	if err != nil {
		return relationaldb.NewConnectionError("close", "failed to close database connection", err)
	}
	return nil
}

func (rm *RepositoryManager) Escrow() relationaldb.EscrowRepository {
	return rm.escrowRepo
}

func (rm *RepositoryManager) Transaction() relationaldb.TransactionRepository {
	return rm.transactionRepo
}

func (rm *RepositoryManager) System() relationaldb.SystemRepository {
	return rm.systemRepo
}

// WithTransaction runs fn inside a database transaction
func (rm *RepositoryManager) WithTransaction(ctx context.Context, fn func(relationaldb.TransactionContext) error) error {
	if rm.db == nil {
		return relationaldb.ErrDatabaseClosed
	}

	tx, err := rm.db.BeginTx(ctx, nil)
	if err != nil {
		return relationaldb.NewTransactionError("begin", "failed to begin transaction", err)
	}
	tc := newTransactionContext(tx, rm.d, rm.config.DefaultTimeout)

	defer func() {
		if p := recover(); p != nil {
			_ = tc.Rollback()
			panic(p)
		}
	}()

	if err := fn(tc); err != nil {
		_ = tc.Rollback()
		return err
	}
	return tc.Commit()
}
