package relationaldb

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"postgres alias", func(c *Config) { c.Driver = "PostgreSQL" }, nil},
		{"sqlite3 alias", func(c *Config) { c.Driver = "sqlite3" }, nil},
		{"unknown driver", func(c *Config) { c.Driver = "mysql" }, ErrInvalidDriver},
		{"postgres without host", func(c *Config) { c.Driver = DriverPostgres; c.Host = "" }, ErrMissingHost},
		{"postgres bad port", func(c *Config) { c.Driver = DriverPostgres; c.Port = 70000 }, ErrInvalidPort},
		{"sqlite without path", func(c *Config) { c.Database = "" }, ErrMissingDatabase},
		{"connection string skips parts", func(c *Config) { c.Driver = DriverPostgres; c.Host = ""; c.ConnectionString = "postgres://x" }, nil},
		{"idle above open", func(c *Config) { c.MaxOpenConns = 1; c.MaxIdleConns = 2 }, ErrMaxIdleExceedsMaxOpen},
		{"zero timeout", func(c *Config) { c.DefaultTimeout = 0 }, ErrInvalidTimeout},
		{"negative lifetime", func(c *Config) { c.ConnMaxLifetime = -time.Second }, ErrInvalidConnLifetime},
		{"retry max below delay", func(c *Config) { c.RetryMaxDelay = time.Millisecond }, ErrInvalidRetryMaxDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfigValidateNormalizesDriver(t *testing.T) {
	c := NewConfig()
	c.Driver = "postgresql"
	require.NoError(t, c.Validate())
	assert.Equal(t, DriverPostgres, c.Driver)
}

func TestBuildConnectionString(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		c := PostgresConfig()
		c.Password = "s3cret"
		dsn, err := c.BuildConnectionString()
		require.NoError(t, err)

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		assert.Equal(t, "postgres", u.Scheme)
		assert.Equal(t, "localhost:5432", u.Host)
		assert.Equal(t, "/escrowd", u.Path)
		assert.Equal(t, "escrowd", u.User.Username())
		assert.Equal(t, "prefer", u.Query().Get("sslmode"))
		assert.NotContains(t, c.String(), "s3cret")
	})

	t.Run("sqlite", func(t *testing.T) {
		c := SQLiteConfig("/tmp/index.db")
		dsn, err := c.BuildConnectionString()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(dsn, "file:/tmp/index.db?"))

		q, err := url.ParseQuery(dsn[strings.Index(dsn, "?")+1:])
		require.NoError(t, err)
		assert.Contains(t, q["_pragma"], "busy_timeout(5000)")
		assert.Contains(t, q["_pragma"], "journal_mode(WAL)")
	})

	t.Run("explicit", func(t *testing.T) {
		c := NewConfig()
		c.ConnectionString = "file:other.db"
		dsn, err := c.BuildConnectionString()
		require.NoError(t, err)
		assert.Equal(t, "file:other.db", dsn)
	})
}

func TestDatabaseErrorIs(t *testing.T) {
	err := NewDataError("get_escrow", "escrow not found", nil).WithCode("ESCROW_NOT_FOUND")
	assert.True(t, errors.Is(err, ErrEscrowNotFound))
	assert.False(t, errors.Is(err, ErrDuplicateEntry))

	wrapped := WrapError(err, "rpc")
	assert.True(t, errors.Is(wrapped, ErrEscrowNotFound))

	dup := NewConstraintError("open_escrow", "escrow already open", nil).WithCode("DUPLICATE_ENTRY")
	assert.True(t, errors.Is(dup, ErrDuplicateEntry))
	assert.True(t, IsConstraintError(dup))
	assert.False(t, IsRetryable(dup))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewConnectionError("open", "down", nil)))
	assert.True(t, IsRetryable(NewQueryError("q", "failed", errors.New("database is locked"))))
	assert.False(t, IsRetryable(NewQueryError("q", "failed", errors.New("syntax error"))))
	assert.True(t, IsRetryable(errors.New("read: connection reset by peer")))
	assert.False(t, IsRetryable(nil))
}

type fakeSystem struct {
	pingErr error
}

func (f *fakeSystem) Ping(ctx context.Context) error                  { return f.pingErr }
func (f *fakeSystem) SchemaVersion(ctx context.Context) (uint, error) { return 2, nil }

type fakeRepos struct {
	system  *fakeSystem
	openErr error
	opened  int
	closed  int
}

func (f *fakeRepos) Escrow() EscrowRepository           { return nil }
func (f *fakeRepos) Transaction() TransactionRepository { return nil }
func (f *fakeRepos) System() SystemRepository           { return f.system }
func (f *fakeRepos) Open(ctx context.Context) error {
	f.opened++
	return f.openErr
}
func (f *fakeRepos) Close(ctx context.Context) error {
	f.closed++
	return nil
}
func (f *fakeRepos) WithTransaction(ctx context.Context, fn func(TransactionContext) error) error {
	return fn(nil)
}

type countingMetrics struct {
	counters map[string]int
}

func (m *countingMetrics) IncrementCounter(name string, tags map[string]string) {
	m.counters[name]++
}
func (m *countingMetrics) RecordDuration(name string, d time.Duration, tags map[string]string) {}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := &fakeRepos{system: &fakeSystem{}}
	metrics := &countingMetrics{counters: map[string]int{}}
	m := NewManager(repos, NewConfig(), WithMetrics(metrics), WithHealthCheckInterval(0))

	require.NoError(t, m.Open(ctx))
	require.NoError(t, m.Open(ctx))
	assert.Equal(t, 1, repos.opened)
	assert.True(t, m.IsConnected())
	require.NoError(t, m.HealthCheck(ctx))

	require.NoError(t, m.Close(ctx))
	assert.False(t, m.IsConnected())
	assert.Equal(t, 1, repos.closed)
	assert.ErrorIs(t, m.HealthCheck(ctx), ErrDatabaseClosed)

	assert.Equal(t, 1, metrics.counters["db.connection.opened"])
	assert.Equal(t, 1, metrics.counters["db.health_check.success"])
}

func TestManagerOpenFailure(t *testing.T) {
	repos := &fakeRepos{system: &fakeSystem{}, openErr: NewConnectionError("open", "refused", nil)}
	m := NewManager(repos, NewConfig(), WithHealthCheckInterval(0))

	err := m.Open(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.False(t, m.IsConnected())
	assert.Error(t, m.LastError())
}

func TestExecuteWithRetry(t *testing.T) {
	cfg := NewConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RetryMaxDelay = 2 * time.Millisecond
	m := NewManager(&fakeRepos{system: &fakeSystem{}}, cfg, WithHealthCheckInterval(0))

	t.Run("retryable then success", func(t *testing.T) {
		calls := 0
		err := m.ExecuteWithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return NewConnectionError("q", "reset", nil)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non retryable stops", func(t *testing.T) {
		calls := 0
		err := m.ExecuteWithRetry(context.Background(), func() error {
			calls++
			return NewConstraintError("q", "dup", nil)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := m.ExecuteWithRetry(context.Background(), func() error {
			calls++
			return NewConnectionError("q", "down", nil)
		})
		require.Error(t, err)
		assert.Equal(t, cfg.MaxRetries+1, calls)
	})
}
