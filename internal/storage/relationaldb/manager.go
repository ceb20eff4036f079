package relationaldb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Metrics receives database operation measurements
type Metrics interface {
	IncrementCounter(name string, tags map[string]string)
	RecordDuration(name string, duration time.Duration, tags map[string]string)
}

// NoOpMetrics provides a no-op metrics implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) IncrementCounter(name string, tags map[string]string)                       {}
func (m *NoOpMetrics) RecordDuration(name string, duration time.Duration, tags map[string]string) {}

// Manager provides lifecycle management and utilities for database operations
type Manager struct {
	repoManager RepositoryManager
	config      *Config
	logger      logrus.FieldLogger
	metrics     Metrics

	// Health checking
	healthCheckInterval time.Duration
	healthCancel        context.CancelFunc
	healthWg            sync.WaitGroup

	// Connection state
	mu        sync.RWMutex
	connected bool
	lastError error
}

// ManagerOption defines functional options for Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger for the manager
func WithLogger(logger logrus.FieldLogger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics collector for the manager
func WithMetrics(metrics Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithHealthCheckInterval sets the health check interval. Zero disables
// the background checker.
func WithHealthCheckInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		m.healthCheckInterval = interval
	}
}

// NewManager creates a new database manager
func NewManager(repoManager RepositoryManager, config *Config, options ...ManagerOption) *Manager {
	manager := &Manager{
		repoManager:         repoManager,
		config:              config,
		logger:              logrus.StandardLogger(),
		metrics:             &NoOpMetrics{},
		healthCheckInterval: time.Minute,
	}

	for _, option := range options {
		option(manager)
	}

	manager.logger = manager.logger.WithField("component", "relationaldb")
	return manager
}

func (m *Manager) tags(extra ...string) map[string]string {
	tags := map[string]string{"driver": m.config.Driver}
	for i := 0; i+1 < len(extra); i += 2 {
		tags[extra[i]] = extra[i+1]
	}
	return tags
}

// Open opens the database connection, applies migrations and starts the
// health checker
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return nil
	}

	if err := m.repoManager.Open(ctx); err != nil {
		m.lastError = err
		m.logger.WithError(err).Error("Failed to open database connection")
		m.metrics.IncrementCounter("db.connection.failed", m.tags())
		return WrapError(err, "open_database")
	}

	if err := m.repoManager.System().Ping(ctx); err != nil {
		m.lastError = err
		m.logger.WithError(err).Error("Database health check failed")
		m.metrics.IncrementCounter("db.health_check.failed", m.tags())
		return WrapError(err, "initial_health_check")
	}

	m.connected = true
	m.lastError = nil
	m.startHealthChecker()

	m.logger.WithFields(logrus.Fields{
		"driver":   m.config.Driver,
		"database": m.config.Database,
	}).Info("Database manager opened")
	m.metrics.IncrementCounter("db.connection.opened", m.tags())

	return nil
}

// Close stops the health checker and closes the database connection
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.connected = false
	m.mu.Unlock()

	m.stopHealthChecker()

	if err := m.repoManager.Close(ctx); err != nil {
		m.logger.WithError(err).Error("Failed to close database connection")
		m.metrics.IncrementCounter("db.connection.close_failed", m.tags())
		return WrapError(err, "close_database")
	}

	m.logger.Info("Database manager closed")
	m.metrics.IncrementCounter("db.connection.closed", m.tags())
	return nil
}

// IsConnected returns whether the database is connected
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// LastError returns the last error encountered
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// HealthCheck performs a manual health check
func (m *Manager) HealthCheck(ctx context.Context) error {
	start := time.Now()
	defer func() {
		m.metrics.RecordDuration("db.health_check.duration", time.Since(start), m.tags())
	}()

	if !m.IsConnected() {
		m.metrics.IncrementCounter("db.health_check.failed", m.tags("reason", "not_connected"))
		return ErrDatabaseClosed
	}

	if err := m.repoManager.System().Ping(ctx); err != nil {
		m.mu.Lock()
		m.lastError = err
		m.mu.Unlock()

		m.logger.WithError(err).Error("Health check failed")
		m.metrics.IncrementCounter("db.health_check.failed", m.tags("reason", "ping_failed"))
		return WrapError(err, "health_check")
	}

	m.metrics.IncrementCounter("db.health_check.success", m.tags())
	return nil
}

// ExecuteWithRetry executes a function with retry logic. Only errors
// classified as retryable are retried, with linear backoff capped at
// RetryMaxDelay.
func (m *Manager) ExecuteWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * m.config.RetryDelay
			if delay > m.config.RetryMaxDelay {
				delay = m.config.RetryMaxDelay
			}

			m.logger.WithFields(logrus.Fields{
				"attempt":    attempt,
				"delay":      delay,
				"last_error": lastErr,
			}).Debug("Retrying operation")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		start := time.Now()
		err := operation()
		m.metrics.RecordDuration("db.operation.duration", time.Since(start), m.tags("attempt", fmt.Sprintf("%d", attempt)))

		if err == nil {
			if attempt > 0 {
				m.metrics.IncrementCounter("db.operation.retry_success", m.tags())
			}
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			m.metrics.IncrementCounter("db.operation.non_retryable_error", m.tags())
			return err
		}
		m.metrics.IncrementCounter("db.operation.retryable_error", m.tags())
	}

	m.logger.WithFields(logrus.Fields{
		"attempts":   m.config.MaxRetries + 1,
		"last_error": lastErr,
	}).Error("Operation failed after all retries")
	m.metrics.IncrementCounter("db.operation.max_retries_exceeded", m.tags())

	return WrapError(lastErr, "execute_with_retry")
}

// ExecuteInTransaction executes a function within a transaction with retry logic
func (m *Manager) ExecuteInTransaction(ctx context.Context, operation func(TransactionContext) error) error {
	return m.ExecuteWithRetry(ctx, func() error {
		return m.repoManager.WithTransaction(ctx, operation)
	})
}

// Repositories returns the underlying repository manager
func (m *Manager) Repositories() RepositoryManager {
	return m.repoManager
}

// Config returns the database configuration
func (m *Manager) Config() *Config {
	return m.config
}

func (m *Manager) startHealthChecker() {
	if m.healthCheckInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.healthCancel = cancel

	m.healthWg.Add(1)
	go func() {
		defer m.healthWg.Done()

		ticker := time.NewTicker(m.healthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, m.config.DefaultTimeout)
				_ = m.HealthCheck(checkCtx)
				cancel()
			}
		}
	}()
}

func (m *Manager) stopHealthChecker() {
	if m.healthCancel != nil {
		m.healthCancel()
		m.healthWg.Wait()
		m.healthCancel = nil
	}
}
