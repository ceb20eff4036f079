// Package service wires the ledger state, the transaction engine and the
// escrow index together and answers the queries the RPC layer serves.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrowd/internal/core/ledger"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	_ "github.com/LeJamon/goEscrowd/internal/core/tx/all"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// Common errors
var (
	ErrNotFound         = errors.New("entry not found")
	ErrIndexDisabled    = errors.New("escrow index is not enabled")
	ErrServiceStopped   = errors.New("service is stopped")
	ErrInvalidFundTotal = errors.New("funding amount must be positive")
)

// Config holds configuration for the Service
type Config struct {
	// Engine configures reserves and signature checking
	Engine tx.EngineConfig

	// State is the ledger state. Nil uses an in-memory state.
	State *ledger.State

	// Index is the relational escrow index (optional). The service does
	// not open or close it.
	Index relationaldb.RepositoryManager

	// IndexQueueSize bounds the events waiting to be indexed
	IndexQueueSize int

	// Observers are subscribed to the engine after the service's own
	Observers []tx.Observer

	Logger logrus.FieldLogger
}

// DefaultConfig returns the default service configuration
func DefaultConfig() Config {
	return Config{
		Engine: tx.EngineConfig{
			ReserveBase:      200,
			ReserveIncrement: 50,
		},
		IndexQueueSize: 1024,
	}
}

// Service owns the engine and answers ledger queries
type Service struct {
	mu sync.RWMutex

	config    Config
	state     *ledger.State
	engine    *tx.Engine
	index     *EscrowIndex
	publisher *EventPublisher
	logger    logrus.FieldLogger

	started time.Time
	stopped bool
}

// New creates a Service. Observers run in this order: the event publisher,
// the escrow index, then cfg.Observers.
func New(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	state := cfg.State
	if state == nil {
		state = ledger.NewMemoryState()
	}

	s := &Service{
		config:    cfg,
		state:     state,
		engine:    tx.NewEngine(state, cfg.Engine),
		publisher: NewEventPublisher(),
		logger:    cfg.Logger.WithField("component", "service"),
		started:   time.Now(),
	}

	s.engine.Subscribe(s.publisher)
	if cfg.Index != nil {
		s.index = NewEscrowIndex(cfg.Index, cfg.IndexQueueSize, s.logger)
		s.engine.Subscribe(s.index)
	}
	for _, o := range cfg.Observers {
		s.engine.Subscribe(o)
	}

	return s, nil
}

// Stop drains the escrow index queue. Transactions submitted afterwards
// are rejected.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	if s.index != nil {
		return s.index.Close(ctx)
	}
	return nil
}

func (s *Service) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// Engine returns the transaction engine
func (s *Service) Engine() *tx.Engine {
	return s.engine
}

// State returns the ledger state
func (s *Service) State() *ledger.State {
	return s.state
}

// Publisher returns the event publisher the websocket stream subscribes to
func (s *Service) Publisher() *EventPublisher {
	return s.publisher
}

// IndexEnabled reports whether escrow history and listings come from the
// relational index.
func (s *Service) IndexEnabled() bool {
	return s.index != nil
}

// Submit applies a transaction.
func (s *Service) Submit(t tx.Transaction) (tx.ApplyResult, error) {
	if s.isStopped() {
		return tx.ApplyResult{}, ErrServiceStopped
	}
	return s.engine.Apply(t), nil
}

// SubmitJSON decodes a transaction from its JSON form and applies it.
func (s *Service) SubmitJSON(data []byte) (tx.ApplyResult, error) {
	t, err := tx.FromJSON(data)
	if err != nil {
		return tx.ApplyResult{}, err
	}
	return s.Submit(t)
}

// Fund credits amount reserve units to account, creating the account root
// when needed.
func (s *Service) Fund(account types.AccountID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidFundTotal
	}
	if s.isStopped() {
		return ErrServiceStopped
	}
	_, err := s.engine.Modify(func(view tx.LedgerView) error {
		return tx.FundAccount(view, account, amount)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"account": account.String(),
		"amount":  amount,
	}).Info("account funded")
	return nil
}

// ServerInfo describes the running service
type ServerInfo struct {
	Uptime           time.Duration
	ReserveBase      uint64
	ReserveIncrement uint64
	IndexEnabled     bool
	IndexPending     int
	CacheHits        uint64
	CacheMisses      uint64
	OpenEscrows      int64
}

// GetServerInfo reports service status. OpenEscrows is -1 when the index
// is disabled.
func (s *Service) GetServerInfo(ctx context.Context) ServerInfo {
	cfg := s.engine.Config()
	hits, misses := s.state.CacheStats()

	info := ServerInfo{
		Uptime:           time.Since(s.started),
		ReserveBase:      cfg.ReserveBase,
		ReserveIncrement: cfg.ReserveIncrement,
		IndexEnabled:     s.index != nil,
		CacheHits:        hits,
		CacheMisses:      misses,
		OpenEscrows:      -1,
	}
	if s.index != nil {
		info.IndexPending = s.index.Pending()
		if n, err := s.index.repos.Escrow().CountOpen(ctx); err == nil {
			info.OpenEscrows = n
		}
	}
	return info
}
