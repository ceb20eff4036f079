package di

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrowd/internal/config"
	"github.com/LeJamon/goEscrowd/internal/core/ledger"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/logging"
	"github.com/LeJamon/goEscrowd/internal/metrics"
	"github.com/LeJamon/goEscrowd/internal/rpc"
	"github.com/LeJamon/goEscrowd/internal/storage"
	"github.com/LeJamon/goEscrowd/internal/storage/compression"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb/sqldb"
)

// Provider configures and registers services in the container.
type Provider struct {
	container *Container
	config    *config.Config
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{
		container: container,
		config:    cfg,
	}
}

// RegisterAll registers all services.
func (p *Provider) RegisterAll() error {
	if p.config == nil {
		return fmt.Errorf("provider needs a configuration")
	}
	p.container.Register(ServiceConfig, p.config)

	// Register builders for lazy instantiation
	p.registerObservabilityBuilders()
	p.registerStorageBuilders()
	p.registerLedgerBuilders()
	p.registerRPCBuilders()

	return nil
}

// registerObservabilityBuilders registers the logger and metrics builders.
func (p *Provider) registerObservabilityBuilders() {
	p.container.RegisterBuilder(ServiceLogger, func(c *Container) (interface{}, error) {
		return logging.New(p.config.Log)
	})

	p.container.RegisterBuilder(ServiceMetrics, func(c *Container) (interface{}, error) {
		if !p.config.Server.Metrics {
			return nil, nil
		}
		return metrics.New(), nil
	})
}

// registerStorageBuilders registers storage service builders.
func (p *Provider) registerStorageBuilders() {
	// Key-value store holding the ledger state
	p.container.RegisterBuilder(ServiceKVStore, func(c *Container) (interface{}, error) {
		mgr, err := storage.OpenManager(p.config.Storage.Backend, p.config.Storage.Path)
		if err != nil {
			return nil, err
		}
		c.OnClose(ServiceKVStore, func(context.Context) error { return mgr.Close() })
		return mgr, nil
	})

	p.container.RegisterBuilder(ServiceLedgerState, func(c *Container) (interface{}, error) {
		mgr, err := Resolve[keyValueDb.Manager](c, ServiceKVStore)
		if err != nil {
			return nil, err
		}
		db, err := mgr.OpenDB(ledger.StateDBName)
		if err != nil {
			return nil, fmt.Errorf("open state database: %w", err)
		}
		compressor, err := compression.Get(p.config.Storage.Compression)
		if err != nil {
			return nil, err
		}
		return ledger.NewState(db, ledger.StateConfig{
			CacheSize:  p.config.Storage.CacheSize,
			Compressor: compressor,
		})
	})

	// Escrow index. Absent unless enabled.
	p.container.RegisterBuilder(ServiceRelationalDB, func(c *Container) (interface{}, error) {
		if !p.config.IndexEnabled() {
			return nil, nil
		}
		logger, err := Resolve[*logrus.Logger](c, ServiceLogger)
		if err != nil {
			return nil, err
		}
		m, err := Resolve[*metrics.Metrics](c, ServiceMetrics)
		if err != nil {
			return nil, err
		}

		dbConfig := p.config.Index.DBConfig()
		repo, err := sqldb.NewRepositoryManager(dbConfig)
		if err != nil {
			return nil, err
		}
		opts := []relationaldb.ManagerOption{relationaldb.WithLogger(logger)}
		if m != nil {
			opts = append(opts, relationaldb.WithMetrics(m))
		}
		mgr := relationaldb.NewManager(repo, dbConfig, opts...)

		ctx, cancel := openContext(dbConfig)
		defer cancel()
		if err := mgr.Open(ctx); err != nil {
			return nil, err
		}
		c.OnClose(ServiceRelationalDB, mgr.Close)
		return mgr, nil
	})
}

func openContext(cfg *relationaldb.Config) (context.Context, context.CancelFunc) {
	if cfg.DefaultTimeout > 0 {
		return context.WithTimeout(context.Background(), cfg.DefaultTimeout)
	}
	return context.WithCancel(context.Background())
}

// registerLedgerBuilders registers ledger service builders.
func (p *Provider) registerLedgerBuilders() {
	p.container.RegisterBuilder(ServiceLedger, func(c *Container) (interface{}, error) {
		logger, err := Resolve[*logrus.Logger](c, ServiceLogger)
		if err != nil {
			return nil, err
		}
		m, err := Resolve[*metrics.Metrics](c, ServiceMetrics)
		if err != nil {
			return nil, err
		}
		state, err := Resolve[*ledger.State](c, ServiceLedgerState)
		if err != nil {
			return nil, err
		}
		index, err := Resolve[*relationaldb.Manager](c, ServiceRelationalDB)
		if err != nil {
			return nil, err
		}

		cfg := service.Config{
			Engine:         p.config.Ledger.EngineConfig(),
			State:          state,
			IndexQueueSize: p.config.Index.QueueSize,
			Observers:      []tx.Observer{logging.Transitions(logger)},
			Logger:         logger,
		}
		if index != nil {
			cfg.Index = index.Repositories()
		}
		if m != nil {
			cfg.Observers = append(cfg.Observers, m)
			m.RegisterCache(state.CacheStats)
		}

		svc, err := service.New(cfg)
		if err != nil {
			return nil, err
		}
		c.OnClose(ServiceLedger, svc.Stop)

		if m != nil {
			if info := svc.GetServerInfo(context.Background()); info.OpenEscrows >= 0 {
				m.SetOpenEscrows(info.OpenEscrows)
			}
		}
		return svc, nil
	})
}

// registerRPCBuilders registers RPC service builders.
func (p *Provider) registerRPCBuilders() {
	p.container.RegisterBuilder(ServiceRPCServer, func(c *Container) (interface{}, error) {
		logger, err := Resolve[*logrus.Logger](c, ServiceLogger)
		if err != nil {
			return nil, err
		}
		m, err := Resolve[*metrics.Metrics](c, ServiceMetrics)
		if err != nil {
			return nil, err
		}
		svc, err := p.GetLedgerService()
		if err != nil {
			return nil, err
		}

		opts := []rpc.Option{rpc.WithLogger(logger)}
		if m != nil {
			opts = append(opts, rpc.WithMetrics(m, m.Handler()))
		}
		return rpc.NewServer(p.config.Server, svc, opts...), nil
	})
}

// GetLedgerService returns the ledger service from the container.
func (p *Provider) GetLedgerService() (*service.Service, error) {
	return Resolve[*service.Service](p.container, ServiceLedger)
}

// GetRPCServer returns the RPC server from the container.
func (p *Provider) GetRPCServer() (*rpc.Server, error) {
	return Resolve[*rpc.Server](p.container, ServiceRPCServer)
}

// GetLogger returns the process logger from the container.
func (p *Provider) GetLogger() (*logrus.Logger, error) {
	return Resolve[*logrus.Logger](p.container, ServiceLogger)
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}
