package config

import (
	"fmt"
	"slices"

	"github.com/LeJamon/goEscrowd/internal/storage"
	"github.com/LeJamon/goEscrowd/internal/storage/compression"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
)

// StorageConfig represents the [storage] section: where ledger state lives
type StorageConfig struct {
	// Backend is one of pebble, bbolt, leveldb, badger or memory
	Backend string `toml:"backend" mapstructure:"backend"`
	Path    string `toml:"path" mapstructure:"path"`

	// Compression names the value compressor (none or lz4)
	Compression string `toml:"compression" mapstructure:"compression"`

	// CacheSize is the number of decoded entries kept in memory
	CacheSize int `toml:"cache_size" mapstructure:"cache_size"`
}

// Validate validates the storage configuration
func (s *StorageConfig) Validate() error {
	if !slices.Contains(storage.Backends(), s.Backend) {
		return fmt.Errorf("unknown backend %q, supported: %v", s.Backend, storage.Backends())
	}
	if s.Backend != storage.BackendMemory && s.Path == "" {
		return fmt.Errorf("path is required for backend %s", s.Backend)
	}
	if !slices.Contains(compression.Available(), s.Compression) {
		return fmt.Errorf("unknown compression %q, supported: %v", s.Compression, compression.Available())
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache_size cannot be negative")
	}
	return nil
}

// IndexConfig represents the [index] section. The connection settings are
// those of relationaldb.Config and sit directly in the section.
type IndexConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`

	// QueueSize bounds the transactions waiting to be indexed
	QueueSize int `toml:"queue_size" mapstructure:"queue_size"`

	relationaldb.Config `mapstructure:",squash"`
}

// Validate validates the index configuration. A disabled index is not
// checked further.
func (i *IndexConfig) Validate() error {
	if !i.Enabled {
		return nil
	}
	if i.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	return i.Config.Validate()
}

// DBConfig returns a copy of the relational connection settings
func (i *IndexConfig) DBConfig() *relationaldb.Config {
	c := i.Config
	return &c
}
