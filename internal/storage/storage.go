// Package storage selects the key-value backend the ledger state lives in.
package storage

import (
	"fmt"
	"os"

	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/badger"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/bbolt"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/leveldb"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/memory"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/pebble"
)

// Supported backend names
const (
	BackendPebble  = "pebble"
	BackendBBolt   = "bbolt"
	BackendLevelDB = "leveldb"
	BackendBadger  = "badger"
	BackendMemory  = "memory"
)

// Backends lists every supported backend name.
func Backends() []string {
	return []string{BackendPebble, BackendBBolt, BackendLevelDB, BackendBadger, BackendMemory}
}

// OpenManager returns a database manager for backend rooted at path.
// The directory is created when needed; the memory backend ignores path.
func OpenManager(backend, path string) (keyValueDb.Manager, error) {
	if backend != BackendMemory {
		if path == "" {
			return nil, fmt.Errorf("storage path is required for backend %q", backend)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	switch backend {
	case BackendPebble:
		return pebble.NewManager(path), nil
	case BackendBBolt:
		return bbolt.NewBBoltManager(path), nil
	case BackendLevelDB:
		return leveldb.NewManager(path), nil
	case BackendBadger:
		return badger.NewManager(path), nil
	case BackendMemory:
		return memory.NewManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
