// Package ledger holds the current ledger state: every entry keyed by its
// keylet, persisted in a key-value store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/storage/compression"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/memory"
)

// StateDBName is the key-value namespace holding ledger entries.
const StateDBName = "state"

// DefaultCacheSize is the number of entries kept in the read cache.
const DefaultCacheSize = 4096

var (
	ErrEntryExists   = errors.New("ledger entry already exists")
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// StateConfig configures a State.
type StateConfig struct {
	// CacheSize is the number of decoded entries kept in memory
	CacheSize int

	// Compressor encodes values at rest. Nil stores values as-is.
	Compressor compression.Compressor
}

type pendingWrite struct {
	data    []byte
	deleted bool
}

// State is the ledger view the transaction engine applies to. Writes are
// staged until Commit, which persists them as one key-value batch; Discard
// drops them. Get and ForEach only ever see committed data.
type State struct {
	mu sync.RWMutex

	db         keyValueDb.DB
	compressor compression.Compressor
	cache      *lru.Cache[[32]byte, []byte]

	pending map[[32]byte]*pendingWrite

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewState wraps db as ledger state.
func NewState(db keyValueDb.DB, cfg StateConfig) (*State, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Compressor == nil {
		cfg.Compressor = &compression.NoCompressor{}
	}

	cache, err := lru.New[[32]byte, []byte](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &State{
		db:         db,
		compressor: cfg.Compressor,
		cache:      cache,
		pending:    make(map[[32]byte]*pendingWrite),
	}, nil
}

// NewMemoryState returns an empty State backed by memory.
func NewMemoryState() *State {
	s, err := NewState(memory.NewDB(), StateConfig{})
	if err != nil {
		panic(err)
	}
	return s
}

// Get reads a committed entry. It returns nil data when the entry does not exist.
func (s *State) Get(k keylet.Keylet) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed(k.Key)
}

func (s *State) committed(key [32]byte) ([]byte, error) {
	if data, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return data, nil
	}
	s.misses.Add(1)

	raw, err := s.db.Read(context.Background(), key[:])
	if errors.Is(err, keyValueDb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger entry %X: %w", key, err)
	}

	data, err := s.compressor.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decode ledger entry %X: %w", key, err)
	}
	s.cache.Add(key, data)
	return data, nil
}

// Read reads an entry including staged writes.
func (s *State) Read(k keylet.Keylet) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.pending[k.Key]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.data, nil
	}
	return s.committed(k.Key)
}

// Exists checks if an entry exists, including staged writes.
func (s *State) Exists(k keylet.Keylet) (bool, error) {
	data, err := s.Read(k)
	return data != nil, err
}

// Insert stages a new entry.
func (s *State) Insert(k keylet.Keylet, data []byte) error {
	exists, err := s.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return ErrEntryExists
	}
	s.stage(k.Key, &pendingWrite{data: data})
	return nil
}

// Update stages a change to an existing entry.
func (s *State) Update(k keylet.Keylet, data []byte) error {
	exists, err := s.Exists(k)
	if err != nil {
		return err
	}
	if !exists {
		return ErrEntryNotFound
	}
	s.stage(k.Key, &pendingWrite{data: data})
	return nil
}

// Erase stages removal of an existing entry.
func (s *State) Erase(k keylet.Keylet) error {
	exists, err := s.Exists(k)
	if err != nil {
		return err
	}
	if !exists {
		return ErrEntryNotFound
	}
	s.stage(k.Key, &pendingWrite{deleted: true})
	return nil
}

func (s *State) stage(key [32]byte, w *pendingWrite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = w
}

// Commit persists all staged writes as one batch.
func (s *State) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	ops := make([]keyValueDb.BatchOperation, 0, len(s.pending))
	for key, w := range s.pending {
		k := key
		if w.deleted {
			ops = append(ops, keyValueDb.BatchOperation{Type: keyValueDb.BatchDelete, Key: k[:]})
			continue
		}
		packed, err := s.compressor.Compress(w.data)
		if err != nil {
			return fmt.Errorf("encode ledger entry %X: %w", key, err)
		}
		ops = append(ops, keyValueDb.BatchOperation{Type: keyValueDb.BatchPut, Key: k[:], Value: packed})
	}

	if err := s.db.Batch(context.Background(), ops); err != nil {
		return fmt.Errorf("commit ledger batch: %w", err)
	}

	for key, w := range s.pending {
		if w.deleted {
			s.cache.Remove(key)
		} else {
			s.cache.Add(key, w.data)
		}
	}
	s.pending = make(map[[32]byte]*pendingWrite)
	return nil
}

// Discard drops all staged writes.
func (s *State) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[[32]byte]*pendingWrite)
}

// ForEach calls fn for every committed entry in key order until fn returns false.
func (s *State) ForEach(ctx context.Context, fn func(key [32]byte, data []byte) bool) error {
	it, err := s.db.Iterator(ctx, nil, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var key [32]byte
		if len(it.Key()) != len(key) {
			continue
		}
		copy(key[:], it.Key())

		data, err := s.compressor.Decompress(it.Value())
		if err != nil {
			return fmt.Errorf("decode ledger entry %X: %w", key, err)
		}
		if !fn(key, data) {
			break
		}
	}
	return it.Error()
}

// CacheStats reports read cache hits and misses since start.
func (s *State) CacheStats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}
