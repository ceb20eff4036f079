// Package badger provides a keyValueDb backend on BadgerDB.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
)

type DB struct {
	db *badger.DB
}

func NewDB(db *badger.DB) *DB {
	return &DB{db: db}
}

func (b *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if b.db == nil {
		return nil, keyValueDb.ErrDBClosed
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, keyValueDb.ErrKeyNotFound
	}
	return value, err
}

func (b *DB) Write(ctx context.Context, key, value []byte) error {
	if b.db == nil {
		return keyValueDb.ErrDBClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *DB) Delete(ctx context.Context, key []byte) error {
	if b.db == nil {
		return keyValueDb.ErrDBClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *DB) Batch(ctx context.Context, ops []keyValueDb.BatchOperation) error {
	if b.db == nil {
		return keyValueDb.ErrDBClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			switch op.Type {
			case keyValueDb.BatchPut:
				err = txn.Set(op.Key, op.Value)
			case keyValueDb.BatchDelete:
				err = txn.Delete(op.Key)
			default:
				return fmt.Errorf("%w: %d", keyValueDb.ErrUnknownBatchOp, op.Type)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *DB) Iterator(ctx context.Context, start, end []byte) (keyValueDb.Iterator, error) {
	if b.db == nil {
		return nil, keyValueDb.ErrDBClosed
	}

	txn := b.db.NewTransaction(false)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	return &Iterator{txn: txn, iter: it, start: start, end: end}, nil
}

type Iterator struct {
	txn        *badger.Txn
	iter       *badger.Iterator
	started    bool
	start, end []byte
	key, value []byte
	err        error
}

func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
		if it.start != nil {
			it.iter.Seek(it.start)
		} else {
			it.iter.Rewind()
		}
	} else {
		it.iter.Next()
	}

	if !it.iter.Valid() {
		return false
	}

	item := it.iter.Item()
	key := item.KeyCopy(nil)
	if it.end != nil && bytes.Compare(key, it.end) >= 0 {
		return false
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		it.err = err
		return false
	}

	it.key, it.value = key, value
	return true
}

func (it *Iterator) Key() []byte { return it.key }

func (it *Iterator) Value() []byte { return it.value }

func (it *Iterator) Error() error { return it.err }

func (it *Iterator) Close() error {
	it.iter.Close()
	it.txn.Discard()
	return nil
}

type Manager struct {
	mu   sync.Mutex
	dbs  map[string]*badger.DB
	path string
}

func NewManager(path string) *Manager {
	return &Manager{
		dbs:  make(map[string]*badger.DB),
		path: path,
	}
}

func (m *Manager) OpenDB(name string) (keyValueDb.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, exists := m.dbs[name]; exists {
		return NewDB(db), nil
	}

	opts := badger.DefaultOptions(filepath.Join(m.path, name+".badger")).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}

	m.dbs[name] = db
	return NewDB(db), nil
}

func (m *Manager) CloseDB(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	db, exists := m.dbs[name]
	if !exists {
		return fmt.Errorf("%w: %s", keyValueDb.ErrNamespaceNotFound, name)
	}
	if err := db.Close(); err != nil {
		return err
	}
	delete(m.dbs, name)
	return nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for name, db := range m.dbs {
		if err := db.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close database %s: %w", name, err)
		}
		delete(m.dbs, name)
	}
	return lastErr
}
