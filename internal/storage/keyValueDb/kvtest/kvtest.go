// Package kvtest holds the behaviour every keyValueDb backend must share.
package kvtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
)

// RunConformance exercises a backend through a fresh manager.
func RunConformance(t *testing.T, newManager func(t *testing.T) keyValueDb.Manager) {
	ctx := context.Background()

	t.Run("ReadWriteDelete", func(t *testing.T) {
		m := newManager(t)
		defer m.Close()

		db, err := m.OpenDB("rwd")
		require.NoError(t, err)

		_, err = db.Read(ctx, []byte("missing"))
		require.ErrorIs(t, err, keyValueDb.ErrKeyNotFound)

		require.NoError(t, db.Write(ctx, []byte("k"), []byte("v")))
		got, err := db.Read(ctx, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		require.NoError(t, db.Delete(ctx, []byte("k")))
		_, err = db.Read(ctx, []byte("k"))
		require.ErrorIs(t, err, keyValueDb.ErrKeyNotFound)
	})

	t.Run("Batch", func(t *testing.T) {
		m := newManager(t)
		defer m.Close()

		db, err := m.OpenDB("batch")
		require.NoError(t, err)
		require.NoError(t, db.Write(ctx, []byte("gone"), []byte("x")))

		ops := []keyValueDb.BatchOperation{
			{Type: keyValueDb.BatchPut, Key: []byte("a"), Value: []byte("1")},
			{Type: keyValueDb.BatchPut, Key: []byte("b"), Value: []byte("2")},
			{Type: keyValueDb.BatchDelete, Key: []byte("gone")},
		}
		require.NoError(t, db.Batch(ctx, ops))

		for k, want := range map[string]string{"a": "1", "b": "2"} {
			got, err := db.Read(ctx, []byte(k))
			require.NoError(t, err)
			assert.Equal(t, want, string(got))
		}
		_, err = db.Read(ctx, []byte("gone"))
		assert.ErrorIs(t, err, keyValueDb.ErrKeyNotFound)
	})

	t.Run("IteratorRange", func(t *testing.T) {
		m := newManager(t)
		defer m.Close()

		db, err := m.OpenDB("iter")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			require.NoError(t, db.Write(ctx, []byte(fmt.Sprintf("key-%d", i)), []byte{byte(i)}))
		}

		it, err := db.Iterator(ctx, []byte("key-1"), []byte("key-4"))
		require.NoError(t, err)
		defer it.Close()

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		require.NoError(t, it.Error())
		assert.Equal(t, []string{"key-1", "key-2", "key-3"}, keys)
	})

	t.Run("IteratorOpenBounds", func(t *testing.T) {
		m := newManager(t)
		defer m.Close()

		db, err := m.OpenDB("open")
		require.NoError(t, err)
		require.NoError(t, db.Write(ctx, []byte("b"), []byte("2")))
		require.NoError(t, db.Write(ctx, []byte("a"), []byte("1")))

		it, err := db.Iterator(ctx, nil, nil)
		require.NoError(t, err)
		defer it.Close()

		var values []string
		for it.Next() {
			values = append(values, string(it.Value()))
		}
		assert.Equal(t, []string{"1", "2"}, values)
	})

	t.Run("CloseUnknown", func(t *testing.T) {
		m := newManager(t)
		defer m.Close()
		assert.Error(t, m.CloseDB("never-opened"))
	})
}
