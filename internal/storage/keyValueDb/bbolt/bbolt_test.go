package bbolt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/kvtest"
)

func TestBboltConformance(t *testing.T) {
	kvtest.RunConformance(t, func(t *testing.T) keyValueDb.Manager {
		return NewBBoltManager(t.TempDir())
	})
}

func TestDatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	manager := NewBBoltManager(dir)

	db, err := manager.OpenDB("test")
	require.NoError(t, err)
	require.NoError(t, db.Write(ctx, []byte("lifecycle-test"), []byte("test-value")))
	require.NoError(t, manager.CloseDB("test"))

	_, err = os.Stat(filepath.Join(dir, "test.db"))
	assert.NoError(t, err, "database file was not created")

	// Data survives a reopen
	db, err = manager.OpenDB("test")
	require.NoError(t, err)
	got, err := db.Read(ctx, []byte("lifecycle-test"))
	require.NoError(t, err)
	assert.Equal(t, "test-value", string(got))
	require.NoError(t, manager.Close())
}
