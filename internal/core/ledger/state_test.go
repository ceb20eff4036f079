package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/storage/compression"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/memory"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/mocks"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func testKey(b byte) keylet.Keylet {
	return keylet.Account(types.AccountID{b})
}

func TestStateStagesUntilCommit(t *testing.T) {
	s := NewMemoryState()
	k := testKey(1)

	require.NoError(t, s.Insert(k, []byte("v1")))

	staged, err := s.Read(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), staged)

	committed, err := s.Get(k)
	require.NoError(t, err)
	assert.Nil(t, committed, "staged write must not be visible to committed reads")

	require.NoError(t, s.Commit())

	committed, err = s.Get(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), committed)
}

func TestStateDiscard(t *testing.T) {
	s := NewMemoryState()
	k := testKey(2)

	require.NoError(t, s.Insert(k, []byte("v")))
	require.NoError(t, s.Commit())

	require.NoError(t, s.Update(k, []byte("changed")))
	require.NoError(t, s.Erase(testKey(2)))
	s.Discard()

	got, err := s.Read(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestStateEntryRules(t *testing.T) {
	s := NewMemoryState()
	k := testKey(3)

	assert.ErrorIs(t, s.Update(k, []byte("x")), ErrEntryNotFound)
	assert.ErrorIs(t, s.Erase(k), ErrEntryNotFound)

	require.NoError(t, s.Insert(k, []byte("x")))
	assert.ErrorIs(t, s.Insert(k, []byte("y")), ErrEntryExists)

	require.NoError(t, s.Erase(k))
	exists, err := s.Exists(k)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStateEraseCommitted(t *testing.T) {
	s := NewMemoryState()
	k := testKey(4)

	require.NoError(t, s.Insert(k, []byte("x")))
	require.NoError(t, s.Commit())
	require.NoError(t, s.Erase(k))
	require.NoError(t, s.Commit())

	got, err := s.Get(k)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateCompressedAtRest(t *testing.T) {
	db := memory.NewDB()
	lz4, err := compression.Get("lz4")
	require.NoError(t, err)

	s, err := NewState(db, StateConfig{Compressor: lz4, CacheSize: 1})
	require.NoError(t, err)

	k := testKey(5)
	value := make([]byte, 1024)
	require.NoError(t, s.Insert(k, value))
	require.NoError(t, s.Commit())

	raw, err := db.Read(context.Background(), k.Key[:])
	require.NoError(t, err)
	assert.Less(t, len(raw), len(value))

	// Evict from the cache so the read goes through the compressor
	require.NoError(t, s.Insert(testKey(6), []byte("other")))
	require.NoError(t, s.Commit())

	got, err := s.Get(k)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	_, misses := s.CacheStats()
	assert.NotZero(t, misses)
}

func TestStateForEach(t *testing.T) {
	s := NewMemoryState()
	for i := byte(1); i <= 3; i++ {
		require.NoError(t, s.Insert(testKey(i), []byte{i}))
	}
	require.NoError(t, s.Commit())

	var seen int
	require.NoError(t, s.ForEach(context.Background(), func(key [32]byte, data []byte) bool {
		seen++
		return true
	}))
	assert.Equal(t, 3, seen)

	seen = 0
	require.NoError(t, s.ForEach(context.Background(), func(key [32]byte, data []byte) bool {
		seen++
		return false
	}))
	assert.Equal(t, 1, seen)
}

func TestStateCommitFailureKeepsStoreUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDB(ctrl)

	k := testKey(7)
	db.EXPECT().Read(gomock.Any(), k.Key[:]).Return(nil, keyValueDb.ErrKeyNotFound).AnyTimes()
	db.EXPECT().Batch(gomock.Any(), gomock.Len(1)).Return(errors.New("disk full"))

	s, err := NewState(db, StateConfig{})
	require.NoError(t, err)

	require.NoError(t, s.Insert(k, []byte("x")))
	err = s.Commit()
	require.Error(t, err)
	s.Discard()

	got, err := s.Read(k)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateReadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDB(ctrl)
	db.EXPECT().Read(gomock.Any(), gomock.Any()).Return(nil, keyValueDb.ErrDBClosed)

	s, err := NewState(db, StateConfig{})
	require.NoError(t, err)

	_, err = s.Get(testKey(8))
	assert.ErrorIs(t, err, keyValueDb.ErrDBClosed)
}
