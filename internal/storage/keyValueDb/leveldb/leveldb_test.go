package leveldb

import (
	"testing"

	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrowd/internal/storage/keyValueDb/kvtest"
)

func TestLeveldbConformance(t *testing.T) {
	kvtest.RunConformance(t, func(t *testing.T) keyValueDb.Manager {
		return NewManager(t.TempDir())
	})
}
