package logging

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		logger, err := New(Config{})
		require.NoError(t, err)
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
		assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	})

	t.Run("json debug", func(t *testing.T) {
		logger, err := New(Config{Level: "debug", Format: "JSON"})
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
		assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	})

	t.Run("file", func(t *testing.T) {
		logger, err := New(Config{File: filepath.Join(t.TempDir(), "escrowd.log"), MaxSizeMB: 1})
		require.NoError(t, err)
		logger.Info("hello")
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := New(Config{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := New(Config{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestTransitions(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	obs := Transitions(logger)

	seller, buyer := types.AccountID{0x01}, types.AccountID{0x02}
	offer, request := types.AssetID{0x0A}, types.AssetID{0x0B}

	escrowKey := types.Hash{0xE5}
	obs.TransactionProcessed(&tx.Event{
		Tx:      escrow.NewEscrowCreate(seller, offer, request, 10, 20),
		Hash:    types.Hash{0x01},
		Account: seller.String(),
		Result:  tx.TesSUCCESS,
		Applied: true,
		Metadata: &tx.Metadata{AffectedNodes: []tx.AffectedNode{
			{NodeType: sle.NodeCreated, LedgerEntryType: entry.TypeVault.String(), LedgerIndex: types.Hash{0x02}.String()},
			{NodeType: sle.NodeCreated, LedgerEntryType: entry.TypeEscrow.String(), LedgerIndex: escrowKey.String()},
		}},
	})

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, e.Level)
	assert.Equal(t, "EscrowCreate", e.Data["tx_type"])
	assert.Equal(t, escrowKey.String(), e.Data["escrow"])
	assert.Equal(t, "tesSUCCESS", e.Data["result"])

	obs.TransactionProcessed(&tx.Event{
		Tx:      escrow.NewEscrowAccept(buyer, seller, offer, request),
		Account: buyer.String(),
		Result:  tx.TecUNFUNDED,
	})

	require.Len(t, hook.Entries, 2)
	e = hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, e.Level)
	assert.Equal(t, "tecUNFUNDED", e.Data["result"])
	assert.NotContains(t, e.Data, "hash")
	assert.NotContains(t, e.Data, "escrow")
}

func TestDiscard(t *testing.T) {
	assert.Equal(t, io.Discard, Discard().Out)
}
