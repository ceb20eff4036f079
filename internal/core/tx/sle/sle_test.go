package sle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func sampleEscrow() *Escrow {
	return &Escrow{
		Seller:        types.AccountID{0x01},
		OfferAsset:    types.AssetID{0x10},
		RequestAsset:  types.AssetID{0x20},
		OfferAmount:   100,
		RequestAmount: 250,
		Status:        EscrowOpen,
		Vault:         types.Hash{0x0F},
		CreateTxnID:   types.Hash{0xAA},
	}
}

func TestEscrowEncoding(t *testing.T) {
	e := sampleEscrow()

	data, err := SerializeEscrow(e)
	require.NoError(t, err)

	typ, err := EntryTypeOf(data)
	require.NoError(t, err)
	assert.Equal(t, entry.TypeEscrow, typ)

	decoded, err := ParseEscrow(data)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
	assert.True(t, decoded.IsOpen())

	again, err := SerializeEscrow(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")
}

func TestParseWrongType(t *testing.T) {
	data, err := SerializeAccountRoot(&AccountRoot{Account: types.AccountID{0x01}})
	require.NoError(t, err)

	_, err = ParseEscrow(data)
	assert.ErrorIs(t, err, ErrWrongEntryType)

	_, err = ParseHolding(data)
	assert.ErrorIs(t, err, ErrWrongEntryType)

	_, err = ParseEscrow([]byte{0x00})
	assert.ErrorIs(t, err, ErrShortEntry)

	_, err = Decode([]byte{0x12, 0x34, 0x80})
	assert.ErrorIs(t, err, ErrUnknownEntryType)
}

func TestHoldingVaultType(t *testing.T) {
	plain := &Holding{Owner: types.AccountID{0x01}, Asset: types.AssetID{0x10}, Balance: 5}
	vault := &Holding{Owner: types.AccountID{0x01}, Asset: types.AssetID{0x10}, Custodian: types.Hash{0xEE}}

	assert.Equal(t, entry.TypeHolding, plain.EntryType())
	assert.Equal(t, entry.TypeVault, vault.EntryType())

	data, err := SerializeHolding(vault)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	h, ok := decoded.(*Holding)
	require.True(t, ok)
	assert.True(t, h.IsVault())
	assert.Contains(t, h.Fields(), "Custodian")
	assert.NotContains(t, plain.Fields(), "Custodian")
}

func TestThreadEntry(t *testing.T) {
	data, err := SerializeEscrow(sampleEscrow())
	require.NoError(t, err)

	txHash := types.Hash{0xBB}
	threaded, err := ThreadEntry(data, txHash)
	require.NoError(t, err)

	e, err := ParseEscrow(threaded)
	require.NoError(t, err)
	assert.Equal(t, txHash, e.PreviousTxnID)
}

func TestEscrowFieldsOmitUnsetOutcome(t *testing.T) {
	open := sampleEscrow().Fields()
	assert.NotContains(t, open, "Outcome")
	assert.NotContains(t, open, "Buyer")

	closed := sampleEscrow()
	closed.Status = EscrowClosed
	closed.Outcome = OutcomeSettled
	closed.Buyer = types.AccountID{0x02}

	fields := closed.Fields()
	assert.Equal(t, "settled", fields["Outcome"])
	assert.Equal(t, closed.Buyer.String(), fields["Buyer"])
}

func TestNewAffectedNode(t *testing.T) {
	key := types.Hash{0x01}
	before, err := SerializeEscrow(sampleEscrow())
	require.NoError(t, err)

	closed := sampleEscrow()
	closed.Status = EscrowClosed
	closed.Outcome = OutcomeCancelled
	after, err := SerializeEscrow(closed)
	require.NoError(t, err)

	t.Run("created", func(t *testing.T) {
		node, err := NewAffectedNode(key, nil, before)
		require.NoError(t, err)
		assert.Equal(t, NodeCreated, node.NodeType)
		assert.Equal(t, "Escrow", node.LedgerEntryType)
		assert.Equal(t, key.String(), node.LedgerIndex)
		assert.NotNil(t, node.NewFields)
	})

	t.Run("modified", func(t *testing.T) {
		node, err := NewAffectedNode(key, before, after)
		require.NoError(t, err)
		assert.Equal(t, NodeModified, node.NodeType)
		assert.Equal(t, map[string]any{"Status": "open"}, node.PreviousFields)
		assert.Equal(t, "closed", node.FinalFields["Status"])
	})

	t.Run("deleted", func(t *testing.T) {
		node, err := NewAffectedNode(key, after, nil)
		require.NoError(t, err)
		assert.Equal(t, NodeDeleted, node.NodeType)
		assert.Equal(t, "cancelled", node.FinalFields["Outcome"])
	})
}
