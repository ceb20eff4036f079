package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/asset"
	"github.com/LeJamon/goEscrowd/internal/core/ledger"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func putHolding(t *testing.T, view sle.LedgerView, k keylet.Keylet, h *sle.Holding) {
	t.Helper()
	data, err := sle.SerializeHolding(h)
	require.NoError(t, err)
	require.NoError(t, view.Insert(k, data))
}

func TestCheckHolding(t *testing.T) {
	k := keylet.Holding(seller, assetX)

	tests := []struct {
		name    string
		holding *sle.Holding
		want    tx.Result
	}{
		{"owned by the expected account", &sle.Holding{Owner: seller, Asset: assetX}, tx.TesSUCCESS},
		{"owned by another account", &sle.Holding{Owner: buyer, Asset: assetX}, tx.TecBAD_OWNER},
		{"holds another asset", &sle.Holding{Owner: seller, Asset: assetY}, tx.TecBAD_MINT},
		{"is a vault", &sle.Holding{Owner: seller, Asset: assetX, Custodian: types.Hash{0xE5}}, tx.TecBAD_OWNER},
		{"missing", nil, tx.TecNO_ENTRY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := ledger.NewMemoryState()
			if tt.holding != nil {
				putHolding(t, view, k, tt.holding)
			}
			assert.Equal(t, tt.want, checkHolding(view, k, seller, assetX))
		})
	}
}

func TestAssetResult(t *testing.T) {
	tests := []struct {
		err  error
		want tx.Result
	}{
		{nil, tx.TesSUCCESS},
		{asset.ErrInsufficientFunds, tx.TecUNFUNDED},
		{asset.ErrUnauthorized, tx.TecNO_PERMISSION},
		{asset.ErrWrongAsset, tx.TecBAD_MINT},
		{asset.ErrWrongOwner, tx.TecBAD_OWNER},
		{asset.ErrHoldingNotFound, tx.TecNO_ENTRY},
		{asset.ErrAssetNotFound, tx.TecNO_ISSUER},
		{asset.ErrHoldingExists, tx.TecDUPLICATE},
		{assert.AnError, tx.TefINTERNAL},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, assetResult(tt.err), "%v", tt.err)
	}
}
