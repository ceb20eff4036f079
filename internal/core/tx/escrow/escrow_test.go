package escrow

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/types"
)

var (
	seller = types.AccountID{0x51}
	buyer  = types.AccountID{0xB1}
	assetX = keylet.AssetID(seller, "X")
	assetY = keylet.AssetID(buyer, "Y")
)

func resultCode(err error) string {
	if err == nil {
		return ""
	}
	code, _, _ := strings.Cut(err.Error(), ":")
	return code
}

func TestEscrowCreateValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *EscrowCreate)
		want   string
	}{
		{"valid", func(e *EscrowCreate) {}, ""},
		{"no offer asset", func(e *EscrowCreate) { e.OfferAsset = types.AssetID{} }, "temMALFORMED"},
		{"no request asset", func(e *EscrowCreate) { e.RequestAsset = types.AssetID{} }, "temMALFORMED"},
		{"zero offer", func(e *EscrowCreate) { e.OfferAmount = 0 }, "temBAD_AMOUNT"},
		{"zero request", func(e *EscrowCreate) { e.RequestAmount = 0 }, "temBAD_AMOUNT"},
		{"same assets", func(e *EscrowCreate) { e.RequestAsset = e.OfferAsset }, "temREDUNDANT"},
		{"no escrow address", func(e *EscrowCreate) { e.Escrow = types.Hash{} }, "temMALFORMED"},
		{"no holding address", func(e *EscrowCreate) { e.SellerOfferHolding = types.Hash{} }, "temMALFORMED"},
		{"no account", func(e *EscrowCreate) { e.Account = "" }, "temBAD_SRC_ACCOUNT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEscrowCreate(seller, assetX, assetY, 10, 20)
			tt.mutate(e)
			assert.Equal(t, tt.want, resultCode(e.Validate()))
		})
	}
}

func TestEscrowCreateConstraints(t *testing.T) {
	e := NewEscrowCreate(seller, assetX, assetY, 10, 20)
	constraints, err := e.AccountConstraints()
	require.NoError(t, err)
	require.Len(t, constraints, 3)
	for _, c := range constraints {
		assert.True(t, c.Expected.Matches(c.Supplied), c.Name)
	}

	escrowKey := keylet.Escrow(seller, assetX, assetY)
	assert.Equal(t, escrowKey.Hash(), e.Escrow)
	assert.Equal(t, keylet.Vault(escrowKey.Key).Hash(), e.Vault)
	assert.NotEqual(t, keylet.Escrow(seller, assetY, assetX).Hash(), e.Escrow)
}

func TestEscrowAcceptValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *EscrowAccept)
		want   string
	}{
		{"valid", func(a *EscrowAccept) {}, ""},
		{"no seller", func(a *EscrowAccept) { a.Seller = "" }, "temMALFORMED"},
		{"bad seller", func(a *EscrowAccept) { a.Seller = "nobody" }, "temMALFORMED"},
		{"no request asset", func(a *EscrowAccept) { a.RequestAsset = types.AssetID{} }, "temMALFORMED"},
		{"no vault", func(a *EscrowAccept) { a.Vault = types.Hash{} }, "temMALFORMED"},
		{"no seller holding", func(a *EscrowAccept) { a.SellerRequestHolding = types.Hash{} }, "temMALFORMED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewEscrowAccept(buyer, seller, assetX, assetY)
			tt.mutate(a)
			assert.Equal(t, tt.want, resultCode(a.Validate()))
		})
	}
}

func TestEscrowAcceptConstraintsCoverBuyerHoldingsOnly(t *testing.T) {
	a := NewEscrowAccept(buyer, seller, assetX, assetY)
	a.Vault = types.Hash{0x01}
	a.SellerRequestHolding = types.Hash{0x02}

	constraints, err := a.AccountConstraints()
	require.NoError(t, err)
	require.Len(t, constraints, 2)
	for _, c := range constraints {
		assert.True(t, c.Expected.Matches(c.Supplied), c.Name)
	}
}

func TestEscrowCancelHasNoPreApplyConstraints(t *testing.T) {
	c := NewEscrowCancel(buyer, seller, assetX, assetY)
	_, ok := tx.Transaction(c).(tx.AccountValidator)
	assert.False(t, ok)
	assert.Equal(t, keylet.Holding(seller, assetX).Hash(), c.SellerOfferHolding)
}

func TestValidateNamesFirstMissingAddress(t *testing.T) {
	for i := 0; i < 20; i++ {
		e := NewEscrowCreate(seller, assetX, assetY, 10, 20)
		e.Escrow, e.Vault, e.SellerOfferHolding = types.Hash{}, types.Hash{}, types.Hash{}
		assert.EqualError(t, e.Validate(), "temMALFORMED: Escrow is required")

		a := NewEscrowAccept(buyer, seller, assetX, assetY)
		a.Vault, a.BuyerOfferHolding, a.SellerRequestHolding = types.Hash{}, types.Hash{}, types.Hash{}
		assert.EqualError(t, a.Validate(), "temMALFORMED: Vault is required")
	}
}

func TestEscrowCancelValidate(t *testing.T) {
	c := NewEscrowCancel(seller, seller, assetX, assetY)
	require.NoError(t, c.Validate())

	c.OfferAsset = types.AssetID{}
	assert.Equal(t, "temMALFORMED", resultCode(c.Validate()))

	c = NewEscrowCancel(seller, seller, assetX, assetY)
	c.Escrow = types.Hash{}
	assert.Equal(t, "temMALFORMED", resultCode(c.Validate()))
}

func TestEscrowJSON(t *testing.T) {
	e := NewEscrowCreate(seller, assetX, assetY, 18446744073709551615, 20)
	e.SetSequence(7)

	raw, err := tx.ToJSON(e)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"OfferAmount":"18446744073709551615"`)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "EscrowCreate", flat["TransactionType"])

	parsed, err := tx.FromJSON(raw)
	require.NoError(t, err)
	got, ok := parsed.(*EscrowCreate)
	require.True(t, ok)
	assert.Equal(t, e.OfferAmount, got.OfferAmount)
	assert.Equal(t, e.Vault, got.Vault)
	assert.Equal(t, uint32(7), got.GetSequence())
	assert.Equal(t, tx.TypeEscrowCreate, got.TxType())
}
