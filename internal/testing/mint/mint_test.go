package mint_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/mint"
	jtx "github.com/LeJamon/goEscrowd/internal/testing"
)

func TestAssetCreate(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := jtx.NewAccount("issuer")
	env.Fund(issuer)

	id := env.CreateAsset(issuer, "GOLD", 6)
	def := env.Asset(id)
	require.NotNil(t, def)
	assert.Equal(t, issuer.ID, def.Issuer)
	assert.Equal(t, "GOLD", def.Code)
	assert.Equal(t, uint8(6), def.Decimals)
	assert.Zero(t, def.Supply)
	jtx.RequireOwnerCount(t, env, issuer, 1)

	jtx.RequireTxFail(t, env.Submit(mint.NewAssetCreate(issuer.ID, "GOLD", 6)), "tecDUPLICATE")

	// The same code under another issuer is a different asset.
	other := jtx.NewAccount("other")
	env.Fund(other)
	assert.NotEqual(t, id, env.CreateAsset(other, "GOLD", 0))
}

func TestAssetCreate_Malformed(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := jtx.NewAccount("issuer")
	env.Fund(issuer)

	tests := []struct {
		name     string
		code     string
		decimals uint8
	}{
		{"empty code", "", 0},
		{"long code", strings.Repeat("A", mint.MaxCodeLength+1), 0},
		{"punctuation", "GO-LD", 0},
		{"non ascii", "GÖLD", 0},
		{"too many decimals", "GOLD", 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jtx.RequireTxFail(t, env.Submit(mint.NewAssetCreate(issuer.ID, tt.code, tt.decimals)), "temMALFORMED")
		})
	}
}

func TestAssetCreate_Reserve(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := jtx.NewAccount("issuer")
	env.FundAmount(issuer, jtx.DefaultReserveBase)

	jtx.RequireTxFail(t, env.Submit(mint.NewAssetCreate(issuer.ID, "GOLD", 0)), "tecINSUFFICIENT_RESERVE")
	jtx.RequireOwnerCount(t, env, issuer, 0)
}

func TestHoldingCreate(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := jtx.NewAccount("issuer")
	alice := jtx.NewAccount("alice")
	env.Fund(issuer, alice)
	id := env.CreateAsset(issuer, "GOLD", 0)

	env.CreateHolding(alice, id)
	assert.True(t, env.HoldingExists(alice, id))
	jtx.RequireHoldingBalance(t, env, alice, id, 0)
	jtx.RequireOwnerCount(t, env, alice, 1)

	jtx.RequireTxFail(t, env.Submit(mint.NewHoldingCreate(alice.ID, id)), "tecDUPLICATE")
	jtx.RequireTxFail(t, env.Submit(mint.NewHoldingCreate(alice.ID, keylet.AssetID(issuer.ID, "NONE"))), "tecNO_ISSUER")
}

func TestAssetIssue(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := jtx.NewAccount("issuer")
	alice := jtx.NewAccount("alice")
	mallory := jtx.NewAccount("mallory")
	env.Fund(issuer, alice, mallory)
	id := env.CreateAsset(issuer, "GOLD", 0)

	env.Issue(issuer, id, alice, 300)
	jtx.RequireHoldingBalance(t, env, alice, id, 300)
	jtx.RequireOwnerCount(t, env, alice, 1)

	env.Issue(issuer, id, alice, 200)
	jtx.RequireHoldingBalance(t, env, alice, id, 500)
	jtx.RequireOwnerCount(t, env, alice, 1)
	assert.Equal(t, uint64(500), env.Asset(id).Supply)
	assert.Equal(t, uint64(500), env.TotalSupply(id))

	t.Run("not the issuer", func(t *testing.T) {
		jtx.RequireTxFail(t, env.Submit(mint.NewAssetIssue(mallory.ID, id, mallory.ID, 1)), "tecNO_PERMISSION")
	})
	t.Run("unknown destination", func(t *testing.T) {
		ghost := jtx.NewAccount("ghost")
		jtx.RequireTxFail(t, env.Submit(mint.NewAssetIssue(issuer.ID, id, ghost.ID, 1)), "tecNO_ENTRY")
	})
	t.Run("unknown asset", func(t *testing.T) {
		jtx.RequireTxFail(t, env.Submit(mint.NewAssetIssue(issuer.ID, keylet.AssetID(issuer.ID, "NONE"), alice.ID, 1)), "tecNO_ISSUER")
	})
	t.Run("zero amount", func(t *testing.T) {
		jtx.RequireTxFail(t, env.Submit(mint.NewAssetIssue(issuer.ID, id, alice.ID, 0)), "temBAD_AMOUNT")
	})
	t.Run("supply overflow", func(t *testing.T) {
		jtx.RequireTxFail(t, env.Submit(mint.NewAssetIssue(issuer.ID, id, alice.ID, ^uint64(0))), "tecINTERNAL")
		jtx.RequireHoldingBalance(t, env, alice, id, 500)
	})
}
