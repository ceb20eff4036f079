package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// RequireTxSuccess asserts that a transaction result indicates success.
func RequireTxSuccess(t *testing.T, result TxResult) {
	t.Helper()
	require.True(t, result.Success,
		"Expected transaction success, got %s: %s", result.Code, result.Message)
	require.Equal(t, "tesSUCCESS", result.Code,
		"Expected tesSUCCESS, got %s: %s", result.Code, result.Message)
}

// RequireTxFail asserts that a transaction result indicates failure with a specific code.
func RequireTxFail(t *testing.T, result TxResult, expectedCode string) {
	t.Helper()
	require.False(t, result.Success,
		"Expected transaction failure with code %s, but transaction succeeded", expectedCode)
	require.Equal(t, expectedCode, result.Code,
		"Expected failure code %s, got %s: %s", expectedCode, result.Code, result.Message)
	require.Nil(t, result.Metadata, "failed transaction %s produced metadata", result.Code)
}

// RequireHoldingBalance asserts the balance of owner's holding of assetID.
func RequireHoldingBalance(t *testing.T, env *TestEnv, owner *Account, assetID types.AssetID, expected uint64) {
	t.Helper()
	actual := env.HoldingBalance(owner, assetID)
	require.Equal(t, expected, actual,
		"Account %s holding mismatch: expected %d, got %d", owner.Name, expected, actual)
}

// RequireSequence asserts that an account has the expected sequence number.
func RequireSequence(t *testing.T, env *TestEnv, acc *Account, expected uint32) {
	t.Helper()
	actual := env.Seq(acc)
	require.Equal(t, expected, actual,
		"Account %s sequence mismatch: expected %d, got %d", acc.Name, expected, actual)
}

// RequireOwnerCount asserts that an account owns the expected number of objects.
func RequireOwnerCount(t *testing.T, env *TestEnv, acc *Account, expected uint32) {
	t.Helper()
	actual := env.OwnerCount(acc)
	require.Equal(t, expected, actual,
		"Account %s owner count mismatch: expected %d, got %d", acc.Name, expected, actual)
}

// RequireEscrowOpen asserts that seller has an open escrow for the pair
// with a vault holding exactly its offer amount.
func RequireEscrowOpen(t *testing.T, env *TestEnv, seller *Account, offer, request types.AssetID) *sle.Escrow {
	t.Helper()
	record := env.Escrow(seller, offer, request)
	require.NotNil(t, record, "Expected escrow of %s to exist", seller.Name)
	require.Equal(t, sle.EscrowOpen, record.Status, "Expected escrow of %s to be open", seller.Name)
	require.True(t, env.VaultExists(seller, offer, request), "Open escrow of %s has no vault", seller.Name)
	require.Equal(t, record.OfferAmount, env.VaultBalance(seller, offer, request),
		"Vault of %s does not hold the offer amount", seller.Name)
	return record
}

// RequireEscrowClosed asserts that the escrow is closed with outcome and its vault is gone.
func RequireEscrowClosed(t *testing.T, env *TestEnv, seller *Account, offer, request types.AssetID, outcome sle.EscrowOutcome) *sle.Escrow {
	t.Helper()
	record := env.Escrow(seller, offer, request)
	require.NotNil(t, record, "Expected escrow of %s to exist", seller.Name)
	require.Equal(t, sle.EscrowClosed, record.Status, "Expected escrow of %s to be closed", seller.Name)
	require.Equal(t, outcome, record.Outcome)
	require.False(t, env.VaultExists(seller, offer, request), "Closed escrow of %s still has a vault", seller.Name)
	return record
}

// RequireUnchanged asserts that the committed ledger equals a snapshot taken earlier.
func RequireUnchanged(t *testing.T, env *TestEnv, before map[[32]byte][]byte) {
	t.Helper()
	require.Equal(t, before, env.Snapshot(), "ledger state changed")
}
