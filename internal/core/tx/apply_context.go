package tx

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// ApplyContext provides all the state and helpers needed to apply a transaction.
// It is passed to Appliable.Apply() instead of individual parameters.
type ApplyContext struct {
	// View provides read/write access to ledger state (the ApplyStateTable)
	View LedgerView

	// Account is the source account (mutable, will be written back by the engine)
	Account *sle.AccountRoot

	// AccountID is the decoded source account ID
	AccountID types.AccountID

	// Config holds engine configuration (reserves)
	Config EngineConfig

	// TxHash is the hash of the current transaction
	TxHash types.Hash
}

// AccountReserve calculates the total reserve required for an account with the given owner count.
// Reserve = ReserveBase + (ownerCount * ReserveIncrement)
func (ctx *ApplyContext) AccountReserve(ownerCount uint32) uint64 {
	return ctx.Config.ReserveBase + (uint64(ownerCount) * ctx.Config.ReserveIncrement)
}

// CheckReserveIncrease validates that the source account can afford
// newObjects more owned objects. Returns TecINSUFFICIENT_RESERVE if not.
func (ctx *ApplyContext) CheckReserveIncrease(newObjects uint32) Result {
	if ctx.Account.Balance < ctx.AccountReserve(ctx.Account.OwnerCount+newObjects) {
		return TecINSUFFICIENT_RESERVE
	}
	return TesSUCCESS
}

// AdjustOwnerCount changes the owner count of an account. The source
// account is adjusted in place so the engine's write-back keeps it.
func (ctx *ApplyContext) AdjustOwnerCount(account types.AccountID, delta int) Result {
	if account == ctx.AccountID {
		ctx.Account.OwnerCount = applyDelta(ctx.Account.OwnerCount, delta)
		return TesSUCCESS
	}

	k := keylet.Account(account)
	data, err := ctx.View.Read(k)
	if err != nil {
		return TefINTERNAL
	}
	if data == nil {
		return TecNO_ENTRY
	}
	root, err := sle.ParseAccountRoot(data)
	if err != nil {
		return TefINTERNAL
	}
	root.OwnerCount = applyDelta(root.OwnerCount, delta)

	updated, err := sle.SerializeAccountRoot(root)
	if err != nil {
		return TefINTERNAL
	}
	if err := ctx.View.Update(k, updated); err != nil {
		return TefINTERNAL
	}
	return TesSUCCESS
}

func applyDelta(count uint32, delta int) uint32 {
	if delta < 0 && uint32(-delta) > count {
		return 0
	}
	return uint32(int64(count) + int64(delta))
}
