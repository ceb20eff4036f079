package mint

import (
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/asset"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func init() {
	tx.Register(tx.TypeHoldingCreate, func() tx.Transaction {
		return &HoldingCreate{BaseTx: *tx.NewBaseTx(tx.TypeHoldingCreate, "")}
	})
}

// HoldingCreate opens an empty holding of Asset for the signer.
type HoldingCreate struct {
	tx.BaseTx

	Asset types.AssetID `json:"Asset"`
}

// NewHoldingCreate creates a new HoldingCreate transaction
func NewHoldingCreate(owner types.AccountID, assetID types.AssetID) *HoldingCreate {
	return &HoldingCreate{
		BaseTx: *tx.NewBaseTx(tx.TypeHoldingCreate, owner.String()),
		Asset:  assetID,
	}
}

// TxType returns the transaction type
func (h *HoldingCreate) TxType() tx.Type {
	return tx.TypeHoldingCreate
}

// Validate validates the HoldingCreate transaction
func (h *HoldingCreate) Validate() error {
	if err := h.BaseTx.Validate(); err != nil {
		return err
	}
	if h.Asset.IsZero() {
		return errors.New("temMALFORMED: Asset is required")
	}
	return nil
}

// Flatten returns a flat map of all transaction fields
func (h *HoldingCreate) Flatten() (map[string]any, error) {
	return tx.ReflectFlatten(h)
}

// Apply applies a HoldingCreate transaction
func (h *HoldingCreate) Apply(ctx *tx.ApplyContext) tx.Result {
	if r := ctx.CheckReserveIncrease(1); r != tx.TesSUCCESS {
		return r
	}

	if _, err := asset.CreateHolding(ctx.View, ctx.AccountID, h.Asset); err != nil {
		return assetResult(err)
	}

	return ctx.AdjustOwnerCount(ctx.AccountID, 1)
}
