package mint

import (
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/asset"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func init() {
	tx.Register(tx.TypeAssetIssue, func() tx.Transaction {
		return &AssetIssue{BaseTx: *tx.NewBaseTx(tx.TypeAssetIssue, "")}
	})
}

// AssetIssue mints Amount of Asset into the Destination's holding. Only
// the issuer may sign it. A missing destination holding is opened.
type AssetIssue struct {
	tx.BaseTx

	Asset       types.AssetID `json:"Asset"`
	Destination string        `json:"Destination"`
	Amount      uint64        `json:"Amount,string"`
}

// NewAssetIssue creates a new AssetIssue transaction
func NewAssetIssue(issuer types.AccountID, assetID types.AssetID, destination types.AccountID, amount uint64) *AssetIssue {
	return &AssetIssue{
		BaseTx:      *tx.NewBaseTx(tx.TypeAssetIssue, issuer.String()),
		Asset:       assetID,
		Destination: destination.String(),
		Amount:      amount,
	}
}

// TxType returns the transaction type
func (i *AssetIssue) TxType() tx.Type {
	return tx.TypeAssetIssue
}

// Validate validates the AssetIssue transaction
func (i *AssetIssue) Validate() error {
	if err := i.BaseTx.Validate(); err != nil {
		return err
	}

	if i.Asset.IsZero() {
		return errors.New("temMALFORMED: Asset is required")
	}
	if i.Destination == "" {
		return errors.New("temMALFORMED: Destination is required")
	}
	if _, err := types.ParseAccountID(i.Destination); err != nil {
		return errors.New("temMALFORMED: Destination is not a valid account")
	}
	if i.Amount == 0 {
		return errors.New("temBAD_AMOUNT: Amount must be positive")
	}
	return nil
}

// Flatten returns a flat map of all transaction fields
func (i *AssetIssue) Flatten() (map[string]any, error) {
	return tx.ReflectFlatten(i)
}

// Apply applies an AssetIssue transaction
func (i *AssetIssue) Apply(ctx *tx.ApplyContext) tx.Result {
	dest, err := types.ParseAccountID(i.Destination)
	if err != nil {
		return tx.TemMALFORMED
	}

	def, err := asset.ReadAsset(ctx.View, i.Asset)
	if err != nil {
		return assetResult(err)
	}
	if def.Issuer != ctx.AccountID {
		return tx.TecNO_PERMISSION
	}

	exists, err := ctx.View.Exists(keylet.Account(dest))
	if err != nil {
		return tx.TefINTERNAL
	}
	if !exists {
		return tx.TecNO_ENTRY
	}

	to, created, err := asset.EnsureHolding(ctx.View, dest, i.Asset)
	if err != nil {
		return assetResult(err)
	}
	if created {
		if r := ctx.AdjustOwnerCount(dest, 1); r != tx.TesSUCCESS {
			return r
		}
	}

	if err := asset.Issue(ctx.View, ctx.AccountID, i.Asset, to, i.Amount); err != nil {
		return assetResult(err)
	}
	return tx.TesSUCCESS
}
