// Package mint implements the transactions that define assets, open
// holdings and issue supply.
package mint

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// MaxCodeLength bounds the length of an asset code.
const MaxCodeLength = 16

func init() {
	tx.Register(tx.TypeAssetCreate, func() tx.Transaction {
		return &AssetCreate{BaseTx: *tx.NewBaseTx(tx.TypeAssetCreate, "")}
	})
}

// AssetCreate defines a new asset issued by the signer. The asset ID is
// derived from the issuer and the code.
type AssetCreate struct {
	tx.BaseTx

	Code     string `json:"Code"`
	Decimals uint8  `json:"Decimals,omitempty"`
}

// NewAssetCreate creates a new AssetCreate transaction
func NewAssetCreate(issuer types.AccountID, code string, decimals uint8) *AssetCreate {
	return &AssetCreate{
		BaseTx:   *tx.NewBaseTx(tx.TypeAssetCreate, issuer.String()),
		Code:     code,
		Decimals: decimals,
	}
}

// TxType returns the transaction type
func (a *AssetCreate) TxType() tx.Type {
	return tx.TypeAssetCreate
}

// Validate validates the AssetCreate transaction
func (a *AssetCreate) Validate() error {
	if err := a.BaseTx.Validate(); err != nil {
		return err
	}

	if a.Code == "" {
		return errors.New("temMALFORMED: Code is required")
	}
	if len(a.Code) > MaxCodeLength {
		return fmt.Errorf("temMALFORMED: Code longer than %d characters", MaxCodeLength)
	}
	for _, r := range a.Code {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return errors.New("temMALFORMED: Code must be alphanumeric ASCII")
		}
	}
	if a.Decimals > sle.MaxAssetDecimals {
		return fmt.Errorf("temMALFORMED: Decimals above %d", sle.MaxAssetDecimals)
	}
	return nil
}

// Flatten returns a flat map of all transaction fields
func (a *AssetCreate) Flatten() (map[string]any, error) {
	return tx.ReflectFlatten(a)
}

// Apply applies an AssetCreate transaction
func (a *AssetCreate) Apply(ctx *tx.ApplyContext) tx.Result {
	id := keylet.AssetID(ctx.AccountID, a.Code)
	k := keylet.Asset(id)

	exists, err := ctx.View.Exists(k)
	if err != nil {
		return tx.TefINTERNAL
	}
	if exists {
		return tx.TecDUPLICATE
	}

	if r := ctx.CheckReserveIncrease(1); r != tx.TesSUCCESS {
		return r
	}

	data, err := sle.SerializeAsset(&sle.Asset{
		ID:       id,
		Issuer:   ctx.AccountID,
		Code:     a.Code,
		Decimals: a.Decimals,
	})
	if err != nil {
		return tx.TefINTERNAL
	}
	if err := ctx.View.Insert(k, data); err != nil {
		return tx.TefINTERNAL
	}

	return ctx.AdjustOwnerCount(ctx.AccountID, 1)
}
