package escrow

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func init() {
	tx.Register(tx.TypeEscrowCancel, func() tx.Transaction {
		return &EscrowCancel{BaseTx: *tx.NewBaseTx(tx.TypeEscrowCancel, "")}
	})
}

// EscrowCancel closes an open escrow and returns the vault's contents to
// the seller. Only the seller stored on the escrow record may cancel it.
//
// Every supplied address depends on the stored record, so all of them are
// checked in Apply after the seller.
type EscrowCancel struct {
	tx.BaseTx

	OfferAsset types.AssetID `json:"OfferAsset"`

	Escrow             types.Hash `json:"Escrow"`
	Vault              types.Hash `json:"Vault"`
	SellerOfferHolding types.Hash `json:"SellerOfferHolding"`
}

// NewEscrowCancel builds an EscrowCancel signed by account for the escrow
// seller opened on the asset pair. The returned funds go to the seller's
// holding of the offer asset.
func NewEscrowCancel(account, seller types.AccountID, offerAsset, requestAsset types.AssetID) *EscrowCancel {
	escrowKey := keylet.Escrow(seller, offerAsset, requestAsset)
	return &EscrowCancel{
		BaseTx:             *tx.NewBaseTx(tx.TypeEscrowCancel, account.String()),
		OfferAsset:         offerAsset,
		Escrow:             escrowKey.Hash(),
		Vault:              keylet.Vault(escrowKey.Key).Hash(),
		SellerOfferHolding: keylet.Holding(seller, offerAsset).Hash(),
	}
}

// TxType returns the transaction type
func (c *EscrowCancel) TxType() tx.Type {
	return tx.TypeEscrowCancel
}

// Validate validates the EscrowCancel transaction
func (c *EscrowCancel) Validate() error {
	if err := c.BaseTx.Validate(); err != nil {
		return err
	}

	if err := requireAsset("OfferAsset", c.OfferAsset); err != nil {
		return err
	}
	return requireHashes(
		namedHash{"Escrow", c.Escrow},
		namedHash{"Vault", c.Vault},
		namedHash{"SellerOfferHolding", c.SellerOfferHolding},
	)
}

// Flatten returns a flat map of all transaction fields
func (c *EscrowCancel) Flatten() (map[string]any, error) {
	return tx.ReflectFlatten(c)
}

// Apply applies an EscrowCancel transaction
func (c *EscrowCancel) Apply(ctx *tx.ApplyContext) tx.Result {
	escrowKey := escrowKeylet(c.Escrow)
	record, r := readOpenEscrow(ctx.View, escrowKey)
	if r != tx.TesSUCCESS {
		return r
	}

	// Authorization is decided by the stored seller, never by an address
	// the caller could derive from its own identity.
	if record.Seller != ctx.AccountID {
		return tx.TecNO_PERMISSION
	}
	if record.OfferAsset != c.OfferAsset {
		return tx.TecBAD_MINT
	}
	if r := checkRecordAddresses(record, c.Escrow, c.Vault); r != tx.TesSUCCESS {
		return r
	}

	holdingKey := keylet.Holding(record.Seller, record.OfferAsset)
	if !holdingKey.Matches(c.SellerOfferHolding) {
		return tx.TecCONSTRAINT_MISMATCH
	}
	if r := checkHolding(ctx.View, holdingKey, record.Seller, record.OfferAsset); r != tx.TesSUCCESS {
		return r
	}
	if r := releaseVault(ctx.View, c.Escrow, keylet.Vault(escrowKey.Key), holdingKey, record.OfferAsset); r != tx.TesSUCCESS {
		return r
	}

	record.Status = sle.EscrowClosed
	record.Outcome = sle.OutcomeCancelled
	if r := writeEscrow(ctx.View, escrowKey, record, false); r != tx.TesSUCCESS {
		return r
	}

	return ctx.AdjustOwnerCount(record.Seller, -2)
}
