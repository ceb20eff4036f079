package escrow

import (
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/asset"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func init() {
	tx.Register(tx.TypeEscrowAccept, func() tx.Transaction {
		return &EscrowAccept{BaseTx: *tx.NewBaseTx(tx.TypeEscrowAccept, "")}
	})
}

// EscrowAccept settles an open escrow. The signer (the buyer) pays the
// requested amount to the seller and receives the vault's contents.
//
// Seller, OfferAsset and RequestAsset must equal the values stored on the
// escrow record; Escrow and Vault must equal the addresses derived from it.
type EscrowAccept struct {
	tx.BaseTx

	Seller       string        `json:"Seller"`
	OfferAsset   types.AssetID `json:"OfferAsset"`
	RequestAsset types.AssetID `json:"RequestAsset"`

	Escrow               types.Hash `json:"Escrow"`
	Vault                types.Hash `json:"Vault"`
	BuyerOfferHolding    types.Hash `json:"BuyerOfferHolding"`
	BuyerRequestHolding  types.Hash `json:"BuyerRequestHolding"`
	SellerRequestHolding types.Hash `json:"SellerRequestHolding"`
}

// NewEscrowAccept builds an EscrowAccept with every address derived from
// the buyer, the seller and the asset pair.
func NewEscrowAccept(buyer, seller types.AccountID, offerAsset, requestAsset types.AssetID) *EscrowAccept {
	escrowKey := keylet.Escrow(seller, offerAsset, requestAsset)
	return &EscrowAccept{
		BaseTx:               *tx.NewBaseTx(tx.TypeEscrowAccept, buyer.String()),
		Seller:               seller.String(),
		OfferAsset:           offerAsset,
		RequestAsset:         requestAsset,
		Escrow:               escrowKey.Hash(),
		Vault:                keylet.Vault(escrowKey.Key).Hash(),
		BuyerOfferHolding:    keylet.Holding(buyer, offerAsset).Hash(),
		BuyerRequestHolding:  keylet.Holding(buyer, requestAsset).Hash(),
		SellerRequestHolding: keylet.Holding(seller, requestAsset).Hash(),
	}
}

// TxType returns the transaction type
func (a *EscrowAccept) TxType() tx.Type {
	return tx.TypeEscrowAccept
}

// Validate validates the EscrowAccept transaction
func (a *EscrowAccept) Validate() error {
	if err := a.BaseTx.Validate(); err != nil {
		return err
	}

	if a.Seller == "" {
		return errors.New("temMALFORMED: Seller is required")
	}
	if _, err := types.ParseAccountID(a.Seller); err != nil {
		return errors.New("temMALFORMED: Seller is not a valid account")
	}
	if err := requireAsset("OfferAsset", a.OfferAsset); err != nil {
		return err
	}
	if err := requireAsset("RequestAsset", a.RequestAsset); err != nil {
		return err
	}

	return requireHashes(
		namedHash{"Escrow", a.Escrow},
		namedHash{"Vault", a.Vault},
		namedHash{"BuyerOfferHolding", a.BuyerOfferHolding},
		namedHash{"BuyerRequestHolding", a.BuyerRequestHolding},
		namedHash{"SellerRequestHolding", a.SellerRequestHolding},
	)
}

// Flatten returns a flat map of all transaction fields
func (a *EscrowAccept) Flatten() (map[string]any, error) {
	return tx.ReflectFlatten(a)
}

// AccountConstraints pairs the buyer's holding addresses with their
// derivation. Escrow, Vault and SellerRequestHolding depend on the stored
// record and are checked in Apply, after the seller.
func (a *EscrowAccept) AccountConstraints() ([]tx.AccountConstraint, error) {
	buyer, err := a.AccountID()
	if err != nil {
		return nil, err
	}
	return []tx.AccountConstraint{
		{Name: "BuyerOfferHolding", Supplied: a.BuyerOfferHolding, Expected: keylet.Holding(buyer, a.OfferAsset)},
		{Name: "BuyerRequestHolding", Supplied: a.BuyerRequestHolding, Expected: keylet.Holding(buyer, a.RequestAsset)},
	}, nil
}

// Apply applies an EscrowAccept transaction
func (a *EscrowAccept) Apply(ctx *tx.ApplyContext) tx.Result {
	buyer := ctx.AccountID
	seller, err := types.ParseAccountID(a.Seller)
	if err != nil {
		return tx.TemMALFORMED
	}

	escrowKey := escrowKeylet(a.Escrow)
	record, r := readOpenEscrow(ctx.View, escrowKey)
	if r != tx.TesSUCCESS {
		return r
	}
	if record.Seller != seller {
		return tx.TecNO_PERMISSION
	}
	if record.OfferAsset != a.OfferAsset || record.RequestAsset != a.RequestAsset {
		return tx.TecBAD_MINT
	}
	if r := checkRecordAddresses(record, a.Escrow, a.Vault); r != tx.TesSUCCESS {
		return r
	}
	if !keylet.Holding(record.Seller, record.RequestAsset).Matches(a.SellerRequestHolding) {
		return tx.TecCONSTRAINT_MISMATCH
	}

	buyerRequest := keylet.Holding(buyer, record.RequestAsset)
	if r := checkHolding(ctx.View, buyerRequest, buyer, record.RequestAsset); r != tx.TesSUCCESS {
		return r
	}

	sellerRequest, created, err := asset.EnsureHolding(ctx.View, record.Seller, record.RequestAsset)
	if err != nil {
		return assetResult(err)
	}
	if created {
		if r := ctx.AdjustOwnerCount(record.Seller, 1); r != tx.TesSUCCESS {
			return r
		}
	} else if r := checkHolding(ctx.View, sellerRequest, record.Seller, record.RequestAsset); r != tx.TesSUCCESS {
		return r
	}

	if err := asset.Transfer(ctx.View, buyerRequest, sellerRequest, record.RequestAsset, record.RequestAmount, asset.OwnerAuthority(buyer)); err != nil {
		return assetResult(err)
	}

	buyerOffer, created, err := asset.EnsureHolding(ctx.View, buyer, record.OfferAsset)
	if err != nil {
		return assetResult(err)
	}
	if created {
		if r := ctx.AdjustOwnerCount(buyer, 1); r != tx.TesSUCCESS {
			return r
		}
	} else if r := checkHolding(ctx.View, buyerOffer, buyer, record.OfferAsset); r != tx.TesSUCCESS {
		return r
	}

	vaultKey := keylet.Vault(escrowKey.Key)
	if r := releaseVault(ctx.View, a.Escrow, vaultKey, buyerOffer, record.OfferAsset); r != tx.TesSUCCESS {
		return r
	}

	record.Status = sle.EscrowClosed
	record.Outcome = sle.OutcomeSettled
	record.Buyer = buyer
	if r := writeEscrow(ctx.View, escrowKey, record, false); r != tx.TesSUCCESS {
		return r
	}

	return ctx.AdjustOwnerCount(record.Seller, -2)
}
