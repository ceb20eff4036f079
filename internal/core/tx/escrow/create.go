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
	tx.Register(tx.TypeEscrowCreate, func() tx.Transaction {
		return &EscrowCreate{BaseTx: *tx.NewBaseTx(tx.TypeEscrowCreate, "")}
	})
}

// EscrowCreate locks OfferAmount of OfferAsset in a vault and asks
// RequestAmount of RequestAsset in return. The signer is the seller.
type EscrowCreate struct {
	tx.BaseTx

	OfferAsset    types.AssetID `json:"OfferAsset"`
	RequestAsset  types.AssetID `json:"RequestAsset"`
	OfferAmount   uint64        `json:"OfferAmount,string"`
	RequestAmount uint64        `json:"RequestAmount,string"`

	// Ledger addresses the transaction touches. Each must equal the
	// address derived from the seller and the asset pair.
	Escrow             types.Hash `json:"Escrow"`
	Vault              types.Hash `json:"Vault"`
	SellerOfferHolding types.Hash `json:"SellerOfferHolding"`
}

// NewEscrowCreate builds an EscrowCreate with every address derived from
// the seller and the asset pair.
func NewEscrowCreate(seller types.AccountID, offerAsset, requestAsset types.AssetID, offerAmount, requestAmount uint64) *EscrowCreate {
	escrowKey := keylet.Escrow(seller, offerAsset, requestAsset)
	return &EscrowCreate{
		BaseTx:             *tx.NewBaseTx(tx.TypeEscrowCreate, seller.String()),
		OfferAsset:         offerAsset,
		RequestAsset:       requestAsset,
		OfferAmount:        offerAmount,
		RequestAmount:      requestAmount,
		Escrow:             escrowKey.Hash(),
		Vault:              keylet.Vault(escrowKey.Key).Hash(),
		SellerOfferHolding: keylet.Holding(seller, offerAsset).Hash(),
	}
}

// TxType returns the transaction type
func (e *EscrowCreate) TxType() tx.Type {
	return tx.TypeEscrowCreate
}

// Validate validates the EscrowCreate transaction
func (e *EscrowCreate) Validate() error {
	if err := e.BaseTx.Validate(); err != nil {
		return err
	}

	if err := requireAsset("OfferAsset", e.OfferAsset); err != nil {
		return err
	}
	if err := requireAsset("RequestAsset", e.RequestAsset); err != nil {
		return err
	}
	if e.OfferAmount == 0 {
		return errors.New("temBAD_AMOUNT: OfferAmount must be positive")
	}
	if e.RequestAmount == 0 {
		return errors.New("temBAD_AMOUNT: RequestAmount must be positive")
	}
	if e.OfferAsset == e.RequestAsset {
		return errors.New("temREDUNDANT: OfferAsset and RequestAsset must differ")
	}

	return requireHashes(
		namedHash{"Escrow", e.Escrow},
		namedHash{"Vault", e.Vault},
		namedHash{"SellerOfferHolding", e.SellerOfferHolding},
	)
}

// Flatten returns a flat map of all transaction fields
func (e *EscrowCreate) Flatten() (map[string]any, error) {
	return tx.ReflectFlatten(e)
}

// AccountConstraints pairs every supplied address with its derivation.
func (e *EscrowCreate) AccountConstraints() ([]tx.AccountConstraint, error) {
	seller, err := e.AccountID()
	if err != nil {
		return nil, err
	}
	escrowKey := keylet.Escrow(seller, e.OfferAsset, e.RequestAsset)
	return []tx.AccountConstraint{
		{Name: "Escrow", Supplied: e.Escrow, Expected: escrowKey},
		{Name: "Vault", Supplied: e.Vault, Expected: keylet.Vault(escrowKey.Key)},
		{Name: "SellerOfferHolding", Supplied: e.SellerOfferHolding, Expected: keylet.Holding(seller, e.OfferAsset)},
	}, nil
}

// Apply applies an EscrowCreate transaction
func (e *EscrowCreate) Apply(ctx *tx.ApplyContext) tx.Result {
	seller := ctx.AccountID

	if _, err := asset.ReadAsset(ctx.View, e.OfferAsset); err != nil {
		return assetResult(err)
	}
	if _, err := asset.ReadAsset(ctx.View, e.RequestAsset); err != nil {
		return assetResult(err)
	}

	escrowKey := keylet.Escrow(seller, e.OfferAsset, e.RequestAsset)
	existing, err := readEscrow(ctx.View, escrowKey)
	if err != nil {
		return tx.TefINTERNAL
	}
	if existing != nil && existing.IsOpen() {
		return tx.TecDUPLICATE
	}

	holdingKey := keylet.Holding(seller, e.OfferAsset)
	if r := checkHolding(ctx.View, holdingKey, seller, e.OfferAsset); r != tx.TesSUCCESS {
		return r
	}

	// The record and its vault are two owned objects.
	if r := ctx.CheckReserveIncrease(2); r != tx.TesSUCCESS {
		return r
	}

	vaultKey, err := asset.OpenVault(ctx.View, escrowKey.Hash(), seller, e.OfferAsset)
	if err != nil {
		return assetResult(err)
	}
	if err := asset.Transfer(ctx.View, holdingKey, vaultKey, e.OfferAsset, e.OfferAmount, asset.OwnerAuthority(seller)); err != nil {
		return assetResult(err)
	}

	record := &sle.Escrow{
		Seller:        seller,
		OfferAsset:    e.OfferAsset,
		RequestAsset:  e.RequestAsset,
		OfferAmount:   e.OfferAmount,
		RequestAmount: e.RequestAmount,
		Status:        sle.EscrowOpen,
		Vault:         vaultKey.Hash(),
		CreateTxnID:   ctx.TxHash,
	}
	if existing != nil {
		// Re-opening a closed record keeps its PreviousTxnID chain.
		record.PreviousTxnID = existing.PreviousTxnID
	}
	if r := writeEscrow(ctx.View, escrowKey, record, existing == nil); r != tx.TesSUCCESS {
		return r
	}

	return ctx.AdjustOwnerCount(seller, 2)
}
