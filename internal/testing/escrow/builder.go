// Package escrow provides builders for escrow transactions in tests.
package escrow

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	escrowtx "github.com/LeJamon/goEscrowd/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrowd/internal/testing"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// EscrowCreateBuilder provides a fluent interface for building EscrowCreate transactions.
type EscrowCreateBuilder struct {
	txn *escrowtx.EscrowCreate
}

// EscrowCreate creates a new EscrowCreateBuilder with every address
// derived from the seller and the asset pair.
func EscrowCreate(seller *testing.Account, offer, request types.AssetID, offerAmount, requestAmount uint64) *EscrowCreateBuilder {
	return &EscrowCreateBuilder{txn: escrowtx.NewEscrowCreate(seller.ID, offer, request, offerAmount, requestAmount)}
}

// Escrow overrides the supplied escrow address.
func (b *EscrowCreateBuilder) Escrow(h types.Hash) *EscrowCreateBuilder {
	b.txn.Escrow = h
	return b
}

// Vault overrides the supplied vault address.
func (b *EscrowCreateBuilder) Vault(h types.Hash) *EscrowCreateBuilder {
	b.txn.Vault = h
	return b
}

// SellerOfferHolding overrides the supplied seller holding address.
func (b *EscrowCreateBuilder) SellerOfferHolding(h types.Hash) *EscrowCreateBuilder {
	b.txn.SellerOfferHolding = h
	return b
}

// Sequence sets the sequence number explicitly.
func (b *EscrowCreateBuilder) Sequence(seq uint32) *EscrowCreateBuilder {
	b.txn.SetSequence(seq)
	return b
}

// Build returns the transaction.
func (b *EscrowCreateBuilder) Build() tx.Transaction {
	return b.txn
}

// EscrowAcceptBuilder provides a fluent interface for building EscrowAccept transactions.
type EscrowAcceptBuilder struct {
	buyer, seller types.AccountID
	txn           *escrowtx.EscrowAccept
}

// EscrowAccept creates a new EscrowAcceptBuilder for buyer taking seller's escrow.
func EscrowAccept(buyer, seller *testing.Account, offer, request types.AssetID) *EscrowAcceptBuilder {
	return &EscrowAcceptBuilder{
		buyer:  buyer.ID,
		seller: seller.ID,
		txn:    escrowtx.NewEscrowAccept(buyer.ID, seller.ID, offer, request),
	}
}

// Assets names a different asset pair and re-derives the holding
// addresses from it. Escrow and Vault keep pointing at the original escrow.
func (b *EscrowAcceptBuilder) Assets(offer, request types.AssetID) *EscrowAcceptBuilder {
	b.txn.OfferAsset = offer
	b.txn.RequestAsset = request
	b.txn.BuyerOfferHolding = keylet.Holding(b.buyer, offer).Hash()
	b.txn.BuyerRequestHolding = keylet.Holding(b.buyer, request).Hash()
	b.txn.SellerRequestHolding = keylet.Holding(b.seller, request).Hash()
	return b
}

// Seller names a different seller without re-deriving any address but
// the seller's request holding.
func (b *EscrowAcceptBuilder) Seller(seller *testing.Account) *EscrowAcceptBuilder {
	b.seller = seller.ID
	b.txn.Seller = seller.ID.String()
	b.txn.SellerRequestHolding = keylet.Holding(seller.ID, b.txn.RequestAsset).Hash()
	return b
}

// Escrow overrides the supplied escrow address.
func (b *EscrowAcceptBuilder) Escrow(h types.Hash) *EscrowAcceptBuilder {
	b.txn.Escrow = h
	return b
}

// Vault overrides the supplied vault address.
func (b *EscrowAcceptBuilder) Vault(h types.Hash) *EscrowAcceptBuilder {
	b.txn.Vault = h
	return b
}

// BuyerOfferHolding overrides the supplied buyer offer holding address.
func (b *EscrowAcceptBuilder) BuyerOfferHolding(h types.Hash) *EscrowAcceptBuilder {
	b.txn.BuyerOfferHolding = h
	return b
}

// BuyerRequestHolding overrides the supplied buyer request holding address.
func (b *EscrowAcceptBuilder) BuyerRequestHolding(h types.Hash) *EscrowAcceptBuilder {
	b.txn.BuyerRequestHolding = h
	return b
}

// SellerRequestHolding overrides the supplied seller request holding address.
func (b *EscrowAcceptBuilder) SellerRequestHolding(h types.Hash) *EscrowAcceptBuilder {
	b.txn.SellerRequestHolding = h
	return b
}

// Sequence sets the sequence number explicitly.
func (b *EscrowAcceptBuilder) Sequence(seq uint32) *EscrowAcceptBuilder {
	b.txn.SetSequence(seq)
	return b
}

// Build returns the transaction.
func (b *EscrowAcceptBuilder) Build() tx.Transaction {
	return b.txn
}

// EscrowCancelBuilder provides a fluent interface for building EscrowCancel transactions.
type EscrowCancelBuilder struct {
	seller types.AccountID
	txn    *escrowtx.EscrowCancel
}

// EscrowCancel creates a new EscrowCancelBuilder for the seller's own escrow.
func EscrowCancel(seller *testing.Account, offer, request types.AssetID) *EscrowCancelBuilder {
	return EscrowCancelAs(seller, seller, offer, request)
}

// EscrowCancelAs creates a builder for account cancelling the escrow of seller.
func EscrowCancelAs(account, seller *testing.Account, offer, request types.AssetID) *EscrowCancelBuilder {
	return &EscrowCancelBuilder{
		seller: seller.ID,
		txn:    escrowtx.NewEscrowCancel(account.ID, seller.ID, offer, request),
	}
}

// OfferAsset names a different offer asset and re-derives the holding
// address from it. Escrow and Vault keep pointing at the original escrow.
func (b *EscrowCancelBuilder) OfferAsset(offer types.AssetID) *EscrowCancelBuilder {
	b.txn.OfferAsset = offer
	b.txn.SellerOfferHolding = keylet.Holding(b.seller, offer).Hash()
	return b
}

// Escrow overrides the supplied escrow address.
func (b *EscrowCancelBuilder) Escrow(h types.Hash) *EscrowCancelBuilder {
	b.txn.Escrow = h
	return b
}

// Vault overrides the supplied vault address.
func (b *EscrowCancelBuilder) Vault(h types.Hash) *EscrowCancelBuilder {
	b.txn.Vault = h
	return b
}

// SellerOfferHolding overrides the supplied seller holding address.
func (b *EscrowCancelBuilder) SellerOfferHolding(h types.Hash) *EscrowCancelBuilder {
	b.txn.SellerOfferHolding = h
	return b
}

// Sequence sets the sequence number explicitly.
func (b *EscrowCancelBuilder) Sequence(seq uint32) *EscrowCancelBuilder {
	b.txn.SetSequence(seq)
	return b
}

// Build returns the transaction.
func (b *EscrowCancelBuilder) Build() tx.Transaction {
	return b.txn
}
