package sle

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// EscrowStatus is the lifecycle state of an escrow record.
type EscrowStatus string

const (
	EscrowOpen   EscrowStatus = "open"
	EscrowClosed EscrowStatus = "closed"
)

// EscrowOutcome records how a closed escrow ended.
type EscrowOutcome string

const (
	OutcomeNone      EscrowOutcome = ""
	OutcomeSettled   EscrowOutcome = "settled"
	OutcomeCancelled EscrowOutcome = "cancelled"
)

// Escrow is a seller's standing offer to swap OfferAmount of OfferAsset
// for RequestAmount of RequestAsset. The offered tokens sit in the Vault
// holding while the escrow is open.
type Escrow struct {
	Seller        types.AccountID `codec:"seller"`
	OfferAsset    types.AssetID   `codec:"offer_asset"`
	RequestAsset  types.AssetID   `codec:"request_asset"`
	OfferAmount   uint64          `codec:"offer_amount"`
	RequestAmount uint64          `codec:"request_amount"`
	Status        EscrowStatus    `codec:"status"`
	Outcome       EscrowOutcome   `codec:"outcome"`
	Buyer         types.AccountID `codec:"buyer"`
	Vault         types.Hash      `codec:"vault"`
	CreateTxnID   types.Hash      `codec:"create_txn"`
	PreviousTxnID types.Hash      `codec:"prev_txn"`
}

// IsOpen reports whether the escrow can still be accepted or cancelled.
func (e *Escrow) IsOpen() bool { return e.Status == EscrowOpen }

func (e *Escrow) EntryType() entry.Type { return entry.TypeEscrow }

func (e *Escrow) SetPreviousTxnID(h types.Hash) { e.PreviousTxnID = h }

func (e *Escrow) Fields() map[string]any {
	f := map[string]any{
		"Seller":        e.Seller.String(),
		"OfferAsset":    e.OfferAsset.String(),
		"RequestAsset":  e.RequestAsset.String(),
		"OfferAmount":   e.OfferAmount,
		"RequestAmount": e.RequestAmount,
		"Status":        string(e.Status),
		"Vault":         e.Vault.String(),
		"CreateTxnID":   e.CreateTxnID.String(),
		"PreviousTxnID": e.PreviousTxnID.String(),
	}
	if e.Outcome != OutcomeNone {
		f["Outcome"] = string(e.Outcome)
	}
	if !e.Buyer.IsZero() {
		f["Buyer"] = e.Buyer.String()
	}
	return f
}

// ParseEscrow decodes an Escrow entry.
func ParseEscrow(data []byte) (*Escrow, error) {
	e := &Escrow{}
	if err := decodeInto(data, entry.TypeEscrow, e); err != nil {
		return nil, err
	}
	return e, nil
}

// SerializeEscrow encodes an Escrow entry.
func SerializeEscrow(e *Escrow) ([]byte, error) {
	return Serialize(e)
}
