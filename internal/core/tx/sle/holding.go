package sle

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// Holding is the balance of one asset held by one owner.
//
// A holding with a non-zero Custodian is an escrow vault: Owner is the
// escrow's seller for bookkeeping, but only the escrow at the Custodian
// key may move its balance.
type Holding struct {
	Owner         types.AccountID `codec:"owner"`
	Asset         types.AssetID   `codec:"asset"`
	Balance       uint64          `codec:"balance"`
	Custodian     types.Hash      `codec:"custodian"`
	PreviousTxnID types.Hash      `codec:"prev_txn"`
}

// IsVault reports whether the holding is held in custody by an escrow.
func (h *Holding) IsVault() bool { return !h.Custodian.IsZero() }

func (h *Holding) EntryType() entry.Type {
	if h.IsVault() {
		return entry.TypeVault
	}
	return entry.TypeHolding
}

func (h *Holding) SetPreviousTxnID(txHash types.Hash) { h.PreviousTxnID = txHash }

func (h *Holding) Fields() map[string]any {
	f := map[string]any{
		"Owner":         h.Owner.String(),
		"Asset":         h.Asset.String(),
		"Balance":       h.Balance,
		"PreviousTxnID": h.PreviousTxnID.String(),
	}
	if h.IsVault() {
		f["Custodian"] = h.Custodian.String()
	}
	return f
}

// ParseHolding decodes a Holding or Vault entry.
func ParseHolding(data []byte) (*Holding, error) {
	t, err := EntryTypeOf(data)
	if err != nil {
		return nil, err
	}
	if t != entry.TypeHolding && t != entry.TypeVault {
		return nil, ErrWrongEntryType
	}
	h := &Holding{}
	if err := decodeBody(data, h); err != nil {
		return nil, err
	}
	return h, nil
}

// SerializeHolding encodes a Holding or Vault entry.
func SerializeHolding(h *Holding) ([]byte, error) {
	return Serialize(h)
}
