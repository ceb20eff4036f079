package sle

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// AccountRoot is the root entry of an account.
type AccountRoot struct {
	Account       types.AccountID `codec:"account"`
	Balance       uint64          `codec:"balance"`
	Sequence      uint32          `codec:"sequence"`
	OwnerCount    uint32          `codec:"owner_count"`
	PreviousTxnID types.Hash      `codec:"prev_txn"`
}

func (a *AccountRoot) EntryType() entry.Type { return entry.TypeAccountRoot }

func (a *AccountRoot) SetPreviousTxnID(h types.Hash) { a.PreviousTxnID = h }

func (a *AccountRoot) Fields() map[string]any {
	return map[string]any{
		"Account":       a.Account.String(),
		"Balance":       a.Balance,
		"Sequence":      a.Sequence,
		"OwnerCount":    a.OwnerCount,
		"PreviousTxnID": a.PreviousTxnID.String(),
	}
}

// ParseAccountRoot decodes an AccountRoot entry.
func ParseAccountRoot(data []byte) (*AccountRoot, error) {
	a := &AccountRoot{}
	if err := decodeInto(data, entry.TypeAccountRoot, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SerializeAccountRoot encodes an AccountRoot entry.
func SerializeAccountRoot(a *AccountRoot) ([]byte, error) {
	return Serialize(a)
}
