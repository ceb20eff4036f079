package tx

import (
	"errors"
	"math"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// ErrBalanceOverflow is returned when funding would overflow an account balance.
var ErrBalanceOverflow = errors.New("account balance overflow")

// FundAccount credits amount reserve units to account, creating its
// account root when it does not exist yet. New accounts start at
// sequence 1. It is run through Engine.Modify by the operator's fund
// command and by test environments.
func FundAccount(view LedgerView, account types.AccountID, amount uint64) error {
	k := keylet.Account(account)
	data, err := view.Read(k)
	if err != nil {
		return err
	}

	if data == nil {
		root, err := sle.SerializeAccountRoot(&sle.AccountRoot{
			Account:  account,
			Balance:  amount,
			Sequence: 1,
		})
		if err != nil {
			return err
		}
		return view.Insert(k, root)
	}

	root, err := sle.ParseAccountRoot(data)
	if err != nil {
		return err
	}
	if root.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	root.Balance += amount

	updated, err := sle.SerializeAccountRoot(root)
	if err != nil {
		return err
	}
	return view.Update(k, updated)
}
