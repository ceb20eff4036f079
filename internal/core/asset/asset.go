// Package asset implements holdings of fungible assets and the authorized
// movement of balances between them.
//
// Every transfer names the authority it acts under. An ordinary holding is
// debited only under its owner's authority; a vault holding only under the
// authority of the escrow recorded as its custodian, which no signing key
// can produce.
package asset

import (
	"errors"
	"fmt"
	"math"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

var (
	ErrAssetNotFound     = errors.New("asset not found")
	ErrHoldingNotFound   = errors.New("holding not found")
	ErrHoldingExists     = errors.New("holding already exists")
	ErrWrongAsset        = errors.New("holding is for a different asset")
	ErrWrongOwner        = errors.New("holding is owned by a different account")
	ErrUnauthorized      = errors.New("authority may not debit holding")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("balance overflow")
	ErrVaultNotEmpty     = errors.New("vault still holds a balance")
	ErrNotVault          = errors.New("holding is not a vault")
)

// Authority is the capability a transfer is performed under. Exactly one
// of Account and Escrow is set.
type Authority struct {
	Account types.AccountID
	Escrow  types.Hash
}

// OwnerAuthority returns the authority of a signing account.
func OwnerAuthority(account types.AccountID) Authority {
	return Authority{Account: account}
}

// EscrowAuthority returns the authority of the escrow record at key.
func EscrowAuthority(escrowKey types.Hash) Authority {
	return Authority{Escrow: escrowKey}
}

// mayDebit reports whether a may move funds out of h.
func (a Authority) mayDebit(h *sle.Holding) bool {
	if h.IsVault() {
		return !a.Escrow.IsZero() && a.Escrow == h.Custodian
	}
	return a.Escrow.IsZero() && !a.Account.IsZero() && a.Account == h.Owner
}

// ReadAsset loads an asset definition.
func ReadAsset(view sle.LedgerView, id types.AssetID) (*sle.Asset, error) {
	data, err := view.Read(keylet.Asset(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return sle.ParseAsset(data)
}

// ReadHolding loads the holding or vault at k.
func ReadHolding(view sle.LedgerView, k keylet.Keylet) (*sle.Holding, error) {
	data, err := view.Read(k)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrHoldingNotFound
	}
	return sle.ParseHolding(data)
}

// CheckHolding verifies a holding belongs to owner and holds asset.
func CheckHolding(h *sle.Holding, owner types.AccountID, asset types.AssetID) error {
	if h.Owner != owner {
		return ErrWrongOwner
	}
	if h.Asset != asset {
		return ErrWrongAsset
	}
	return nil
}

func writeHolding(view sle.LedgerView, k keylet.Keylet, h *sle.Holding, insert bool) error {
	data, err := sle.SerializeHolding(h)
	if err != nil {
		return err
	}
	if insert {
		return view.Insert(k, data)
	}
	return view.Update(k, data)
}

// CreateHolding opens an empty holding of asset for owner. The asset must exist.
func CreateHolding(view sle.LedgerView, owner types.AccountID, asset types.AssetID) (keylet.Keylet, error) {
	if _, err := ReadAsset(view, asset); err != nil {
		return keylet.Keylet{}, err
	}

	k := keylet.Holding(owner, asset)
	exists, err := view.Exists(k)
	if err != nil {
		return k, err
	}
	if exists {
		return k, ErrHoldingExists
	}
	return k, writeHolding(view, k, &sle.Holding{Owner: owner, Asset: asset}, true)
}

// EnsureHolding returns the holding of asset for owner, opening it when
// absent. created reports whether a new holding was opened.
func EnsureHolding(view sle.LedgerView, owner types.AccountID, asset types.AssetID) (k keylet.Keylet, created bool, err error) {
	k = keylet.Holding(owner, asset)
	exists, err := view.Exists(k)
	if err != nil || exists {
		return k, false, err
	}
	if _, err := CreateHolding(view, owner, asset); err != nil {
		return k, false, err
	}
	return k, true, nil
}

// OpenVault creates the empty custody holding of an escrow.
func OpenVault(view sle.LedgerView, escrowKey types.Hash, seller types.AccountID, asset types.AssetID) (keylet.Keylet, error) {
	k := keylet.Vault(escrowKey)
	exists, err := view.Exists(k)
	if err != nil {
		return k, err
	}
	if exists {
		return k, ErrHoldingExists
	}

	vault := &sle.Holding{
		Owner:     seller,
		Asset:     asset,
		Custodian: escrowKey,
	}
	return k, writeHolding(view, k, vault, true)
}

// CloseVault erases an empty vault. Only its custodian may close it.
func CloseVault(view sle.LedgerView, k keylet.Keylet, auth Authority) error {
	vault, err := ReadHolding(view, k)
	if err != nil {
		return err
	}
	if !vault.IsVault() {
		return ErrNotVault
	}
	if !auth.mayDebit(vault) {
		return ErrUnauthorized
	}
	if vault.Balance != 0 {
		return ErrVaultNotEmpty
	}
	return view.Erase(k)
}

// Transfer moves amount of asset from one holding to another. Both
// holdings must hold asset and auth must be allowed to debit from.
func Transfer(view sle.LedgerView, from, to keylet.Keylet, asset types.AssetID, amount uint64, auth Authority) error {
	src, err := ReadHolding(view, from)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if src.Asset != asset {
		return ErrWrongAsset
	}
	if !auth.mayDebit(src) {
		return ErrUnauthorized
	}
	if src.Balance < amount {
		return ErrInsufficientFunds
	}

	if from.Key == to.Key {
		return nil
	}

	dst, err := ReadHolding(view, to)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if dst.Asset != asset {
		return ErrWrongAsset
	}
	if dst.Balance > math.MaxUint64-amount {
		return ErrOverflow
	}

	src.Balance -= amount
	dst.Balance += amount

	if err := writeHolding(view, from, src, false); err != nil {
		return err
	}
	return writeHolding(view, to, dst, false)
}

// Issue mints amount of asset into a holding. Only the asset's issuer may issue.
func Issue(view sle.LedgerView, issuer types.AccountID, asset types.AssetID, to keylet.Keylet, amount uint64) error {
	def, err := ReadAsset(view, asset)
	if err != nil {
		return err
	}
	if def.Issuer != issuer {
		return ErrUnauthorized
	}
	if def.Supply > math.MaxUint64-amount {
		return ErrOverflow
	}

	dst, err := ReadHolding(view, to)
	if err != nil {
		return err
	}
	if dst.IsVault() {
		return ErrUnauthorized
	}
	if dst.Asset != asset {
		return ErrWrongAsset
	}

	def.Supply += amount
	dst.Balance += amount

	defData, err := sle.SerializeAsset(def)
	if err != nil {
		return err
	}
	if err := view.Update(keylet.Asset(asset), defData); err != nil {
		return err
	}
	return writeHolding(view, to, dst, false)
}
