// Package escrow implements the EscrowCreate, EscrowAccept and EscrowCancel
// transactions of the token swap escrow.
package escrow

import (
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/asset"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// assetResult maps an asset subsystem error to a transaction result.
func assetResult(err error) tx.Result {
	switch {
	case err == nil:
		return tx.TesSUCCESS
	case errors.Is(err, asset.ErrInsufficientFunds):
		return tx.TecUNFUNDED
	case errors.Is(err, asset.ErrUnauthorized):
		return tx.TecNO_PERMISSION
	case errors.Is(err, asset.ErrWrongAsset):
		return tx.TecBAD_MINT
	case errors.Is(err, asset.ErrWrongOwner):
		return tx.TecBAD_OWNER
	case errors.Is(err, asset.ErrHoldingNotFound):
		return tx.TecNO_ENTRY
	case errors.Is(err, asset.ErrAssetNotFound):
		return tx.TecNO_ISSUER
	case errors.Is(err, asset.ErrHoldingExists):
		return tx.TecDUPLICATE
	default:
		return tx.TefINTERNAL
	}
}

// readEscrow loads the escrow record at k. A missing record yields a nil
// escrow and no error.
func readEscrow(view tx.LedgerView, k keylet.Keylet) (*sle.Escrow, error) {
	data, err := view.Read(k)
	if err != nil || data == nil {
		return nil, err
	}
	return sle.ParseEscrow(data)
}

// readOpenEscrow loads the escrow record at k and requires it to be open.
// Any other entry at k counts as no escrow.
func readOpenEscrow(view tx.LedgerView, k keylet.Keylet) (*sle.Escrow, tx.Result) {
	record, err := readEscrow(view, k)
	if errors.Is(err, sle.ErrWrongEntryType) {
		return nil, tx.TecNO_ENTRY
	}
	if err != nil {
		return nil, tx.TefINTERNAL
	}
	if record == nil || !record.IsOpen() {
		return nil, tx.TecNO_ENTRY
	}
	return record, tx.TesSUCCESS
}

func writeEscrow(view tx.LedgerView, k keylet.Keylet, record *sle.Escrow, insert bool) tx.Result {
	data, err := sle.SerializeEscrow(record)
	if err != nil {
		return tx.TefINTERNAL
	}
	if insert {
		err = view.Insert(k, data)
	} else {
		err = view.Update(k, data)
	}
	if err != nil {
		return tx.TefINTERNAL
	}
	return tx.TesSUCCESS
}

// checkHolding requires the holding at k to exist, belong to owner and
// hold assetID.
func checkHolding(view tx.LedgerView, k keylet.Keylet, owner types.AccountID, assetID types.AssetID) tx.Result {
	h, err := asset.ReadHolding(view, k)
	if err != nil {
		return assetResult(err)
	}
	if h.IsVault() {
		return tx.TecBAD_OWNER
	}
	return assetResult(asset.CheckHolding(h, owner, assetID))
}

// releaseVault moves the whole vault balance to the holding at to under the
// escrow's authority and erases the vault.
func releaseVault(view tx.LedgerView, escrowKey types.Hash, vaultKey, to keylet.Keylet, assetID types.AssetID) tx.Result {
	vault, err := asset.ReadHolding(view, vaultKey)
	if err != nil {
		return assetResult(err)
	}
	if !vault.IsVault() || vault.Custodian != escrowKey {
		return tx.TecNO_PERMISSION
	}
	if vault.Asset != assetID {
		return tx.TecBAD_MINT
	}

	auth := asset.EscrowAuthority(escrowKey)
	if err := asset.Transfer(view, vaultKey, to, assetID, vault.Balance, auth); err != nil {
		return assetResult(err)
	}
	return assetResult(asset.CloseVault(view, vaultKey, auth))
}

// requireHash returns a temMALFORMED error when a required address is missing.
func requireHash(name string, h types.Hash) error {
	if h.IsZero() {
		return errors.New("temMALFORMED: " + name + " is required")
	}
	return nil
}

// namedHash is a required address and the field it was supplied in.
type namedHash struct {
	name string
	hash types.Hash
}

// requireHashes checks required addresses in order and reports the first
// missing one.
func requireHashes(fields ...namedHash) error {
	for _, f := range fields {
		if err := requireHash(f.name, f.hash); err != nil {
			return err
		}
	}
	return nil
}

func requireAsset(name string, a types.AssetID) error {
	if a.IsZero() {
		return errors.New("temMALFORMED: " + name + " is required")
	}
	return nil
}

// escrowKeylet addresses the escrow record at a caller supplied key.
func escrowKeylet(key types.Hash) keylet.Keylet {
	return keylet.Keylet{Type: entry.TypeEscrow, Key: key}
}

// checkRecordAddresses re-derives the escrow and vault addresses from the
// stored record and compares them with the supplied ones.
func checkRecordAddresses(record *sle.Escrow, suppliedEscrow, suppliedVault types.Hash) tx.Result {
	escrowKey := keylet.Escrow(record.Seller, record.OfferAsset, record.RequestAsset)
	if !escrowKey.Matches(suppliedEscrow) {
		return tx.TecCONSTRAINT_MISMATCH
	}
	if !keylet.Vault(escrowKey.Key).Matches(suppliedVault) {
		return tx.TecCONSTRAINT_MISMATCH
	}
	return tx.TesSUCCESS
}
