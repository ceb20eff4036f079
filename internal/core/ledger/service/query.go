package service

import (
	"context"
	"errors"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// EscrowAddresses are the ledger addresses derived for an escrow.
type EscrowAddresses struct {
	Escrow types.Hash
	Vault  types.Hash
}

// DeriveEscrow computes the escrow and vault addresses of the escrow a
// seller opens on an asset pair. It does not read the ledger.
func DeriveEscrow(seller types.AccountID, offerAsset, requestAsset types.AssetID) EscrowAddresses {
	k := keylet.Escrow(seller, offerAsset, requestAsset)
	return EscrowAddresses{
		Escrow: k.Hash(),
		Vault:  keylet.Vault(k.Key).Hash(),
	}
}

// EscrowInfoResult is an escrow record with its vault and, when the index
// is enabled, the lifetimes the address went through.
type EscrowInfoResult struct {
	Key    types.Hash
	Record *sle.Escrow
	// VaultBalance is zero once the escrow is closed
	VaultBalance uint64
	OfferAsset   *sle.Asset
	RequestAsset *sle.Asset
	History      []relationaldb.EscrowRow
}

// GetEscrowInfo reads the escrow record at key.
func (s *Service) GetEscrowInfo(ctx context.Context, key types.Hash) (*EscrowInfoResult, error) {
	data, err := s.state.Get(keylet.Keylet{Type: entry.TypeEscrow, Key: key})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	record, err := sle.ParseEscrow(data)
	if errors.Is(err, sle.ErrWrongEntryType) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res := &EscrowInfoResult{Key: key, Record: record}

	if record.IsOpen() {
		vaultData, err := s.state.Get(keylet.Vault(key))
		if err != nil {
			return nil, err
		}
		if vaultData != nil {
			vault, err := sle.ParseHolding(vaultData)
			if err != nil {
				return nil, err
			}
			res.VaultBalance = vault.Balance
		}
	}

	// Asset definitions are never removed, so a failed read is an error.
	if res.OfferAsset, err = s.GetAsset(record.OfferAsset); err != nil {
		return nil, err
	}
	if res.RequestAsset, err = s.GetAsset(record.RequestAsset); err != nil {
		return nil, err
	}

	if s.index != nil {
		history, err := s.index.repos.Escrow().GetHistory(ctx, key)
		if err != nil {
			s.logger.WithError(err).WithField("escrow", key.String()).Warn("escrow history unavailable")
		} else {
			res.History = history
		}
	}
	return res, nil
}

// EscrowSummary is one entry of an escrow listing.
type EscrowSummary struct {
	Key           types.Hash
	Seller        types.AccountID
	OfferAsset    types.AssetID
	RequestAsset  types.AssetID
	OfferAmount   uint64
	RequestAmount uint64
	Status        string
	Outcome       string
	Buyer         types.AccountID
	CreateTxnID   types.Hash
}

// ListEscrows lists escrows matching filter. With the index enabled every
// lifetime is listed, newest first; otherwise the ledger is scanned and
// the current record at each address is listed in key order.
func (s *Service) ListEscrows(ctx context.Context, filter relationaldb.EscrowFilter) ([]EscrowSummary, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, relationaldb.ErrInvalidLimit
	}
	if s.index != nil {
		rows, err := s.index.repos.Escrow().ListEscrows(ctx, filter)
		if err != nil {
			return nil, err
		}
		out := make([]EscrowSummary, 0, len(rows))
		for _, r := range rows {
			out = append(out, EscrowSummary{
				Key:           r.EscrowKey,
				Seller:        r.Seller,
				OfferAsset:    r.OfferAsset,
				RequestAsset:  r.RequestAsset,
				OfferAmount:   r.OfferAmount,
				RequestAmount: r.RequestAmount,
				Status:        r.Status,
				Outcome:       r.Outcome,
				Buyer:         r.Buyer,
				CreateTxnID:   r.CreateTxnID,
			})
		}
		return out, nil
	}
	return s.scanEscrows(ctx, filter)
}

func (s *Service) scanEscrows(ctx context.Context, filter relationaldb.EscrowFilter) ([]EscrowSummary, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	var (
		out     []EscrowSummary
		skipped int
		scanErr error
	)
	err := s.state.ForEach(ctx, func(key [32]byte, data []byte) bool {
		t, err := sle.EntryTypeOf(data)
		if err != nil || t != entry.TypeEscrow {
			return true
		}
		record, err := sle.ParseEscrow(data)
		if err != nil {
			scanErr = err
			return false
		}
		if !matchesFilter(record, filter) {
			return true
		}
		if skipped < filter.Offset {
			skipped++
			return true
		}
		out = append(out, EscrowSummary{
			Key:           key,
			Seller:        record.Seller,
			OfferAsset:    record.OfferAsset,
			RequestAsset:  record.RequestAsset,
			OfferAmount:   record.OfferAmount,
			RequestAmount: record.RequestAmount,
			Status:        string(record.Status),
			Outcome:       string(record.Outcome),
			Buyer:         record.Buyer,
			CreateTxnID:   record.CreateTxnID,
		})
		return len(out) < limit
	})
	if err == nil {
		err = scanErr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultListLimit caps listings that set no limit.
const DefaultListLimit = 200

func matchesFilter(e *sle.Escrow, f relationaldb.EscrowFilter) bool {
	if !f.Seller.IsZero() && e.Seller != f.Seller {
		return false
	}
	if !f.Buyer.IsZero() && e.Buyer != f.Buyer {
		return false
	}
	if !f.OfferAsset.IsZero() && e.OfferAsset != f.OfferAsset {
		return false
	}
	if !f.RequestAsset.IsZero() && e.RequestAsset != f.RequestAsset {
		return false
	}
	if f.Status != "" && string(e.Status) != f.Status {
		return false
	}
	return true
}
