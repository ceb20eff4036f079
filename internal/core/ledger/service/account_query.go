package service

import (
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// AccountInfoResult contains account information from the ledger
type AccountInfoResult struct {
	Account    types.AccountID
	Balance    uint64
	Sequence   uint32
	OwnerCount uint32
	// Reserve is the balance the account must keep for what it owns
	Reserve       uint64
	PreviousTxnID types.Hash
}

// GetAccountInfo retrieves an account root
func (s *Service) GetAccountInfo(account types.AccountID) (*AccountInfoResult, error) {
	data, err := s.state.Get(keylet.Account(account))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	root, err := sle.ParseAccountRoot(data)
	if err != nil {
		return nil, err
	}

	cfg := s.engine.Config()
	return &AccountInfoResult{
		Account:       root.Account,
		Balance:       root.Balance,
		Sequence:      root.Sequence,
		OwnerCount:    root.OwnerCount,
		Reserve:       cfg.ReserveBase + uint64(root.OwnerCount)*cfg.ReserveIncrement,
		PreviousTxnID: root.PreviousTxnID,
	}, nil
}

// GetAsset retrieves an asset definition
func (s *Service) GetAsset(id types.AssetID) (*sle.Asset, error) {
	data, err := s.state.Get(keylet.Asset(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return sle.ParseAsset(data)
}

// HoldingInfoResult is a holding together with its asset definition
type HoldingInfoResult struct {
	Key     types.Hash
	Holding *sle.Holding
	Asset   *sle.Asset
}

// GetHoldingInfo retrieves owner's holding of an asset
func (s *Service) GetHoldingInfo(owner types.AccountID, assetID types.AssetID) (*HoldingInfoResult, error) {
	k := keylet.Holding(owner, assetID)
	data, err := s.state.Get(k)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	h, err := sle.ParseHolding(data)
	if err != nil {
		return nil, err
	}
	a, err := s.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	return &HoldingInfoResult{Key: k.Hash(), Holding: h, Asset: a}, nil
}
