package service

import (
	"context"

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// GetTransaction looks up a processed transaction in the index.
func (s *Service) GetTransaction(ctx context.Context, hash types.Hash) (*relationaldb.TransactionRow, error) {
	if s.index == nil {
		return nil, ErrIndexDisabled
	}
	return s.index.repos.Transaction().GetTransaction(ctx, hash)
}

// GetAccountTransactions lists the newest transactions an account signed.
func (s *Service) GetAccountTransactions(ctx context.Context, account types.AccountID, limit int) ([]relationaldb.TransactionRow, error) {
	if s.index == nil {
		return nil, ErrIndexDisabled
	}
	return s.index.repos.Transaction().GetAccountTransactions(ctx, account.String(), limit)
}

// FlushIndex waits until the escrow index has written every transaction
// processed so far. It is a no-op without an index.
func (s *Service) FlushIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	return s.index.Flush(ctx)
}
