package rpc

import (
	"context"
	"time"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// LedgerService is the part of the ledger service the RPC methods use
type LedgerService interface {
	SubmitJSON(data []byte) (tx.ApplyResult, error)
	Fund(account types.AccountID, amount uint64) error

	GetAccountInfo(account types.AccountID) (*service.AccountInfoResult, error)
	GetAsset(id types.AssetID) (*sle.Asset, error)
	GetHoldingInfo(owner types.AccountID, asset types.AssetID) (*service.HoldingInfoResult, error)

	GetEscrowInfo(ctx context.Context, key types.Hash) (*service.EscrowInfoResult, error)
	ListEscrows(ctx context.Context, filter relationaldb.EscrowFilter) ([]service.EscrowSummary, error)

	GetTransaction(ctx context.Context, hash types.Hash) (*relationaldb.TransactionRow, error)
	GetAccountTransactions(ctx context.Context, account types.AccountID, limit int) ([]relationaldb.TransactionRow, error)

	GetServerInfo(ctx context.Context) service.ServerInfo
	Publisher() *service.EventPublisher
}

// Metrics records RPC activity
type Metrics interface {
	ObserveRPC(method string, failed bool, d time.Duration)
	RecordThrottle()
}

type noopMetrics struct{}

func (noopMetrics) ObserveRPC(string, bool, time.Duration) {}
func (noopMetrics) RecordThrottle()                        {}
