package relationaldb

import (
	"context"
	"time"

	"github.com/LeJamon/goEscrowd/internal/types"
)

// Escrow statuses as stored in the index.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// EscrowRow is one lifetime of an escrow: the span from the EscrowCreate
// that opened it to the Accept or Cancel that closed it. A ledger address
// that is re-opened after closing gets a new row; at most one row per
// (seller, offer asset, request asset) is open at a time.
type EscrowRow struct {
	// CreateTxnID identifies the lifetime; it is the opening transaction
	CreateTxnID   types.Hash      `json:"create_txn"`
	EscrowKey     types.Hash      `json:"escrow"`
	Seller        types.AccountID `json:"seller"`
	OfferAsset    types.AssetID   `json:"offer_asset"`
	RequestAsset  types.AssetID   `json:"request_asset"`
	OfferAmount   uint64          `json:"offer_amount,string"`
	RequestAmount uint64          `json:"request_amount,string"`
	Status        string          `json:"status"`
	Outcome       string          `json:"outcome,omitempty"`
	Buyer         types.AccountID `json:"buyer"`
	CloseTxnID    types.Hash      `json:"close_txn"`
	OpenedAt      time.Time       `json:"opened_at"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
}

// EscrowFilter selects escrow rows. Zero fields do not constrain.
type EscrowFilter struct {
	Seller       types.AccountID
	Buyer        types.AccountID
	OfferAsset   types.AssetID
	RequestAsset types.AssetID
	Status       string
	Limit        int
	Offset       int
}

// TransactionRow records one processed transaction, applied or not.
type TransactionRow struct {
	Hash        types.Hash `json:"hash"`
	Account     string     `json:"account"`
	Type        string     `json:"type"`
	Sequence    uint32     `json:"sequence"`
	Result      string     `json:"result"`
	Applied     bool       `json:"applied"`
	EscrowKey   types.Hash `json:"escrow"`
	ProcessedAt time.Time  `json:"processed_at"`
}

// EscrowRepository handles escrow lifetime rows
type EscrowRepository interface {
	// OpenEscrow inserts a new open row. It fails with ErrDuplicateEntry
	// when an open row already exists for the same natural key.
	OpenEscrow(ctx context.Context, row *EscrowRow) error
	// CloseEscrow closes the open row of escrowKey.
	CloseEscrow(ctx context.Context, escrowKey types.Hash, outcome string, buyer types.AccountID, closeTxn types.Hash, closedAt time.Time) error
	// GetEscrow returns the most recent row of escrowKey.
	GetEscrow(ctx context.Context, escrowKey types.Hash) (*EscrowRow, error)
	// GetHistory returns every row of escrowKey, oldest first.
	GetHistory(ctx context.Context, escrowKey types.Hash) ([]EscrowRow, error)
	ListEscrows(ctx context.Context, filter EscrowFilter) ([]EscrowRow, error)
	CountOpen(ctx context.Context) (int64, error)
}

// TransactionRepository handles processed transactions
type TransactionRepository interface {
	SaveTransaction(ctx context.Context, row *TransactionRow) error
	GetTransaction(ctx context.Context, hash types.Hash) (*TransactionRow, error)
	GetAccountTransactions(ctx context.Context, account string, limit int) ([]TransactionRow, error)
}

// SystemRepository handles system-level database operations
type SystemRepository interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (uint, error)
}

// TransactionContext represents a database transaction context with repository access
type TransactionContext interface {
	Commit() error
	Rollback() error

	Escrow() EscrowRepository
	Transaction() TransactionRepository
}

// RepositoryManager provides access to all repositories and transaction management
type RepositoryManager interface {
	Escrow() EscrowRepository
	Transaction() TransactionRepository
	System() SystemRepository

	Open(ctx context.Context) error
	Close(ctx context.Context) error

	// WithTransaction runs fn in a database transaction, committing when
	// fn returns nil and rolling back otherwise.
	WithTransaction(ctx context.Context, fn func(TransactionContext) error) error
}
