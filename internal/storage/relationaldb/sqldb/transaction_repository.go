package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// TransactionRepository implements relationaldb.TransactionRepository
type TransactionRepository struct {
	db      executor
	d       dialect
	timeout time.Duration
}

func newTransactionRepository(db executor, d dialect, timeout time.Duration) *TransactionRepository {
	return &TransactionRepository{db: db, d: d, timeout: timeout}
}

// SaveTransaction records a processed transaction. A transaction that is
// resubmitted unchanged has the same hash; the latest outcome wins.
func (r *TransactionRepository) SaveTransaction(ctx context.Context, row *relationaldb.TransactionRow) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	escrowKey := ""
	if !row.EscrowKey.IsZero() {
		escrowKey = row.EscrowKey.String()
	}
	applied := 0
	if row.Applied {
		applied = 1
	}

	query := r.d.rebind(`INSERT INTO transactions
		(hash, account, tx_type, sequence, result, applied, escrow_key, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hash) DO UPDATE SET
			result = excluded.result,
			applied = excluded.applied,
			escrow_key = excluded.escrow_key,
			processed_at = excluded.processed_at`)

	_, err := r.db.ExecContext(ctx, query,
		row.Hash.String(),
		row.Account,
		row.Type,
		int64(row.Sequence),
		row.Result,
		applied,
		escrowKey,
		row.ProcessedAt.UnixNano(),
	)
	if err != nil {
		return relationaldb.NewQueryError("save_transaction", "failed to save transaction", err)
	}
	return nil
}

func (r *TransactionRepository) GetTransaction(ctx context.Context, hash types.Hash) (*relationaldb.TransactionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.d.rebind(`SELECT hash, account, tx_type, sequence, result, applied, escrow_key, processed_at
		FROM transactions WHERE hash = ?`)

	row, err := scanTransaction(r.db.QueryRowContext(ctx, query, hash.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, relationaldb.NewDataError("get_transaction", "transaction not found", nil).WithCode("TRANSACTION_NOT_FOUND")
	}
	if err != nil {
		return nil, relationaldb.NewQueryError("get_transaction", "failed to read transaction", err)
	}
	return row, nil
}

func (r *TransactionRepository) GetAccountTransactions(ctx context.Context, account string, limit int) ([]relationaldb.TransactionRow, error) {
	if limit < 0 {
		return nil, relationaldb.ErrInvalidLimit
	}
	if limit == 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.d.rebind(`SELECT hash, account, tx_type, sequence, result, applied, escrow_key, processed_at
		FROM transactions WHERE account = ? ORDER BY processed_at DESC LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, account, limit)
	if err != nil {
		return nil, relationaldb.NewQueryError("get_account_transactions", "failed to query transactions", err)
	}
	defer rows.Close()

	var out []relationaldb.TransactionRow
	for rows.Next() {
		row, err := scanTransaction(rows)
		if err != nil {
			return nil, relationaldb.NewDataError("get_account_transactions", "failed to decode transaction row", err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, relationaldb.NewQueryError("get_account_transactions", "failed to iterate transactions", err)
	}
	return out, nil
}

func scanTransaction(s rowScanner) (*relationaldb.TransactionRow, error) {
	var (
		hash, escrowKey string
		sequence        int64
		applied         int64
		processedAt     int64
		row             relationaldb.TransactionRow
	)
	if err := s.Scan(&hash, &row.Account, &row.Type, &sequence, &row.Result, &applied, &escrowKey, &processedAt); err != nil {
		return nil, err
	}

	var err error
	if row.Hash, err = types.ParseHash(hash); err != nil {
		return nil, err
	}
	if escrowKey != "" {
		if row.EscrowKey, err = types.ParseHash(escrowKey); err != nil {
			return nil, err
		}
	}
	row.Sequence = uint32(sequence)
	row.Applied = applied != 0
	row.ProcessedAt = time.Unix(0, processedAt).UTC()
	return &row, nil
}
