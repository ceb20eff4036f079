package sqldb

import (
	"database/sql"
	"time"

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
)

// TransactionContext implements relationaldb.TransactionContext
type TransactionContext struct {
	tx *sql.Tx

	escrowRepo      *EscrowRepository
	transactionRepo *TransactionRepository
}

func newTransactionContext(tx *sql.Tx, d dialect, timeout time.Duration) *TransactionContext {
	return &TransactionContext{
		tx:              tx,
		escrowRepo:      newEscrowRepository(tx, d, timeout),
		transactionRepo: newTransactionRepository(tx, d, timeout),
	}
}

func (tc *TransactionContext) Commit() error {
	if tc.tx == nil {
		return relationaldb.NewTransactionError("commit", "transaction is closed", nil)
	}

	err := tc.tx.Commit()
	tc.tx = nil
	if err != nil {
		return relationaldb.NewTransactionError("commit", "failed to commit transaction", err)
	}
	return nil
}

func (tc *TransactionContext) Rollback() error {
	if tc.tx == nil {
		return nil
	}

	err := tc.tx.Rollback()
	tc.tx = nil
	if err != nil {
		return relationaldb.NewTransactionError("rollback", "failed to rollback transaction", err)
	}
	return nil
}

func (tc *TransactionContext) Escrow() relationaldb.EscrowRepository {
	return tc.escrowRepo
}

func (tc *TransactionContext) Transaction() relationaldb.TransactionRepository {
	return tc.transactionRepo
}
