package testing

import (
	"strings"

	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// TxResult represents the result of applying a transaction.
type TxResult struct {
	// Code is the transaction engine result code (e.g., "tesSUCCESS").
	Code string

	// Success indicates whether the transaction was successfully applied.
	Success bool

	// Message provides additional details about the result.
	Message string

	// Hash is the transaction ID. It is zero when preflight rejected the transaction.
	Hash types.Hash

	// Metadata lists the entries the transaction touched. Nil unless applied.
	Metadata *tx.Metadata
}

// IsMalformed returns true if the transaction was rejected as malformed (tem).
func (r TxResult) IsMalformed() bool {
	return strings.HasPrefix(r.Code, "tem")
}

// IsClaimed returns true if the transaction was well formed but failed
// against the ledger state (tec). Nothing is applied either way.
func (r TxResult) IsClaimed() bool {
	return strings.HasPrefix(r.Code, "tec")
}

// IsRetry returns true if the transaction may succeed later (ter).
func (r TxResult) IsRetry() bool {
	return strings.HasPrefix(r.Code, "ter")
}

func newTxResult(res tx.ApplyResult) TxResult {
	return TxResult{
		Code:     res.Result.String(),
		Success:  res.Result.IsSuccess(),
		Message:  res.Message,
		Hash:     res.Hash,
		Metadata: res.Metadata,
	}
}
