package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// DefaultListLimit caps ListEscrows when the filter sets no limit.
const DefaultListLimit = 200

const escrowColumns = `create_txn, escrow_key, seller, offer_asset, request_asset, offer_amount,
	request_amount, status, outcome, buyer, close_txn, opened_at, closed_at`

// EscrowRepository implements relationaldb.EscrowRepository
type EscrowRepository struct {
	db      executor
	d       dialect
	timeout time.Duration
}

func newEscrowRepository(db executor, d dialect, timeout time.Duration) *EscrowRepository {
	return &EscrowRepository{db: db, d: d, timeout: timeout}
}

func (r *EscrowRepository) OpenEscrow(ctx context.Context, row *relationaldb.EscrowRow) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.d.rebind(`INSERT INTO escrows (` + escrowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', '', '', ?, NULL)`)

	_, err := r.db.ExecContext(ctx, query,
		row.CreateTxnID.String(),
		row.EscrowKey.String(),
		row.Seller.String(),
		row.OfferAsset.String(),
		row.RequestAsset.String(),
		strconv.FormatUint(row.OfferAmount, 10),
		strconv.FormatUint(row.RequestAmount, 10),
		relationaldb.StatusOpen,
		row.OpenedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return relationaldb.NewConstraintError("open_escrow", "escrow already open", err).WithCode("DUPLICATE_ENTRY")
		}
		return relationaldb.NewQueryError("open_escrow", "failed to insert escrow", err)
	}
	return nil
}

func (r *EscrowRepository) CloseEscrow(ctx context.Context, escrowKey types.Hash, outcome string, buyer types.AccountID, closeTxn types.Hash, closedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	buyerText := ""
	if !buyer.IsZero() {
		buyerText = buyer.String()
	}

	query := r.d.rebind(`UPDATE escrows
		SET status = ?, outcome = ?, buyer = ?, close_txn = ?, closed_at = ?
		WHERE escrow_key = ? AND status = ?`)

	res, err := r.db.ExecContext(ctx, query,
		relationaldb.StatusClosed,
		outcome,
		buyerText,
		closeTxn.String(),
		closedAt.UnixNano(),
		escrowKey.String(),
		relationaldb.StatusOpen,
	)
	if err != nil {
		return relationaldb.NewQueryError("close_escrow", "failed to update escrow", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return relationaldb.NewQueryError("close_escrow", "failed to read affected rows", err)
	}
	if n == 0 {
		return relationaldb.NewDataError("close_escrow", "no open escrow", nil).WithCode("ESCROW_NOT_FOUND")
	}
	return nil
}

func (r *EscrowRepository) GetEscrow(ctx context.Context, escrowKey types.Hash) (*relationaldb.EscrowRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.d.rebind(`SELECT ` + escrowColumns + ` FROM escrows
		WHERE escrow_key = ? ORDER BY opened_at DESC LIMIT 1`)

	row, err := scanEscrow(r.db.QueryRowContext(ctx, query, escrowKey.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, relationaldb.NewDataError("get_escrow", "escrow not found", nil).WithCode("ESCROW_NOT_FOUND")
	}
	if err != nil {
		return nil, relationaldb.NewQueryError("get_escrow", "failed to read escrow", err)
	}
	return row, nil
}

func (r *EscrowRepository) GetHistory(ctx context.Context, escrowKey types.Hash) ([]relationaldb.EscrowRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.d.rebind(`SELECT ` + escrowColumns + ` FROM escrows
		WHERE escrow_key = ? ORDER BY opened_at ASC`)

	rows, err := r.db.QueryContext(ctx, query, escrowKey.String())
	if err != nil {
		return nil, relationaldb.NewQueryError("get_history", "failed to query escrows", err)
	}
	return collectEscrows(rows, "get_history")
}

func (r *EscrowRepository) ListEscrows(ctx context.Context, filter relationaldb.EscrowFilter) ([]relationaldb.EscrowRow, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, relationaldb.ErrInvalidLimit
	}
	limit := filter.Limit
	if limit == 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if !filter.Seller.IsZero() {
		where = append(where, "seller = ?")
		args = append(args, filter.Seller.String())
	}
	if !filter.Buyer.IsZero() {
		where = append(where, "buyer = ?")
		args = append(args, filter.Buyer.String())
	}
	if !filter.OfferAsset.IsZero() {
		where = append(where, "offer_asset = ?")
		args = append(args, filter.OfferAsset.String())
	}
	if !filter.RequestAsset.IsZero() {
		where = append(where, "request_asset = ?")
		args = append(args, filter.RequestAsset.String())
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + escrowColumns + ` FROM escrows`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY opened_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		return nil, relationaldb.NewQueryError("list_escrows", "failed to query escrows", err)
	}
	return collectEscrows(rows, "list_escrows")
}

func (r *EscrowRepository) CountOpen(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	query := r.d.rebind(`SELECT COUNT(*) FROM escrows WHERE status = ?`)
	if err := r.db.QueryRowContext(ctx, query, relationaldb.StatusOpen).Scan(&n); err != nil {
		return 0, relationaldb.NewQueryError("count_open", "failed to count escrows", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEscrow(s rowScanner) (*relationaldb.EscrowRow, error) {
	var (
		createTxn, escrowKey, seller, offerAsset, requestAsset string
		offerAmount, requestAmount                             string
		status, outcome, buyer, closeTxn                       string
		openedAt                                               int64
		closedAt                                               sql.NullInt64
	)
	if err := s.Scan(&createTxn, &escrowKey, &seller, &offerAsset, &requestAsset, &offerAmount,
		&requestAmount, &status, &outcome, &buyer, &closeTxn, &openedAt, &closedAt); err != nil {
		return nil, err
	}

	row := &relationaldb.EscrowRow{
		Status:   status,
		Outcome:  outcome,
		OpenedAt: time.Unix(0, openedAt).UTC(),
	}
	if closedAt.Valid {
		t := time.Unix(0, closedAt.Int64).UTC()
		row.ClosedAt = &t
	}

	var err error
	if row.CreateTxnID, err = types.ParseHash(createTxn); err != nil {
		return nil, err
	}
	if row.EscrowKey, err = types.ParseHash(escrowKey); err != nil {
		return nil, err
	}
	if row.Seller, err = types.ParseAccountID(seller); err != nil {
		return nil, err
	}
	if row.OfferAsset, err = types.ParseAssetID(offerAsset); err != nil {
		return nil, err
	}
	if row.RequestAsset, err = types.ParseAssetID(requestAsset); err != nil {
		return nil, err
	}
	if row.OfferAmount, err = strconv.ParseUint(offerAmount, 10, 64); err != nil {
		return nil, err
	}
	if row.RequestAmount, err = strconv.ParseUint(requestAmount, 10, 64); err != nil {
		return nil, err
	}
	if buyer != "" {
		if row.Buyer, err = types.ParseAccountID(buyer); err != nil {
			return nil, err
		}
	}
	if closeTxn != "" {
		if row.CloseTxnID, err = types.ParseHash(closeTxn); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func collectEscrows(rows *sql.Rows, op string) ([]relationaldb.EscrowRow, error) {
	defer rows.Close()

	var out []relationaldb.EscrowRow
	for rows.Next() {
		row, err := scanEscrow(rows)
		if err != nil {
			return nil, relationaldb.NewDataError(op, "failed to decode escrow row", err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, relationaldb.NewQueryError(op, "failed to iterate escrows", err)
	}
	return out, nil
}
