package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// ErrIndexClosed is returned by Flush after Close.
var ErrIndexClosed = errors.New("escrow index is closed")

type indexJob struct {
	ev    tx.Event
	at    time.Time
	flush chan struct{}
}

// EscrowIndex mirrors escrow lifetimes and processed transactions into the
// relational database. Engine events are queued and written by a single
// worker, so rows are written in commit order without holding the engine
// lock on database I/O.
type EscrowIndex struct {
	repos  relationaldb.RepositoryManager
	logger logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	queue  chan indexJob
	done   chan struct{}

	pending atomic.Int64
	failed  atomic.Uint64
}

// NewEscrowIndex starts the index worker.
func NewEscrowIndex(repos relationaldb.RepositoryManager, queueSize int, logger logrus.FieldLogger) *EscrowIndex {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	i := &EscrowIndex{
		repos:  repos,
		logger: logger.WithField("component", "escrow_index"),
		queue:  make(chan indexJob, queueSize),
		done:   make(chan struct{}),
	}
	go i.run()
	return i
}

// TransactionProcessed implements tx.Observer. Transactions rejected
// before hashing are not recorded. A full queue blocks the engine rather
// than losing rows.
func (i *EscrowIndex) TransactionProcessed(ev *tx.Event) {
	if ev.Hash.IsZero() {
		return
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		i.logger.WithField("hash", ev.Hash.String()).Warn("escrow index closed, transaction not indexed")
		return
	}
	i.pending.Add(1)
	i.queue <- indexJob{ev: *ev, at: time.Now().UTC()}
}

// Pending returns the number of queued events.
func (i *EscrowIndex) Pending() int {
	return int(i.pending.Load())
}

// Failed returns the number of events that could not be written.
func (i *EscrowIndex) Failed() uint64 {
	return i.failed.Load()
}

// Flush waits until every event queued before the call is written.
func (i *EscrowIndex) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	i.mu.RLock()
	if i.closed {
		i.mu.RUnlock()
		return ErrIndexClosed
	}
	select {
	case i.queue <- indexJob{flush: barrier}:
	case <-ctx.Done():
		i.mu.RUnlock()
		return ctx.Err()
	}
	i.mu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for the queue to drain.
func (i *EscrowIndex) Close(ctx context.Context) error {
	i.mu.Lock()
	if !i.closed {
		i.closed = true
		close(i.queue)
	}
	i.mu.Unlock()

	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *EscrowIndex) run() {
	defer close(i.done)

	for job := range i.queue {
		if job.flush != nil {
			close(job.flush)
			continue
		}
		if err := i.write(context.Background(), &job); err != nil {
			i.failed.Add(1)
			i.logger.WithError(err).WithFields(logrus.Fields{
				"hash":    job.ev.Hash.String(),
				"tx_type": job.ev.Tx.TxType().String(),
			}).Error("failed to index transaction")
		}
		i.pending.Add(-1)
	}
}

func (i *EscrowIndex) write(ctx context.Context, job *indexJob) error {
	ev := &job.ev
	row := &relationaldb.TransactionRow{
		Hash:        ev.Hash,
		Account:     ev.Account,
		Type:        ev.Tx.TxType().String(),
		Sequence:    ev.Tx.GetCommon().GetSequence(),
		Result:      ev.Result.String(),
		Applied:     ev.Applied,
		EscrowKey:   escrowAddress(ev.Tx),
		ProcessedAt: job.at,
	}

	return i.repos.WithTransaction(ctx, func(tc relationaldb.TransactionContext) error {
		if err := tc.Transaction().SaveTransaction(ctx, row); err != nil {
			return err
		}
		if !ev.Applied {
			return nil
		}
		return applyLifetime(ctx, tc.Escrow(), ev, job.at)
	})
}

// applyLifetime opens or closes the escrow row a committed transaction
// changed.
func applyLifetime(ctx context.Context, repo relationaldb.EscrowRepository, ev *tx.Event, at time.Time) error {
	switch t := ev.Tx.(type) {
	case *escrow.EscrowCreate:
		seller, err := types.ParseAccountID(ev.Account)
		if err != nil {
			return err
		}
		return repo.OpenEscrow(ctx, &relationaldb.EscrowRow{
			CreateTxnID:   ev.Hash,
			EscrowKey:     t.Escrow,
			Seller:        seller,
			OfferAsset:    t.OfferAsset,
			RequestAsset:  t.RequestAsset,
			OfferAmount:   t.OfferAmount,
			RequestAmount: t.RequestAmount,
			OpenedAt:      at,
		})
	case *escrow.EscrowAccept:
		buyer, err := types.ParseAccountID(ev.Account)
		if err != nil {
			return err
		}
		return repo.CloseEscrow(ctx, t.Escrow, string(sle.OutcomeSettled), buyer, ev.Hash, at)
	case *escrow.EscrowCancel:
		return repo.CloseEscrow(ctx, t.Escrow, string(sle.OutcomeCancelled), types.AccountID{}, ev.Hash, at)
	}
	return nil
}

// escrowAddress returns the escrow a transaction names, or zero.
func escrowAddress(t tx.Transaction) types.Hash {
	switch t := t.(type) {
	case *escrow.EscrowCreate:
		return t.Escrow
	case *escrow.EscrowAccept:
		return t.Escrow
	case *escrow.EscrowCancel:
		return t.Escrow
	}
	return types.Hash{}
}
