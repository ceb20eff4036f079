package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
)

// DefaultSubscriptionBuffer is the per-subscriber event buffer.
const DefaultSubscriptionBuffer = 64

// TransactionEvent is the streamed form of a committed transaction.
type TransactionEvent struct {
	Hash        string         `json:"hash"`
	Type        string         `json:"transaction_type"`
	Account     string         `json:"account"`
	Result      string         `json:"engine_result"`
	Escrow      string         `json:"escrow,omitempty"`
	Transaction map[string]any `json:"transaction,omitempty"`
	Metadata    *tx.Metadata   `json:"meta,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Subscription receives committed transaction events in commit order.
// Events are dropped, not queued without bound, when the subscriber falls
// behind.
type Subscription struct {
	C <-chan TransactionEvent

	ch        chan TransactionEvent
	id        uint64
	publisher *EventPublisher
	dropped   atomic.Uint64
	once      sync.Once
}

// Dropped returns the number of events this subscriber missed.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.publisher.remove(s.id)
	})
}

// EventPublisher fans committed transactions out to subscribers.
type EventPublisher struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a subscriber with the given buffer size.
func (p *EventPublisher) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	ch := make(chan TransactionEvent, buffer)
	sub := &Subscription{C: ch, ch: ch, id: p.nextID, publisher: p}
	p.subs[sub.id] = sub
	return sub
}

func (p *EventPublisher) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sub, ok := p.subs[id]; ok {
		delete(p.subs, id)
		close(sub.ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (p *EventPublisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// TransactionProcessed implements tx.Observer. Only applied transactions
// are published.
func (p *EventPublisher) TransactionProcessed(ev *tx.Event) {
	if !ev.Applied {
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.subs) == 0 {
		return
	}

	out := TransactionEvent{
		Hash:      ev.Hash.String(),
		Type:      ev.Tx.TxType().String(),
		Account:   ev.Account,
		Result:    ev.Result.String(),
		Metadata:  ev.Metadata,
		Timestamp: time.Now().UTC(),
	}
	if fields, err := ev.Tx.Flatten(); err == nil {
		out.Transaction = fields
	}
	if node, ok := ev.Metadata.Node(entry.TypeEscrow.String()); ok {
		out.Escrow = node.LedgerIndex
	}

	for _, sub := range p.subs {
		select {
		case sub.ch <- out:
		default:
			sub.dropped.Add(1)
		}
	}
}
