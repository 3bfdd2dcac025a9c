package service

import (
	"sync"

	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/storage/journal"
)

// TransactionEvent describes the outcome of one submitted transaction.
type TransactionEvent struct {
	Hash              tx.Hash            `json:"hash"`
	Result            string             `json:"engine_result"`
	Code              int                `json:"engine_result_code"`
	Applied           bool               `json:"applied"`
	Sequence          uint64             `json:"ledger_index,omitempty"`
	FailedInstruction int                `json:"failed_instruction"`
	Affected          []journal.Affected `json:"affected,omitempty"`
}

// EventHooks allows external systems to subscribe to ledger events without
// the service depending on their types.
type EventHooks struct {
	// OnTransaction is called once for every submitted transaction,
	// applied or not.
	OnTransaction func(ev TransactionEvent)
}

// EventPublisher fans events out to registered hooks. Hooks run on their
// own goroutine and must not block submission.
type EventPublisher struct {
	mu    sync.RWMutex
	hooks []*EventHooks
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

// AddHooks registers hooks and returns a function that removes them.
func (p *EventPublisher) AddHooks(h *EventHooks) (remove func()) {
	p.mu.Lock()
	p.hooks = append(p.hooks, h)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, cur := range p.hooks {
			if cur == h {
				p.hooks = append(p.hooks[:i], p.hooks[i+1:]...)
				return
			}
		}
	}
}

// HasSubscribers returns true if there are any subscribers.
func (p *EventPublisher) HasSubscribers() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hooks) > 0
}

// PublishTransaction publishes a transaction event via hooks.
func (p *EventPublisher) PublishTransaction(ev TransactionEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, h := range p.hooks {
		if h.OnTransaction != nil {
			go h.OnTransaction(ev)
		}
	}
}
