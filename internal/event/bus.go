package event

import (
	"log/slog"
	"sync"

	"quantgo/internal/domain"
)

// AllSymbols subscribes a handler to every symbol of an event kind.
const AllSymbols = "*"

// Handler consumes one published event. A non-nil error is logged by the bus
// and never reaches the publisher or other handlers.
type Handler func(evt domain.Event) error

type subscription struct {
	kind   domain.EventKind
	symbol string
	queue  chan domain.Event
	done   chan struct{}
}

func (s *subscription) matches(evt domain.Event) bool {
	if s.kind != evt.Kind {
		return false
	}
	return s.symbol == AllSymbols || s.symbol == evt.Symbol
}

// Bus is an in-process publish/subscribe registry keyed by event kind and
// symbol. Each subscription drains its own buffered queue on a dedicated
// goroutine, so delivery is FIFO per subscription and one slow or failing
// handler cannot stall the others or the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	buffer int
	logger *slog.Logger
	closed bool
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{buffer: 1024, logger: logger}
}

// Subscribe registers handler for every future event of the given kind whose
// symbol matches. Pass AllSymbols to match every symbol of that kind.
func (b *Bus) Subscribe(kind domain.EventKind, symbol string, handler Handler) {
	sub := &subscription{
		kind:   kind,
		symbol: symbol,
		queue:  make(chan domain.Event, b.buffer),
		done:   make(chan struct{}),
	}
	go b.run(sub, handler)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.queue)
		return
	}
	b.subs = append(b.subs, sub)
}

// Publish enqueues evt for every matching subscription and returns without
// waiting for any handler. A subscription whose queue is full drops the
// event with an error log rather than stalling the publisher; the producers
// feeding the bus must never block on a stuck consumer.
func (b *Bus) Publish(evt domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if !sub.matches(evt) {
			continue
		}
		select {
		case sub.queue <- evt:
		default:
			b.logger.Error("subscription queue full, dropping event",
				"kind", string(sub.kind), "symbol", evt.Symbol)
		}
	}
}

// Close stops accepting events and waits for queued events to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.queue)
		<-sub.done
	}
}

func (b *Bus) run(sub *subscription, handler Handler) {
	defer close(sub.done)
	for evt := range sub.queue {
		b.deliver(sub, handler, evt)
	}
}

func (b *Bus) deliver(sub *subscription, handler Handler, evt domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"kind", string(sub.kind), "symbol", evt.Symbol, "panic", r)
		}
	}()
	if err := handler(evt); err != nil {
		b.logger.Error("event handler failed",
			"kind", string(sub.kind), "symbol", evt.Symbol, "err", err)
	}
}
