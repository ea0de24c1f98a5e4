package orders

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"quantgo/internal/domain"
)

// Record is an exchange-native order description, either one entry of the
// REST open-orders snapshot or one streamed execution report. Status carries
// the exchange's raw status string; mapping to the internal enum happens
// inside the table.
type Record struct {
	OrderID       string
	ClientOrderID string
	Side          string
	Type          string
	Price         decimal.Decimal
	OrigQty       decimal.Decimal
	ExecutedQty   decimal.Decimal
	Status        string
	Time          int64
	UpdateTime    int64
}

// UnknownStatusError marks a record whose native status string has no internal
// mapping. The offending record is skipped; the table is not mutated.
type UnknownStatusError struct {
	OrderID string
	Status  string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown order status %q for order %s", e.Status, e.OrderID)
}

// Publisher is the event fan-out the table emits OrderUpdate events through.
type Publisher interface {
	Publish(evt domain.Event)
}

// Table is the authoritative live-order map for one adapter, keyed by
// exchange order id. All mutations pass through ApplySnapshot and ApplyDelta;
// both publish a value copy of the resulting order, and terminal statuses
// evict the entry after publishing. The adapter serializes writes (one frame
// at a time); the mutex covers concurrent readers.
type Table struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	platform string
	account  string
	strategy string
	symbol   string

	bus    Publisher
	logger *slog.Logger
}

func NewTable(platform, account, strategy, symbol string, bus Publisher, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		orders:   make(map[string]*domain.Order),
		platform: platform,
		account:  account,
		strategy: strategy,
		symbol:   symbol,
		bus:      bus,
		logger:   logger,
	}
}

func mapStatus(native string) (domain.OrderStatus, bool) {
	switch native {
	case "NEW":
		return domain.Submitted, true
	case "PARTIALLY_FILLED":
		return domain.PartialFilled, true
	case "FILLED":
		return domain.Filled, true
	case "CANCELED":
		return domain.Canceled, true
	case "REJECTED":
		return domain.Failed, true
	case "EXPIRED":
		return domain.Failed, true
	}
	return "", false
}

func mapAction(side string) domain.Action {
	if side == "BUY" {
		return domain.Buy
	}
	return domain.Sell
}

func mapType(typ string) domain.OrderType {
	if typ == "LIMIT" {
		return domain.Limit
	}
	return domain.Market
}

// ApplySnapshot installs one entry of the REST open-orders snapshot,
// overwriting any existing entry for the same order id, and publishes an
// OrderUpdate so consumers get the full picture at startup.
func (t *Table) ApplySnapshot(rec Record) error {
	status, ok := mapStatus(rec.Status)
	if !ok {
		t.logger.Warn("unknown status in snapshot", "order_id", rec.OrderID, "status", rec.Status)
		return &UnknownStatusError{OrderID: rec.OrderID, Status: rec.Status}
	}

	order, err := domain.NewOrder(domain.Order{
		Platform:      t.platform,
		Account:       t.account,
		Strategy:      t.strategy,
		OrderID:       rec.OrderID,
		ClientOrderID: rec.ClientOrderID,
		Symbol:        t.symbol,
		Action:        mapAction(rec.Side),
		Type:          mapType(rec.Type),
		Price:         rec.Price,
		Quantity:      rec.OrigQty,
		Remain:        rec.OrigQty.Sub(rec.ExecutedQty),
		Status:        status,
		Ctime:         rec.Time,
		Utime:         rec.UpdateTime,
	})
	if err != nil {
		return fmt.Errorf("snapshot order %s: %w", rec.OrderID, err)
	}

	t.mu.Lock()
	t.orders[order.OrderID] = order
	copied := *order
	t.mu.Unlock()

	t.publish(copied)
	return nil
}

// ApplyDelta merges one streamed execution report. An unseen order id is
// created from the report's own fields; a delta can outrun the snapshot
// fetch, and orders placed by other processes still get tracked. Terminal
// statuses evict the entry after the update publishes.
func (t *Table) ApplyDelta(rec Record) error {
	status, ok := mapStatus(rec.Status)
	if !ok {
		t.logger.Warn("unknown status in execution report", "order_id", rec.OrderID, "status", rec.Status)
		return &UnknownStatusError{OrderID: rec.OrderID, Status: rec.Status}
	}

	t.mu.Lock()
	order, exists := t.orders[rec.OrderID]
	if !exists {
		created, err := domain.NewOrder(domain.Order{
			Platform:      t.platform,
			Account:       t.account,
			Strategy:      t.strategy,
			OrderID:       rec.OrderID,
			ClientOrderID: rec.ClientOrderID,
			Symbol:        t.symbol,
			Action:        mapAction(rec.Side),
			Type:          mapType(rec.Type),
			Price:         rec.Price,
			Quantity:      rec.OrigQty,
			Ctime:         rec.Time,
		})
		if err != nil {
			t.mu.Unlock()
			return fmt.Errorf("execution report %s: %w", rec.OrderID, err)
		}
		order = created
		t.orders[order.OrderID] = order
	}

	order.Remain = rec.OrigQty.Sub(rec.ExecutedQty)
	order.Status = status
	order.Utime = rec.UpdateTime
	copied := *order
	t.mu.Unlock()

	// Publish first, then evict: consumers must see the terminal update.
	t.publish(copied)

	if status.Terminal() {
		t.mu.Lock()
		delete(t.orders, rec.OrderID)
		t.mu.Unlock()
	}
	return nil
}

// Get returns a copy of the live entry for id.
func (t *Table) Get(id string) (domain.Order, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	order, ok := t.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *order, true
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.orders)
}

// Reset drops every live entry, e.g. before re-syncing after a reconnect.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orders = make(map[string]*domain.Order)
}

func (t *Table) publish(order domain.Order) {
	t.bus.Publish(domain.Event{
		Kind:    domain.EventOrderUpdate,
		Symbol:  order.Symbol,
		Payload: order,
	})
}
