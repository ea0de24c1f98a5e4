package domain

type EventKind string

const (
	EventOrderUpdate EventKind = "order_update"
	EventKline       EventKind = "kline"
	EventOrderbook   EventKind = "orderbook"
	EventTrade       EventKind = "trade"
	EventTicker      EventKind = "ticker"
)

// Event is the envelope published on the bus. Payload is one of the domain
// value objects (Order, Kline, Orderbook, Trade, Ticker) carried by value;
// events are immutable once published.
type Event struct {
	Kind    EventKind
	Symbol  string
	Payload any
}
