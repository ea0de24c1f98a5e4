package domain

type Action string
type OrderType string
type OrderStatus string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"

	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"

	Submitted     OrderStatus = "SUBMITTED"
	PartialFilled OrderStatus = "PARTIAL_FILLED"
	Filled        OrderStatus = "FILLED"
	Canceled      OrderStatus = "CANCELED"
	Failed        OrderStatus = "FAILED"
)

// Terminal reports whether no further updates are expected for an order
// with this status.
func (s OrderStatus) Terminal() bool {
	return s == Filled || s == Canceled || s == Failed
}
