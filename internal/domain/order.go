package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Order is one exchange order known to this process. OrderID is the
// exchange-assigned identity key; Remain is the unfilled part of Quantity.
// Ctime and Utime are exchange-supplied epoch milliseconds.
type Order struct {
	Platform      string          `json:"platform"`
	Account       string          `json:"account"`
	Strategy      string          `json:"strategy"`
	OrderID       string          `json:"order_id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Action        Action          `json:"action"`
	Type          OrderType       `json:"order_type"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Remain        decimal.Decimal `json:"remain"`
	Status        OrderStatus     `json:"status"`
	Ctime         int64           `json:"ctime"`
	Utime         int64           `json:"utime"`
}

// NewOrder validates the identity fields and returns a copy of o. Orders
// built from wire data must pass through here so a short record fails fast
// instead of entering the live table half-populated.
func NewOrder(o Order) (*Order, error) {
	if o.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id", ErrFieldMissing)
	}
	if o.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol", ErrFieldMissing)
	}
	if o.Action != Buy && o.Action != Sell {
		return nil, fmt.Errorf("%w: action %q", ErrFieldInvalid, o.Action)
	}
	if o.Type != Limit && o.Type != Market {
		return nil, fmt.Errorf("%w: order_type %q", ErrFieldInvalid, o.Type)
	}
	return &o, nil
}

type orderCompact struct {
	Platform      string          `json:"V"`
	Account       string          `json:"N"`
	Strategy      string          `json:"G"`
	OrderID       string          `json:"i"`
	ClientOrderID string          `json:"c"`
	Symbol        string          `json:"s"`
	Action        Action          `json:"S"`
	Type          OrderType       `json:"o"`
	Price         decimal.Decimal `json:"p"`
	Quantity      decimal.Decimal `json:"q"`
	Remain        decimal.Decimal `json:"r"`
	Status        OrderStatus     `json:"X"`
	Ctime         int64           `json:"O"`
	Utime         int64           `json:"T"`
}

// MarshalCompact encodes the order with the short field codes used on the
// internal transport. Codes follow the exchange execution-report layout where
// one exists.
func (o Order) MarshalCompact() ([]byte, error) {
	return json.Marshal(orderCompact(o))
}

// OrderFromCompact decodes a compact-encoded order.
func OrderFromCompact(data []byte) (Order, error) {
	var c orderCompact
	if err := json.Unmarshal(data, &c); err != nil {
		return Order{}, err
	}
	return Order(c), nil
}

func (o Order) String() string {
	b, _ := json.Marshal(o)
	return string(b)
}
