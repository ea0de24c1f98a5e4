package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel is one rung of the book ladder. On the wire it is the
// two-element array ["price", "quantity"] the exchange uses.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

func (l PriceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]decimal.Decimal{l.Price, l.Quantity})
}

func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var pair []decimal.Decimal
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) < 2 {
		return fmt.Errorf("price level: want [price, quantity], got %d elements", len(pair))
	}
	l.Price, l.Quantity = pair[0], pair[1]
	return nil
}

// Orderbook is a bids/asks ladder snapshot for a symbol. Copying the value
// shares the Asks and Bids backing arrays, so a published ladder must be
// treated as read-only by every consumer.
type Orderbook struct {
	Symbol    string       `json:"symbol"`
	Asks      []PriceLevel `json:"asks"`
	Bids      []PriceLevel `json:"bids"`
	Timestamp int64        `json:"timestamp"`
}

type orderbookCompact struct {
	Symbol    string       `json:"s"`
	Asks      []PriceLevel `json:"a"`
	Bids      []PriceLevel `json:"b"`
	Timestamp int64        `json:"t"`
}

func (o Orderbook) MarshalCompact() ([]byte, error) {
	return json.Marshal(orderbookCompact(o))
}

func OrderbookFromCompact(data []byte) (Orderbook, error) {
	var c orderbookCompact
	if err := json.Unmarshal(data, &c); err != nil {
		return Orderbook{}, err
	}
	return Orderbook(c), nil
}

func (o Orderbook) String() string {
	b, _ := json.Marshal(o)
	return string(b)
}
