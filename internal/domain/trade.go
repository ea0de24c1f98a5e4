package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Trade is one executed trade on the exchange.
type Trade struct {
	Symbol    string          `json:"symbol"`
	Action    Action          `json:"action"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp int64           `json:"timestamp"`
}

type tradeCompact struct {
	Symbol    string          `json:"s"`
	Action    Action          `json:"a"`
	Price     decimal.Decimal `json:"P"`
	Quantity  decimal.Decimal `json:"q"`
	Timestamp int64           `json:"t"`
}

func (t Trade) MarshalCompact() ([]byte, error) {
	return json.Marshal(tradeCompact(t))
}

func TradeFromCompact(data []byte) (Trade, error) {
	var c tradeCompact
	if err := json.Unmarshal(data, &c); err != nil {
		return Trade{}, err
	}
	return Trade(c), nil
}

func (t Trade) String() string {
	b, _ := json.Marshal(t)
	return string(b)
}
