package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Ticker is the current best bid/ask for a symbol.
type Ticker struct {
	Symbol      string          `json:"symbol"`
	BidPrice    decimal.Decimal `json:"bid_price"`
	BidQuantity decimal.Decimal `json:"bid_quantity"`
	AskPrice    decimal.Decimal `json:"ask_price"`
	AskQuantity decimal.Decimal `json:"ask_quantity"`
	Timestamp   int64           `json:"timestamp"`
}

type tickerCompact struct {
	Symbol      string          `json:"s"`
	BidPrice    decimal.Decimal `json:"b"`
	BidQuantity decimal.Decimal `json:"B"`
	AskPrice    decimal.Decimal `json:"a"`
	AskQuantity decimal.Decimal `json:"A"`
	Timestamp   int64           `json:"t"`
}

func (t Ticker) MarshalCompact() ([]byte, error) {
	return json.Marshal(tickerCompact(t))
}

func TickerFromCompact(data []byte) (Ticker, error) {
	var c tickerCompact
	if err := json.Unmarshal(data, &c); err != nil {
		return Ticker{}, err
	}
	return Ticker(c), nil
}

func (t Ticker) String() string {
	b, _ := json.Marshal(t)
	return string(b)
}
