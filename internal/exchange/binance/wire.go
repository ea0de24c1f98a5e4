package binance

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"quantgo/internal/orders"
)

// frameHeader is the minimal decode of a stream frame, enough to dispatch
// on the "e" discriminator.
type frameHeader struct {
	EventType string `json:"e"`
	// EventTime must be declared: without an exact match for "E",
	// encoding/json would case-insensitively bind it to the "e" tag and
	// fail to decode the numeric value into EventType.
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
}

// executionReport is the user-data stream's order update frame.
type executionReport struct {
	EventType     string          `json:"e"`
	EventTime     int64           `json:"E"`
	Symbol        string          `json:"s"`
	ClientOrderID string          `json:"c"`
	Side          string          `json:"S"`
	Type          string          `json:"o"`
	Quantity      decimal.Decimal `json:"q"`
	Price         decimal.Decimal `json:"p"`
	Status        string          `json:"X"`
	OrderID       int64           `json:"i"`
	FilledQty     decimal.Decimal `json:"z"`
	CreateTime    int64           `json:"O"`
	UpdateTime    int64           `json:"T"`
}

func (r executionReport) record() orders.Record {
	return orders.Record{
		OrderID:       strconv.FormatInt(r.OrderID, 10),
		ClientOrderID: r.ClientOrderID,
		Side:          r.Side,
		Type:          r.Type,
		Price:         r.Price,
		OrigQty:       r.Quantity,
		ExecutedQty:   r.FilledQty,
		Status:        r.Status,
		Time:          r.CreateTime,
		UpdateTime:    r.UpdateTime,
	}
}

// klineFrame wraps the candlestick payload; the nested "k" object uses the
// compact field codes decoded by domain.KlineFromCompact.
type klineFrame struct {
	EventType string          `json:"e"`
	EventTime int64           `json:"E"`
	Symbol    string          `json:"s"`
	Kline     json.RawMessage `json:"k"`
}

// OrderRecord is one entry of the REST open-orders response.
type OrderRecord struct {
	Symbol        string          `json:"symbol"`
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Price         decimal.Decimal `json:"price"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	Status        string          `json:"status"`
	Type          string          `json:"type"`
	Side          string          `json:"side"`
	Time          int64           `json:"time"`
	UpdateTime    int64           `json:"updateTime"`
}

func (r OrderRecord) record() orders.Record {
	return orders.Record{
		OrderID:       strconv.FormatInt(r.OrderID, 10),
		ClientOrderID: r.ClientOrderID,
		Side:          r.Side,
		Type:          r.Type,
		Price:         r.Price,
		OrigQty:       r.OrigQty,
		ExecutedQty:   r.ExecutedQty,
		Status:        r.Status,
		Time:          r.Time,
		UpdateTime:    r.UpdateTime,
	}
}
