package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Kline is one interval's candlestick summary for a symbol. Each inbound
// frame yields a fresh value; klines have no cross-message identity.
type Kline struct {
	Symbol              string          `json:"symbol"`
	Interval            string          `json:"interval"`
	StartTime           int64           `json:"start_time"`
	CloseTime           int64           `json:"close_time"`
	FirstTradeID        int64           `json:"first_trade_id"`
	LastTradeID         int64           `json:"last_trade_id"`
	Open                decimal.Decimal `json:"open"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
	Close               decimal.Decimal `json:"close"`
	BaseVolume          decimal.Decimal `json:"base_asset_volume"`
	QuoteVolume         decimal.Decimal `json:"quote_asset_volume"`
	TakerBuyBaseVolume  decimal.Decimal `json:"taker_buy_base_asset_volume"`
	TakerBuyQuoteVolume decimal.Decimal `json:"taker_buy_quote_asset_volume"`
	TradeCount          int64           `json:"trade_num"`
	IsClosed            bool            `json:"is_closed"`
}

type klineCompact struct {
	StartTime           int64           `json:"t"`
	CloseTime           int64           `json:"T"`
	Symbol              string          `json:"s"`
	Interval            string          `json:"i"`
	FirstTradeID        int64           `json:"f"`
	LastTradeID         int64           `json:"L"`
	Open                decimal.Decimal `json:"o"`
	Close               decimal.Decimal `json:"c"`
	High                decimal.Decimal `json:"h"`
	Low                 decimal.Decimal `json:"l"`
	BaseVolume          decimal.Decimal `json:"v"`
	TradeCount          int64           `json:"n"`
	IsClosed            bool            `json:"x"`
	QuoteVolume         decimal.Decimal `json:"q"`
	TakerBuyBaseVolume  decimal.Decimal `json:"V"`
	TakerBuyQuoteVolume decimal.Decimal `json:"Q"`
}

func (c klineCompact) kline() Kline {
	return Kline{
		Symbol:              c.Symbol,
		Interval:            c.Interval,
		StartTime:           c.StartTime,
		CloseTime:           c.CloseTime,
		FirstTradeID:        c.FirstTradeID,
		LastTradeID:         c.LastTradeID,
		Open:                c.Open,
		High:                c.High,
		Low:                 c.Low,
		Close:               c.Close,
		BaseVolume:          c.BaseVolume,
		QuoteVolume:         c.QuoteVolume,
		TakerBuyBaseVolume:  c.TakerBuyBaseVolume,
		TakerBuyQuoteVolume: c.TakerBuyQuoteVolume,
		TradeCount:          c.TradeCount,
		IsClosed:            c.IsClosed,
	}
}

// MarshalCompact encodes the kline with the exchange stream's short codes.
func (k Kline) MarshalCompact() ([]byte, error) {
	c := klineCompact{
		StartTime:           k.StartTime,
		CloseTime:           k.CloseTime,
		Symbol:              k.Symbol,
		Interval:            k.Interval,
		FirstTradeID:        k.FirstTradeID,
		LastTradeID:         k.LastTradeID,
		Open:                k.Open,
		Close:               k.Close,
		High:                k.High,
		Low:                 k.Low,
		BaseVolume:          k.BaseVolume,
		TradeCount:          k.TradeCount,
		IsClosed:            k.IsClosed,
		QuoteVolume:         k.QuoteVolume,
		TakerBuyBaseVolume:  k.TakerBuyBaseVolume,
		TakerBuyQuoteVolume: k.TakerBuyQuoteVolume,
	}
	return json.Marshal(c)
}

// KlineFromCompact decodes a compact-encoded kline, e.g. the "k" payload of
// an exchange kline frame.
func KlineFromCompact(data []byte) (Kline, error) {
	var c klineCompact
	if err := json.Unmarshal(data, &c); err != nil {
		return Kline{}, err
	}
	return c.kline(), nil
}

func (k Kline) String() string {
	b, _ := json.Marshal(k)
	return string(b)
}
