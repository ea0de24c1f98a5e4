package binance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"quantgo/internal/domain"
)

type fakeRest struct {
	records []OrderRecord
	err     error
	calls   int
}

func (f *fakeRest) OpenOrders(ctx context.Context, symbol string) ([]OrderRecord, error) {
	f.calls++
	return f.records, f.err
}

type eventSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *eventSink) Publish(evt domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *eventSink) byKind(kind domain.EventKind) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, evt := range s.events {
		if evt.Kind == kind {
			out = append(out, evt)
		}
	}
	return out
}

type initRecorder struct {
	mu      sync.Mutex
	results []bool
	errs    []error
}

func (r *initRecorder) onInit(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, success)
}

func (r *initRecorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newTestAdapter(t *testing.T, rest RestAPI) (*Adapter, *eventSink, *initRecorder) {
	t.Helper()
	sink := &eventSink{}
	rec := &initRecorder{}
	adapter, err := NewAdapter(Options{
		Account:  "main",
		Strategy: "grid",
		Symbol:   "BTC/USDT",
		Interval: "1m",
		Rest:     rest,
		Bus:      sink,
		OnInit:   rec.onInit,
		OnError:  rec.onError,
	})
	require.NoError(t, err)
	return adapter, sink, rec
}

func TestNewAdapterRejectsMissingFields(t *testing.T) {
	rec := &initRecorder{}
	_, err := NewAdapter(Options{
		Account:  "main",
		Interval: "1m",
		Rest:     &fakeRest{},
		Bus:      &eventSink{},
		OnInit:   rec.onInit,
		OnError:  rec.onError,
	})
	require.ErrorIs(t, err, domain.ErrFieldMissing)
	require.Equal(t, []bool{false}, rec.results)
	require.Len(t, rec.errs, 1)
}

func TestSyncSeedsTableAndSignalsInitOnce(t *testing.T) {
	rest := &fakeRest{records: []OrderRecord{
		{
			Symbol: "BTCUSDT", OrderID: 42, ClientOrderID: "c-42",
			Price: dec("30000"), OrigQty: dec("10"), ExecutedQty: dec("0"),
			Status: "NEW", Type: "LIMIT", Side: "BUY",
			Time: 1690000000000, UpdateTime: 1690000001000,
		},
		{
			Symbol: "BTCUSDT", OrderID: 43, ClientOrderID: "c-43",
			Price: dec("29000"), OrigQty: dec("4"), ExecutedQty: dec("1"),
			Status: "PARTIALLY_FILLED", Type: "LIMIT", Side: "SELL",
			Time: 1690000000000, UpdateTime: 1690000001000,
		},
	}}
	adapter, sink, rec := newTestAdapter(t, rest)

	require.Equal(t, Disconnected, adapter.State())
	adapter.Connect()
	require.Equal(t, Connecting, adapter.State())
	adapter.Sync(context.Background())
	require.Equal(t, Live, adapter.State())

	require.Equal(t, 2, adapter.Table().Len())
	order, ok := adapter.Table().Get("43")
	require.True(t, ok)
	require.Equal(t, domain.PartialFilled, order.Status)
	require.True(t, order.Remain.Equal(dec("3")))

	require.Len(t, sink.byKind(domain.EventOrderUpdate), 2)
	require.Equal(t, []bool{true}, rec.results)

	// A re-sync after reconnect must not signal init again.
	adapter.Disconnect()
	adapter.Sync(context.Background())
	require.Equal(t, 2, rest.calls)
	require.Equal(t, []bool{true}, rec.results)
}

func TestResyncDropsStaleEntries(t *testing.T) {
	rest := &fakeRest{records: []OrderRecord{
		{
			Symbol: "BTCUSDT", OrderID: 42, ClientOrderID: "c-42",
			Price: dec("30000"), OrigQty: dec("10"), ExecutedQty: dec("0"),
			Status: "NEW", Type: "LIMIT", Side: "BUY",
			Time: 1690000000000, UpdateTime: 1690000001000,
		},
	}}
	adapter, _, _ := newTestAdapter(t, rest)
	adapter.Sync(context.Background())

	// An order created over the stream but absent from the next snapshot
	// (e.g. filled while the connection was down) must not survive re-sync.
	adapter.HandleFrame([]byte(`{"e": "executionReport", "s": "BTCUSDT", "i": 99, "X": "NEW", "S": "BUY", "o": "LIMIT", "q": "1", "z": "0"}`))
	require.Equal(t, 2, adapter.Table().Len())

	adapter.Disconnect()
	adapter.Sync(context.Background())

	require.Equal(t, 1, adapter.Table().Len())
	_, ok := adapter.Table().Get("99")
	require.False(t, ok)
	_, ok = adapter.Table().Get("42")
	require.True(t, ok)
}

func TestSyncRestFailure(t *testing.T) {
	rest := &fakeRest{err: errors.New("http 500")}
	adapter, sink, rec := newTestAdapter(t, rest)

	adapter.Sync(context.Background())

	require.Equal(t, Disconnected, adapter.State())
	require.Zero(t, adapter.Table().Len())
	require.Empty(t, sink.byKind(domain.EventOrderUpdate))
	require.Equal(t, []bool{false}, rec.results)
	require.Len(t, rec.errs, 1)
}

func TestSyncSkipsUnknownStatus(t *testing.T) {
	rest := &fakeRest{records: []OrderRecord{
		{Symbol: "BTCUSDT", OrderID: 1, Status: "NEW", Type: "LIMIT", Side: "BUY", OrigQty: dec("1")},
		{Symbol: "BTCUSDT", OrderID: 2, Status: "PENDING_WEIRD", Type: "LIMIT", Side: "BUY", OrigQty: dec("1")},
	}}
	adapter, sink, rec := newTestAdapter(t, rest)

	adapter.Sync(context.Background())

	require.Equal(t, Live, adapter.State())
	require.Equal(t, 1, adapter.Table().Len())
	require.Len(t, sink.byKind(domain.EventOrderUpdate), 1)
	require.Equal(t, []bool{true}, rec.results)
	require.Len(t, rec.errs, 1)
}

func TestHandleFrameExecutionReport(t *testing.T) {
	adapter, sink, rec := newTestAdapter(t, &fakeRest{})
	adapter.Sync(context.Background())

	adapter.HandleFrame([]byte(`{
		"e": "executionReport", "E": 1690000002000, "s": "BTCUSDT",
		"c": "c-7", "S": "BUY", "o": "LIMIT",
		"q": "10", "p": "30000", "X": "PARTIALLY_FILLED",
		"i": 7, "z": "4", "O": 1690000000000, "T": 1690000002000
	}`))

	order, ok := adapter.Table().Get("7")
	require.True(t, ok)
	require.Equal(t, domain.PartialFilled, order.Status)
	require.True(t, order.Remain.Equal(dec("6")))
	require.Equal(t, int64(1690000002000), order.Utime)
	require.Len(t, sink.byKind(domain.EventOrderUpdate), 1)
	require.Empty(t, rec.errs)
}

func TestHandleFrameKline(t *testing.T) {
	adapter, sink, _ := newTestAdapter(t, &fakeRest{})
	adapter.Sync(context.Background())

	adapter.HandleFrame([]byte(`{
		"e": "kline", "E": 1690000002000, "s": "BTCUSDT",
		"k": {
			"t": 1690000000000, "T": 1690000059999, "s": "BTCUSDT", "i": "1m",
			"f": 100, "L": 142, "o": "29342.51", "c": "29348.88",
			"h": "29350.00", "l": "29330.10", "v": "12.345", "n": 43,
			"x": false, "q": "362000.12", "V": "7.1", "Q": "208000.9"
		}
	}`))

	klines := sink.byKind(domain.EventKline)
	require.Len(t, klines, 1)
	kline := klines[0].Payload.(domain.Kline)
	require.Equal(t, "BTCUSDT", kline.Symbol)
	require.Equal(t, "1m", kline.Interval)
	require.True(t, kline.Open.Equal(dec("29342.51")))
	require.False(t, kline.IsClosed)
	require.Equal(t, int64(43), kline.TradeCount)
}

func TestHandleFrameFiltersOtherSymbols(t *testing.T) {
	adapter, sink, rec := newTestAdapter(t, &fakeRest{})
	adapter.Sync(context.Background())

	adapter.HandleFrame([]byte(`{"e": "executionReport", "s": "ETHUSDT", "i": 9, "X": "NEW", "S": "BUY", "o": "LIMIT", "q": "1", "z": "0"}`))
	adapter.HandleFrame([]byte(`{"e": "kline", "s": "ETHUSDT", "k": {"s": "ETHUSDT", "i": "1m"}}`))

	require.Zero(t, adapter.Table().Len())
	require.Empty(t, sink.events)
	require.Empty(t, rec.errs)
}

func TestHandleFrameUnknownDiscriminatorIgnored(t *testing.T) {
	adapter, sink, rec := newTestAdapter(t, &fakeRest{})
	adapter.Sync(context.Background())

	adapter.HandleFrame([]byte(`{"e": "depthUpdate", "s": "BTCUSDT", "b": [], "a": []}`))
	adapter.HandleFrame([]byte(`{"result": null, "id": 1}`))

	require.Empty(t, sink.events)
	require.Empty(t, rec.errs)
}

func TestHandleFrameMalformedJSON(t *testing.T) {
	adapter, sink, rec := newTestAdapter(t, &fakeRest{})
	adapter.Sync(context.Background())

	adapter.HandleFrame([]byte(`{not json`))

	require.Empty(t, sink.events)
	require.Len(t, rec.errs, 1)
}

func TestHandleFrameUnknownStatusSignalsError(t *testing.T) {
	adapter, sink, rec := newTestAdapter(t, &fakeRest{})
	adapter.Sync(context.Background())

	adapter.HandleFrame([]byte(`{"e": "executionReport", "s": "BTCUSDT", "i": 9, "X": "UNKNOWN_FOO", "S": "BUY", "o": "LIMIT", "q": "1", "z": "0"}`))

	require.Zero(t, adapter.Table().Len())
	require.Empty(t, sink.byKind(domain.EventOrderUpdate))
	require.Len(t, rec.errs, 1)
}
