package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"quantgo/internal/domain"
	"quantgo/internal/orders"
)

// State is the adapter connection lifecycle.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Syncing      State = "SYNCING"
	Live         State = "LIVE"
)

// RestAPI is the snapshot-side collaborator, satisfied by *Client.
type RestAPI interface {
	OpenOrders(ctx context.Context, symbol string) ([]OrderRecord, error)
}

// Publisher is the event fan-out collaborator, satisfied by *event.Bus.
type Publisher interface {
	Publish(evt domain.Event)
}

// Options configures one adapter instance. Symbol uses the slash form
// ("BTC/USDT"); the exchange's raw form is derived from it.
type Options struct {
	Platform string
	Account  string
	Strategy string
	Symbol   string
	Interval string

	Rest RestAPI
	Bus  Publisher

	// OnInit fires exactly once, after the post-connect reconciliation
	// completes or fails.
	OnInit func(success bool)
	// OnError fires for every recoverable classification failure and for
	// sync-time transport errors.
	OnError func(err error)

	Logger *slog.Logger
}

func (o Options) validate() error {
	if o.Account == "" {
		return fmt.Errorf("%w: account", domain.ErrFieldMissing)
	}
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol", domain.ErrFieldMissing)
	}
	if o.Interval == "" {
		return fmt.Errorf("%w: interval", domain.ErrFieldMissing)
	}
	if o.Rest == nil {
		return fmt.Errorf("%w: rest client", domain.ErrFieldMissing)
	}
	if o.Bus == nil {
		return fmt.Errorf("%w: event bus", domain.ErrFieldMissing)
	}
	return nil
}

// Adapter owns one authenticated connection's event flow for one symbol:
// it reconciles open-order state at connect time and classifies every raw
// frame afterwards, routing order reports into the live-order table and
// kline frames onto the bus.
type Adapter struct {
	opts      Options
	rawSymbol string
	table     *orders.Table
	bus       Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	initOnce sync.Once
}

// NewAdapter validates opts and builds the adapter with its own order table.
// A configuration error is signaled through OnError and OnInit(false) before
// being returned; the adapter never reaches SYNCING in that case.
func NewAdapter(opts Options) (*Adapter, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Platform == "" {
		opts.Platform = "binance"
	}
	if err := opts.validate(); err != nil {
		opts.Logger.Error("adapter configuration invalid", "err", err)
		signal(opts.OnError, err)
		if opts.OnInit != nil {
			opts.OnInit(false)
		}
		return nil, err
	}

	rawSymbol := strings.ReplaceAll(opts.Symbol, "/", "")
	return &Adapter{
		opts:      opts,
		rawSymbol: rawSymbol,
		table: orders.NewTable(opts.Platform, opts.Account, opts.Strategy,
			opts.Symbol, opts.Bus, opts.Logger),
		bus:    opts.Bus,
		logger: opts.Logger,
		state:  Disconnected,
	}, nil
}

// Table exposes the live-order table for read access.
func (a *Adapter) Table() *orders.Table { return a.table }

// RawSymbol is the exchange-native symbol name ("BTCUSDT").
func (a *Adapter) RawSymbol() string { return a.rawSymbol }

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Sync runs the post-connect reconciliation: pull every open order over
// REST, classify it, and seed the live-order table. Safe to re-enter after
// a reconnect; the init signal still fires only once.
func (a *Adapter) Sync(ctx context.Context) {
	a.setState(Syncing)

	recs, err := a.opts.Rest.OpenOrders(ctx, a.rawSymbol)
	if err != nil {
		a.logger.Error("open orders snapshot failed", "symbol", a.rawSymbol, "err", err)
		signal(a.opts.OnError, fmt.Errorf("get open orders: %w", err))
		a.signalInit(false)
		a.setState(Disconnected)
		return
	}

	// Entries from a previous connection may have been filled or canceled
	// while the stream was down; the fresh snapshot is the only truth.
	a.table.Reset()
	for _, rec := range recs {
		if err := a.table.ApplySnapshot(rec.record()); err != nil {
			signal(a.opts.OnError, err)
		}
	}

	a.setState(Live)
	a.logger.Info("order state synced", "symbol", a.rawSymbol, "open_orders", a.table.Len())
	a.signalInit(true)
}

// HandleFrame classifies one raw stream frame by its "e" discriminator.
// Unknown discriminators and other symbols' frames are dropped silently;
// malformed JSON is logged, signaled, and dropped.
func (a *Adapter) HandleFrame(raw []byte) {
	var head frameHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		a.logger.Warn("malformed frame", "err", err)
		signal(a.opts.OnError, fmt.Errorf("parse frame: %w", err))
		return
	}

	switch head.EventType {
	case "executionReport":
		a.handleExecutionReport(raw)
	case "kline":
		a.handleKline(raw)
	}
}

func (a *Adapter) handleExecutionReport(raw []byte) {
	var rep executionReport
	if err := json.Unmarshal(raw, &rep); err != nil {
		a.logger.Warn("malformed execution report", "err", err)
		signal(a.opts.OnError, fmt.Errorf("parse execution report: %w", err))
		return
	}
	if rep.Symbol != a.rawSymbol {
		return
	}
	if err := a.table.ApplyDelta(rep.record()); err != nil {
		signal(a.opts.OnError, err)
	}
}

func (a *Adapter) handleKline(raw []byte) {
	var frame klineFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		a.logger.Warn("malformed kline frame", "err", err)
		signal(a.opts.OnError, fmt.Errorf("parse kline frame: %w", err))
		return
	}
	if frame.Symbol != a.rawSymbol {
		return
	}
	kline, err := domain.KlineFromCompact(frame.Kline)
	if err != nil {
		a.logger.Warn("malformed kline payload", "err", err)
		signal(a.opts.OnError, fmt.Errorf("parse kline payload: %w", err))
		return
	}
	a.bus.Publish(domain.Event{
		Kind:    domain.EventKline,
		Symbol:  kline.Symbol,
		Payload: kline,
	})
}

// Connect marks the adapter as dialing. The stream's connect callback moves
// it on to SYNCING via Sync.
func (a *Adapter) Connect() {
	a.setState(Connecting)
}

// Disconnect marks the adapter offline after a transport loss. The next
// reconnect re-enters Sync.
func (a *Adapter) Disconnect() {
	a.setState(Disconnected)
}

func (a *Adapter) signalInit(success bool) {
	a.initOnce.Do(func() {
		if a.opts.OnInit != nil {
			a.opts.OnInit(success)
		}
	})
}

func signal(cb func(error), err error) {
	if cb != nil {
		cb(err)
	}
}
