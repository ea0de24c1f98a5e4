// Package watcher consumes published kline events and raises alerts when
// the price crosses configured threshold levels.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"quantgo/internal/domain"
	"quantgo/internal/event"
)

// Notifier receives finished alert text; delivery is its own concern.
type Notifier interface {
	SendTextMessage(ctx context.Context, content string, phones []string, atAll bool) error
}

const (
	defaultWindowSize    = 60
	defaultCooldownTicks = 300
)

// PriceWatcher keeps a rolling window of kline open prices and compares the
// window average against each watch level: when the current open sits on the
// other side of a level than the average, the level was crossed. A fired
// level goes quiet for a cooldown counted in received klines.
type PriceWatcher struct {
	symbol     string
	watchList  []decimal.Decimal
	windowSize int
	window     []decimal.Decimal

	cooldownTicks int
	cooldown      map[string]int

	notifier Notifier
	logger   *slog.Logger
}

func NewPriceWatcher(bus *event.Bus, symbol string, levels []decimal.Decimal,
	notifier Notifier, logger *slog.Logger) *PriceWatcher {

	if logger == nil {
		logger = slog.Default()
	}
	w := &PriceWatcher{
		symbol:        symbol,
		watchList:     levels,
		windowSize:    defaultWindowSize,
		cooldownTicks: defaultCooldownTicks,
		cooldown:      make(map[string]int),
		notifier:      notifier,
		logger:        logger,
	}
	bus.Subscribe(domain.EventKline, symbol, w.OnKline)
	return w
}

// OnKline is the bus handler for one candlestick update.
func (w *PriceWatcher) OnKline(evt domain.Event) error {
	kline, ok := evt.Payload.(domain.Kline)
	if !ok {
		return fmt.Errorf("price watcher: unexpected payload %T", evt.Payload)
	}

	w.tickCooldown()

	if len(w.window) == w.windowSize {
		w.window = w.window[1:]
	}
	w.window = append(w.window, kline.Open)

	now := kline.Open
	average := w.average()

	for _, level := range w.watchList {
		if _, quiet := w.cooldown[level.String()]; quiet {
			continue
		}
		var direction string
		switch {
		case average.LessThan(level) && now.GreaterThan(level):
			direction = "up"
		case average.GreaterThan(level) && now.LessThan(level):
			direction = "down"
		default:
			continue
		}

		w.cooldown[level.String()] = w.cooldownTicks
		message := fmt.Sprintf("%s price broke %s through %s\n[%s]\n[price alert]",
			kline.Symbol, direction, level.String(),
			time.Now().Format("2006-01-02 15:04:05"))
		w.logger.Info("price threshold crossed",
			"symbol", kline.Symbol, "level", level.String(), "direction", direction)
		if err := w.notifier.SendTextMessage(context.Background(), message, nil, false); err != nil {
			w.logger.Error("alert delivery failed", "err", err)
		}
	}
	return nil
}

func (w *PriceWatcher) average() decimal.Decimal {
	if len(w.window) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, open := range w.window {
		sum = sum.Add(open)
	}
	return sum.Div(decimal.NewFromInt(int64(len(w.window))))
}

func (w *PriceWatcher) tickCooldown() {
	for level, remaining := range w.cooldown {
		if remaining <= 1 {
			delete(w.cooldown, level)
			continue
		}
		w.cooldown[level] = remaining - 1
	}
}
