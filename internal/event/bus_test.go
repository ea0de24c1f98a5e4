package event

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"quantgo/internal/domain"
)

func kline(symbol, open string) domain.Kline {
	price, _ := decimal.NewFromString(open)
	return domain.Kline{Symbol: symbol, Interval: "1m", Open: price}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTwoSubscribersGetIndependentCopies(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var mu sync.Mutex
	var first, second []domain.Kline

	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		k := evt.Payload.(domain.Kline)
		mu.Lock()
		first = append(first, k)
		mu.Unlock()
		// Mutating the received value must never show up anywhere else.
		k.Open = decimal.NewFromInt(-1)
		return nil
	})
	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		mu.Lock()
		second = append(second, evt.Payload.(domain.Kline))
		mu.Unlock()
		return nil
	})

	published := kline("BTCUSDT", "29342.5")
	bus.Publish(domain.Event{Kind: domain.EventKline, Symbol: "BTCUSDT", Payload: published})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(first) == 1 && len(second) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, published, first[0])
	require.Equal(t, published, second[0])
}

func TestDeliveryIsFIFOPerSubscriber(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var mu sync.Mutex
	var got []string

	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		mu.Lock()
		got = append(got, evt.Payload.(domain.Kline).Interval)
		mu.Unlock()
		return nil
	})

	const n = 200
	for i := 0; i < n; i++ {
		bus.Publish(domain.Event{
			Kind:    domain.EventKline,
			Symbol:  "BTCUSDT",
			Payload: domain.Kline{Symbol: "BTCUSDT", Interval: fmt.Sprintf("%d", i)},
		})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == n
	})

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < n; i++ {
		require.Equal(t, fmt.Sprintf("%d", i), got[i])
	}
}

func TestHandlerFailureIsIsolated(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var mu sync.Mutex
	var delivered int

	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		panic("worse boom")
	})
	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 3; i++ {
		bus.Publish(domain.Event{Kind: domain.EventKline, Symbol: "BTCUSDT", Payload: kline("BTCUSDT", "1")})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 3
	})
}

func TestSymbolAndKindFiltering(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var mu sync.Mutex
	var btc, all, trades int

	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		mu.Lock()
		btc++
		mu.Unlock()
		return nil
	})
	bus.Subscribe(domain.EventKline, AllSymbols, func(evt domain.Event) error {
		mu.Lock()
		all++
		mu.Unlock()
		return nil
	})
	bus.Subscribe(domain.EventTrade, AllSymbols, func(evt domain.Event) error {
		mu.Lock()
		trades++
		mu.Unlock()
		return nil
	})

	bus.Publish(domain.Event{Kind: domain.EventKline, Symbol: "BTCUSDT", Payload: kline("BTCUSDT", "1")})
	bus.Publish(domain.Event{Kind: domain.EventKline, Symbol: "ETHUSDT", Payload: kline("ETHUSDT", "2")})
	bus.Publish(domain.Event{Kind: domain.EventTrade, Symbol: "BTCUSDT", Payload: domain.Trade{Symbol: "BTCUSDT"}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return btc == 1 && all == 2 && trades == 1
	})
}

func TestFullQueueDropsInsteadOfBlockingPublisher(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()
	bus.buffer = 1

	started := make(chan struct{}, 1)
	gate := make(chan struct{})
	var mu sync.Mutex
	var got []string

	bus.Subscribe(domain.EventKline, "BTCUSDT", func(evt domain.Event) error {
		started <- struct{}{}
		<-gate
		mu.Lock()
		got = append(got, evt.Payload.(domain.Kline).Interval)
		mu.Unlock()
		return nil
	})

	publish := func(tag string) {
		bus.Publish(domain.Event{
			Kind:    domain.EventKline,
			Symbol:  "BTCUSDT",
			Payload: domain.Kline{Symbol: "BTCUSDT", Interval: tag},
		})
	}

	publish("1")
	// The handler now holds event 1 and the single-slot queue is empty.
	<-started
	publish("2")
	// Queue full with event 2: this publish must return, dropping event 3.
	publish("3")

	close(gate)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"1", "2"}, got)
}

func TestCloseDrainsQueuedEvents(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	var delivered int

	bus.Subscribe(domain.EventKline, AllSymbols, func(evt domain.Event) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	const n = 20
	for i := 0; i < n; i++ {
		bus.Publish(domain.Event{Kind: domain.EventKline, Symbol: "BTCUSDT", Payload: kline("BTCUSDT", "1")})
	}
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, n, delivered)
}
