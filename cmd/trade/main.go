package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"quantgo/internal/config"
	"quantgo/internal/event"
	"quantgo/internal/exchange/binance"
	"quantgo/internal/notify"
	"quantgo/internal/watcher"
	"quantgo/pkg/logger"
)

func main() {
	var configPath, keyPath string
	flag.StringVar(&configPath, "config", "", "path to the config json file")
	flag.StringVar(&keyPath, "keys", "", "path to the key json file")
	flag.Parse()
	if configPath == "" || keyPath == "" {
		fmt.Fprintln(os.Stderr, "usage: trade -config config.json -keys keys.json")
		os.Exit(1)
	}

	cfg, creds, err := config.Load(configPath, keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	levels, err := cfg.WatchLevels()
	if err != nil {
		log.Error("bad watch levels", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := event.NewBus(log)
	rest := binance.NewClient(cfg.Host, creds.AccessKey, creds.SecretKey)

	adapter, err := binance.NewAdapter(binance.Options{
		Platform: cfg.Platform,
		Account:  cfg.Account,
		Strategy: cfg.Strategy,
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Rest:     rest,
		Bus:      bus,
		OnInit: func(success bool) {
			log.Info("trade module initialized", "success", success)
		},
		OnError: func(err error) {
			log.Error("trade module error", "err", err)
		},
		Logger: log,
	})
	if err != nil {
		os.Exit(1)
	}

	var stream *binance.Stream
	stream = binance.NewStream(cfg.Wss, func() {
		adapter.Sync(ctx)
		if err := stream.SubscribeKline(adapter.RawSymbol(), cfg.Interval); err != nil {
			log.Error("kline subscription failed", "err", err)
		}
	}, adapter.HandleFrame, func() {
		log.Warn("stream connection lost")
		adapter.Disconnect()
	}, log)

	notifier := notify.NewDingTalk(cfg.DingTalk.AccessToken)
	watcher.NewPriceWatcher(bus, adapter.RawSymbol(), levels, notifier, log)

	adapter.Connect()
	if err := stream.Connect(ctx); err != nil {
		log.Error("stream connect failed", "err", err)
		os.Exit(1)
	}
	log.Info("gateway running", "symbol", cfg.Symbol, "interval", cfg.Interval, "testnet", cfg.Testnet)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	stream.Close()
	adapter.Disconnect()
	bus.Close()
}
