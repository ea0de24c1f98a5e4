package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const defaultStreamHost = "wss://stream.binance.com:9443"

// Stream owns one websocket connection to the exchange and delivers raw text
// frames, one at a time in arrival order, to the onFrame callback. A
// transport failure fires onDisconnect; a Close or caller cancel does not.
type Stream struct {
	endpoint     string
	onConnect    func()
	onFrame      func(raw []byte)
	onDisconnect func()
	logger       *slog.Logger

	mu     sync.Mutex // guards writes to conn
	conn   *websocket.Conn
	cancel context.CancelFunc
	subID  atomic.Int64
}

func NewStream(endpoint string, onConnect func(), onFrame func([]byte),
	onDisconnect func(), logger *slog.Logger) *Stream {

	if endpoint == "" {
		endpoint = defaultStreamHost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		endpoint:     strings.TrimSuffix(endpoint, "/") + "/ws",
		onConnect:    onConnect,
		onFrame:      onFrame,
		onDisconnect: onDisconnect,
		logger:       logger,
	}
}

// Connect dials the stream endpoint and starts the read and ping loops.
func (s *Stream) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", s.endpoint, err)
	}

	// loopCtx outlives the errgroup's derived context; it ends only on
	// Close or a caller cancel, which tells a transport error apart from
	// an intentional shutdown.
	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return s.readLoop(gctx, conn) })
	g.Go(func() error { return s.pingLoop(gctx, conn) })
	go func() {
		err := g.Wait()
		if loopCtx.Err() != nil {
			return
		}
		s.logger.Error("stream stopped", "err", err)
		if s.onDisconnect != nil {
			s.onDisconnect()
		}
	}()

	if s.onConnect != nil {
		s.onConnect()
	}
	return nil
}

// SubscribeKline requests the candlestick stream for symbol at interval.
func (s *Stream) SubscribeKline(symbol, interval string) error {
	req := map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{strings.ToLower(symbol) + "@kline_" + interval},
		"id":     s.subID.Add(1),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("subscribe kline: not connected")
	}
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe kline %s@%s: %w", symbol, interval, err)
	}
	return nil
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		s.onFrame(raw)
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.mu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.mu.Unlock()
			if err != nil {
				return fmt.Errorf("websocket ping: %w", err)
			}
		}
	}
}

// Close stops the loops and releases the connection. Frames already handed
// to onFrame are not recalled.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
