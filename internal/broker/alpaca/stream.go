package alpaca

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"fractional-trader/internal/backoff"
)

const defaultStreamURL = "wss://paper-api.alpaca.markets/stream"

// TradeUpdate is one order lifecycle event from the trade-updates stream.
// Trailing-stop executions arrive here as fill events — the engine does not
// follow prices itself.
type TradeUpdate struct {
	Event   string  `json:"event"` // fill, partial_fill, canceled, rejected...
	OrderID string  `json:"order_id"`
	Symbol  string  `json:"symbol"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Qty     float64 `json:"qty"`
}

// Stream listens to the broker's trade-updates websocket and delivers events
// to a callback. Reconnects with exponential backoff until the context ends.
type Stream struct {
	cfg Config
	url string
	log *slog.Logger

	// OnUpdate receives every trade update. Runs on the stream's read
	// goroutine; handlers must be safe to call concurrently with the
	// pipeline (the risk manager's close path is).
	OnUpdate func(TradeUpdate)
}

// NewStream creates a trade-updates stream using the client's credentials.
func NewStream(cfg Config, log *slog.Logger) *Stream {
	if log == nil {
		log = slog.Default()
	}
	url := defaultStreamURL
	if cfg.TradeURL != "" && cfg.TradeURL != defaultTradeURL {
		url = strings.Replace(cfg.TradeURL, "http", "ws", 1) + "/stream"
	}
	return &Stream{cfg: cfg, url: url, log: log}
}

// Run connects, authenticates, subscribes to trade updates, and dispatches
// events until ctx is done. Connection loss triggers reconnection with
// backoff; the method only returns on context cancellation.
func (s *Stream) Run(ctx context.Context) {
	bo := backoff.NewDefault()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.runOnce(ctx); err != nil && ctx.Err() == nil {
			wait := bo.Next()
			s.log.Warn("trade stream disconnected",
				slog.String("error", err.Error()),
				slog.Duration("reconnect_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
	}
}

type streamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func (s *Stream) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadJSON unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	auth := map[string]any{
		"action": "auth",
		"key":    s.cfg.APIKey,
		"secret": s.cfg.APISecret,
	}
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}
	listen := map[string]any{
		"action": "listen",
		"data":   map[string]any{"streams": []string{"trade_updates"}},
	}
	if err := conn.WriteJSON(listen); err != nil {
		return err
	}

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Stream != "trade_updates" || s.OnUpdate == nil {
			continue
		}

		var update struct {
			Event string `json:"event"`
			Order struct {
				ID             string `json:"id"`
				Symbol         string `json:"symbol"`
				Side           string `json:"side"`
				FilledQty      string `json:"filled_qty"`
				FilledAvgPrice string `json:"filled_avg_price"`
			} `json:"order"`
		}
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			s.log.Warn("malformed trade update", slog.String("error", err.Error()))
			continue
		}

		s.OnUpdate(TradeUpdate{
			Event:   update.Event,
			OrderID: update.Order.ID,
			Symbol:  update.Order.Symbol,
			Side:    update.Order.Side,
			Price:   parseFloat(update.Order.FilledAvgPrice),
			Qty:     parseFloat(update.Order.FilledQty),
		})
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
