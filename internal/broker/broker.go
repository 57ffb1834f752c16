// Package broker defines the capability interfaces the trading pipeline
// depends on. The engine never talks to a provider directly; it receives a
// DataProvider and an OrderExecutor so tests can drive the full pipeline
// with deterministic fixtures.
package broker

import (
	"context"

	"fractional-trader/internal/model"
)

// AccountStatus is the subset of account state the engine consults before
// placing orders.
type AccountStatus struct {
	BuyingPower float64 `json:"buying_power"`
	Equity      float64 `json:"equity"`
	Status      string  `json:"status"` // e.g. ACTIVE
}

// OrderResult reports the outcome of a fractional order placement.
type OrderResult struct {
	OrderID     string  `json:"order_id"`
	StopOrderID string  `json:"stop_order_id,omitempty"` // trailing-stop exit, if attached
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Qty         float64 `json:"qty"`
	Status      string  `json:"status"`
}

// DataProvider supplies the market snapshot and per-symbol history.
// GetDailyBars returns bars ascending by date and may return fewer than
// requested.
type DataProvider interface {
	ListEligibleAssets(ctx context.Context) ([]model.Asset, error)
	GetDailyBars(ctx context.Context, symbol string, lookbackDays int) (model.PriceSeries, error)
	GetAccountStatus(ctx context.Context) (AccountStatus, error)
}

// OrderExecutor places fractional orders. A trailPct > 0 attaches a
// broker-native trailing stop; the engine never simulates price-following.
// Failures surface as *model.BrokerError or *model.RateLimitError.
type OrderExecutor interface {
	PlaceFractionalOrder(ctx context.Context, symbol string, side model.Side, qty float64, trailPct float64) (OrderResult, error)
}
