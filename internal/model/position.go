package model

import "time"

// SizedPosition is one entry of a capital-constrained position plan.
type SizedPosition struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Qty        float64 `json:"qty"` // fractional shares
	Notional   float64 `json:"notional"`
	EntryPrice float64 `json:"entry_price"`
}

// PositionState is the lifecycle state of an open position.
type PositionState string

const (
	StateOpen   PositionState = "OPEN"
	StateClosed PositionState = "CLOSED"
)

// OpenPosition is a filled position tracked by the risk manager.
// The trailing stop itself executes broker-side; the engine only carries the
// percentage and enforces the hard time exit.
type OpenPosition struct {
	Symbol     string        `json:"symbol"`
	Side       Side          `json:"side"`
	Qty        float64       `json:"qty"`
	EntryPrice float64       `json:"entry_price"`
	EntryAt    time.Time     `json:"entry_at"`
	TrailPct   float64       `json:"trail_pct"`
	Deadline   time.Time     `json:"deadline"` // EntryAt + time-exit duration
	State      PositionState `json:"state"`
}
