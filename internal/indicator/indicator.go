// Package indicator computes the momentum and mean-reversion indicators that
// drive position selection.
//
// Rolling indicators (SMA, ZScore) follow a streaming Update/Value/Ready
// shape so a price series is consumed in a single pass. Compute turns a
// full daily-bar history into one fixed-shape IndicatorRecord per symbol.
package indicator

// Rolling is the interface shared by windowed indicators.
type Rolling interface {
	// Update feeds the next close price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when the window is fully populated.
	Ready() bool
}
