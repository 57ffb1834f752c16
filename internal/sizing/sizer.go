// Package sizing converts a selection set into fractional share quantities
// under an equal-weight capital constraint.
package sizing

import (
	"math"

	"fractional-trader/config"
	"fractional-trader/internal/model"
)

// Plan is the sized position sequence plus its aggregate utilization,
// reported identically on the dry-run and live paths.
type Plan struct {
	Positions   []model.SizedPosition `json:"positions"`
	Utilization float64               `json:"utilization"` // sum(notional) / capital
}

// Size allocates capital equally across all selected positions, longs and
// shorts combined, at fractional share precision. Quantities are rounded
// down to cfg.QtyPrecision decimals and the final allocation is clamped to
// the remaining budget, so cumulative notional never exceeds cfg.Capital —
// rounding is absorbed by the last-allocated position, never by overspending.
//
// An empty selection produces an empty plan, not an error.
func Size(sel model.SelectionSet, cfg config.Config) Plan {
	total := sel.Total()
	if total == 0 {
		return Plan{}
	}

	perPosition := cfg.Capital / float64(total)
	positions := make([]model.SizedPosition, 0, total)
	spent := 0.0

	appendPos := func(c model.Candidate, last bool) {
		budget := perPosition
		if last {
			if remaining := cfg.Capital - spent; remaining < budget {
				budget = remaining
			}
		}
		qty := roundDown(budget/c.LastClose, cfg.QtyPrecision)
		if qty <= 0 {
			return
		}
		notional := qty * c.LastClose
		spent += notional
		positions = append(positions, model.SizedPosition{
			Symbol:     c.Symbol,
			Side:       c.Side,
			Qty:        qty,
			Notional:   notional,
			EntryPrice: c.LastClose,
		})
	}

	for i, c := range sel.Longs {
		appendPos(c, len(sel.Shorts) == 0 && i == len(sel.Longs)-1)
	}
	for i, c := range sel.Shorts {
		appendPos(c, i == len(sel.Shorts)-1)
	}

	return Plan{
		Positions:   positions,
		Utilization: spent / cfg.Capital,
	}
}

// roundDown truncates q to the given number of decimal places.
func roundDown(q float64, precision int) float64 {
	scale := math.Pow10(precision)
	return math.Floor(q*scale) / scale
}
