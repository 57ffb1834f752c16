package sizing

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"fractional-trader/config"
	"fractional-trader/internal/model"
)

func TestSize_BudgetInvariant_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("cumulative notional never exceeds capital", prop.ForAll(
		func(prices []float64, capital float64, precision int) bool {
			if len(prices) == 0 {
				return true
			}

			cfg := config.Default()
			cfg.Capital = capital
			cfg.QtyPrecision = precision

			sel := model.SelectionSet{}
			for i, price := range prices {
				c := model.Candidate{
					IndicatorRecord: model.IndicatorRecord{
						Symbol:    fmt.Sprintf("SYM%03d", i),
						LastClose: price,
					},
					Side: model.SideLong,
				}
				if i%3 == 0 {
					c.Side = model.SideShort
					sel.Shorts = append(sel.Shorts, c)
				} else {
					sel.Longs = append(sel.Longs, c)
				}
			}

			plan := Size(sel, cfg)

			total := 0.0
			for _, p := range plan.Positions {
				if p.Qty <= 0 {
					return false
				}
				total += p.Notional
			}
			if total > cfg.Capital+1e-6 {
				return false
			}
			return plan.Utilization >= 0 && plan.Utilization <= 1+1e-9
		},
		gen.SliceOf(gen.Float64Range(0.5, 500)),
		gen.Float64Range(100, 100000),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
