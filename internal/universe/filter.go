// Package universe screens the raw asset list down to eligible candidates.
//
// The filter is a pure function over the supplied snapshot: no external calls,
// no mutation of the input.
package universe

import (
	"fractional-trader/config"
	"fractional-trader/internal/model"
)

// Filter returns the symbols eligible for the momentum pipeline, in input
// order. An asset qualifies when it is an active, fractionable US equity
// priced under MaxPrice with average daily volume of at least MinAvgVolume.
//
// Output is truncated to cfg.UniverseCap. The cap bounds downstream
// per-symbol history fetches against provider rate limits; it is an explicit
// scalability control, not an incidental truncation.
func Filter(assets []model.Asset, cfg config.Config) []string {
	symbols := make([]string, 0, cfg.UniverseCap)
	for _, a := range assets {
		if !eligible(a, cfg) {
			continue
		}
		symbols = append(symbols, a.Symbol)
		if len(symbols) >= cfg.UniverseCap {
			break
		}
	}
	return symbols
}

func eligible(a model.Asset, cfg config.Config) bool {
	return a.Active &&
		a.Class == model.AssetClassUSEquity &&
		a.Fractionable &&
		a.LastPrice < cfg.MaxPrice &&
		a.AvgVolume >= cfg.MinAvgVolume
}
