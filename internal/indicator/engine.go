package indicator

import (
	"fmt"

	"fractional-trader/internal/model"
)

// Window sizes in trading days.
const (
	// MinBars is the minimum history required for a full indicator record.
	// Shorter series mark the symbol ineligible rather than erroring.
	MinBars = 200

	ma50Period   = 50
	ma200Period  = 200
	zscorePeriod = 20

	// Momentum windows exclude the most recent month of bars to avoid
	// short-term reversal noise.
	momentumSkip = 21
	span12M      = 252
	span6M       = 126
)

// Compute converts one symbol's price history into an indicator record.
// A series with fewer than MinBars bars, or any malformed bar, yields a
// DataError marking the symbol ineligible — never a partial record. One
// symbol's failure never affects another's.
func Compute(symbol string, series model.PriceSeries) (model.IndicatorRecord, error) {
	if len(series) < MinBars {
		return model.IndicatorRecord{}, &model.DataError{
			Symbol: symbol,
			Reason: fmt.Sprintf("insufficient history: %d bars, need %d", len(series), MinBars),
			Bar:    -1,
		}
	}
	if err := series.Validate(); err != nil {
		if de, ok := err.(*model.DataError); ok {
			de.Symbol = symbol
			return model.IndicatorRecord{}, de
		}
		return model.IndicatorRecord{}, err
	}

	closes := series.Closes()

	ma50 := NewSMA(ma50Period)
	ma200 := NewSMA(ma200Period)
	zscore := NewZScore(zscorePeriod)
	for _, c := range closes {
		ma50.Update(c)
		ma200.Update(c)
		zscore.Update(c)
	}

	return model.IndicatorRecord{
		Symbol:      symbol,
		Momentum12M: momentum(closes, span12M, momentumSkip),
		Momentum6M:  momentum(closes, span6M, momentumSkip),
		MA50:        ma50.Value(),
		MA200:       ma200.Value(),
		ZScore20:    zscore.Value(),
		LastClose:   closes[len(closes)-1],
	}, nil
}

// momentum returns the percentage price change from the bar `span` days back
// to the bar `skip` days back. Returns 0 when the series is too short for the
// span — the symbol stays eligible on its remaining indicators.
func momentum(closes []float64, span, skip int) float64 {
	n := len(closes)
	if n <= span {
		return 0
	}
	start := closes[n-1-span]
	end := closes[n-1-skip]
	return (end/start - 1) * 100
}
