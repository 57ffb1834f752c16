package model

import "time"

// Bar is a single daily OHLCV bar.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a chronologically ascending sequence of daily bars for one
// symbol. Providers may return fewer bars than requested; a short series makes
// the symbol ineligible downstream rather than erroring.
type PriceSeries []Bar

// Validate checks series integrity: strictly ascending dates (no duplicates)
// and positive prices on every bar.
func (s PriceSeries) Validate() error {
	for i, b := range s {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return &DataError{Reason: "non-positive price", Bar: i}
		}
		if i > 0 && !s[i-1].Date.Before(b.Date) {
			return &DataError{Reason: "non-monotonic bar dates", Bar: i}
		}
	}
	return nil
}

// Closes returns the close prices in series order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s PriceSeries) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}
