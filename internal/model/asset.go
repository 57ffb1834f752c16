package model

// AssetClassUSEquity is the only asset class this engine trades.
const AssetClassUSEquity = "us_equity"

// Asset describes one tradable instrument as reported by the data provider.
// Consumed read-only by the screening stage.
type Asset struct {
	Symbol       string  `json:"symbol"`
	Class        string  `json:"class"`
	LastPrice    float64 `json:"last_price"`
	AvgVolume    float64 `json:"avg_volume"` // trailing average daily volume
	Active       bool    `json:"active"`
	Fractionable bool    `json:"fractionable"`
	Shortable    bool    `json:"shortable"`
}
