package model

// Momentum score weights: 60% twelve-month, 40% six-month trailing return.
const (
	Weight12M = 0.6
	Weight6M  = 0.4
)

// IndicatorRecord is the fixed-shape indicator snapshot for one symbol.
type IndicatorRecord struct {
	Symbol      string  `json:"symbol"`
	Momentum12M float64 `json:"momentum_12m"` // % return over [t-252, t-21]
	Momentum6M  float64 `json:"momentum_6m"`  // % return over [t-126, t-21]
	MA50        float64 `json:"ma_50"`
	MA200       float64 `json:"ma_200"`
	ZScore20    float64 `json:"z_score_20"`
	LastClose   float64 `json:"last_close"`
}

// Score is the blended momentum score: 0.6*Momentum12M + 0.4*Momentum6M.
func (r IndicatorRecord) Score() float64 {
	return Weight12M*r.Momentum12M + Weight6M*r.Momentum6M
}

// Side classifies which direction a candidate qualifies for.
type Side string

const (
	SideLong       Side = "long"
	SideShort      Side = "short"
	SideIneligible Side = "ineligible"
)

// Candidate is an indicator record plus its derived side classification.
type Candidate struct {
	IndicatorRecord
	Side Side `json:"side"`
}

// Classify derives the side for a record under the given z-score threshold.
// Long and short conditions are mutually exclusive: the close cannot be both
// above and below MA200, so a symbol never dual-qualifies.
func Classify(r IndicatorRecord, zscoreThreshold float64) Candidate {
	side := SideIneligible
	switch {
	case r.LastClose > r.MA200 && r.ZScore20 < zscoreThreshold:
		side = SideLong
	case r.LastClose < r.MA200 && r.ZScore20 >= zscoreThreshold:
		side = SideShort
	}
	return Candidate{IndicatorRecord: r, Side: side}
}

// SelectionSet holds the ranked long and short candidate lists.
// Longs are ordered by score descending, shorts ascending; ties broken by
// symbol so identical inputs always produce an identical ordering.
type SelectionSet struct {
	Longs  []Candidate `json:"longs"`
	Shorts []Candidate `json:"shorts"`
}

// Total returns the combined position count.
func (s SelectionSet) Total() int {
	return len(s.Longs) + len(s.Shorts)
}
