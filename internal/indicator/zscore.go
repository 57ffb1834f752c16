package indicator

import "math"

// ZScore computes the standard score of the most recent value against the
// trailing window: (last − mean) / stddev. Sample standard deviation (n−1),
// matching the usual rolling-std convention.
type ZScore struct {
	period int
	buf    []float64
	idx    int
	count  int
	last   float64
}

// NewZScore creates a z-score indicator over the given window.
func NewZScore(period int) *ZScore {
	return &ZScore{
		period: period,
		buf:    make([]float64, period),
	}
}

func (z *ZScore) Update(price float64) {
	z.buf[z.idx] = price
	z.idx = (z.idx + 1) % z.period
	z.count++
	z.last = price
}

// Value returns the current z-score. A flat window (zero standard deviation)
// yields 0 rather than a division error.
func (z *ZScore) Value() float64 {
	if !z.Ready() {
		return 0
	}

	var sum float64
	for _, v := range z.buf {
		sum += v
	}
	mean := sum / float64(z.period)

	var ss float64
	for _, v := range z.buf {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(z.period-1))
	if std == 0 {
		return 0
	}
	return (z.last - mean) / std
}

func (z *ZScore) Ready() bool { return z.count >= z.period }
