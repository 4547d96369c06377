package schedule

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0..1) of an ascending slice using
// linear interpolation between the two nearest ranks. Empty input yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// percentileOf sorts a copy of values and takes its percentile.
func percentileOf(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Percentile(sorted, p)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
