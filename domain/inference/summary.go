package inference

import (
	"math"

	"github.com/montanaflynn/stats"
)

// SummarizeDraws reduces an MCMC draw sample to a median point estimate
// with equal-tailed 95% bounds.
func SummarizeDraws(draws []float64) Interval {
	if len(draws) == 0 {
		return Interval{Point: math.NaN(), Lower: math.NaN(), Upper: math.NaN()}
	}
	med, errM := stats.Median(draws)
	lo, errL := stats.Percentile(draws, 2.5)
	hi, errH := stats.Percentile(draws, 97.5)
	if errM != nil || errL != nil || errH != nil {
		return Interval{Point: math.NaN(), Lower: math.NaN(), Upper: math.NaN()}
	}
	return Interval{Point: med, Lower: lo, Upper: hi}
}

// FiniteDraws filters non-finite values out of a draw sample.
func FiniteDraws(draws []float64) []float64 {
	out := make([]float64, 0, len(draws))
	for _, d := range draws {
		if !math.IsNaN(d) && !math.IsInf(d, 0) {
			out = append(out, d)
		}
	}
	return out
}
