package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// WilsonInterval calculates the Wilson score confidence interval
// for a binomial proportion. It's more accurate for small samples
// than the normal approximation.
func WilsonInterval(successes, trials int, confidence float64) (lower, upper float64) {
	if trials == 0 {
		return 0, 0
	}

	z := ZScore(confidence)
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	lower = math.Max(0, center-spread)
	upper = math.Min(1, center+spread)

	// The bounds are exact at the extremes; don't let rounding move them.
	if successes == 0 {
		lower = 0
	}
	if successes == trials {
		upper = 1
	}
	return lower, upper
}

// ZScore returns the two-sided critical value of the standard normal
// distribution for a confidence level, e.g. 1.96 for 0.95.
func ZScore(confidence float64) float64 {
	if confidence <= 0 {
		return 0
	}
	if confidence >= 1 {
		return math.Inf(1)
	}
	return distuv.UnitNormal.Quantile((1 + confidence) / 2)
}
