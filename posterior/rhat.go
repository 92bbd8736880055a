package posterior

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RHatThreshold is the split R-hat above which chains are reported as not mixed.
const RHatThreshold = 1.05

// SplitRHat computes the split potential scale reduction factor of the given
// chains. Every chain is cut in half (an odd middle draw is dropped) and all
// halves are truncated to the shortest one. It returns NaN when fewer than two halves
// of at least two draws exist or when the within-chain variance is zero.
func SplitRHat(chains [][]float64) float64 {
	var halves [][]float64
	n := -1
	for _, c := range chains {
		h := len(c) / 2
		if h < 2 {
			return math.NaN()
		}
		if n < 0 || h < n {
			n = h
		}
		halves = append(halves, c[:h], c[len(c)-h:])
	}
	if len(halves) < 2 {
		return math.NaN()
	}

	means := make([]float64, len(halves))
	vars := make([]float64, len(halves))
	for i, h := range halves {
		h = h[:n]
		means[i], vars[i] = stat.MeanVariance(h, nil)
	}

	w := stat.Mean(vars, nil)
	if w == 0 || math.IsNaN(w) {
		return math.NaN()
	}
	b := float64(n) * stat.Variance(means, nil)
	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	return math.Sqrt(varPlus / w)
}
