package native

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// normalPrior は a, b にかかる独立な正規事前分布
type normalPrior struct {
	a, b distuv.Normal
}

// line は一本の回帰直線 y ~ Normal(a + b*x, sigma) の事後密度。
// パラメータは θ = (a, b, log sigma) で、sigma > 0 の制約を外している。
type line struct {
	x, y  []float64
	prior *normalPrior
}

// LogProb implements distmv.LogProber. The log sigma parameterisation adds
// the Jacobian term u to the density of sigma, which is flat.
func (l *line) LogProb(theta []float64) float64 {
	a, b, u := theta[0], theta[1], theta[2]
	sigma := math.Exp(u)
	if sigma == 0 || math.IsInf(sigma, 0) || math.IsNaN(sigma) {
		return math.Inf(-1)
	}

	var ss float64
	for i, xi := range l.x {
		r := (l.y[i] - a - b*xi) / sigma
		ss += r * r
	}
	lp := -0.5*ss - float64(len(l.x))*u + u

	if l.prior != nil {
		lp += l.prior.a.LogProb(a) + l.prior.b.LogProb(b)
	}
	if math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp
}
