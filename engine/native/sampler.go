package native

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/samplemv"

	"github.com/YuminosukeSato/isoflow/linear"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

const (
	// minSigma は完全に一直線に並んだデータで提案分布が潰れないための下限
	minSigma = 1e-3
	// optimalScale は d 次元ランダムウォークの最適スケール 2.38²/d (d = 3)
	optimalScale = 2.38 * 2.38 / 3
)

// settings are the per-chain Metropolis-Hastings parameters.
type settings struct {
	draws  int
	burnIn int
	thin   int
	scale  float64
}

// start はラプラス近似で初期値と提案共分散を決める。
// 最小二乗で (a, b, s) を推定し、(a, b) のブロックは s²(XᵀX)⁻¹ に事前分布の
// 精度を足したものの逆行列、log sigma の分散は 1/(2n) とする。
// 最小二乗が解けない場合は事前分布の中心から始める。
func (l *line) start(scale float64) ([]float64, *mat.SymDense, error) {
	n := len(l.x)
	cov := mat.NewSymDense(3, nil)
	cov.SetSym(2, 2, 1/(2*float64(max(n, 1))))

	var initial []float64
	ols, err := linear.FitLine(l.x, l.y)
	switch {
	case err == nil:
		s := math.Max(ols.ResidualStd, minSigma)
		ab := mat.NewSymDense(2, nil)
		ab.ScaleSym(s*s, ols.XtXInv)
		if l.prior != nil {
			if ab, err = shrink(ab, l.prior); err != nil {
				return nil, nil, err
			}
		}
		cov.SetSym(0, 0, ab.At(0, 0))
		cov.SetSym(0, 1, ab.At(0, 1))
		cov.SetSym(1, 1, ab.At(1, 1))
		initial = []float64{ols.Intercept, ols.Weights[0], math.Log(s)}

	case l.prior != nil:
		u := 0.0
		if n >= 2 {
			if sd := stat.StdDev(l.y, nil); sd > 0 {
				u = math.Log(sd)
			}
		}
		cov.SetSym(0, 0, l.prior.a.Sigma*l.prior.a.Sigma)
		cov.SetSym(1, 1, l.prior.b.Sigma*l.prior.b.Sigma)
		initial = []float64{l.prior.a.Mu, l.prior.b.Mu, u}

	default:
		return nil, nil, errors.Wrapf(err, "cannot initialise an unregularised line from %d observations", n)
	}

	cov.ScaleSym(scale*optimalScale, cov)
	if err := errors.CheckMatrix("native.start", cov, 3, 3); err != nil {
		return nil, nil, err
	}
	if err := errors.CheckNumericalStability("native.start", initial, 0); err != nil {
		return nil, nil, err
	}
	if lp := l.LogProb(initial); math.IsInf(lp, -1) || math.IsNaN(lp) {
		return nil, nil, errors.NewValueError("native.start", "initial point has zero posterior density")
	}
	return initial, cov, nil
}

// shrink は尤度の共分散と事前分布の精度を合成した共分散を返す
func shrink(cov *mat.SymDense, p *normalPrior) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, errors.Wrap(errors.ErrSingularMatrix, "native.shrink")
	}
	var prec mat.SymDense
	if err := chol.InverseTo(&prec); err != nil {
		return nil, errors.Wrap(errors.ErrSingularMatrix, "native.shrink")
	}
	prec.SetSym(0, 0, prec.At(0, 0)+1/(p.a.Sigma*p.a.Sigma))
	prec.SetSym(1, 1, prec.At(1, 1)+1/(p.b.Sigma*p.b.Sigma))

	if ok := chol.Factorize(&prec); !ok {
		return nil, errors.Wrap(errors.ErrSingularMatrix, "native.shrink")
	}
	var out mat.SymDense
	if err := chol.InverseTo(&out); err != nil {
		return nil, errors.Wrap(errors.ErrSingularMatrix, "native.shrink")
	}
	return &out, nil
}

// sample draws cfg.draws rows of (a, b, sigma) for l. The returned move rate
// is the share of retained draws that differ from their predecessor.
func (l *line) sample(cfg settings, src rand.Source) (*mat.Dense, float64, error) {
	initial, cov, err := l.start(cfg.scale)
	if err != nil {
		return nil, 0, err
	}
	proposal, ok := samplemv.NewProposalNormal(cov, src)
	if !ok {
		return nil, 0, errors.Wrap(errors.ErrSingularMatrix, "native.sample: proposal covariance")
	}

	batch := mat.NewDense(cfg.draws, 3, nil)
	mh := samplemv.MetropolisHastingser{
		Initial:  initial,
		Target:   l,
		Proposal: proposal,
		Src:      src,
		BurnIn:   cfg.burnIn,
		Rate:     cfg.thin,
	}
	// samplemv panics on shape mismatches instead of returning errors
	err = errors.SafeExecute("native.sample", func() error {
		mh.Sample(batch)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	for i := 0; i < cfg.draws; i++ {
		batch.Set(i, 2, math.Exp(batch.At(i, 2)))
	}
	if err := errors.CheckMatrix("native.sample", batch, cfg.draws, 3); err != nil {
		return nil, 0, err
	}
	return batch, moveRate(batch), nil
}

func moveRate(batch *mat.Dense) float64 {
	r, _ := batch.Dims()
	if r < 2 {
		return math.NaN()
	}
	moved := 0
	for i := 1; i < r; i++ {
		if !mat.Equal(batch.RowView(i), batch.RowView(i-1)) {
			moved++
		}
	}
	return float64(moved) / float64(r-1)
}
