// Package linear は切片付き最小二乗法による線形回帰を提供します。
// サンプラーの初期値と提案分布のスケールを決めるために使われます。
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isoflow/core/parallel"
	"github.com/YuminosukeSato/isoflow/metrics"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// OLS は切片付きの通常最小二乗回帰モデル
type OLS struct {
	fitted bool

	Intercept float64   // 切片
	Weights   []float64 // 重み（係数）
	NFeatures int       // 特徴量の数
	NSamples  int       // 学習に使ったサンプル数

	// ResidualStd は自由度 n-p-1 で割った残差標準偏差
	ResidualStd float64
	// XtXInv は切片列を先頭に持つ計画行列の (X^T X)^(-1)
	XtXInv *mat.SymDense
}

// NewOLS は新しい線形回帰モデルを作成する
func NewOLS() *OLS {
	return &OLS{}
}

// IsFitted はモデルが学習済みかどうかを返す
func (m *OLS) IsFitted() bool { return m.fitted }

// Fit はモデルを訓練データで学習させる
// 正規方程式 w = (X^T * X)^(-1) * X^T * y を使用
func (m *OLS) Fit(X mat.Matrix, y []float64) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "OLS.Fit")
	}
	if len(y) != r {
		return errors.NewDimensionError("OLS.Fit", "y", r, len(y))
	}
	if r <= c+1 {
		return errors.NewValueError("OLS.Fit", "need more samples than coefficients to estimate the residual scale")
	}

	// 切片項のために X に 1 の列を追加
	design := mat.NewDense(r, c+1, nil)
	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			design.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				design.Set(i, j+1, X.At(i, j))
			}
		}
	})

	var xtx mat.SymDense
	xtx.SymOuterK(1, design.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return errors.Wrap(errors.ErrSingularMatrix, "OLS.Fit")
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return errors.Wrap(errors.ErrSingularMatrix, "OLS.Fit")
	}

	yVec := mat.NewVecDense(r, append([]float64(nil), y...))
	var xty mat.VecDense
	xty.MulVec(design.T(), yVec)

	var w mat.VecDense
	w.MulVec(&inv, &xty)
	if err := errors.CheckMatrix("OLS.Fit", &w, c+1, 1); err != nil {
		return err
	}

	var fitted mat.VecDense
	fitted.MulVec(design, &w)
	var rss float64
	for i := 0; i < r; i++ {
		d := y[i] - fitted.AtVec(i)
		rss += d * d
	}

	m.Intercept = w.AtVec(0)
	m.Weights = make([]float64, c)
	for j := 0; j < c; j++ {
		m.Weights[j] = w.AtVec(j + 1)
	}
	m.NFeatures = c
	m.NSamples = r
	m.ResidualStd = math.Sqrt(rss / float64(r-c-1))
	m.XtXInv = &inv
	m.fitted = true
	return nil
}

// Predict は入力データに対する予測を行う
func (m *OLS) Predict(X mat.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, errors.NewValueError("OLS.Predict", "model is not fitted")
	}
	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("OLS.Predict", "features", m.NFeatures, c)
	}

	// 予測: y = X * weights + intercept
	pred := make([]float64, r)
	for i := 0; i < r; i++ {
		v := m.Intercept
		for j := 0; j < c; j++ {
			v += X.At(i, j) * m.Weights[j]
		}
		pred[i] = v
	}
	return pred, nil
}

// Score はモデルの決定係数（R²）を計算する
func (m *OLS) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2(y, pred)
}

// Covariance は係数（切片が先頭）の推定共分散 s² (X^T X)^(-1) を返す
func (m *OLS) Covariance() (*mat.SymDense, error) {
	if !m.fitted {
		return nil, errors.NewValueError("OLS.Covariance", "model is not fitted")
	}
	var cov mat.SymDense
	cov.ScaleSym(m.ResidualStd*m.ResidualStd, m.XtXInv)
	return &cov, nil
}

// FitLine は y = a + b*x の単回帰を行う
func FitLine(x, y []float64) (*OLS, error) {
	if len(x) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "FitLine")
	}
	m := NewOLS()
	if err := m.Fit(mat.NewDense(len(x), 1, append([]float64(nil), x...)), y); err != nil {
		return nil, err
	}
	return m, nil
}
