package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

func TestFitLineExact(t *testing.T) {
	// y = 10 + 2x
	x := []float64{-2, -1, 0, 1, 2, 3}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 10 + 2*xi
	}

	m, err := FitLine(x, y)
	require.NoError(t, err)
	assert.True(t, m.IsFitted())
	assert.InDelta(t, 10, m.Intercept, 1e-9)
	assert.InDelta(t, 2, m.Weights[0], 1e-9)
	assert.InDelta(t, 0, m.ResidualStd, 1e-9)

	score, err := m.Score(mat.NewDense(len(x), 1, x), y)
	require.NoError(t, err)
	assert.InDelta(t, 1, score, 1e-9)
}

func TestOLSMultipleFeatures(t *testing.T) {
	// y = 1 + 2*x1 + 3*x2
	X := mat.NewDense(5, 2, []float64{
		1, 1,
		2, 1,
		3, 2,
		4, 2,
		5, 3,
	})
	y := []float64{6, 8, 13, 15, 20}

	m := NewOLS()
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 1, m.Intercept, 1e-9)
	assert.InDeltaSlice(t, []float64{2, 3}, m.Weights, 1e-9)

	pred, err := m.Predict(mat.NewDense(1, 2, []float64{6, 3}))
	require.NoError(t, err)
	assert.InDelta(t, 22, pred[0], 1e-9)
}

func TestOLSCovariance(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 2, 4}

	m, err := FitLine(x, y)
	require.NoError(t, err)

	cov, err := m.Covariance()
	require.NoError(t, err)
	require.Equal(t, 2, cov.SymmetricDim())

	// 単回帰の傾きの分散は s² / Σ(x - x̄)²
	sxx := 5.0
	want := m.ResidualStd * m.ResidualStd / sxx
	assert.InDelta(t, want, cov.At(1, 1), 1e-12)
	assert.Greater(t, cov.At(0, 0), 0.0)
	assert.False(t, math.IsNaN(cov.At(0, 1)))
}

func TestOLSErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := FitLine(nil, nil)
		assert.ErrorIs(t, err, errors.ErrEmptyData)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := FitLine([]float64{1, 2, 3}, []float64{1, 2})
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("too few samples", func(t *testing.T) {
		_, err := FitLine([]float64{1, 2}, []float64{1, 2})
		var valErr *errors.ValueError
		assert.True(t, errors.As(err, &valErr))
	})

	t.Run("constant input", func(t *testing.T) {
		_, err := FitLine([]float64{1, 1, 1, 1}, []float64{1, 2, 3, 4})
		assert.ErrorIs(t, err, errors.ErrSingularMatrix)
	})

	t.Run("not fitted", func(t *testing.T) {
		m := NewOLS()
		_, err := m.Predict(mat.NewDense(1, 1, []float64{1}))
		assert.Error(t, err)
		_, err = m.Covariance()
		assert.Error(t, err)
	})
}
