package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: []float64{1, 2, 3, 4, 5},
			yPred: []float64{1, 2, 3, 4, 5},
			want:  0,
		},
		{
			name:  "simple case",
			yTrue: []float64{1, 2, 3, 4},
			yPred: []float64{1.5, 2.5, 2.5, 3.5},
			want:  0.25,
		},
		{
			name:  "larger errors",
			yTrue: []float64{10, 20, 30},
			yPred: []float64{12, 18, 33},
			want:  17.0 / 3.0,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1, 2, 3},
			yPred:   []float64{1, 2},
			wantErr: true,
		},
		{
			name:    "empty",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := []float64{10, 20, 30}
	yPred := []float64{12, 18, 33}

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(17.0/3.0), rmse, 1e-10)

	mae, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, mae, 1e-10)

	_, err = MAE(yTrue, yPred[:1])
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestR2(t *testing.T) {
	r2, err := R2([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-12)

	// 平均値による予測は0
	r2, err = R2([]float64{1, 2, 3, 4}, []float64{2.5, 2.5, 2.5, 2.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r2, 1e-12)

	r2, err = R2([]float64{3, 3, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r2))
}

func TestLineFit(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{10, 12, 14, 16}

	f, err := LineFit(10, 2, x, y)
	require.NoError(t, err)
	assert.InDelta(t, 0, f.RMSE, 1e-12)
	assert.InDelta(t, 0, f.MAE, 1e-12)
	assert.InDelta(t, 1, f.R2, 1e-12)

	f, err = LineFit(11, 2, x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1, f.RMSE, 1e-12)
	assert.Less(t, f.R2, 1.0)

	_, err = LineFit(10, 2, x, y[:2])
	assert.Error(t, err)
}
