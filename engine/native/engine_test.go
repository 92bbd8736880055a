package native

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/engine"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/posterior"
)

var noise = []float64{0.3, -0.2, 0.1, -0.3, 0.2, -0.1}

// synthetic は種ごとに y = a + b*x + noise の直線データを作る
func synthetic(lines map[string][2]float64, order ...string) *dataset.Samples {
	s := &dataset.Samples{}
	for _, sp := range order {
		ab := lines[sp]
		for i := 0; i < 12; i++ {
			x := -2 + 0.5*float64(i)
			w := -1 + 0.1*float64(i%5)
			s.Species = append(s.Species, sp)
			s.Water = append(s.Water, w)
			s.Carbonate = append(s.Carbonate, w+x)
			s.Temperature = append(s.Temperature, ab[0]+ab[1]*x+noise[i%len(noise)])
			s.WaterSD = append(s.WaterSD, 0.05)
			s.CarbonateSD = append(s.CarbonateSD, 0.02)
		}
	}
	return s
}

func twoSpecies() *dataset.Samples {
	return synthetic(map[string][2]float64{
		"bivalve": {10, 2},
		"coral":   {12, 1.5},
	}, "bivalve", "coral")
}

type fixedPriors struct{}

func (fixedPriors) PooledMeans() (float64, float64, error) { return 11, 1.8, nil }

func (fixedPriors) SpeciesScales(string) (float64, float64, error) { return 2, 0.5, nil }

func lookup(t *testing.T, stage model.Stage) model.Program {
	t.Helper()
	p, err := model.Lookup(string(stage))
	require.NoError(t, err)
	return p
}

func testEngine() *Engine {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return New(WithLogger(logger))
}

func opts(seed uint64) engine.Options {
	return engine.Options{Chains: 2, Draws: 400, Warmup: 400, Seed: seed}
}

func mean(t *testing.T, tbl *posterior.Table, name string) float64 {
	t.Helper()
	col, err := tbl.Column(name)
	require.NoError(t, err)
	return stat.Mean(col, nil)
}

func TestSampleRecoversLine(t *testing.T) {
	group, ok := twoSpecies().Group("bivalve")
	require.True(t, ok)

	tbl, err := testEngine().Sample(context.Background(), lookup(t, model.Q3A), payload.NoPooling(group.Samples), opts(7))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "sigma"}, tbl.Columns())
	assert.Equal(t, 800, tbl.Len())
	assert.Equal(t, 2, tbl.Chains())
	assert.InDelta(t, 10.0, mean(t, tbl, "a"), 0.5)
	assert.InDelta(t, 2.0, mean(t, tbl, "b"), 0.3)

	sigma, err := tbl.Column("sigma")
	require.NoError(t, err)
	assert.Greater(t, floats.Min(sigma), 0.0)

	rhat, err := tbl.ByChain("b")
	require.NoError(t, err)
	assert.Less(t, posterior.SplitRHat(rhat), 1.1)
}

func TestSampleIsReproducible(t *testing.T) {
	data := payload.Pooled(twoSpecies())
	program := lookup(t, model.Q2)

	first, err := testEngine().Sample(context.Background(), program, data, opts(42))
	require.NoError(t, err)
	second, err := testEngine().Sample(context.Background(), program, data, opts(42))
	require.NoError(t, err)
	other, err := testEngine().Sample(context.Background(), program, data, opts(43))
	require.NoError(t, err)

	for _, c := range first.Columns() {
		a, _ := first.Column(c)
		b, _ := second.Column(c)
		assert.Equal(t, a, b, c)
	}
	a, _ := first.Column("a")
	b, _ := other.Column("a")
	assert.NotEqual(t, a, b)
}

func TestColumnsPerStage(t *testing.T) {
	s := twoSpecies()
	group, _ := s.Group("coral")
	held := &dataset.Samples{
		Species:     []string{"coral", "coral"},
		Water:       []float64{-0.5, -0.8},
		Carbonate:   []float64{1, 0.4},
		WaterSD:     []float64{0.05, 0.05},
		CarbonateSD: []float64{0.02, 0.02},
	}

	q3b, err := payload.PartialPooling(s, fixedPriors{})
	require.NoError(t, err)
	q4a, err := payload.Predictive(group.Samples, "coral", held, fixedPriors{}, false)
	require.NoError(t, err)
	q4b, err := payload.Predictive(group.Samples, "coral", held, fixedPriors{}, true)
	require.NoError(t, err)

	tests := []struct {
		stage model.Stage
		data  payload.Payload
		want  []string
	}{
		{model.Q1, payload.Pooled(s), []string{"a", "b", "sigma", "resid.1", "resid.2"}},
		{model.Q3B, q3b, []string{"a.1", "a.2", "b.1", "b.2", "sigma.1", "sigma.2"}},
		{model.Q4A, q4a, []string{"a", "b", "sigma", "y_new.1", "y_new.2"}},
		{model.Q4B, q4b, []string{
			"a", "b", "sigma",
			"d18_O_c_s.1", "d18_O_c_s.2",
			"d18_O_w_s.1", "d18_O_w_s.2",
			"y_new.1", "y_new.2",
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			tbl, err := testEngine().Sample(context.Background(), lookup(t, tt.stage), tt.data,
				engine.Options{Chains: 1, Draws: 20, Warmup: 20, Seed: 1})
			require.NoError(t, err)
			assert.Equal(t, tt.want, tbl.Columns())
			assert.Equal(t, 20, tbl.Len())
		})
	}
}

func TestReplicateColumns(t *testing.T) {
	s := twoSpecies()
	tbl, err := testEngine().Sample(context.Background(), lookup(t, model.Q2), payload.Pooled(s),
		engine.Options{Chains: 1, Draws: 10, Warmup: 10, Seed: 1})
	require.NoError(t, err)

	assert.Len(t, tbl.Vector("y_new"), s.Len())
	assert.Equal(t, []string{"resid.1", "resid.2"}, tbl.Vector("resid"))
}

func TestPartialPoolingPerSpecies(t *testing.T) {
	data, err := payload.PartialPooling(twoSpecies(), fixedPriors{})
	require.NoError(t, err)

	tbl, err := testEngine().Sample(context.Background(), lookup(t, model.Q3B), data, opts(3))
	require.NoError(t, err)

	assert.InDelta(t, 10.0, mean(t, tbl, "a.1"), 0.6)
	assert.InDelta(t, 12.0, mean(t, tbl, "a.2"), 0.6)
	assert.InDelta(t, 2.0, mean(t, tbl, "b.1"), 0.3)
	assert.InDelta(t, 1.5, mean(t, tbl, "b.2"), 0.3)
}

func TestLatentInputsFollowMeasurement(t *testing.T) {
	group, _ := twoSpecies().Group("bivalve")
	held := &dataset.Samples{
		Species:     []string{"bivalve"},
		Water:       []float64{-0.5},
		Carbonate:   []float64{1.5},
		WaterSD:     []float64{0.05},
		CarbonateSD: []float64{0.02},
	}
	data, err := payload.Predictive(group.Samples, "bivalve", held, fixedPriors{}, true)
	require.NoError(t, err)

	tbl, err := testEngine().Sample(context.Background(), lookup(t, model.Q4B), data, opts(5))
	require.NoError(t, err)

	assert.InDelta(t, 1.5, mean(t, tbl, "d18_O_c_s.1"), 0.01)
	assert.InDelta(t, -0.5, mean(t, tbl, "d18_O_w_s.1"), 0.02)
	// 10 + 2*(1.5 - (-0.5)) = 14
	assert.InDelta(t, 14.0, mean(t, tbl, "y_new.1"), 0.7)
}

func TestPriorOnlyFit(t *testing.T) {
	// 観測が1点でも事前分布があれば初期化できる
	data := payload.Payload{
		payload.FieldN:         1,
		payload.FieldWater:     []float64{-1},
		payload.FieldCarbonate: []float64{1},
		payload.FieldY:         []float64{15},
		payload.FieldAM:        11.0,
		payload.FieldBM:        1.8,
		payload.FieldSigmaA:    2.0,
		payload.FieldSigmaB:    0.5,
		payload.FieldK:         1,
		payload.FieldWaterNew:  []float64{-1},
		payload.FieldCarbNew:   []float64{1},
	}
	tbl, err := testEngine().Sample(context.Background(), lookup(t, model.Q4A), data,
		engine.Options{Chains: 1, Draws: 50, Warmup: 50, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 50, tbl.Len())
}

func TestSampleErrors(t *testing.T) {
	base := func() payload.Payload {
		g, _ := twoSpecies().Group("coral")
		return payload.NoPooling(g.Samples)
	}

	tests := []struct {
		name  string
		stage model.Stage
		data  func() payload.Payload
		opts  engine.Options
		check func(t *testing.T, err error)
	}{
		{
			name:  "temperature outside bounds",
			stage: model.Q3A,
			data: func() payload.Payload {
				p := base()
				p[payload.FieldY].([]float64)[3] = 60
				return p
			},
			opts: opts(1),
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, payload.FieldY, valErr.ParamName)
			},
		},
		{
			name:  "isotope difference outside bounds",
			stage: model.Q2,
			data: func() payload.Payload {
				p := payload.Pooled(twoSpecies())
				p[payload.FieldCarbonate].([]float64)[0] = 9
				return p
			},
			opts: opts(1),
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, "diff", valErr.ParamName)
			},
		},
		{
			name:  "non-positive measurement sd",
			stage: model.Q4B,
			data: func() payload.Payload {
				g, _ := twoSpecies().Group("coral")
				p, _ := payload.Predictive(g.Samples, "coral", nil, fixedPriors{}, true)
				p[payload.FieldCarbNewSD].([]float64)[2] = 0
				return p
			},
			opts: opts(1),
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, "d18_O_c_new_sd.3", valErr.ParamName)
			},
		},
		{
			name:  "non-positive prior scale",
			stage: model.Q4A,
			data: func() payload.Payload {
				g, _ := twoSpecies().Group("coral")
				p, _ := payload.Predictive(g.Samples, "coral", nil, fixedPriors{}, false)
				p[payload.FieldSigmaB] = 0.0
				return p
			},
			opts: opts(1),
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, payload.FieldSigmaB, valErr.ParamName)
			},
		},
		{
			name:  "too few observations without prior",
			stage: model.Q3A,
			data: func() payload.Payload {
				return payload.Payload{
					payload.FieldN:         2,
					payload.FieldWater:     []float64{0, 0},
					payload.FieldCarbonate: []float64{1, 2},
					payload.FieldY:         []float64{10, 12},
				}
			},
			opts:  opts(1),
			check: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name:  "payload missing field",
			stage: model.Q1,
			data:  base,
			opts:  opts(1),
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				assert.True(t, errors.As(err, &valErr))
			},
		},
		{
			name:  "zero draws",
			stage: model.Q3A,
			data:  base,
			opts:  engine.Options{Chains: 1, Draws: 0, Seed: 1},
			check: func(t *testing.T, err error) {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, "draws", valErr.ParamName)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testEngine().Sample(context.Background(), lookup(t, tt.stage), tt.data(), tt.opts)
			tt.check(t, err)
		})
	}
}

func TestSampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, _ := twoSpecies().Group("coral")
	_, err := testEngine().Sample(ctx, lookup(t, model.Q3A), payload.NoPooling(g.Samples), opts(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThinning(t *testing.T) {
	g, _ := twoSpecies().Group("coral")
	e := New(WithThin(5), WithBurnIn(100), WithLogger(log.GetLogger()))

	tbl, err := e.Sample(context.Background(), lookup(t, model.Q3A), payload.NoPooling(g.Samples),
		engine.Options{Chains: 1, Draws: 30, Warmup: 0, Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, 30, tbl.Len())

	_, err = New(WithThin(0)).Sample(context.Background(), lookup(t, model.Q3A), payload.NoPooling(g.Samples), opts(1))
	assert.Error(t, err)
}

func TestLogProb(t *testing.T) {
	l := &line{x: []float64{0, 1}, y: []float64{1, 3}}

	// a=1, b=2 fits exactly; with sigma = 1 only the -n*u + u terms remain
	assert.InDelta(t, 0.0, l.LogProb([]float64{1, 2, 0}), 1e-12)
	assert.True(t, math.IsInf(l.LogProb([]float64{1, 2, -1e6}), -1))
	assert.Greater(t, l.LogProb([]float64{1, 2, 0}), l.LogProb([]float64{0, 2, 0}))
}
