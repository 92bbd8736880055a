package posterior

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

func buildTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable("a", "b", "y_new.2", "y_new.1", "y_new.10")
	for chain := 0; chain < 2; chain++ {
		for i := 0; i < 4; i++ {
			v := float64(chain*4 + i + 1)
			require.NoError(t, tbl.Append(chain, []float64{v, 2 * v, v, -v, 0}))
		}
	}
	return tbl
}

func TestTableAccess(t *testing.T) {
	tbl := buildTable(t)

	assert.Equal(t, 8, tbl.Len())
	assert.Equal(t, 2, tbl.Chains())

	col, err := tbl.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, col)

	byChain, err := tbl.ByChain("b")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 4, 6, 8}, {10, 12, 14, 16}}, byChain)

	_, err = tbl.Column("sigma")
	var missing *errors.MissingParameterError
	assert.True(t, errors.As(err, &missing))
}

func TestTableAppendDimension(t *testing.T) {
	tbl := NewTable("a", "b")
	err := tbl.Append(0, []float64{1})

	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestTableVector(t *testing.T) {
	tbl := buildTable(t)

	assert.Equal(t, []string{"y_new.1", "y_new.2", "y_new.10"}, tbl.Vector("y_new"))
	assert.Equal(t, []string{"a"}, tbl.Vector("a"))
	assert.Empty(t, tbl.Vector("resid"))
	assert.Equal(t, "y_new.3", Element("y_new", 3))
	assert.Equal(t, "y_new", Base("y_new.3"))
	assert.Equal(t, "sigma", Base("sigma"))
}

func TestTableConcat(t *testing.T) {
	first := NewTable("a", "b")
	require.NoError(t, first.Append(0, []float64{1, 2}))
	second := NewTable("b", "a")
	require.NoError(t, second.Append(1, []float64{20, 10}))

	require.NoError(t, first.Concat(second))
	a, err := first.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 10}, a)
	assert.Equal(t, []int{0, 1}, first.Chain())
}

func TestDescribe(t *testing.T) {
	tbl := buildTable(t)

	s, err := Describe(tbl, "a", "b")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Parameters())

	mean, err := s.Mean("a")
	require.NoError(t, err)
	assert.InDelta(t, 4.5, mean, 1e-12)

	std, err := s.Std("a")
	require.NoError(t, err)
	// 1..8 の標本標準偏差
	assert.InDelta(t, math.Sqrt(6), std, 1e-12)

	min, _ := s.Get("a", StatMin)
	max, _ := s.Get("a", StatMax)
	median, _ := s.Get("a", StatMedian)
	count, _ := s.Get("a", StatCount)
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 8.0, max)
	assert.Equal(t, 4.5, median)
	assert.Equal(t, 8.0, count)

	q25, _ := s.Get("a", StatQ25)
	q75, _ := s.Get("a", StatQ75)
	assert.Less(t, q25, median)
	assert.Greater(t, q75, median)

	row, ok := s.Row(1)
	require.True(t, ok)
	assert.Equal(t, "b", row.Parameter)
	_, ok = s.Row(2)
	assert.False(t, ok)
}

func TestDescribeAllColumnsAndEmpty(t *testing.T) {
	s, err := Describe(buildTable(t))
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())

	_, err = Describe(NewTable("a"))
	assert.ErrorIs(t, err, errors.ErrEmptyData)
}

func TestSummarySelectAndMissing(t *testing.T) {
	s, err := Describe(buildTable(t), "a", "b")
	require.NoError(t, err)

	renamed, err := s.Select([]string{"b"}, func(p string) string { return p + "_species" })
	require.NoError(t, err)
	assert.Equal(t, []string{"b_species"}, renamed.Parameters())

	_, err = s.Select([]string{"sigma"}, nil)
	assert.Error(t, err)

	_, err = s.Mean("sigma")
	var missing *errors.MissingParameterError
	assert.True(t, errors.As(err, &missing))

	_, err = s.Get("a", "hdi_97%")
	var colErr *errors.ColumnError
	assert.True(t, errors.As(err, &colErr))

	means, err := s.Means([]string{"a", "b"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4.5, 9}, means, 1e-12)
}

func TestSummaryAddFillsMissingStats(t *testing.T) {
	s := NewSummary(StatMean, StatStd)
	s.Add("a", map[string]float64{StatMean: 5})
	s.Add("a", map[string]float64{StatMean: 6, StatStd: 1})

	require.Equal(t, 1, s.Len())
	v, err := s.Mean("a")
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	s.Add("b", map[string]float64{StatMean: 1})
	std, err := s.Std("b")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(std))
}

func TestSplitRHat(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	mixed := make([][]float64, 4)
	for c := range mixed {
		mixed[c] = make([]float64, 500)
		for i := range mixed[c] {
			mixed[c][i] = rng.NormFloat64()
		}
	}
	assert.InDelta(t, 1.0, SplitRHat(mixed), 0.02)

	stuck := make([][]float64, 4)
	for c := range stuck {
		stuck[c] = make([]float64, 500)
		for i := range stuck[c] {
			stuck[c][i] = float64(c*10) + rng.NormFloat64()
		}
	}
	assert.Greater(t, SplitRHat(stuck), RHatThreshold)

	// 単一チェーンでも前半と後半のずれを検出する
	trend := [][]float64{make([]float64, 200)}
	for i := range trend[0] {
		trend[0][i] = float64(i) + rng.NormFloat64()
	}
	assert.Greater(t, SplitRHat(trend), RHatThreshold)
}

func TestSplitRHatDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		chains [][]float64
	}{
		{name: "no chains", chains: nil},
		{name: "too short", chains: [][]float64{{1, 2, 3}}},
		{name: "constant", chains: [][]float64{{1, 1, 1, 1}, {1, 1, 1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, math.IsNaN(SplitRHat(tt.chains)))
		})
	}
}
