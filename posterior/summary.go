package posterior

import (
	"math"
	"slices"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/isoflow/core/parallel"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// Summary statistic names, in the order they are written.
const (
	StatCount  = "count"
	StatMean   = "mean"
	StatStd    = "std"
	StatMin    = "min"
	StatQ25    = "25%"
	StatMedian = "50%"
	StatQ75    = "75%"
	StatMax    = "max"
	StatRHat   = "r_hat"
)

// AllStats is the full describe-style statistic set.
var AllStats = []string{StatCount, StatMean, StatStd, StatMin, StatQ25, StatMedian, StatQ75, StatMax, StatRHat}

// Row is the summary of one parameter.
type Row struct {
	Parameter string
	Values    map[string]float64
}

// Summary is an ordered set of parameter rows, addressable by name and by
// position.
type Summary struct {
	Stats []string
	Rows  []Row
	index map[string]int
}

// NewSummary returns an empty summary with the given statistic columns.
func NewSummary(statNames ...string) *Summary {
	if len(statNames) == 0 {
		statNames = AllStats
	}
	return &Summary{Stats: slices.Clone(statNames), index: make(map[string]int)}
}

// Add appends or replaces the row of parameter.
func (s *Summary) Add(parameter string, values map[string]float64) {
	row := Row{Parameter: parameter, Values: make(map[string]float64, len(s.Stats))}
	for _, st := range s.Stats {
		if v, ok := values[st]; ok {
			row.Values[st] = v
		} else {
			row.Values[st] = math.NaN()
		}
	}
	if i, ok := s.index[parameter]; ok {
		s.Rows[i] = row
		return
	}
	s.index[parameter] = len(s.Rows)
	s.Rows = append(s.Rows, row)
}

// Len returns the number of parameter rows.
func (s *Summary) Len() int { return len(s.Rows) }

// Parameters returns the parameter names in row order.
func (s *Summary) Parameters() []string {
	out := make([]string, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Parameter
	}
	return out
}

// Row returns the i-th parameter row.
func (s *Summary) Row(i int) (Row, bool) {
	if i < 0 || i >= len(s.Rows) {
		return Row{}, false
	}
	return s.Rows[i], true
}

// Get returns statistic stat of parameter. Missing parameters fail with
// MissingParameterError.
func (s *Summary) Get(parameter, stat string) (float64, error) {
	i, ok := s.index[parameter]
	if !ok {
		return 0, errors.NewMissingParameterError("summary", parameter)
	}
	v, ok := s.Rows[i].Values[stat]
	if !ok {
		return 0, errors.NewColumnError("summary of "+parameter, stat)
	}
	return v, nil
}

// Mean returns the posterior mean of parameter.
func (s *Summary) Mean(parameter string) (float64, error) { return s.Get(parameter, StatMean) }

// Std returns the posterior standard deviation of parameter.
func (s *Summary) Std(parameter string) (float64, error) { return s.Get(parameter, StatStd) }

// Select returns a new summary holding the rows of params, renamed by rename
// when it is non-nil.
func (s *Summary) Select(params []string, rename func(string) string) (*Summary, error) {
	out := NewSummary(s.Stats...)
	for _, p := range params {
		i, ok := s.index[p]
		if !ok {
			return nil, errors.NewMissingParameterError("summary", p)
		}
		name := p
		if rename != nil {
			name = rename(p)
		}
		out.Add(name, s.Rows[i].Values)
	}
	return out, nil
}

// Means returns the mean of every parameter in params, in order.
func (s *Summary) Means(params []string) ([]float64, error) {
	out := make([]float64, len(params))
	for i, p := range params {
		v, err := s.Mean(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Describe summarises the given columns of t (every column when none are
// given) with the full describe-style statistic set and split R-hat.
func Describe(t *Table, columns ...string) (*Summary, error) {
	if len(columns) == 0 {
		columns = t.Columns()
	}
	if t.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "posterior.Describe")
	}

	rows := make([]map[string]float64, len(columns))
	errs := make([]error, len(columns))
	parallel.ParallelizeWithThreshold(len(columns), 64, func(start, end int) {
		for j := start; j < end; j++ {
			rows[j], errs[j] = describeColumn(t, columns[j])
		}
	})

	s := NewSummary(AllStats...)
	for j, c := range columns {
		if errs[j] != nil {
			return nil, errs[j]
		}
		s.Add(c, rows[j])
	}
	return s, nil
}

func describeColumn(t *Table, name string) (map[string]float64, error) {
	x, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	chains, err := t.ByChain(name)
	if err != nil {
		return nil, err
	}

	mean, std := stat.MeanStdDev(x, nil)
	median, err := stats.Median(x)
	if err != nil {
		return nil, errors.Wrapf(err, "median of %s", name)
	}
	return map[string]float64{
		StatCount:  float64(len(x)),
		StatMean:   mean,
		StatStd:    std,
		StatMin:    floats.Min(x),
		StatQ25:    percentile(x, 25),
		StatMedian: median,
		StatQ75:    percentile(x, 75),
		StatMax:    floats.Max(x),
		StatRHat:   SplitRHat(chains),
	}, nil
}

// percentile uses the averaging rule of montanaflynn/stats and falls back to
// linear interpolation for inputs too short for it.
func percentile(x []float64, p float64) float64 {
	v, err := stats.Percentile(x, p)
	if err == nil {
		return v
	}
	sorted := slices.Clone(x)
	sort.Float64s(sorted)
	return stat.Quantile(p/100, stat.LinInterp, sorted, nil)
}
