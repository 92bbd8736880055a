package dataset

import (
	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// Canonical column names of the measurement CSV.
const (
	ColSpecies     = "species"
	ColWater       = "d18_O_w"
	ColCarbonate   = "d18_O"
	ColTemperature = "temperature"
	ColWaterSD     = "d18_O_w_sd"
	ColCarbonateSD = "d18_O_sd"
)

// BaseColumns are required by every stage.
var BaseColumns = []string{ColWater, ColCarbonate, ColTemperature, ColSpecies}

// UncertaintyColumns are additionally required by measurement-error stages.
var UncertaintyColumns = []string{ColWaterSD, ColCarbonateSD}

// InputColumns are required of held-out prediction inputs.
var InputColumns = []string{ColWater, ColCarbonate, ColSpecies}

// Samples is the typed, column-oriented measurement set. Treat it as read-only.
type Samples struct {
	Species     []string
	Water       []float64
	Carbonate   []float64
	Temperature []float64

	// WaterSD and CarbonateSD are nil unless loaded with uncertainty.
	WaterSD     []float64
	CarbonateSD []float64
}

// Group is the subset of Samples belonging to one species.
type Group struct {
	Species string
	// Rows are the indices of the group's records in the parent Samples.
	Rows []int
	*Samples
}

// Load reads the canonical columns from path. With uncertainty set the
// per-record standard deviations are required as well.
func Load(path string, uncertainty bool) (*Samples, error) {
	columns := BaseColumns
	if uncertainty {
		columns = append(append([]string(nil), BaseColumns...), UncertaintyColumns...)
	}
	t, err := ReadCSV(path, columns...)
	if err != nil {
		return nil, err
	}
	return FromTable(t)
}

// LoadInputs reads held-out isotope pairs from path. Temperatures are not
// read; with uncertainty set the standard deviation columns are required.
func LoadInputs(path string, uncertainty bool) (*Samples, error) {
	columns := InputColumns
	if uncertainty {
		columns = append(append([]string(nil), InputColumns...), UncertaintyColumns...)
	}
	t, err := ReadCSV(path, columns...)
	if err != nil {
		return nil, err
	}
	return FromTable(t)
}

// FromTable converts a Table into Samples. Temperature and the uncertainty
// columns are picked up when present.
func FromTable(t *Table) (*Samples, error) {
	if t.Len() == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "dataset: %s has no rows", t.Source)
	}

	s := &Samples{}
	var err error
	if s.Species, err = t.Strings(ColSpecies); err != nil {
		return nil, err
	}
	if s.Water, err = t.Floats(ColWater); err != nil {
		return nil, err
	}
	if s.Carbonate, err = t.Floats(ColCarbonate); err != nil {
		return nil, err
	}
	if t.Has(ColTemperature) {
		if s.Temperature, err = t.Floats(ColTemperature); err != nil {
			return nil, err
		}
	}
	if t.Has(ColWaterSD) || t.Has(ColCarbonateSD) {
		if s.WaterSD, err = t.Floats(ColWaterSD); err != nil {
			return nil, err
		}
		if s.CarbonateSD, err = t.Floats(ColCarbonateSD); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Len returns the number of records.
func (s *Samples) Len() int { return len(s.Species) }

// HasUncertainty reports whether per-record standard deviations are loaded.
func (s *Samples) HasUncertainty() bool {
	return s.WaterSD != nil && s.CarbonateSD != nil
}

// Delta returns d18_O - d18_O_w per record.
func (s *Samples) Delta() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Carbonate[i] - s.Water[i]
	}
	return out
}

// SpeciesIndex returns the species labels in order of first appearance and a
// 1-based group index per record.
func (s *Samples) SpeciesIndex() ([]string, []int) {
	var labels []string
	seen := make(map[string]int)
	index := make([]int, s.Len())
	for i, sp := range s.Species {
		g, ok := seen[sp]
		if !ok {
			labels = append(labels, sp)
			g = len(labels)
			seen[sp] = g
		}
		index[i] = g
	}
	return labels, index
}

// Subset returns the records at rows, in the given order.
func (s *Samples) Subset(rows []int) *Samples {
	pick := func(src []float64) []float64 {
		if src == nil {
			return nil
		}
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = src[r]
		}
		return out
	}
	species := make([]string, len(rows))
	for i, r := range rows {
		species[i] = s.Species[r]
	}
	return &Samples{
		Species:     species,
		Water:       pick(s.Water),
		Carbonate:   pick(s.Carbonate),
		Temperature: pick(s.Temperature),
		WaterSD:     pick(s.WaterSD),
		CarbonateSD: pick(s.CarbonateSD),
	}
}

// BySpecies partitions the records by species. Groups come in order of first
// appearance, keep row order, and together cover every record exactly once.
func (s *Samples) BySpecies() []Group {
	labels, index := s.SpeciesIndex()
	rows := make([][]int, len(labels))
	for i, g := range index {
		rows[g-1] = append(rows[g-1], i)
	}
	groups := make([]Group, len(labels))
	for g, label := range labels {
		groups[g] = Group{Species: label, Rows: rows[g], Samples: s.Subset(rows[g])}
	}
	return groups
}

// Group returns the group for label, or false when absent.
func (s *Samples) Group(label string) (Group, bool) {
	for _, g := range s.BySpecies() {
		if g.Species == label {
			return g, true
		}
	}
	return Group{}, false
}
