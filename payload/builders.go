package payload

import (
	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// NoPooling returns the raw per-species arrays.
func NoPooling(s *dataset.Samples) Payload {
	return Payload{
		FieldN:         s.Len(),
		FieldWater:     clone(s.Water),
		FieldCarbonate: clone(s.Carbonate),
		FieldY:         clone(s.Temperature),
	}
}

// Pooled returns the whole dataset plus J and the 1-based species index.
func Pooled(s *dataset.Samples) Payload {
	labels, index := s.SpeciesIndex()
	p := NoPooling(s)
	p[FieldJ] = len(labels)
	p[FieldSpecies] = index
	return p
}

// PartialPooling returns the pooled payload plus the pooled means a_m, b_m and
// the per-species scales sigma_a[J], sigma_b[J], in species index order.
func PartialPooling(s *dataset.Samples, src PriorSource) (Payload, error) {
	aM, bM, err := src.PooledMeans()
	if err != nil {
		return nil, err
	}
	labels, _ := s.SpeciesIndex()
	sigmaA := make([]float64, len(labels))
	sigmaB := make([]float64, len(labels))
	for j, sp := range labels {
		if sigmaA[j], sigmaB[j], err = src.SpeciesScales(sp); err != nil {
			return nil, err
		}
	}

	p := Pooled(s)
	p[FieldAM] = aM
	p[FieldBM] = bM
	p[FieldSigmaA] = sigmaA
	p[FieldSigmaB] = sigmaB
	return p, nil
}

// Predictive returns the payload of an extrapolation fit for one species:
// the species' observations, scalar priors from src, and the held-out inputs
// for which y_new is drawn. A nil heldOut uses the observed rows. With
// uncertain set the held-out standard deviations are included.
func Predictive(group *dataset.Samples, species string, heldOut *dataset.Samples, src PriorSource, uncertain bool) (Payload, error) {
	if heldOut == nil {
		heldOut = group
	}
	if uncertain && !heldOut.HasUncertainty() {
		return nil, errors.NewValidationError("held-out data", "measurement uncertainty columns required", species)
	}

	aM, bM, err := src.PooledMeans()
	if err != nil {
		return nil, err
	}
	sigmaA, sigmaB, err := src.SpeciesScales(species)
	if err != nil {
		return nil, err
	}

	p := NoPooling(group)
	p[FieldAM] = aM
	p[FieldBM] = bM
	p[FieldSigmaA] = sigmaA
	p[FieldSigmaB] = sigmaB
	p[FieldK] = heldOut.Len()
	p[FieldWaterNew] = clone(heldOut.Water)
	p[FieldCarbNew] = clone(heldOut.Carbonate)
	if uncertain {
		p[FieldWaterNewSD] = clone(heldOut.WaterSD)
		p[FieldCarbNewSD] = clone(heldOut.CarbonateSD)
	}
	return p, nil
}

func clone(x []float64) []float64 {
	return append(make([]float64, 0, len(x)), x...)
}
