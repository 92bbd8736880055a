package payload

import (
	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/results"
)

// Parameter names read from upstream summaries.
const (
	ParamA = "a"
	ParamB = "b"
)

// PriorSource supplies hyperparameters carried over from earlier stages.
type PriorSource interface {
	// PooledMeans returns the posterior means of a and b of the pooled fit.
	PooledMeans() (aM, bM float64, err error)
	// SpeciesScales returns the posterior standard deviations of a and b of
	// the no-pooling fit of species.
	SpeciesScales(species string) (sigmaA, sigmaB float64, err error)
}

// StorePriors reads hyperparameters by name from persisted results: means
// from the pooled stage, standard deviations from the per-species stage.
// Missing files and parameters are errors; nothing is defaulted.
type StorePriors struct {
	Store        *results.Store
	PooledStage  model.Stage
	SpeciesStage model.Stage
}

// NewStorePriors reads a_m, b_m from Q2 and sigma_a, sigma_b from Q3_A.
func NewStorePriors(store *results.Store) *StorePriors {
	return &StorePriors{Store: store, PooledStage: model.Q2, SpeciesStage: model.Q3A}
}

// PooledMeans implements PriorSource.
func (p *StorePriors) PooledMeans() (float64, float64, error) {
	s, err := p.Store.Read(results.Key{Stage: string(p.PooledStage)})
	if err != nil {
		return 0, 0, err
	}
	aM, err := s.Mean(ParamA)
	if err != nil {
		return 0, 0, err
	}
	bM, err := s.Mean(ParamB)
	if err != nil {
		return 0, 0, err
	}
	return aM, bM, nil
}

// SpeciesScales implements PriorSource.
func (p *StorePriors) SpeciesScales(species string) (float64, float64, error) {
	s, err := p.Store.Read(results.Key{Stage: string(p.SpeciesStage), Species: species})
	if err != nil {
		return 0, 0, err
	}
	sigmaA, err := s.Std(ParamA)
	if err != nil {
		return 0, 0, err
	}
	sigmaB, err := s.Std(ParamB)
	if err != nil {
		return 0, 0, err
	}
	return sigmaA, sigmaB, nil
}
