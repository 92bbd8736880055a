package pipeline

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/plotting"
	"github.com/YuminosukeSato/isoflow/posterior"
	"github.com/YuminosukeSato/isoflow/results"
)

// predictive extrapolates temperatures for new isotope pairs per species
// (Q4_A, Q4_B). The new pairs are the species' own rows unless a holdout file
// is configured.
type predictive struct {
	stageBase
}

// compareWith は測定誤差ありのモデルの予測図に重ねるステージ
const compareWith = model.Q4A

func (s *predictive) Units(data *dataset.Samples) ([]unit, error) {
	units := s.speciesUnits(data)
	path := s.p.cfg.HoldoutPath
	if path == "" {
		for i := range units {
			units[i].heldOut = units[i].samples
		}
		return units, nil
	}

	held, err := dataset.LoadInputs(path, s.program.Uncertain())
	if err != nil {
		return nil, errors.Wrap(err, "load holdout")
	}
	kept := units[:0]
	for _, u := range units {
		g, ok := held.Group(u.species)
		if !ok {
			s.p.logger.Warn("no holdout rows for species, skipped",
				log.StageKey, s.stage(),
				log.SpeciesKey, u.species,
				log.PathKey, path,
			)
			continue
		}
		u.heldOut = g.Samples
		kept = append(kept, u)
	}
	if len(kept) == 0 {
		return nil, errors.NewValueError("pipeline.predictive", "holdout "+path+" shares no species with the data")
	}
	return kept, nil
}

func (s *predictive) BuildPayload(u unit) (payload.Payload, error) {
	return payload.Predictive(u.samples, u.species, u.heldOut, s.p.priors, s.program.Uncertain())
}

// Summaries writes mean and std of every predicted temperature.
func (s *predictive) Summaries(u unit, draws *posterior.Table, summary *posterior.Summary, logger log.Logger) ([]output, error) {
	means, err := summary.Means([]string{paramA, paramB})
	if err != nil {
		return nil, err
	}
	logFit(logger, means[0], means[1], u.samples)

	sel, err := summary.Select(draws.Vector(paramYNew), nil)
	if err != nil {
		return nil, err
	}
	return []output{{
		key:     results.Key{Stage: s.stage(), Species: u.species},
		summary: sel,
		columns: []string{posterior.StatMean, posterior.StatStd},
	}}, nil
}

func (s *predictive) Render(_ context.Context, u unit, draws *posterior.Table) error {
	x := u.samples.Delta()
	if _, err := s.p.renderer.Data(s.stage(), u.species, x, u.samples.Temperature); err != nil {
		return err
	}

	names := draws.Vector(paramYNew)
	pred := plotting.Prediction{
		Label: s.stage(),
		X:     u.heldOut.Delta(),
		Mean:  make([]float64, len(names)),
		Std:   make([]float64, len(names)),
	}
	for k, n := range names {
		col, err := draws.Column(n)
		if err != nil {
			return err
		}
		pred.Mean[k], pred.Std[k] = stat.MeanStdDev(col, nil)
	}
	preds := []plotting.Prediction{pred}

	if s.program.Family.Latent {
		other, err := s.earlier(u, len(names))
		if err != nil {
			return err
		}
		preds = append(preds, other)
	}
	_, err := s.p.renderer.Predictions(s.stage(), u.species, x, u.samples.Temperature, preds...)
	return err
}

// earlier reads the predictions of the stage without measurement error for
// the same inputs.
func (s *predictive) earlier(u unit, k int) (plotting.Prediction, error) {
	prev, err := s.p.store.Read(results.Key{Stage: string(compareWith), Species: u.species})
	if err != nil {
		return plotting.Prediction{}, err
	}
	if prev.Len() != k {
		return plotting.Prediction{}, errors.NewDimensionError("pipeline.predictive", string(compareWith)+" predictions", k, prev.Len())
	}
	pred := plotting.Prediction{
		Label: string(compareWith),
		X:     u.heldOut.Delta(),
		Mean:  make([]float64, k),
		Std:   make([]float64, k),
	}
	for i := 1; i <= k; i++ {
		name := posterior.Element(paramYNew, i)
		if pred.Mean[i-1], err = prev.Mean(name); err != nil {
			return plotting.Prediction{}, err
		}
		if pred.Std[i-1], err = prev.Std(name); err != nil {
			return plotting.Prediction{}, err
		}
	}
	return pred, nil
}
