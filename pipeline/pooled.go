package pipeline

import (
	"context"

	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/posterior"
	"github.com/YuminosukeSato/isoflow/results"
)

// pooled fits one line to every species at once (Q1, Q2).
type pooled struct{ stageBase }

func (s *pooled) Units(data *dataset.Samples) ([]unit, error) {
	return []unit{{samples: data}}, nil
}

func (s *pooled) BuildPayload(u unit) (payload.Payload, error) {
	return payload.Pooled(u.samples), nil
}

// Summaries writes a, b, sigma and the per-species mean residuals.
func (s *pooled) Summaries(u unit, draws *posterior.Table, summary *posterior.Summary, logger log.Logger) ([]output, error) {
	resid := draws.Vector(paramResid)
	names := append(append([]string(nil), lineParams...), resid...)
	out, err := s.lineSummary(results.Key{Stage: s.stage()}, names, nil, summary, u.samples, logger)
	if err != nil {
		return nil, err
	}

	labels, _ := u.samples.SpeciesIndex()
	means, err := summary.Means(resid)
	if err != nil {
		return nil, err
	}
	for j, m := range means {
		if j < len(labels) {
			logger.Info("mean residual", log.SpeciesKey, labels[j], "resid", m)
		}
	}
	return []output{out}, nil
}

func (s *pooled) Render(_ context.Context, u unit, draws *posterior.Table) error {
	if err := s.renderFit("", u.samples, draws, paramA, paramB); err != nil {
		return err
	}
	if !s.program.Family.Replicate {
		return nil
	}

	names := draws.Vector(paramYNew)
	reps := make([][]float64, len(names))
	for i, n := range names {
		col, err := draws.Column(n)
		if err != nil {
			return err
		}
		reps[i] = col
	}
	lower, upper := -2.0, 50.0
	if b := s.program.Family.YBounds; b != nil {
		lower, upper = b.Lower, b.Upper
	}
	_, err := s.p.renderer.PredictiveCheck(s.stage(), u.samples.Delta(), reps, lower, upper)
	return err
}
