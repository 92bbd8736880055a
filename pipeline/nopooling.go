package pipeline

import (
	"context"

	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/posterior"
	"github.com/YuminosukeSato/isoflow/results"
)

// noPooling fits every species independently (Q3_A).
type noPooling struct{ stageBase }

func (s *noPooling) Units(data *dataset.Samples) ([]unit, error) {
	return s.speciesUnits(data), nil
}

func (s *noPooling) BuildPayload(u unit) (payload.Payload, error) {
	return payload.NoPooling(u.samples), nil
}

func (s *noPooling) Summaries(u unit, _ *posterior.Table, summary *posterior.Summary, logger log.Logger) ([]output, error) {
	out, err := s.lineSummary(results.Key{Stage: s.stage(), Species: u.species}, lineParams, nil, summary, u.samples, logger)
	if err != nil {
		return nil, err
	}
	return []output{out}, nil
}

func (s *noPooling) Render(_ context.Context, u unit, draws *posterior.Table) error {
	return s.renderFit(u.species, u.samples, draws, paramA, paramB)
}
