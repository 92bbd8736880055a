package pipeline

import (
	"context"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/posterior"
	"github.com/YuminosukeSato/isoflow/results"
)

// partialPooling fits every species jointly, each species' line shrunk
// toward the pooled fit (Q3_B). The draws carry a[J], b[J], sigma[J]; results
// are split into one file per species.
type partialPooling struct{ stageBase }

func (s *partialPooling) Units(data *dataset.Samples) ([]unit, error) {
	return []unit{{samples: data}}, nil
}

func (s *partialPooling) BuildPayload(u unit) (payload.Payload, error) {
	return payload.PartialPooling(u.samples, s.p.priors)
}

func speciesParams(j int) []string {
	names := make([]string, len(lineParams))
	for i, p := range lineParams {
		names[i] = posterior.Element(p, j)
	}
	return names
}

func (s *partialPooling) Summaries(u unit, _ *posterior.Table, summary *posterior.Summary, logger log.Logger) ([]output, error) {
	groups := u.samples.BySpecies()
	outs := make([]output, 0, len(groups))
	for j, g := range groups {
		out, err := s.lineSummary(
			results.Key{Stage: s.stage(), Species: g.Species},
			speciesParams(j+1), posterior.Base,
			summary, g.Samples, logger.With(log.SpeciesKey, g.Species),
		)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Render re-fits the no-pooling model per species and overlays both fits.
func (s *partialPooling) Render(ctx context.Context, u unit, draws *posterior.Table) error {
	separate, err := model.Lookup(string(model.Q3A))
	if err != nil {
		return err
	}
	opts := s.p.options(separate)

	for j, g := range u.samples.BySpecies() {
		x := g.Delta()
		if _, err := s.p.renderer.Data(s.stage(), g.Species, x, g.Temperature); err != nil {
			return err
		}

		own, err := s.p.engine.Sample(ctx, separate, payload.NoPooling(g.Samples), opts)
		if err != nil {
			return err
		}
		first, err := cloud(own, "no pooling", paramA, paramB)
		if err != nil {
			return err
		}
		names := speciesParams(j + 1)
		second, err := cloud(draws, "partial pooling", names[0], names[1])
		if err != nil {
			return err
		}
		if _, err := s.p.renderer.CompareFits(s.stage(), g.Species, x, g.Temperature, first, second); err != nil {
			return err
		}
	}
	return nil
}
