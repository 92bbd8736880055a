package pipeline

import (
	"context"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/plotting"
	"github.com/YuminosukeSato/isoflow/posterior"
	"github.com/YuminosukeSato/isoflow/results"
)

// Posterior quantities read by the strategies.
const (
	paramA     = "a"
	paramB     = "b"
	paramSigma = "sigma"
	paramResid = "resid"
	paramYNew  = "y_new"
)

var lineParams = []string{paramA, paramB, paramSigma}

// unit is one engine call: the whole dataset for pooled stages, one species
// otherwise.
type unit struct {
	// species is empty for units spanning every species.
	species string
	samples *dataset.Samples
	// heldOut holds the inputs predicted by predictive stages.
	heldOut *dataset.Samples
}

// output is one result file produced from a unit.
type output struct {
	key     results.Key
	summary *posterior.Summary
	columns []string
}

// strategy holds what differs between pooling kinds.
type strategy interface {
	Units(s *dataset.Samples) ([]unit, error)
	BuildPayload(u unit) (payload.Payload, error)
	Summaries(u unit, draws *posterior.Table, summary *posterior.Summary, logger log.Logger) ([]output, error)
	Render(ctx context.Context, u unit, draws *posterior.Table) error
}

type stageBase struct {
	p       *Pipeline
	program model.Program
}

func (b stageBase) stage() string { return string(b.program.Stage) }

func (b stageBase) speciesUnits(s *dataset.Samples) []unit {
	groups := s.BySpecies()
	units := make([]unit, len(groups))
	for i, g := range groups {
		units[i] = unit{species: g.Species, samples: g.Samples}
	}
	return units
}

// lineSummary selects names, renamed by rename when non-nil, and logs the fit
// of the posterior-mean line. The selection must contain a and b after
// renaming.
func (b stageBase) lineSummary(key results.Key, names []string, rename func(string) string, summary *posterior.Summary, s *dataset.Samples, logger log.Logger) (output, error) {
	sel, err := summary.Select(names, rename)
	if err != nil {
		return output{}, err
	}
	means, err := sel.Means([]string{paramA, paramB})
	if err != nil {
		return output{}, err
	}
	logFit(logger, means[0], means[1], s)
	return output{key: key, summary: sel}, nil
}

func cloud(draws *posterior.Table, label, aCol, bCol string) (plotting.Cloud, error) {
	a, err := draws.Column(aCol)
	if err != nil {
		return plotting.Cloud{}, err
	}
	b, err := draws.Column(bCol)
	if err != nil {
		return plotting.Cloud{}, err
	}
	return plotting.Cloud{Label: label, A: a, B: b}, nil
}

// renderFit draws the data and the fit cloud of columns aCol, bCol.
func (b stageBase) renderFit(species string, s *dataset.Samples, draws *posterior.Table, aCol, bCol string) error {
	r := b.p.renderer
	x := s.Delta()
	if _, err := r.Data(b.stage(), species, x, s.Temperature); err != nil {
		return err
	}
	c, err := cloud(draws, "", aCol, bCol)
	if err != nil {
		return err
	}
	_, err = r.Fit(b.stage(), species, x, s.Temperature, c)
	return err
}
