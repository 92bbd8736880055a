// Package pipeline runs a stage end to end: load measurements, split them
// into units, build each unit's payload, sample, summarise, persist, print
// and plot.
//
// Every stage goes through the same loop in Run. What differs between stages
// (how data is split, which upstream results feed the priors, which rows are
// written and which figures are drawn) lives in a strategy selected by the
// program's pooling kind.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/dataset"
	"github.com/YuminosukeSato/isoflow/engine"
	"github.com/YuminosukeSato/isoflow/metrics"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/config"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/plotting"
	"github.com/YuminosukeSato/isoflow/posterior"
	"github.com/YuminosukeSato/isoflow/results"
)

// Pipeline runs stages against one configuration and one engine.
type Pipeline struct {
	cfg      *config.Config
	engine   engine.Engine
	store    *results.Store
	priors   payload.PriorSource
	renderer *plotting.Renderer
	out      io.Writer
	logger   log.Logger
	runID    string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithOutput sets where summaries are printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithoutPlots disables figure rendering.
func WithoutPlots() Option {
	return func(p *Pipeline) { p.renderer = nil }
}

// WithPriors replaces the result-file prior source.
func WithPriors(src payload.PriorSource) Option {
	return func(p *Pipeline) { p.priors = src }
}

// New returns a pipeline writing results below cfg.ResultsDir and figures
// below cfg.PlotsDir.
func New(cfg *config.Config, eng engine.Engine, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eng == nil {
		return nil, errors.NewValidationError("engine", "must not be nil", nil)
	}
	store := results.NewStore(cfg.ResultsDir)
	p := &Pipeline{
		cfg:      cfg,
		engine:   eng,
		store:    store,
		priors:   payload.NewStorePriors(store),
		renderer: plotting.NewRenderer(cfg.PlotsDir),
		out:      os.Stdout,
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLogger()
	}
	p.logger = p.logger.With(log.RunIDKey, p.runID, log.EngineKey, eng.Name())
	return p, nil
}

// RunID identifies this pipeline in logs.
func (p *Pipeline) RunID() string { return p.runID }

// Store returns the result store the pipeline writes to.
func (p *Pipeline) Store() *results.Store { return p.store }

// RunAll runs stages in order and stops at the first failure.
func (p *Pipeline) RunAll(ctx context.Context, stages ...model.Stage) error {
	for _, stage := range stages {
		if err := p.Run(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}

// Run executes one stage.
func (p *Pipeline) Run(ctx context.Context, stage model.Stage) error {
	program, err := model.Lookup(string(stage))
	if err != nil {
		return err
	}
	logger := p.logger.With(log.StageKey, string(program.Stage))
	began := time.Now()

	samples, err := dataset.Load(p.cfg.DataPath, program.Uncertain())
	if err != nil {
		return errors.Wrapf(err, "stage %s: load data", program.Stage)
	}
	logger.Info("loaded data",
		log.PathKey, p.cfg.DataPath,
		log.SamplesKey, samples.Len(),
		log.ColumnsKey, program.Columns,
	)

	strat, err := p.strategy(program)
	if err != nil {
		return err
	}
	units, err := strat.Units(samples)
	if err != nil {
		return errors.Wrapf(err, "stage %s", program.Stage)
	}

	opts := p.options(program)
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runUnit(ctx, program, strat, u, opts, logger.With(log.SpeciesKey, u.species)); err != nil {
			if u.species != "" {
				return errors.Wrapf(err, "stage %s: species %s", program.Stage, u.species)
			}
			return errors.Wrapf(err, "stage %s", program.Stage)
		}
	}

	logger.Info("stage finished", log.DurationMs, time.Since(began).Milliseconds())
	return nil
}

func (p *Pipeline) runUnit(ctx context.Context, program model.Program, strat strategy, u unit, opts engine.Options, logger log.Logger) error {
	data, err := strat.BuildPayload(u)
	if err != nil {
		return err
	}

	began := time.Now()
	logger.Info("sampling",
		log.SamplesKey, u.samples.Len(),
		log.ChainsKey, opts.Chains,
		log.DrawsKey, opts.Draws,
		log.SeedKey, opts.Seed,
	)
	draws, err := p.engine.Sample(ctx, program, data, opts)
	if err != nil {
		return err
	}
	logger.Debug("sampled", log.DurationMs, time.Since(began).Milliseconds())

	summary, err := posterior.Describe(draws)
	if err != nil {
		return err
	}
	p.checkConvergence(program.Stage, summary, logger)

	outs, err := strat.Summaries(u, draws, summary, logger)
	if err != nil {
		return err
	}
	for _, o := range outs {
		path, err := p.store.Write(o.key, o.summary, o.columns...)
		if err != nil {
			return err
		}
		logger.Info("wrote results", log.PathKey, path)
		results.Print(p.out, o.key.String(), o.summary)
	}

	if p.renderer == nil {
		return nil
	}
	return strat.Render(ctx, u, draws)
}

// options returns the sampling settings of program under the configuration.
func (p *Pipeline) options(program model.Program) engine.Options {
	return engine.Options{
		Chains: p.cfg.Chains,
		Draws:  p.cfg.DrawsFor(program.DefaultDraws),
		Warmup: p.cfg.Warmup,
		Seed:   p.cfg.Seed,
	}
}

// checkConvergence は R-hat がしきい値を超えたパラメータごとに警告を出す
func (p *Pipeline) checkConvergence(stage model.Stage, summary *posterior.Summary, logger log.Logger) {
	for i := 0; i < summary.Len(); i++ {
		row, _ := summary.Row(i)
		rhat := row.Values[posterior.StatRHat]
		if math.IsNaN(rhat) {
			continue
		}
		logger.Debug("r_hat", log.ParamKey, row.Parameter, log.RHatKey, rhat)
		if rhat > posterior.RHatThreshold {
			logger.Warn("chains have not mixed", log.ParamKey, row.Parameter, log.RHatKey, rhat)
			errors.Warn(errors.NewConvergenceWarning(string(stage), row.Parameter, rhat, posterior.RHatThreshold))
		}
	}
}

// logFit は事後平均の直線の当てはまりを記録する
func logFit(logger log.Logger, a, b float64, s *dataset.Samples) {
	fit, err := metrics.LineFit(a, b, s.Delta(), s.Temperature)
	if err != nil {
		logger.Debug("fit metrics unavailable", log.ErrAttrKey, err)
		return
	}
	logger.Info("posterior mean line",
		"a", a,
		"b", b,
		log.RMSEKey, fit.RMSE,
		log.R2Key, fit.R2,
	)
}

func (p *Pipeline) strategy(program model.Program) (strategy, error) {
	base := stageBase{p: p, program: program}
	switch program.Kind {
	case model.Pooled:
		return &pooled{base}, nil
	case model.NoPooling:
		return &noPooling{base}, nil
	case model.PartialPooling:
		return &partialPooling{base}, nil
	case model.Predictive:
		return &predictive{stageBase: base}, nil
	default:
		return nil, errors.NewValueError("pipeline.strategy", fmt.Sprintf("no strategy for %s", program.Kind))
	}
}
