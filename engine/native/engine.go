// Package native samples the isotope regression programs in-process with a
// random-walk Metropolis-Hastings sampler from gonum.
//
// The programs share one likelihood, y ~ Normal(a + b*(d18_O_c - d18_O_w),
// sigma), and differ in pooling, priors and generated quantities. Those
// differences are read from model.Family rather than from the Stan text, so
// this engine needs no external toolchain. Draws from the same seed are
// reproducible: chain c uses a PCG stream seeded with (seed, c).
package native

import (
	"context"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/core/parallel"
	"github.com/YuminosukeSato/isoflow/engine"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/posterior"
)

// Name is the engine identifier used in configuration and logs.
const Name = "native"

// Engine implements engine.Engine.
type Engine struct {
	burnIn        int
	thin          int
	proposalScale float64
	logger        log.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine that keeps every step after burn-in unless WithThin
// says otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{thin: 1, proposalScale: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLogger()
	}
	return e
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

func (e *Engine) settings(opts engine.Options) (settings, error) {
	cfg := settings{
		draws:  opts.Draws,
		burnIn: e.burnIn,
		thin:   e.thin,
		scale:  e.proposalScale,
	}
	if cfg.burnIn == 0 {
		cfg.burnIn = opts.Warmup
	}
	if cfg.thin < 1 {
		return settings{}, errors.NewValidationError("thin", "must be at least 1", cfg.thin)
	}
	if cfg.burnIn < 0 {
		return settings{}, errors.NewValidationError("burn_in", "must not be negative", cfg.burnIn)
	}
	if cfg.scale <= 0 {
		return settings{}, errors.NewValidationError("proposal_scale", "must be positive", cfg.scale)
	}
	return cfg, nil
}

// Sample implements engine.Engine. Chains run concurrently; rows of the
// returned table are ordered by chain id.
func (e *Engine) Sample(ctx context.Context, program model.Program, data payload.Payload, opts engine.Options) (*posterior.Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cfg, err := e.settings(opts)
	if err != nil {
		return nil, err
	}
	p, err := newProblem(program, data)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", program.Stage)
	}

	logger := e.logger.With(log.StageKey, string(program.Stage), log.EngineKey, Name)
	logger.Debug("sampling",
		log.ChainsKey, opts.Chains,
		log.DrawsKey, opts.Draws,
		log.WarmupKey, cfg.burnIn,
		log.SeedKey, opts.Seed,
	)

	columns := p.columns()
	tables := make([]*posterior.Table, opts.Chains)
	err = parallel.Chains(ctx, opts.Chains, func(ctx context.Context, chain int) error {
		began := time.Now()
		src := rand.NewPCG(opts.Seed, uint64(chain))
		t, rate, err := p.chain(ctx, chain, cfg, columns, src)
		if err != nil {
			return errors.Wrapf(err, "chain %d", chain)
		}
		tables[chain] = t
		logger.Debug("chain finished",
			log.ChainKey, chain,
			log.AcceptKey, rate,
			log.DurationMs, time.Since(began).Milliseconds(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := posterior.NewTable(columns...)
	for _, t := range tables {
		if err := out.Concat(t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// chain は1本のチェーンを回し、生成量を含めた表を返す
func (p *problem) chain(ctx context.Context, chain int, cfg settings, columns []string, src rand.Source) (*posterior.Table, float64, error) {
	fits := make([]*mat.Dense, len(p.lines))
	var rate float64
	for g, l := range p.lines {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		draws, r, err := l.sample(cfg, src)
		if err != nil {
			if p.family.Grouped {
				return nil, 0, errors.Wrapf(err, "species %d", g+1)
			}
			return nil, 0, err
		}
		fits[g] = draws
		rate += r
	}
	rate /= float64(len(p.lines))

	t := posterior.NewTable(columns...)
	row := make([]float64, 0, len(columns))
	for i := 0; i < cfg.draws; i++ {
		row = row[:0]
		if p.family.Grouped {
			for k := 0; k < 3; k++ {
				for _, f := range fits {
					row = append(row, f.At(i, k))
				}
			}
		} else {
			a, b, sigma := fits[0].At(i, 0), fits[0].At(i, 1), fits[0].At(i, 2)
			row = append(row, a, b, sigma)
			row = p.generate(row, a, b, sigma, src)
		}
		if err := t.Append(chain, row); err != nil {
			return nil, 0, err
		}
	}
	return t, rate, nil
}

// generate appends the generated quantities of one draw in column order.
func (p *problem) generate(row []float64, a, b, sigma float64, src rand.Source) []float64 {
	fam := p.family
	switch {
	case fam.Latent:
		carb := make([]float64, p.k)
		water := make([]float64, p.k)
		for k := 0; k < p.k; k++ {
			carb[k] = distuv.Normal{Mu: p.carbNew[k], Sigma: p.carbNewSD[k], Src: src}.Rand()
			water[k] = distuv.Normal{Mu: p.waterNew[k], Sigma: p.waterNewSD[k], Src: src}.Rand()
		}
		row = append(row, carb...)
		row = append(row, water...)
		for k := 0; k < p.k; k++ {
			row = append(row, distuv.Normal{Mu: a + b*(carb[k]-water[k]), Sigma: sigma, Src: src}.Rand())
		}
	case fam.Predict:
		for k := 0; k < p.k; k++ {
			row = append(row, distuv.Normal{Mu: a + b*(p.carbNew[k]-p.waterNew[k]), Sigma: sigma, Src: src}.Rand())
		}
	case fam.Replicate:
		for _, x := range p.x {
			row = append(row, distuv.Normal{Mu: a + b*x, Sigma: sigma, Src: src}.Rand())
		}
	}

	if fam.Residuals {
		sum := make([]float64, p.groups)
		n := make([]float64, p.groups)
		for i, s := range p.species {
			sum[s-1] += p.y[i] - (a + b*p.x[i])
			n[s-1]++
		}
		for j := range sum {
			// 観測のない種は Stan と同じく 0/0 = NaN になる
			row = append(row, sum[j]/n[j])
		}
	}
	return row
}
