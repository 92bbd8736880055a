// Package cmdstan runs the stage programs with a local CmdStan installation.
//
// Each program is compiled once per distinct source text into
// <work_dir>/models. A fit writes the payload as JSON into a fresh run
// directory and launches one sampler process per chain, then reads the
// per-chain CSV files back into a posterior table.
package cmdstan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/core/parallel"
	"github.com/YuminosukeSato/isoflow/engine"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/pkg/log"
	"github.com/YuminosukeSato/isoflow/posterior"
)

// Name is the engine identifier used in configuration and logs.
const Name = "cmdstan"

// Engine implements engine.Engine on top of CmdStan.
type Engine struct {
	home    string
	workDir string
	runner  Runner
	logger  log.Logger

	// compileMu serialises make invocations; CmdStan's build tree is shared.
	compileMu sync.Mutex
}

var _ engine.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the os/exec runner.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine using the CmdStan installation at home and keeping
// compiled models and run directories under workDir.
func New(home, workDir string, opts ...Option) (*Engine, error) {
	if home == "" {
		return nil, errors.NewValidationError("cmdstan_home", "CmdStan installation path required", home)
	}
	if workDir == "" {
		return nil, errors.NewValidationError("work_dir", "must not be empty", workDir)
	}
	e := &Engine{home: home, workDir: workDir, runner: ExecRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLogger()
	}
	return e, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// Sample implements engine.Engine.
func (e *Engine) Sample(ctx context.Context, program model.Program, data payload.Payload, opts engine.Options) (*posterior.Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := data.Validate(program); err != nil {
		return nil, errors.Wrapf(err, "stage %s", program.Stage)
	}
	logger := e.logger.With(log.StageKey, string(program.Stage), log.EngineKey, Name)

	exe, err := e.compile(ctx, program)
	if err != nil {
		return nil, err
	}

	runDir, err := filepath.Abs(filepath.Join(e.workDir, "runs", fmt.Sprintf("%s-%s", program.Stage, uuid.NewString())))
	if err != nil {
		return nil, errors.Wrap(err, "resolve run directory")
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create run directory %s", runDir)
	}
	dataFile := filepath.Join(runDir, "data.json")
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	if err := os.WriteFile(dataFile, raw, 0o644); err != nil {
		return nil, errors.Wrapf(err, "write %s", dataFile)
	}

	logger.Debug("sampling",
		log.PathKey, runDir,
		log.ChainsKey, opts.Chains,
		log.DrawsKey, opts.Draws,
		log.WarmupKey, opts.Warmup,
		log.SeedKey, opts.Seed,
	)

	tables := make([]*posterior.Table, opts.Chains)
	divergent := make([]int, opts.Chains)
	err = parallel.Chains(ctx, opts.Chains, func(ctx context.Context, chain int) error {
		began := time.Now()
		output := filepath.Join(runDir, fmt.Sprintf("output_%d.csv", chain+1))
		args := []string{
			"sample",
			fmt.Sprintf("num_samples=%d", opts.Draws),
			fmt.Sprintf("num_warmup=%d", opts.Warmup),
			fmt.Sprintf("id=%d", chain+1),
			"data", "file=" + dataFile,
			"random", fmt.Sprintf("seed=%d", opts.Seed),
			"output", "file=" + output,
		}
		out, err := e.runner.Run(ctx, runDir, exe, args...)
		if err != nil {
			return errors.NewEngineError(Name, fmt.Sprintf("sample chain %d", chain+1), string(out), err)
		}
		t, div, err := ReadOutput(output, chain)
		if err != nil {
			return err
		}
		tables[chain], divergent[chain] = t, div
		logger.Debug("chain finished",
			log.ChainKey, chain,
			log.DivergKey, div,
			log.DurationMs, time.Since(began).Milliseconds(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := tables[0]
	total := divergent[0]
	for c := 1; c < len(tables); c++ {
		if err := out.Concat(tables[c]); err != nil {
			return nil, errors.Wrapf(err, "chain %d output", c+1)
		}
		total += divergent[c]
	}
	if total > 0 {
		w := errors.NewDivergenceWarning(string(program.Stage), total, out.Len())
		logger.Warn("divergent transitions", log.DivergKey, total, log.DrawsKey, out.Len())
		errors.Warn(w)
	}
	return out, nil
}

// compile builds the executable for program unless one for the same source
// already exists and returns its absolute path.
func (e *Engine) compile(ctx context.Context, program model.Program) (string, error) {
	sum := sha256.Sum256([]byte(program.Source))
	name := strings.ToLower(string(program.Stage))
	dir, err := filepath.Abs(filepath.Join(e.workDir, "models", name+"-"+hex.EncodeToString(sum[:6])))
	if err != nil {
		return "", errors.Wrap(err, "resolve model directory")
	}
	exe := filepath.Join(dir, name)
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}

	e.compileMu.Lock()
	defer e.compileMu.Unlock()

	if _, err := os.Stat(exe); err == nil {
		return exe, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create model directory %s", dir)
	}
	src := filepath.Join(dir, name+".stan")
	if err := os.WriteFile(src, []byte(program.Source), 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", src)
	}

	began := time.Now()
	out, err := e.runner.Run(ctx, e.home, "make", exe)
	if err != nil {
		return "", errors.NewEngineError(Name, "compile "+string(program.Stage), string(out), err)
	}
	if _, err := os.Stat(exe); err != nil {
		return "", errors.NewEngineError(Name, "compile "+string(program.Stage), string(out), err)
	}
	e.logger.Info("compiled model",
		log.StageKey, string(program.Stage),
		log.PathKey, exe,
		log.DurationMs, time.Since(began).Milliseconds(),
	)
	return exe, nil
}
