package main

import (
	"github.com/YuminosukeSato/isoflow/engine"
	"github.com/YuminosukeSato/isoflow/engine/cmdstan"
	"github.com/YuminosukeSato/isoflow/engine/native"
	"github.com/YuminosukeSato/isoflow/pkg/config"
	"github.com/YuminosukeSato/isoflow/pkg/log"
)

// newEngine picks the sampler named by cfg.Engine. auto uses CmdStan when a
// CmdStan home is configured and the native sampler otherwise.
func newEngine(cfg *config.Config, logger log.Logger) (engine.Engine, error) {
	name := cfg.Engine
	if name == config.EngineAuto {
		name = config.EngineNative
		if cfg.CmdStanHome != "" {
			name = config.EngineCmdStan
		}
	}

	if name == config.EngineCmdStan {
		eng, err := cmdstan.New(cfg.CmdStanHome, cfg.WorkDir, cmdstan.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return eng, nil
	}
	return native.New(
		native.WithBurnIn(cfg.BurnIn),
		native.WithThin(cfg.Thin),
		native.WithLogger(logger),
	), nil
}
