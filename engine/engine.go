// Package engine defines how a stage hands a program and its payload to a
// posterior sampler.
package engine

import (
	"context"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/posterior"
)

// Options are the sampling settings of one fit.
type Options struct {
	Chains int
	// Draws is the number of retained draws per chain.
	Draws  int
	Warmup int
	Seed   uint64
}

// Validate rejects non-positive chain or draw counts.
func (o Options) Validate() error {
	if o.Chains <= 0 {
		return errors.NewValidationError("chains", "must be positive", o.Chains)
	}
	if o.Draws <= 0 {
		return errors.NewValidationError("draws", "must be positive", o.Draws)
	}
	if o.Warmup < 0 {
		return errors.NewValidationError("warmup", "must not be negative", o.Warmup)
	}
	return nil
}

// Engine samples the posterior of program given data. Sample blocks until
// every chain has finished and returns the combined draw table.
type Engine interface {
	Name() string
	Sample(ctx context.Context, program model.Program, data payload.Payload, opts Options) (*posterior.Table, error)
}
