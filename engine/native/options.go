package native

import (
	"github.com/YuminosukeSato/isoflow/pkg/log"
)

// Option configures an Engine
type Option func(*Engine)

// WithBurnIn sets the number of discarded Metropolis-Hastings steps per
// chain. Zero falls back to the Warmup of the sampling options.
func WithBurnIn(n int) Option {
	return func(e *Engine) {
		e.burnIn = n
	}
}

// WithThin keeps one of every n steps after burn-in
func WithThin(n int) Option {
	return func(e *Engine) {
		e.thin = n
	}
}

// WithProposalScale multiplies the proposal covariance
func WithProposalScale(s float64) Option {
	return func(e *Engine) {
		e.proposalScale = s
	}
}

// WithLogger sets the logger used for per-chain diagnostics
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}
