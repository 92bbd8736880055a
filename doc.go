// Package isoflow calibrates oxygen-isotope paleothermometers with Bayesian
// linear regression.
//
// Every stage fits
//
//	temperature ~ Normal(a + b * (d18_O_c - d18_O_w), sigma)
//
// to a table of measurements, and later stages reuse the posterior summaries of
// earlier ones as priors:
//
//   - Q1, Q2: complete pooling across species (Q2 adds bounds and a posterior
//     predictive check)
//   - Q3_A: no pooling, one fit per species
//   - Q3_B: partial pooling toward the pooled fit, scaled by the Q3_A spreads
//   - Q4_A: temperature predictions for new isotope pairs
//   - Q4_B: the same under measurement error in the inputs
//
// # Quick Start
//
// Write a measurement CSV with the columns d18_O_w, d18_O, temperature and
// species (plus d18_O_w_sd and d18_O_sd for Q4_B) and run the stages in order:
//
//	isoflow run all --data data/merged_data.csv
//	isoflow show Q3_A bivalve
//
// From Go:
//
//	cfg := config.DefaultConfig()
//	p, err := pipeline.New(cfg, native.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.RunAll(ctx, model.Stages()...); err != nil {
//	    log.Fatal(err)
//	}
//
// # Packages
//
//   - core/model: Stan programs and the stage registry
//   - core/parallel: chain fan-out
//   - dataset: CSV loading and species grouping
//   - payload: engine inputs and priors carried over from earlier stages
//   - engine/native: random-walk Metropolis sampler on gonum
//   - engine/cmdstan: compiles and runs the Stan programs with CmdStan
//   - posterior: draw tables, summaries and split R-hat
//   - results: result files and console tables
//   - plotting: data, fit and prediction figures
//   - linear, metrics: least-squares starting points and fit quality
//   - pipeline: runs a stage end to end
//   - pkg/config, pkg/errors, pkg/log: configuration, error types and logging
//
// # Engines
//
// The CmdStan engine runs the embedded Stan programs unchanged and is used
// whenever a CmdStan installation is configured (cmdstan_home or CMDSTAN).
// The native engine needs nothing outside Go; it samples the same posteriors
// with Metropolis-Hastings and draws generated quantities exactly.
package isoflow
