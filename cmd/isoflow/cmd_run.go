package main

import (
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/pipeline"
)

type runFlags struct {
	engine  string
	data    string
	holdout string
	chains  int
	draws   int
	seed    uint64
	noPlots bool
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <stage...>|all",
		Short: "Fit stages in the given order",
		Long: "Fit each stage in order, writing results and figures. Later stages read\n" +
			"the results of earlier ones, so run Q2 and Q3_A before Q3_B and Q4.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.engine, "engine", "", "auto, native or cmdstan (overrides engine)")
	f.StringVar(&flags.data, "data", "", "measurement CSV (overrides data_path)")
	f.StringVar(&flags.holdout, "holdout", "", "isotope pairs to predict in Q4 (overrides holdout_path)")
	f.IntVar(&flags.chains, "chains", 0, "number of chains (overrides chains)")
	f.IntVar(&flags.draws, "draws", 0, "draws per chain (overrides the stage default)")
	f.Uint64Var(&flags.seed, "seed", 0, "random seed (overrides seed)")
	f.BoolVar(&flags.noPlots, "no-plots", false, "skip figures")
	return cmd
}

// stagesFrom resolves the positional arguments; "all" expands to every stage.
func stagesFrom(args []string) ([]model.Stage, error) {
	var stages []model.Stage
	for _, arg := range args {
		if strings.EqualFold(arg, "all") {
			stages = append(stages, model.Stages()...)
			continue
		}
		p, err := model.Lookup(arg)
		if err != nil {
			return nil, err
		}
		stages = append(stages, p.Stage)
	}
	return stages, nil
}

func (a *app) run(cmd *cobra.Command, args []string, flags runFlags) error {
	stages, err := stagesFrom(args)
	if err != nil {
		return err
	}

	cfg := a.cfg
	if flags.engine != "" {
		cfg.Engine = flags.engine
	}
	if flags.data != "" {
		cfg.DataPath = flags.data
	}
	if flags.holdout != "" {
		cfg.HoldoutPath = flags.holdout
	}
	if flags.chains > 0 {
		cfg.Chains = flags.chains
	}
	if flags.draws > 0 {
		cfg.Draws = flags.draws
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = flags.seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	eng, err := newEngine(cfg, a.logger)
	if err != nil {
		return err
	}
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithOutput(cmd.OutOrStdout()),
	}
	if flags.noPlots {
		opts = append(opts, pipeline.WithoutPlots())
	}
	p, err := pipeline.New(cfg, eng, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return p.RunAll(ctx, stages...)
}
