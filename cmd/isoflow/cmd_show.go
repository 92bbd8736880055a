package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/results"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <stage> [species]",
		Short: "Print a stored result file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.Lookup(args[0])
			if err != nil {
				return err
			}
			key := results.Key{Stage: string(p.Stage)}
			if len(args) == 2 {
				key.Species = args[1]
			}
			summary, err := results.NewStore(a.cfg.ResultsDir).Read(key)
			if err != nil {
				return err
			}
			results.Print(cmd.OutOrStdout(), key.String(), summary)
			return nil
		},
	}
}
