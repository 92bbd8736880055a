package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/isoflow/core/model"
)

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the stages in pipeline order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"stage", "pooling", "draws", "reads", "description"})
			for _, stage := range model.Stages() {
				p, err := model.Lookup(string(stage))
				if err != nil {
					return err
				}
				upstream := make([]string, len(p.Upstream))
				for i, u := range p.Upstream {
					upstream[i] = string(u)
				}
				tw.AppendRow(table.Row{p.Stage, p.Kind, p.DefaultDraws, strings.Join(upstream, ", "), p.Description})
			}
			tw.Render()
			return nil
		},
	}
}

func newModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model <stage>",
		Short: "Print the Stan program of a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.Lookup(args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(p.Source))
			return err
		},
	}
}
