package results

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/YuminosukeSato/isoflow/posterior"
)

// Print renders summary as a console table titled title.
func Print(w io.Writer, title string, summary *posterior.Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(title)

	header := table.Row{"parameter"}
	for _, st := range summary.Stats {
		header = append(header, st)
	}
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(summary.Stats))
	for i := range summary.Stats {
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	for _, r := range summary.Rows {
		row := table.Row{r.Parameter}
		for _, st := range summary.Stats {
			if v := r.Values[st]; st == posterior.StatCount && !math.IsNaN(v) {
				row = append(row, int(v))
				continue
			}
			row = append(row, formatCell(r.Values[st]))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}
