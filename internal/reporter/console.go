package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sql-lineage/internal/model"
)

type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter prints the run summary to w, usually the command's stdout.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) Report(stats model.RunStats) error {
	fmt.Fprintf(r.out, "Scanned %d files, %d statements (%d skipped), %d declared relations drawn.\n",
		stats.Files, stats.Statements, stats.Skipped, stats.Relations)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Records"})
	for _, q := range model.DisplayedQueryTypes {
		t.AppendRow(table.Row{q.String(), stats.RecordsByType[q]})
	}
	t.Render()
	fmt.Fprintf(r.out, "Graph: %d nodes / %d edges\n", stats.Nodes, stats.Edges)

	if len(stats.Unparsable) == 0 {
		fmt.Fprintln(r.out, color.GreenString("✔ Every statement was parsed."))
	} else {
		u := table.NewWriter()
		u.SetOutputMirror(r.out)
		u.SetStyle(table.StyleLight)
		u.AppendHeader(table.Row{"Location", "Statement"})
		for _, e := range stats.Unparsable {
			u.AppendRow(table.Row{e.Location.String(), truncate(e.SQL, 80)})
		}
		u.Render()
		fmt.Fprintf(r.out, "%s %d statements could not be parsed.\n", color.YellowString("!"), len(stats.Unparsable))
	}

	if stats.DiagramPath != "" {
		fmt.Fprintf(r.out, "Diagram: %s\n", color.CyanString(stats.DiagramPath))
	}
	if stats.ReportPath != "" {
		fmt.Fprintf(r.out, "Unparsable report: %s\n", color.CyanString(stats.ReportPath))
	}
	return nil
}

// truncate flattens s onto one line and cuts it to max display columns
// without splitting a rune.
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if text.RuneWidthWithoutEscSequences(s) > max {
		return text.Trim(s, max) + "..."
	}
	return s
}
