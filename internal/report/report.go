package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Write renders a full report for one grouping: chart, summary table
// and a warning line when rows were skipped. An empty snapshot produces
// an explicit no-data report, never a garbled chart.
func Write(w io.Writer, snap Snapshot, g GroupBy, renderer ChartRenderer) error {
	series := snap.Series(g)

	chart, err := renderer.Render(fmt.Sprintf("Completed focus time by %s", g), series)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChart, err)
	}
	fmt.Fprintln(w, chart)

	if len(series) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %-32s %10s\n", capitalize(g.String()), "Focus")
		fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 43))
		for _, p := range series {
			fmt.Fprintf(w, "  %-32s %9.1fh\n", p.Label, p.Value)
		}
		fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 43))
		fmt.Fprintf(w, "  %-32s %10s\n", "Total", formatHours(snap.Total()))
		fmt.Fprintf(w, "  %d completed focus intervals, %d cancelled\n", snap.Focus, snap.Attempted)
	}

	if snap.Warnings > 0 {
		fmt.Fprintf(w, "\nwarning: %d unreadable rows skipped\n", snap.Warnings)
	}
	return nil
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
