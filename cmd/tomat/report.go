package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arsetyo/tomat/internal/report"
)

var (
	reportGroupBy string
	reportFrom    string
	reportTo      string
	reportOut     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate the session log and render a chart",
	Long: `report reads the existing session log without starting a timer,
groups completed focus time by day, language or task, and renders a
terminal bar chart. Use --out to write the report to a file instead.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportGroupBy, "group-by", "g", "day", "grouping: day, language or task")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "start date (YYYY-MM-DD, inclusive)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "end date (YYYY-MM-DD, exclusive)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to a file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	groupBy, err := report.ParseGroupBy(reportGroupBy)
	if err != nil {
		return err
	}
	from, err := parseDate(reportFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseDate(reportTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	d, err := setup()
	if err != nil {
		return err
	}

	snap := report.Aggregate(d.log.Range(from, to))

	out := os.Stdout
	if reportOut != "" {
		f, err := os.Create(reportOut)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	renderer := report.BarChart{Width: 72, Height: 14}
	if err := report.Write(out, snap, groupBy, renderer); err != nil {
		return err
	}
	if reportOut != "" {
		fmt.Printf("report written to %s\n", reportOut)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}
