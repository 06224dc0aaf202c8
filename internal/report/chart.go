package report

import (
	"errors"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

// ErrChart wraps chart backend failures. A chart failure is surfaced to
// the user but never touches the session log.
var ErrChart = errors.New("chart backend failure")

// ChartRenderer is the capability a visualizer needs: given a labelled
// series, produce a rendered chart. Backends are interchangeable and
// aggregation never depends on one.
type ChartRenderer interface {
	Render(title string, series []SeriesPoint) (string, error)
}

var barPalette = []lipgloss.Color{
	"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12",
	"#2ECC71", "#9B59B6", "#3498DB", "#E74C3C",
}

// BarChart renders a series as a terminal bar chart.
type BarChart struct {
	Width  int
	Height int
}

// Render draws one bar per series point. An empty series yields an
// explicit no-data line rather than an empty chart.
func (b BarChart) Render(title string, series []SeriesPoint) (string, error) {
	if len(series) == 0 {
		return "no data to display", nil
	}

	w, h := b.Width, b.Height
	if w <= 0 {
		w = 60
	}
	if h <= 0 {
		h = 12
	}

	chart := barchart.New(w, h)
	var bars []barchart.BarData
	for i, p := range series {
		style := lipgloss.NewStyle().Foreground(barPalette[i%len(barPalette)])
		bars = append(bars, barchart.BarData{
			Label: p.Label,
			Values: []barchart.BarValue{
				{Name: p.Label, Value: p.Value, Style: style},
			},
		})
	}
	chart.PushAll(bars)
	chart.Draw()

	out := chart.View()
	if title != "" {
		out = title + "\n" + out
	}
	return out, nil
}
