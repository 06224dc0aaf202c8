package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arsetyo/tomat/internal/report"
	"github.com/arsetyo/tomat/internal/session"
)

// reportModel aggregates the session log on demand and renders the
// chart in-terminal. Aggregation runs in a tea.Cmd so a slow disk never
// stalls the render loop.
type reportModel struct {
	log    *session.Log
	width  int
	height int

	groupBy  report.GroupBy
	offset   int // 7-day blocks back from today, day grouping only
	snapshot report.Snapshot
	rendered string
}

func newReportModel(log *session.Log) reportModel {
	return reportModel{log: log}
}

func (r *reportModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r reportModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-7*r.offset)
	return end.AddDate(0, 0, -7), end
}

func (r reportModel) refresh() tea.Cmd {
	groupBy := r.groupBy
	width := r.width
	log := r.log

	var from, to time.Time
	if groupBy == report.ByDay {
		from, to = r.dateRange()
	}

	return func() tea.Msg {
		snap := report.Aggregate(log.Range(from, to))

		chartWidth := width - 10
		if chartWidth < 20 {
			chartWidth = 20
		}
		renderer := report.BarChart{Width: chartWidth, Height: 12}
		rendered, err := renderer.Render("", snap.Series(groupBy))
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Chart error: %v", err), isError: true}
		}
		return reportDataMsg{snapshot: snap, rendered: rendered}
	}
}

func (r reportModel) update(msg tea.Msg) (reportModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportDataMsg:
		r.snapshot = msg.snapshot
		r.rendered = msg.rendered
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.GroupBy):
			r.groupBy = (r.groupBy + 1) % 3
			r.offset = 0
			return r, r.refresh()
		case key.Matches(msg, keys.Left):
			if r.groupBy == report.ByDay {
				r.offset++
				return r, r.refresh()
			}
		case key.Matches(msg, keys.Right):
			if r.groupBy == report.ByDay && r.offset > 0 {
				r.offset--
				return r, r.refresh()
			}
		}
	}
	return r, nil
}

func (r reportModel) view() string {
	w := r.width - 4
	if w < 20 {
		w = 20
	}

	var tabs []string
	for g := report.ByDay; g <= report.ByTask; g++ {
		if g == r.groupBy {
			tabs = append(tabs, activeTabStyle.Render(g.String()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(g.String()))
		}
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Report"), "  ",
		lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
	)
	if r.groupBy == report.ByDay {
		from, to := r.dateRange()
		header = lipgloss.JoinHorizontal(lipgloss.Bottom, header, "  ",
			mutedStyle.Render(fmt.Sprintf("%s — %s",
				from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006"))),
		)
	}

	chart := r.rendered
	if chart == "" {
		chart = mutedStyle.Render("loading…")
	}

	summary := r.renderSummary()

	nav := mutedStyle.Render("  g: grouping  ←/→: navigate (day view)")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", chart, "", summary, "", nav),
	)
}

func (r reportModel) renderSummary() string {
	snap := r.snapshot
	if snap.Empty() {
		return mutedStyle.Render("  No completed focus intervals in this range")
	}

	var rows []string
	rows = append(rows, fmt.Sprintf("  %s focus time, %d completed, %d cancelled",
		formatHours(snap.Total()), snap.Focus, snap.Attempted))
	if snap.Warnings > 0 {
		rows = append(rows, warningStyle.Render(
			fmt.Sprintf("  %d unreadable rows skipped", snap.Warnings)))
	}
	return strings.Join(rows, "\n")
}
