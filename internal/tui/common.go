package tui

import (
	"fmt"
	"time"

	"github.com/arsetyo/tomat/internal/report"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewTasks
	viewReport
)

var viewNames = []string{"Timer", "Tasks", "Report"}

// --- Messages ---

type tickMsg time.Time

type statusMsg struct {
	text    string
	isError bool
}

type reportDataMsg struct {
	snapshot report.Snapshot
	rendered string
}

// --- Helpers ---

func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}
