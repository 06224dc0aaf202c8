package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arsetyo/tomat/internal/clock"
	"github.com/arsetyo/tomat/internal/task"
	"github.com/arsetyo/tomat/internal/timer"
)

// timerModel renders the countdown view. All timer state lives in the
// engine; this model only reads snapshots.
type timerModel struct {
	engine *timer.Engine
	clk    clock.Clock
	width  int
	height int

	longBreakInterval int
}

func newTimerModel(e *timer.Engine, clk clock.Clock, longBreakInterval int) timerModel {
	return timerModel{
		engine:            e,
		clk:               clk,
		longBreakInterval: longBreakInterval,
	}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func (t timerModel) view(active *task.Task) string {
	w := t.width - 4
	if w < 20 {
		w = 20
	}

	st := t.engine.Snapshot()
	remaining := t.engine.Remaining(t.clk.Now())

	var timeDisplay, phaseLabel, taskLine string
	center := lipgloss.NewStyle().Width(w - 6).Align(lipgloss.Center)

	switch st.Phase {
	case timer.Idle:
		timeDisplay = center.Bold(true).Foreground(colorPrimary).Render(formatCountdown(0))
		phaseLabel = mutedStyle.Render("Ready")
	case timer.Focus:
		timeDisplay = center.Bold(true).Foreground(colorAccent).Render(formatCountdown(remaining))
		phaseLabel = accentStyle.Bold(true).Render("FOCUS")
	case timer.Break:
		timeDisplay = center.Bold(true).Foreground(colorSuccess).Render(formatCountdown(remaining))
		phaseLabel = successStyle.Bold(true).Render("BREAK")
	case timer.Paused:
		timeDisplay = center.Bold(true).Foreground(colorWarning).Render(formatCountdown(remaining))
		phaseLabel = warningStyle.Bold(true).Render("PAUSED")
	}

	if st.Phase != timer.Idle {
		taskLine = titleStyle.Render(st.Task.Name) + mutedStyle.Render("  ["+st.Task.Language+"]")
	} else if active != nil {
		taskLine = mutedStyle.Render("next: ") + titleStyle.Render(active.Name) +
			mutedStyle.Render("  ["+active.Language+"]")
	} else {
		taskLine = mutedStyle.Render("no task selected — press n to create one")
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Pomodoro"),
		"",
		timeDisplay,
		phaseLabel,
		"",
		t.renderCycleDots(st),
		"",
		taskLine,
	)

	var controls string
	switch st.Phase {
	case timer.Idle:
		controls = mutedStyle.Render("s: start  n: new task  q: quit")
	case timer.Paused:
		controls = mutedStyle.Render("space: resume  x: cancel")
	default:
		controls = mutedStyle.Render("space: pause  x: cancel")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}

// renderCycleDots shows progress toward the next long break.
func (t timerModel) renderCycleDots(st timer.State) string {
	n := t.longBreakInterval
	if n <= 0 {
		n = 4
	}
	done := t.engine.Cycle() % n
	inBreak := st.Phase == timer.Break ||
		(st.Phase == timer.Paused && st.PausedPhase == timer.Break)
	if done == 0 && t.engine.Cycle() > 0 && inBreak {
		done = n
	}

	var parts []string
	for i := 0; i < n; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && (st.Phase == timer.Focus ||
			(st.Phase == timer.Paused && st.PausedPhase == timer.Focus)):
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d completed", t.engine.Cycle()))
	return strings.Join(parts, " ") + counter
}
