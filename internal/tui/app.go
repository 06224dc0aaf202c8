// Package tui implements the interactive render loop: a single-threaded
// Bubble Tea program that polls input, advances the timer engine every
// tick, and draws the current state. All engine and registry mutations
// happen inside this one update loop.
package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/arsetyo/tomat/internal/clock"
	"github.com/arsetyo/tomat/internal/config"
	"github.com/arsetyo/tomat/internal/session"
	"github.com/arsetyo/tomat/internal/task"
	"github.com/arsetyo/tomat/internal/timer"
)

// App is the root Bubble Tea model.
type App struct {
	cfg      *config.Config
	log      *session.Log
	registry *task.Registry
	engine   *timer.Engine
	clk      clock.Clock
	logger   zerolog.Logger

	width  int
	height int

	activeView viewState
	showHelp   bool
	status     string
	statusErr  bool
	fatal      error

	selectedTask int64 // task charged by the next start

	timerView timerModel
	tasks     tasksModel
	reportV   reportModel

	help help.Model
}

// NewApp wires the engine, its interval sink, and the view models.
func NewApp(cfg *config.Config, log *session.Log, registry *task.Registry, clk clock.Clock, logger zerolog.Logger) App {
	sink := newRecorder(log, registry, logger)
	engine := timer.New(timer.Config{
		Focus:             cfg.Focus(),
		ShortBreak:        cfg.ShortBreak(),
		LongBreak:         cfg.LongBreak(),
		LongBreakInterval: cfg.LongBreakInterval,
	}, sink)

	h := help.New()
	h.ShowAll = false

	a := App{
		cfg:       cfg,
		log:       log,
		registry:  registry,
		engine:    engine,
		clk:       clk,
		logger:    logger,
		timerView: newTimerModel(engine, clk, cfg.LongBreakInterval),
		tasks:     newTasksModel(registry, cfg.Languages),
		reportV:   newReportModel(log),
		help:      h,
	}
	if t := a.tasks.selected(); t != nil {
		a.selectedTask = t.ID
	}
	return a
}

// Err reports a fatal condition that ended the session, if any. The CLI
// maps it to a nonzero exit code.
func (a App) Err() error { return a.fatal }

func (a App) Init() tea.Cmd {
	return tickEvery(a.cfg.Tick())
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timerView.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.reportV.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// The new-task form captures all input while open.
		if a.activeView == viewTasks && a.tasks.formActive {
			return a.updateActiveView(msg)
		}
		return a.handleKey(msg)

	case tickMsg:
		return a.handleTick()

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case reportDataMsg:
		var cmd tea.Cmd
		a.reportV, cmd = a.reportV.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return a.quit()

	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil

	case key.Matches(msg, keys.Tab1):
		a.activeView = viewTimer
		return a, nil
	case key.Matches(msg, keys.Tab2):
		a.activeView = viewTasks
		a.tasks.reload()
		return a, nil
	case key.Matches(msg, keys.Tab3):
		a.activeView = viewReport
		return a, a.reportV.refresh()
	case key.Matches(msg, keys.Tab):
		a.activeView = (a.activeView + 1) % 3
		if a.activeView == viewTasks {
			a.tasks.reload()
		}
		if a.activeView == viewReport {
			return a, a.reportV.refresh()
		}
		return a, nil

	case key.Matches(msg, keys.Start):
		return a.startTimer()

	case key.Matches(msg, keys.Pause):
		return a.togglePause()

	case key.Matches(msg, keys.Cancel):
		return a.cancelTimer()

	case key.Matches(msg, keys.Enter):
		if a.activeView == viewTasks {
			if t := a.tasks.selected(); t != nil {
				a.selectedTask = t.ID
				a.status = fmt.Sprintf("Selected %q", t.Name)
				a.statusErr = false
				a.activeView = viewTimer
			}
			return a, nil
		}
	}

	return a.updateActiveView(msg)
}

// handleTick advances the engine by the elapsed wall time. Phase
// completions append to the session log synchronously inside Tick; a
// storage failure pauses the timer instead of silently dropping data,
// and a registry divergence ends the session.
func (a App) handleTick() (tea.Model, tea.Cmd) {
	next := tickEvery(a.cfg.Tick())

	if err := a.engine.Tick(a.clk.Now()); err != nil {
		if errors.Is(err, task.ErrUnknownTask) {
			a.fatal = err
			a.logger.Error().Err(err).Msg("registry and session log diverged")
			return a, tea.Quit
		}
		if pauseErr := a.engine.Pause(a.clk.Now()); pauseErr != nil {
			a.logger.Warn().Err(pauseErr).Msg("could not pause after storage failure")
		}
		a.status = fmt.Sprintf("Storage error, timer paused: %v", err)
		a.statusErr = true
		return a, next
	}
	return a, next
}

func (a App) startTimer() (tea.Model, tea.Cmd) {
	t, ok := a.registry.Get(a.selectedTask)
	if !ok {
		if t = a.tasks.selected(); t == nil {
			a.status = "No task to start. Press n to create one."
			a.statusErr = true
			return a, nil
		}
		a.selectedTask = t.ID
	}

	err := a.engine.Start(timer.TaskRef{
		ID:       t.ID,
		Name:     t.Name,
		Language: t.Language,
	}, a.clk.Now())
	if err != nil {
		a.status = "Timer already running"
		a.statusErr = true
		return a, nil
	}
	a.activeView = viewTimer
	a.status = fmt.Sprintf("Focus started on %q", t.Name)
	a.statusErr = false
	return a, nil
}

func (a App) togglePause() (tea.Model, tea.Cmd) {
	now := a.clk.Now()
	st := a.engine.Snapshot()
	var err error
	if st.Phase == timer.Paused {
		err = a.engine.Resume(now)
	} else {
		err = a.engine.Pause(now)
	}
	if err != nil {
		// Not valid in this phase; surface as a no-op with feedback.
		a.status = "Nothing to pause"
		a.statusErr = false
	}
	return a, nil
}

func (a App) cancelTimer() (tea.Model, tea.Cmd) {
	if err := a.engine.Cancel(a.clk.Now()); err != nil {
		if errors.Is(err, timer.ErrInvalidState) {
			a.status = "Nothing to cancel"
			a.statusErr = false
			return a, nil
		}
		a.status = fmt.Sprintf("Cancel failed: %v", err)
		a.statusErr = true
		return a, nil
	}
	a.status = "Interval cancelled"
	a.statusErr = false
	return a, nil
}

// quit flushes in-flight state before leaving: an active phase is
// cancelled so its partial interval is durable on disk.
func (a App) quit() (tea.Model, tea.Cmd) {
	if a.engine.Active() {
		if err := a.engine.Cancel(a.clk.Now()); err != nil {
			a.logger.Error().Err(err).Msg("could not record partial interval on quit")
		}
	}
	return a, tea.Quit
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewReport:
		a.reportV, cmd = a.reportV.update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		active, _ := a.registry.Get(a.selectedTask)
		content = a.timerView.view(active)
	case viewTasks:
		content = a.tasks.view(a.selectedTask)
	case viewReport:
		content = a.reportV.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tomat")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	timerInfo := ""
	st := a.engine.Snapshot()
	switch st.Phase {
	case timer.Focus, timer.Break:
		timerInfo = successStyle.Render(" ● " + formatCountdown(a.engine.Remaining(a.clk.Now())))
	case timer.Paused:
		timerInfo = warningStyle.Render(" ⏸ " + formatCountdown(a.engine.Remaining(a.clk.Now())))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}
