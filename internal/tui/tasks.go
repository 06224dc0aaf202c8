package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/arsetyo/tomat/internal/task"
)

// tasksModel lists catalogued tasks and owns the new-task form.
type tasksModel struct {
	registry  *task.Registry
	languages []string
	width     int
	height    int

	tasks  []*task.Task
	cursor int

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formName     *string
	formLanguage *string
}

func newTasksModel(registry *task.Registry, languages []string) tasksModel {
	name, lang := "", ""
	if len(languages) > 0 {
		lang = languages[0]
	}
	m := tasksModel{
		registry:     registry,
		languages:    languages,
		formName:     &name,
		formLanguage: &lang,
	}
	m.reload()
	return m
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *tasksModel) reload() {
	m.tasks = m.registry.List()
	if m.cursor >= len(m.tasks) {
		m.cursor = max(0, len(m.tasks)-1)
	}
}

// selected returns the task under the cursor, or nil.
func (m tasksModel) selected() *task.Task {
	if m.cursor < len(m.tasks) {
		return m.tasks[m.cursor]
	}
	return nil
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.New):
			return m.showNewTaskForm()
		}
	}
	return m, nil
}

func (m tasksModel) showNewTaskForm() (tasksModel, tea.Cmd) {
	*m.formName = ""
	if len(m.languages) > 0 {
		*m.formLanguage = m.languages[0]
	}

	langOptions := make([]huh.Option[string], len(m.languages))
	for i, l := range m.languages {
		langOptions[i] = huh.NewOption(l, l)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task Name").Value(m.formName),
			huh.NewSelect[string]().Title("Language").Options(langOptions...).Value(m.formLanguage),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		if *m.formName != "" {
			m.registry.GetOrCreate(*m.formName, *m.formLanguage)
			m.reload()
		}
	}

	return m, cmd
}

func (m tasksModel) view(activeID int64) string {
	w := m.width - 4
	if w < 20 {
		w = 20
	}

	if m.formActive && m.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("New Task"), "", m.form.View(),
		)
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Tasks")

	if len(m.tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-28s %-10s %10s %10s", "Name", "Language", "Done", "Cancelled")))

	for i, t := range m.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		marker := " "
		if t.ID == activeID {
			marker = highlightStyle.Render("●")
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-28s %-10s %10d %10d", cursor, t.Name, t.Language, t.Completed, t.Attempted))+" "+marker)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  enter: select for timer  ↑/↓: move"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
