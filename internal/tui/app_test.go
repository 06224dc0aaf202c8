package tui

import (
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/arsetyo/tomat/internal/clock"
	"github.com/arsetyo/tomat/internal/config"
	"github.com/arsetyo/tomat/internal/session"
	"github.com/arsetyo/tomat/internal/task"
	"github.com/arsetyo/tomat/internal/timer"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testApp(t *testing.T) (App, *clock.Fake, *session.Log, *task.Registry) {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	log, err := session.New(cfg.SessionRoot(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	registry := task.NewRegistry()
	registry.GetOrCreate("parser", "go")

	clk := clock.NewFake(t0)
	return NewApp(cfg, log, registry, clk, zerolog.Nop()), clk, log, registry
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	next, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return next, cmd
}

func logRecords(t *testing.T, l *session.Log) []session.Record {
	t.Helper()
	var out []session.Record
	for rec, err := range l.All() {
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, rec)
	}
	return out
}

// ============================================================
// Session flow
// ============================================================

func TestStartKeyBeginsFocus(t *testing.T) {
	a, _, _, _ := testApp(t)

	a, _ = update(t, a, keyPress('s'))

	if a.engine.Snapshot().Phase != timer.Focus {
		t.Fatalf("expected Focus after start key, got %s", a.engine.Snapshot().Phase)
	}
	if a.statusErr {
		t.Fatalf("unexpected error status: %s", a.status)
	}
}

func TestTickCompletesFocusAndRecords(t *testing.T) {
	a, clk, log, registry := testApp(t)
	a, _ = update(t, a, keyPress('s'))

	clk.Advance(25 * time.Minute)
	a, _ = update(t, a, tickMsg(clk.Now()))

	if a.engine.Snapshot().Phase != timer.Break {
		t.Fatalf("expected Break, got %s", a.engine.Snapshot().Phase)
	}

	recs := logRecords(t, log)
	if len(recs) != 1 || recs[0].Kind != session.KindFocus || !recs[0].Completed {
		t.Fatalf("expected one completed focus record on disk, got %+v", recs)
	}

	parser, _ := registry.Get(recs[0].TaskID)
	if parser.Completed != 1 {
		t.Fatalf("registry not updated, completed = %d", parser.Completed)
	}
}

func TestCancelKeyWritesPartialRecord(t *testing.T) {
	a, clk, log, registry := testApp(t)
	a, _ = update(t, a, keyPress('s'))

	clk.Advance(3 * time.Minute)
	a, _ = update(t, a, keyPress('x'))

	if a.engine.Snapshot().Phase != timer.Idle {
		t.Fatalf("expected Idle after cancel, got %s", a.engine.Snapshot().Phase)
	}
	recs := logRecords(t, log)
	if len(recs) != 1 || recs[0].Completed || recs[0].Duration() != 3*time.Minute {
		t.Fatalf("expected a 3m cancelled record, got %+v", recs)
	}
	parser, _ := registry.Get(recs[0].TaskID)
	if parser.Completed != 0 || parser.Attempted != 1 {
		t.Fatalf("cancel must count as attempt only, got %d/%d", parser.Completed, parser.Attempted)
	}
}

func TestCancelWithNothingActive(t *testing.T) {
	a, _, log, _ := testApp(t)
	a, _ = update(t, a, keyPress('x'))

	if a.statusErr {
		t.Fatal("cancel from idle is a no-op with feedback, not an error")
	}
	if len(logRecords(t, log)) != 0 {
		t.Fatal("no record must be written")
	}
}

func TestPauseFreezesCountdown(t *testing.T) {
	a, clk, _, _ := testApp(t)
	a, _ = update(t, a, keyPress('s'))

	clk.Advance(10 * time.Minute)
	a, _ = update(t, a, keyPress(' '))
	if a.engine.Snapshot().Phase != timer.Paused {
		t.Fatalf("expected Paused, got %s", a.engine.Snapshot().Phase)
	}

	clk.Advance(time.Hour)
	a, _ = update(t, a, tickMsg(clk.Now()))
	if rem := a.engine.Remaining(clk.Now()); rem != 15*time.Minute {
		t.Fatalf("paused countdown moved: %s", rem)
	}

	a, _ = update(t, a, keyPress(' '))
	if a.engine.Snapshot().Phase != timer.Focus {
		t.Fatalf("expected Focus after resume, got %s", a.engine.Snapshot().Phase)
	}
}

func TestQuitFlushesActivePhase(t *testing.T) {
	a, clk, log, _ := testApp(t)
	a, _ = update(t, a, keyPress('s'))

	clk.Advance(7 * time.Minute)
	a, cmd := update(t, a, keyPress('q'))

	if cmd == nil {
		t.Fatal("quit must return a command")
	}
	recs := logRecords(t, log)
	if len(recs) != 1 || recs[0].Completed || recs[0].Duration() != 7*time.Minute {
		t.Fatalf("quit must leave the partial interval on disk, got %+v", recs)
	}
	if a.Err() != nil {
		t.Fatalf("clean quit must not report a fatal error: %v", a.Err())
	}
}

func TestStartWithoutTasks(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	log, err := session.New(cfg.SessionRoot(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	a := NewApp(cfg, log, task.NewRegistry(), clock.NewFake(t0), zerolog.Nop())

	a, _ = update(t, a, keyPress('s'))
	if !a.statusErr {
		t.Fatal("starting with no tasks should surface an error status")
	}
	if a.engine.Active() {
		t.Fatal("engine must stay idle")
	}
}

func TestViewSwitching(t *testing.T) {
	a, _, _, _ := testApp(t)
	a, _ = update(t, a, keyPress('2'))
	if a.activeView != viewTasks {
		t.Fatalf("expected tasks view, got %v", a.activeView)
	}
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyTab})
	if a.activeView != viewReport {
		t.Fatalf("tab should advance to report view, got %v", a.activeView)
	}
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyTab})
	if a.activeView != viewTimer {
		t.Fatalf("tab should wrap to timer view, got %v", a.activeView)
	}
}

// ============================================================
// Recorder
// ============================================================

func noRetry() backoff.BackOff { return &backoff.StopBackOff{} }

func TestRecorderUpdatesRegistryAfterAppend(t *testing.T) {
	log, err := session.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	registry := task.NewRegistry()
	parser := registry.GetOrCreate("parser", "go")

	r := newRecorder(log, registry, zerolog.Nop())
	rec := session.Record{
		TaskID: parser.ID, TaskName: parser.Name, Language: parser.Language,
		Start: t0, End: t0.Add(25 * time.Minute),
		Kind: session.KindFocus, Completed: true,
	}
	if err := r.Record(rec); err != nil {
		t.Fatal(err)
	}
	if parser.Completed != 1 {
		t.Fatalf("registry counter not advanced: %d", parser.Completed)
	}
	if len(logRecords(t, log)) != 1 {
		t.Fatal("record not on disk")
	}
}

func TestRecorderFailedAppendLeavesRegistryUntouched(t *testing.T) {
	log, err := session.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	registry := task.NewRegistry()
	parser := registry.GetOrCreate("parser", "go")

	r := newRecorder(log, registry, zerolog.Nop())
	r.newBackOff = noRetry

	// An interval that ends before it starts is rejected by the log.
	rec := session.Record{
		TaskID: parser.ID, TaskName: parser.Name, Language: parser.Language,
		Start: t0, End: t0.Add(-time.Minute),
		Kind: session.KindFocus, Completed: true,
	}
	if err := r.Record(rec); !errors.Is(err, session.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if parser.Completed != 0 {
		t.Fatal("registry must not advance when the append failed")
	}
}

func TestRecorderUnknownTaskIsFatal(t *testing.T) {
	log, err := session.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	r := newRecorder(log, task.NewRegistry(), zerolog.Nop())

	rec := session.Record{
		TaskID: 99, TaskName: "ghost", Language: "go",
		Start: t0, End: t0.Add(25 * time.Minute),
		Kind: session.KindFocus, Completed: true,
	}
	if err := r.Record(rec); !errors.Is(err, task.ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

// ============================================================
// Formatting
// ============================================================

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{25 * time.Minute, "25:00"},
		{61 * time.Second, "01:01"},
		{0, "00:00"},
		{-time.Second, "00:00"},
		{90 * time.Minute, "90:00"},
	}
	for _, c := range cases {
		if got := formatCountdown(c.in); got != c.want {
			t.Errorf("formatCountdown(%s) = %q, want %q", c.in, got, c.want)
		}
	}
}
