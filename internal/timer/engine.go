// Package timer implements the Pomodoro finite-state machine. The
// engine owns the single process-wide timer state; callers read value
// snapshots and drive transitions explicitly with the current time, so
// the logic is deterministic under test.
package timer

import (
	"errors"
	"fmt"
	"time"

	"github.com/arsetyo/tomat/internal/session"
)

// ErrInvalidState is returned for commands that are not legal in the
// engine's current phase. Callers recover locally, typically by showing
// UI feedback.
var ErrInvalidState = errors.New("invalid timer state")

// Phase enumerates the timer states.
type Phase int

const (
	Idle Phase = iota
	Focus
	Break
	Paused
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Focus:
		return "focus"
	case Break:
		return "break"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// TaskRef identifies the task an interval is charged to.
type TaskRef struct {
	ID       int64
	Name     string
	Language string
}

// IntervalSink consumes interval records emitted on phase completion or
// cancel. The sink runs synchronously inside the transition: appending
// to the session log and updating the task registry happen before the
// engine moves on, so the in-memory view and the durable log never
// diverge after a tick.
type IntervalSink interface {
	Record(session.Record) error
}

// Config holds the interval lengths and the long-break cadence.
type Config struct {
	Focus             time.Duration
	ShortBreak        time.Duration
	LongBreak         time.Duration
	LongBreakInterval int // every Nth break is long
}

// State is a value snapshot of the engine. UI layers read snapshots and
// never mutate them.
type State struct {
	Phase         Phase
	PausedPhase   Phase // phase that was active when paused
	PhaseStart    time.Time
	PhaseDuration time.Duration
	PausedAt      time.Time
	Task          TaskRef
}

// Engine is the Pomodoro state machine.
type Engine struct {
	cfg   Config
	sink  IntervalSink
	state State
	cycle int // completed focus intervals this process
}

// New returns an idle engine. A nil sink discards emitted records.
func New(cfg Config, sink IntervalSink) *Engine {
	if cfg.LongBreakInterval <= 0 {
		cfg.LongBreakInterval = 4
	}
	return &Engine{cfg: cfg, sink: sink}
}

// Snapshot returns the current state by value.
func (e *Engine) Snapshot() State { return e.state }

// Cycle returns the number of focus intervals completed since the
// engine was created. The counter survives Break→Idle so the long-break
// cadence spans restarts within one session.
func (e *Engine) Cycle() int { return e.cycle }

// Start begins a focus interval for the given task.
func (e *Engine) Start(t TaskRef, now time.Time) error {
	if e.state.Phase != Idle {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, e.state.Phase)
	}
	e.state = State{
		Phase:         Focus,
		PhaseStart:    now,
		PhaseDuration: e.cfg.Focus,
		Task:          t,
	}
	return nil
}

// Tick advances the engine to now. When the active phase has run its
// full duration the completed interval is recorded through the sink
// before the next phase begins. On sink failure the engine stays in the
// completed phase so the caller can retry the tick or pause.
func (e *Engine) Tick(now time.Time) error {
	switch e.state.Phase {
	case Focus:
		if now.Sub(e.state.PhaseStart) < e.state.PhaseDuration {
			return nil
		}
		// The interval ends exactly at its configured duration even if
		// the tick arrives late.
		end := e.state.PhaseStart.Add(e.state.PhaseDuration)
		if err := e.emit(session.KindFocus, e.state.PhaseStart, end, true); err != nil {
			return err
		}
		e.cycle++
		dur := e.cfg.ShortBreak
		if e.cycle%e.cfg.LongBreakInterval == 0 {
			dur = e.cfg.LongBreak
		}
		e.state = State{
			Phase:         Break,
			PhaseStart:    end,
			PhaseDuration: dur,
			Task:          e.state.Task,
		}
		return nil

	case Break:
		if now.Sub(e.state.PhaseStart) < e.state.PhaseDuration {
			return nil
		}
		end := e.state.PhaseStart.Add(e.state.PhaseDuration)
		if err := e.emit(session.KindBreak, e.state.PhaseStart, end, true); err != nil {
			return err
		}
		e.state = State{Phase: Idle}
		return nil
	}
	return nil
}

// Pause freezes an active focus or break interval.
func (e *Engine) Pause(now time.Time) error {
	if e.state.Phase != Focus && e.state.Phase != Break {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidState, e.state.Phase)
	}
	e.state.PausedPhase = e.state.Phase
	e.state.Phase = Paused
	e.state.PausedAt = now
	return nil
}

// Resume continues a paused interval. The phase start shifts forward by
// the paused span, so the remaining duration is exactly what it was at
// the pause instant.
func (e *Engine) Resume(now time.Time) error {
	if e.state.Phase != Paused {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidState, e.state.Phase)
	}
	e.state.PhaseStart = e.state.PhaseStart.Add(now.Sub(e.state.PausedAt))
	e.state.Phase = e.state.PausedPhase
	e.state.PausedPhase = Idle
	e.state.PausedAt = time.Time{}
	return nil
}

// Cancel aborts the active interval and returns to Idle. The partial
// interval is recorded with completed=false for audit; it never counts
// toward productivity totals.
func (e *Engine) Cancel(now time.Time) error {
	phase := e.state.Phase
	end := now
	if phase == Paused {
		phase = e.state.PausedPhase
		end = e.state.PausedAt
	}

	var kind session.Kind
	switch phase {
	case Focus:
		kind = session.KindFocus
	case Break:
		kind = session.KindBreak
	default:
		return fmt.Errorf("%w: nothing to cancel from %s", ErrInvalidState, e.state.Phase)
	}

	if err := e.emit(kind, e.state.PhaseStart, end, false); err != nil {
		return err
	}
	e.state = State{Phase: Idle}
	return nil
}

// Active reports whether an interval is in flight (including paused).
func (e *Engine) Active() bool {
	return e.state.Phase != Idle
}

// Remaining returns the time left in the active phase at now.
func (e *Engine) Remaining(now time.Time) time.Duration {
	var elapsed time.Duration
	switch e.state.Phase {
	case Focus, Break:
		elapsed = now.Sub(e.state.PhaseStart)
	case Paused:
		elapsed = e.state.PausedAt.Sub(e.state.PhaseStart)
	default:
		return 0
	}
	rem := e.state.PhaseDuration - elapsed
	if rem < 0 {
		rem = 0
	}
	return rem
}

func (e *Engine) emit(kind session.Kind, start, end time.Time, completed bool) error {
	if e.sink == nil {
		return nil
	}
	t := e.state.Task
	return e.sink.Record(session.Record{
		TaskID:    t.ID,
		TaskName:  t.Name,
		Language:  t.Language,
		Start:     start,
		End:       end,
		Kind:      kind,
		Completed: completed,
	})
}
