// Package task keeps the in-memory catalogue of tracked tasks. The
// registry mirrors the session log for fast display: it is rebuilt by
// replaying the log at startup and is never persisted on its own.
package task

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/arsetyo/tomat/internal/session"
)

// ErrUnknownTask signals a completion that references a task the
// registry has never seen. Because registry state is a pure function of
// the log, this means the in-memory view and the durable log diverged.
var ErrUnknownTask = errors.New("unknown task")

// Task is one tracked task. Counters are only mutated through interval
// events; tasks are never deleted.
type Task struct {
	ID          int64
	Name        string
	Language    string
	Completed   int // completed focus intervals
	Attempted   int // cancelled focus intervals, audit only
	LastTouched time.Time
}

// Registry catalogues tasks by (name, language).
type Registry struct {
	byKey  map[string]*Task
	byID   map[int64]*Task
	nextID int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]*Task),
		byID:   make(map[int64]*Task),
		nextID: 1,
	}
}

func taskKey(name, language string) string {
	return name + "\x00" + session.LanguageSlug(language)
}

// GetOrCreate returns the task for (name, language), creating it with
// zeroed counters on first use. The assigned id is stable for the life
// of the log because replay restores ids from the records themselves.
func (r *Registry) GetOrCreate(name, language string) *Task {
	k := taskKey(name, language)
	if t, ok := r.byKey[k]; ok {
		return t
	}
	t := &Task{
		ID:       r.nextID,
		Name:     name,
		Language: session.LanguageSlug(language),
	}
	r.nextID++
	r.byKey[k] = t
	r.byID[t.ID] = t
	return t
}

// Get looks a task up by id.
func (r *Registry) Get(id int64) (*Task, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// RecordCompletion increments the completed-focus counter for id.
func (r *Registry) RecordCompletion(id int64, at time.Time) error {
	t, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: completion references task id %d", ErrUnknownTask, id)
	}
	t.Completed++
	t.touch(at)
	return nil
}

// RecordAttempt increments the cancelled-focus counter for id. Attempts
// never count toward productivity totals.
func (r *Registry) RecordAttempt(id int64, at time.Time) error {
	t, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: attempt references task id %d", ErrUnknownTask, id)
	}
	t.Attempted++
	t.touch(at)
	return nil
}

// Touch records activity on a task without changing counters (break
// intervals, timer starts).
func (r *Registry) Touch(id int64, at time.Time) {
	if t, ok := r.byID[id]; ok {
		t.touch(at)
	}
}

func (t *Task) touch(at time.Time) {
	if at.After(t.LastTouched) {
		t.LastTouched = at
	}
}

// List returns all tasks, last-touched-first. Ties fall back to id
// order so the listing is deterministic.
func (r *Registry) List() []*Task {
	tasks := make([]*Task, 0, len(r.byID))
	for _, t := range r.byID {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].LastTouched.Equal(tasks[j].LastTouched) {
			return tasks[i].LastTouched.After(tasks[j].LastTouched)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// Len returns the number of catalogued tasks.
func (r *Registry) Len() int { return len(r.byID) }

// restore registers a task under the id recorded in the log. If the
// (name, language) pair is already known the existing task wins; a
// colliding id from a corrupt log falls back to a fresh one.
func (r *Registry) restore(id int64, name, language string) *Task {
	k := taskKey(name, language)
	if t, ok := r.byKey[k]; ok {
		return t
	}
	if _, taken := r.byID[id]; taken || id <= 0 {
		id = r.nextID
	}
	t := &Task{ID: id, Name: name, Language: session.LanguageSlug(language)}
	r.byKey[k] = t
	r.byID[id] = t
	if id >= r.nextID {
		r.nextID = id + 1
	}
	return t
}

// Rebuild replays a session log record sequence, in timestamp order,
// into a fresh registry. Error entries from the reader (malformed rows)
// are counted and skipped, so the result is deterministic for a given
// set of readable records.
func Rebuild(records iter.Seq2[session.Record, error]) (*Registry, int) {
	r := NewRegistry()
	skipped := 0
	for rec, err := range records {
		if err != nil {
			skipped++
			continue
		}
		t := r.restore(rec.TaskID, rec.TaskName, rec.Language)
		t.touch(rec.End)
		if rec.Kind != session.KindFocus {
			continue
		}
		if rec.Completed {
			t.Completed++
		} else {
			t.Attempted++
		}
	}
	return r, skipped
}
