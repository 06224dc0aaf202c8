// Package report turns the session log into aggregate views and
// renders them through a pluggable chart capability. Aggregation is a
// pure function of the record sequence; snapshots are derived on demand
// and never persisted.
package report

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/arsetyo/tomat/internal/session"
)

// GroupBy selects which series of a snapshot a report renders.
type GroupBy int

const (
	ByDay GroupBy = iota
	ByLanguage
	ByTask
)

func (g GroupBy) String() string {
	switch g {
	case ByDay:
		return "day"
	case ByLanguage:
		return "language"
	case ByTask:
		return "task"
	}
	return "unknown"
}

// ParseGroupBy maps a flag value to a grouping.
func ParseGroupBy(s string) (GroupBy, error) {
	switch s {
	case "day":
		return ByDay, nil
	case "language", "lang":
		return ByLanguage, nil
	case "task":
		return ByTask, nil
	}
	return ByDay, fmt.Errorf("unknown grouping %q (want day, language or task)", s)
}

// Snapshot is a derived aggregate view of the log at a point in time.
type Snapshot struct {
	PerDay      map[string]time.Duration
	PerLanguage map[string]time.Duration
	PerTask     map[string]time.Duration

	Focus     int // completed focus intervals
	Attempted int // cancelled focus intervals, audit only
	Warnings  int // unreadable rows skipped during the read
}

// Aggregate folds a record sequence into a snapshot. Only completed
// focus intervals count toward totals; breaks and cancelled intervals
// are excluded. Error entries in the sequence degrade to a warning
// count instead of aborting, so a partially corrupt log still reports.
func Aggregate(records iter.Seq2[session.Record, error]) Snapshot {
	snap := Snapshot{
		PerDay:      make(map[string]time.Duration),
		PerLanguage: make(map[string]time.Duration),
		PerTask:     make(map[string]time.Duration),
	}

	for rec, err := range records {
		if err != nil {
			snap.Warnings++
			continue
		}
		if rec.Kind == session.KindFocus && !rec.Completed {
			snap.Attempted++
		}
		if !rec.CountsTowardTotals() {
			continue
		}
		d := rec.Duration()
		snap.PerDay[rec.Start.UTC().Format("2006-01-02")] += d
		snap.PerLanguage[rec.Language] += d
		snap.PerTask[taskLabel(rec)] += d
		snap.Focus++
	}
	return snap
}

func taskLabel(rec session.Record) string {
	return fmt.Sprintf("%s (%s)", rec.TaskName, rec.Language)
}

// Empty reports whether the snapshot holds no productive time.
func (s Snapshot) Empty() bool {
	return len(s.PerDay) == 0
}

// Total returns the sum of completed focus time in the snapshot.
func (s Snapshot) Total() time.Duration {
	var total time.Duration
	for _, d := range s.PerDay {
		total += d
	}
	return total
}

// SeriesPoint is one labelled value handed to a chart backend.
type SeriesPoint struct {
	Label string
	Value float64 // hours
}

// Series returns the snapshot's totals for one grouping as label/value
// pairs sorted by label, so the output is independent of map iteration
// order.
func (s Snapshot) Series(g GroupBy) []SeriesPoint {
	var src map[string]time.Duration
	switch g {
	case ByLanguage:
		src = s.PerLanguage
	case ByTask:
		src = s.PerTask
	default:
		src = s.PerDay
	}

	points := make([]SeriesPoint, 0, len(src))
	for label, d := range src {
		points = append(points, SeriesPoint{Label: label, Value: d.Hours()})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Label < points[j].Label
	})
	return points
}
