package session

import (
	"strings"
	"time"
)

// Kind distinguishes focus work intervals from breaks.
type Kind string

const (
	KindFocus Kind = "focus"
	KindBreak Kind = "break"
)

// Record is one finished or cancelled timer interval. Records are
// immutable once appended to the log; they are the unit of durability.
type Record struct {
	TaskID    int64
	TaskName  string
	Language  string
	Start     time.Time
	End       time.Time
	Kind      Kind
	Completed bool
}

// Duration returns the span covered by the record.
func (r Record) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// CountsTowardTotals reports whether the record contributes to
// productivity totals. Breaks and cancelled intervals are kept for
// audit but excluded.
func (r Record) CountsTowardTotals() bool {
	return r.Kind == KindFocus && r.Completed
}

// LanguageSlug normalizes a language tag into the identifier used for
// partition file names: lowercased, path-safe.
func LanguageSlug(lang string) string {
	s := strings.ToLower(strings.TrimSpace(lang))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '+', r == '#', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
