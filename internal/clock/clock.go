// Package clock abstracts the time source so timer logic can be tested
// without sleeping.
package clock

import "time"

// Clock supplies the current time and elapsed-since measurements.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// System reads the real system clock.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t.
func (System) Since(t time.Time) time.Duration { return time.Since(t) }

// Fake is a manually advanced clock for tests.
type Fake struct {
	Current time.Time
}

// NewFake returns a fake clock frozen at start.
func NewFake(start time.Time) *Fake {
	return &Fake{Current: start}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time { return f.Current }

// Since returns the fake elapsed time since t.
func (f *Fake) Since(t time.Time) time.Duration { return f.Current.Sub(t) }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
