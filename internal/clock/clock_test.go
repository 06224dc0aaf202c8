package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)

	if !f.Now().Equal(start) {
		t.Fatalf("Now() = %s, want %s", f.Now(), start)
	}

	f.Advance(25 * time.Minute)
	if got := f.Since(start); got != 25*time.Minute {
		t.Fatalf("Since(start) = %s, want 25m", got)
	}
	if f.Since(f.Now()) != 0 {
		t.Fatal("Since(Now()) must be zero")
	}
}
