package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	l, err := New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func collect(t *testing.T, l *Log, from, to time.Time) ([]Record, []error) {
	t.Helper()
	var records []Record
	var errs []error
	for rec, err := range l.Range(from, to) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

func focusRecord(start time.Time, minutes int, task string, language string) Record {
	return Record{
		TaskID:    1,
		TaskName:  task,
		Language:  language,
		Start:     start,
		End:       start.Add(time.Duration(minutes) * time.Minute),
		Kind:      KindFocus,
		Completed: true,
	}
}

var day1 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
var day2 = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

// ============================================================
// Append + read-back
// ============================================================

func TestAppendRoundTrip(t *testing.T) {
	l := testLog(t)
	want := focusRecord(day1, 25, "parser", "go")
	if err := l.Append(want); err != nil {
		t.Fatal(err)
	}

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Fatalf("timestamps differ: %+v", got)
	}
	if got.TaskID != 1 || got.TaskName != "parser" || got.Language != "go" {
		t.Fatalf("task fields differ: %+v", got)
	}
	if got.Kind != KindFocus || !got.Completed {
		t.Fatalf("kind/completed differ: %+v", got)
	}
}

func TestPartitionLayout(t *testing.T) {
	l := testLog(t)
	if err := l.Append(focusRecord(day1, 25, "parser", "Go")); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(l.Root(), "2026", "03", "02", "go.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected partition at %s: %v", path, err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "start,end,task_id,task_name,kind,completed" {
		t.Fatalf("bad header: %q", lines[0])
	}
}

func TestPartitionDateUsesUTC(t *testing.T) {
	l := testLog(t)
	// 01:30 on March 3 in UTC+5 is still March 2 in UTC.
	zone := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2026, 3, 3, 1, 30, 0, 0, zone)
	if err := l.Append(focusRecord(local, 25, "parser", "go")); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(l.Root(), "2026", "03", "02", "go.csv")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("partition date should follow the stored UTC timestamp: %v", err)
	}
}

func TestAppendRejectsInvertedInterval(t *testing.T) {
	l := testLog(t)
	rec := focusRecord(day1, 25, "parser", "go")
	rec.End = rec.Start.Add(-time.Minute)
	if err := l.Append(rec); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

// ============================================================
// Ordering
// ============================================================

func TestReadAscendingAcrossPartitions(t *testing.T) {
	l := testLog(t)
	// Appended deliberately out of chronological order, across days and
	// languages.
	input := []Record{
		focusRecord(day2, 25, "parser", "go"),
		focusRecord(day1.Add(2*time.Hour), 25, "exercises", "rust"),
		focusRecord(day1, 25, "parser", "go"),
		focusRecord(day2.Add(time.Hour), 25, "scraper", "python"),
	}
	for _, rec := range input {
		if err := l.Append(rec); err != nil {
			t.Fatal(err)
		}
	}

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Start.Before(records[i-1].Start) {
			t.Fatalf("records out of order at %d: %s after %s",
				i, records[i].Start, records[i-1].Start)
		}
	}
}

func TestReadAscendingWithinPartition(t *testing.T) {
	l := testLog(t)
	// Same partition, appended newest first.
	l.Append(focusRecord(day1.Add(3*time.Hour), 25, "parser", "go"))
	l.Append(focusRecord(day1, 25, "parser", "go"))
	l.Append(focusRecord(day1.Add(time.Hour), 25, "parser", "go"))

	records, _ := collect(t, l, time.Time{}, time.Time{})
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Start.Before(records[i-1].Start) {
			t.Fatal("same-partition records must come back sorted by start")
		}
	}
}

func TestIteratorRestartable(t *testing.T) {
	l := testLog(t)
	l.Append(focusRecord(day1, 25, "parser", "go"))

	seq := l.All()
	for range 2 {
		var n int
		for _, err := range seq {
			if err != nil {
				t.Fatal(err)
			}
			n++
		}
		if n != 1 {
			t.Fatalf("expected 1 record per pass, got %d", n)
		}
	}
}

// ============================================================
// Range bounds
// ============================================================

func TestRangeBounds(t *testing.T) {
	l := testLog(t)
	l.Append(focusRecord(day1, 25, "parser", "go"))
	l.Append(focusRecord(day2, 25, "parser", "go"))
	l.Append(focusRecord(day2.Add(time.Hour), 25, "parser", "go"))

	// from inclusive: a record starting exactly at from is in.
	records, _ := collect(t, l, day2, time.Time{})
	if len(records) != 2 {
		t.Fatalf("from bound: expected 2 records, got %d", len(records))
	}

	// to exclusive: a record starting exactly at to is out.
	records, _ = collect(t, l, time.Time{}, day2)
	if len(records) != 1 {
		t.Fatalf("to bound: expected 1 record, got %d", len(records))
	}

	records, _ = collect(t, l, day1.Add(time.Minute), day2)
	if len(records) != 0 {
		t.Fatalf("empty window: expected 0 records, got %d", len(records))
	}
}

// ============================================================
// Corruption and forward compatibility
// ============================================================

func TestMalformedRowSkippedAndReported(t *testing.T) {
	l := testLog(t)
	l.Append(focusRecord(day1, 25, "parser", "go"))
	l.Append(focusRecord(day1.Add(time.Hour), 25, "parser", "go"))

	path := filepath.Join(l.Root(), "2026", "03", "02", "go.csv")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not-a-timestamp,also-bad,x,?,focus,true\n")
	f.Close()

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(records) != 2 {
		t.Fatalf("valid records must survive corruption, got %d", len(records))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error entry, got %d", len(errs))
	}
}

func TestExtraColumnsTolerated(t *testing.T) {
	l := testLog(t)
	dir := filepath.Join(l.Root(), "2026", "03", "02")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "start,end,task_id,task_name,kind,completed,note\n" +
		"2026-03-02T09:00:00Z,2026-03-02T09:25:00Z,7,parser,focus,true,added later\n"
	if err := os.WriteFile(filepath.Join(dir, "go.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(records) != 1 || records[0].TaskID != 7 {
		t.Fatalf("expected the row with an extra column to parse, got %+v", records)
	}
}

func TestReorderedColumnsTolerated(t *testing.T) {
	l := testLog(t)
	dir := filepath.Join(l.Root(), "2026", "03", "02")
	os.MkdirAll(dir, 0o755)
	content := "completed,kind,task_name,task_id,end,start\n" +
		"true,focus,parser,7,2026-03-02T09:25:00Z,2026-03-02T09:00:00Z\n"
	if err := os.WriteFile(filepath.Join(dir, "go.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(records) != 1 || !records[0].Completed || records[0].Kind != KindFocus {
		t.Fatalf("columns must be resolved by name, got %+v", records)
	}
}

func TestMissingHeaderColumnReported(t *testing.T) {
	l := testLog(t)
	dir := filepath.Join(l.Root(), "2026", "03", "02")
	os.MkdirAll(dir, 0o755)
	content := "start,end,task_id,task_name\n"
	os.WriteFile(filepath.Join(dir, "go.csv"), []byte(content), 0o644)

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(records) != 0 || len(errs) != 1 {
		t.Fatalf("expected one error entry for a bad header, got %d/%d", len(records), len(errs))
	}
}

func TestNonDateDirectoriesSkipped(t *testing.T) {
	l := testLog(t)
	l.Append(focusRecord(day1, 25, "parser", "go"))
	os.MkdirAll(filepath.Join(l.Root(), "backup", "old", "stuff"), 0o755)

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

// ============================================================
// Concurrency
// ============================================================

func TestConcurrentAppends(t *testing.T) {
	l := testLog(t)
	languages := []string{"go", "python", "rust", "java"}

	var wg sync.WaitGroup
	for _, lang := range languages {
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(lang string, i int) {
				defer wg.Done()
				rec := focusRecord(day1.Add(time.Duration(i)*time.Minute), 25, "parser", lang)
				if err := l.Append(rec); err != nil {
					t.Error(err)
				}
			}(lang, i)
		}
	}
	wg.Wait()

	records, errs := collect(t, l, time.Time{}, time.Time{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(records) != len(languages)*8 {
		t.Fatalf("expected %d records, got %d", len(languages)*8, len(records))
	}
}

// ============================================================
// Language slugs
// ============================================================

func TestLanguageSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Python", "python"},
		{"go", "go"},
		{"C++", "c++"},
		{"C#", "c#"},
		{"Objective C", "objective-c"},
		{"", "unknown"},
	}
	for _, c := range cases {
		if got := LanguageSlug(c.in); got != c.want {
			t.Errorf("LanguageSlug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
