package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const timeLayout = time.RFC3339

// All returns a restartable lazy sequence of every record in the log,
// ascending by start timestamp. Each call starts a fresh read of the
// durable state. Malformed rows are skipped: they are logged, and
// yielded as error entries so callers can count them without aborting.
func (l *Log) All() iter.Seq2[Record, error] {
	return l.Range(time.Time{}, time.Time{})
}

// Range is All bounded by start timestamp: from is inclusive, to is
// exclusive, and a zero bound is open.
func (l *Log) Range(from, to time.Time) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		days, err := l.dayDirs()
		if err != nil {
			yield(Record{}, err)
			return
		}

		for _, day := range days {
			if !day.overlaps(from, to) {
				continue
			}

			records, errs := l.readDay(day.path)
			for _, e := range errs {
				if !yield(Record{}, e) {
					return
				}
			}

			// Records within one partition may have been appended out
			// of order; sorting per day restores the global ordering
			// because a record's day is derived from its start time.
			sort.Slice(records, func(i, j int) bool {
				return records[i].Start.Before(records[j].Start)
			})

			for _, r := range records {
				if !from.IsZero() && r.Start.Before(from) {
					continue
				}
				if !to.IsZero() && !r.Start.Before(to) {
					continue
				}
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

type dayDir struct {
	path string
	date time.Time
}

// overlaps reports whether the day's 24h window intersects [from, to).
func (d dayDir) overlaps(from, to time.Time) bool {
	if !from.IsZero() && !d.date.AddDate(0, 0, 1).After(from) {
		return false
	}
	if !to.IsZero() && !d.date.Before(to) {
		return false
	}
	return true
}

// dayDirs lists every YYYY/MM/DD directory under the root in ascending
// date order. Directory names are zero padded, so lexical order from
// ReadDir is chronological order.
func (l *Log) dayDirs() ([]dayDir, error) {
	var days []dayDir

	years, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("%w: read log root: %v", ErrStorage, err)
	}
	for _, y := range years {
		if !y.IsDir() {
			continue
		}
		months, err := os.ReadDir(filepath.Join(l.root, y.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: read year dir: %v", ErrStorage, err)
		}
		for _, m := range months {
			if !m.IsDir() {
				continue
			}
			dayEntries, err := os.ReadDir(filepath.Join(l.root, y.Name(), m.Name()))
			if err != nil {
				return nil, fmt.Errorf("%w: read month dir: %v", ErrStorage, err)
			}
			for _, d := range dayEntries {
				if !d.IsDir() {
					continue
				}
				date, err := time.Parse("2006/01/02", y.Name()+"/"+m.Name()+"/"+d.Name())
				if err != nil {
					l.logger.Warn().
						Str("dir", filepath.Join(y.Name(), m.Name(), d.Name())).
						Msg("skipping directory that is not a date partition")
					continue
				}
				days = append(days, dayDir{
					path: filepath.Join(l.root, y.Name(), m.Name(), d.Name()),
					date: date,
				})
			}
		}
	}
	return days, nil
}

// readDay reads every language partition of one day. Unreadable files
// and malformed rows become error entries instead of aborting the read.
func (l *Log) readDay(dir string) ([]Record, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("%w: read day dir: %v", ErrStorage, err)}
	}

	var records []Record
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		language := strings.TrimSuffix(e.Name(), ".csv")

		recs, perr := l.readPartition(path, language)
		records = append(records, recs...)
		errs = append(errs, perr...)
	}
	return records, errs
}

func (l *Log) readPartition(path, language string) ([]Record, []error) {
	// Shared lock so a read never interleaves with an in-flight append
	// from another process.
	fl := flock.New(path + ".lock")
	if err := fl.RLock(); err == nil {
		defer fl.Unlock()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, []error{fmt.Errorf("%w: open partition %s: %v", ErrStorage, path, err)}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // forward compatible: extra columns tolerated

	header, err := r.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("partition %s: missing header: %v", path, err)}
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, []error{fmt.Errorf("partition %s: %v", path, err)}
	}

	var records []Record
	var errs []error
	line := 1
	for {
		line++
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.logger.Warn().Str("partition", path).Int("line", line).Err(err).
				Msg("skipping malformed row")
			errs = append(errs, fmt.Errorf("partition %s line %d: %v", path, line, err))
			continue
		}
		rec, err := decodeRecord(row, idx, language)
		if err != nil {
			l.logger.Warn().Str("partition", path).Int("line", line).Err(err).
				Msg("skipping malformed row")
			errs = append(errs, fmt.Errorf("partition %s line %d: %v", path, line, err))
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

// columnIndex maps the required column names to their positions in the
// header row. Unknown columns are ignored.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range columns {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("header missing column %q", required)
		}
	}
	return idx, nil
}

func decodeRecord(row []string, idx map[string]int, language string) (Record, error) {
	field := func(name string) (string, error) {
		i := idx[name]
		if i >= len(row) {
			return "", fmt.Errorf("row too short for column %q", name)
		}
		return row[i], nil
	}

	var rec Record
	rec.Language = language

	s, err := field("start")
	if err != nil {
		return Record{}, err
	}
	if rec.Start, err = time.Parse(timeLayout, s); err != nil {
		return Record{}, fmt.Errorf("bad start timestamp %q", s)
	}

	s, err = field("end")
	if err != nil {
		return Record{}, err
	}
	if rec.End, err = time.Parse(timeLayout, s); err != nil {
		return Record{}, fmt.Errorf("bad end timestamp %q", s)
	}

	s, err = field("task_id")
	if err != nil {
		return Record{}, err
	}
	if rec.TaskID, err = strconv.ParseInt(s, 10, 64); err != nil {
		return Record{}, fmt.Errorf("bad task id %q", s)
	}

	if rec.TaskName, err = field("task_name"); err != nil {
		return Record{}, err
	}

	s, err = field("kind")
	if err != nil {
		return Record{}, err
	}
	switch Kind(s) {
	case KindFocus, KindBreak:
		rec.Kind = Kind(s)
	default:
		return Record{}, fmt.Errorf("unknown interval kind %q", s)
	}

	s, err = field("completed")
	if err != nil {
		return Record{}, err
	}
	if rec.Completed, err = strconv.ParseBool(s); err != nil {
		return Record{}, fmt.Errorf("bad completed flag %q", s)
	}

	return rec, nil
}
