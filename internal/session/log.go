// Package session implements the durable, hierarchically partitioned
// interval log. Each (date, language) pair maps to one CSV file under
// <root>/YYYY/MM/DD/<language>.csv; records are append-only and a
// record is flushed to stable storage before Append returns.
package session

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// ErrStorage wraps partition create/lock/flush failures.
var ErrStorage = errors.New("session storage unavailable")

// columns is the header row. Readers resolve columns by name so future
// versions may append columns without breaking older files.
var columns = []string{"start", "end", "task_id", "task_name", "kind", "completed"}

// Log is the partitioned session log rooted at a directory.
type Log struct {
	root   string
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-partition append locks, created on demand
}

// New opens (or creates) a session log rooted at root.
func New(root string, logger zerolog.Logger) (*Log, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create log root: %v", ErrStorage, err)
	}
	return &Log{
		root:   root,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the log's root directory.
func (l *Log) Root() string { return l.root }

// partitionPath resolves the partition file for a record: the date of
// its start timestamp, then its language tag.
func (l *Log) partitionPath(r Record) string {
	d := r.Start.UTC()
	return filepath.Join(l.root,
		fmt.Sprintf("%04d", d.Year()),
		fmt.Sprintf("%02d", int(d.Month())),
		fmt.Sprintf("%02d", d.Day()),
		LanguageSlug(r.Language)+".csv",
	)
}

// partitionLock returns the in-process lock for one partition, creating
// it on first use. One lock object per partition keeps appends to
// unrelated partitions from serializing each other.
func (l *Log) partitionLock(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	return m
}

// Append durably writes r to its partition before returning. The write
// is serialized per partition, both in-process and against other
// processes via a file lock, and the record is one CSV line written in
// a single call so a concurrent reader never sees half a row parse as
// valid data.
func (l *Log) Append(r Record) error {
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: record ends before it starts", ErrStorage)
	}

	path := l.partitionPath(r)
	mu := l.partitionLock(path)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create partition dir: %v", ErrStorage, err)
	}

	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("%w: lock partition: %v", ErrStorage, err)
	}
	defer fl.Unlock()

	_, statErr := os.Stat(path)
	writeHeader := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open partition: %v", ErrStorage, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if writeHeader {
		w.Write(columns)
	}
	w.Write(encodeRecord(r))
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrStorage, err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: write record: %v", ErrStorage, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: flush record: %v", ErrStorage, err)
	}

	l.logger.Debug().
		Str("partition", path).
		Str("kind", string(r.Kind)).
		Bool("completed", r.Completed).
		Msg("appended interval record")
	return nil
}

func encodeRecord(r Record) []string {
	return []string{
		r.Start.UTC().Format(timeLayout),
		r.End.UTC().Format(timeLayout),
		strconv.FormatInt(r.TaskID, 10),
		r.TaskName,
		string(r.Kind),
		strconv.FormatBool(r.Completed),
	}
}
