package tui

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/arsetyo/tomat/internal/session"
	"github.com/arsetyo/tomat/internal/task"
)

// recorder is the engine's interval sink. The durable append happens
// first, then the registry counters, all before the timer transition
// returns, so the in-memory view never gets ahead of the log.
type recorder struct {
	log      *session.Log
	registry *task.Registry
	logger   zerolog.Logger

	// newBackOff builds the retry policy for one append. Swappable so
	// tests do not wait out the real schedule.
	newBackOff func() backoff.BackOff
}

func newRecorder(log *session.Log, registry *task.Registry, logger zerolog.Logger) *recorder {
	return &recorder{
		log:      log,
		registry: registry,
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 2 * time.Second
			return b
		},
	}
}

// Record appends rec durably, retrying transient storage failures with
// backoff, then updates the task registry. A registry miss is returned
// as-is: it means the registry and the log have diverged, which the
// caller must treat as fatal.
func (r *recorder) Record(rec session.Record) error {
	op := func() error { return r.log.Append(rec) }
	if err := backoff.Retry(op, r.newBackOff()); err != nil {
		r.logger.Error().Err(err).Msg("session log append failed after retries")
		return err
	}

	if rec.Kind != session.KindFocus {
		r.registry.Touch(rec.TaskID, rec.End)
		return nil
	}
	if rec.Completed {
		return r.registry.RecordCompletion(rec.TaskID, rec.End)
	}
	return r.registry.RecordAttempt(rec.TaskID, rec.End)
}
