package queue

import (
	"context"
	"errors"
)

// Job handles one message type.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type the job consumes.
	Type() string

	// Handle processes one payload. A returned error schedules a retry
	// unless it is Permanent.
	Handle(ctx context.Context, payload []byte) error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a job error that no retry can fix. The queue dead-letters
// the message on the first failure. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err or anything it wraps was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
