package gateway

import (
	"fmt"

	"github.com/pkg/errors"
)

// RemoteReadError reports a failed or timed out query against the remote store.
type RemoteReadError struct {
	Op  string
	Err error
}

func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("remote read %s: %v", e.Op, e.Err)
}

func (e *RemoteReadError) Unwrap() error { return e.Err }

// RemoteWriteError reports a rejected insert, update or delete.
//
// Partial is set when a multi-step write failed after its durable step
// succeeded; the caller still receives the written value alongside the error.
type RemoteWriteError struct {
	Op      string
	Partial bool
	Err     error
}

func (e *RemoteWriteError) Error() string {
	if e.Partial {
		return fmt.Sprintf("remote write %s (partially applied): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote write %s: %v", e.Op, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

func readError(op string, err error) error {
	return &RemoteReadError{Op: op, Err: errors.WithStack(err)}
}

func writeError(op string, err error) error {
	return &RemoteWriteError{Op: op, Err: errors.WithStack(err)}
}

// IsRead reports whether err is, or wraps, a RemoteReadError.
func IsRead(err error) bool {
	var target *RemoteReadError
	return errors.As(err, &target)
}

// IsWrite reports whether err is, or wraps, a RemoteWriteError.
func IsWrite(err error) bool {
	var target *RemoteWriteError
	return errors.As(err, &target)
}

// IsPartial reports whether err is a RemoteWriteError whose durable step succeeded.
func IsPartial(err error) bool {
	var target *RemoteWriteError
	return errors.As(err, &target) && target.Partial
}
