package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means the durable queue or state store could not
	// be opened, read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNetworkUnreachable means a delivery attempt never reached the remote:
	// transport failure, timeout, open circuit, or a transient status.
	ErrNetworkUnreachable = errors.New("network unreachable")

	// ErrRemoteRejected means the remote answered and refused the request.
	ErrRemoteRejected = errors.New("remote rejected request")

	// ErrMalformedRecord means a queued record cannot be turned back into a request.
	ErrMalformedRecord = errors.New("malformed queued record")

	// ErrDrainInProgress is returned to a trigger that arrives while a drain runs.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrNotFound is returned by lookups of absent records or keys.
	ErrNotFound = errors.New("not found")
)

// RejectedError carries the status of a definitive remote refusal.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote rejected request with status %d", e.Status)
	}
	return fmt.Sprintf("remote rejected request with status %d: %s", e.Status, e.Body)
}

// Unwrap lets errors.Is match ErrRemoteRejected.
func (e *RejectedError) Unwrap() error {
	return ErrRemoteRejected
}

// StorageError wraps a backend failure so that it matches ErrStorageUnavailable
// while keeping the original cause inspectable.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

// Malformed wraps a cause as ErrMalformedRecord.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}
