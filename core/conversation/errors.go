package conversation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned by Sync when the exchange was cancelled, either
	// through Cancel, a newer Sync or the caller's context. It also matches
	// context.Canceled.
	ErrCancelled = errors.New("conversation: exchange cancelled")
	// ErrStreamIdle is returned when the backend sends nothing for longer
	// than the idle timeout.
	ErrStreamIdle = errors.New("conversation: stream idle")

	errSuperseded = errors.New("superseded by a newer exchange")
)

type cancelledError struct {
	cause error
}

func (e *cancelledError) Error() string {
	if e.cause == nil || errors.Is(e.cause, ErrCancelled) {
		return ErrCancelled.Error()
	}
	return fmt.Sprintf("%s: %v", ErrCancelled, e.cause)
}

func (e *cancelledError) Is(target error) bool {
	return target == ErrCancelled || target == context.Canceled
}

func (e *cancelledError) Unwrap() error {
	return e.cause
}

// StatusError is a non-OK response from the backend.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("non-OK HTTP status: %s", e.Status)
	}
	return fmt.Sprintf("non-OK HTTP status: %s: %s", e.Status, e.Body)
}
