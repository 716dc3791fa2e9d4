package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// Outcome is the typed result of a timeboxed operation: exactly one of
// success, timeout, or failure.
type Outcome[T any] struct {
	Value    T
	Err      error
	TimedOut bool
}

// OK reports whether the operation completed successfully in time.
func (o Outcome[T]) OK() bool {
	return o.Err == nil && !o.TimedOut
}

// Timebox runs op under a hard deadline. On expiry the operation's context is
// cancelled best-effort and TimedOut is returned without waiting for the
// operation to unwind; a late completion drains into the buffered channel and
// is discarded. Panics inside op are captured as failures so the caller always
// receives a typed outcome.
func Timebox[T any](ctx context.Context, deadline time.Duration, op func(context.Context) (T, error)) Outcome[T] {
	opCtx, cancel := context.WithTimeout(ctx, deadline)

	done := make(chan Outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome[T]{Err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()
		value, err := op(opCtx)
		done <- Outcome[T]{Value: value, Err: err}
	}()

	select {
	case out := <-done:
		cancel()
		return out
	case <-opCtx.Done():
		cancel()
		return Outcome[T]{TimedOut: true}
	}
}
