// Package result defines Result, the tagged outcome of an asynchronous
// request: Idle, Loading, Success(value) or Error(cause). Exactly one variant
// is active; consumers switch on State.
package result

import "fmt"

// State is the active variant of a Result.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is an immutable request outcome. The zero value is Idle.
type Result[T any] struct {
	state State
	value T
	err   error
}

func Idle[T any]() Result[T] { return Result[T]{state: StateIdle} }

func Loading[T any]() Result[T] { return Result[T]{state: StateLoading} }

func Success[T any](v T) Result[T] { return Result[T]{state: StateSuccess, value: v} }

// Error builds the Error variant. A nil cause is replaced so that Err never
// returns nil for an Error result.
func Error[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}
	return Result[T]{state: StateError, err: err}
}

func (r Result[T]) State() State { return r.state }

func (r Result[T]) IsSuccess() bool { return r.state == StateSuccess }

func (r Result[T]) IsError() bool { return r.state == StateError }

// Value returns the success payload and whether the result is a Success.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.state == StateSuccess
}

// Err returns the cause of an Error result and nil for other variants.
func (r Result[T]) Err() error {
	if r.state != StateError {
		return nil
	}
	return r.err
}

// Unwrap converts the result to the usual (value, error) pair. Idle and
// Loading report an error since they carry no value.
func (r Result[T]) Unwrap() (T, error) {
	switch r.state {
	case StateSuccess:
		return r.value, nil
	case StateError:
		return r.value, r.err
	default:
		return r.value, fmt.Errorf("result is %s", r.state)
	}
}
