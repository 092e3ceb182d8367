// Package resource wraps the outcome of an asynchronous fetch.
//
// Every fetch produces zero or more Loading values followed by exactly one
// Success or Error. Consumers always render the most recent value.
package resource

import "fmt"

// Kind discriminates the three resource variants
type Kind int

const (
	KindLoading Kind = iota
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "loading"
	}
}

// Resource is Loading, Success(data) or Error(message, data, code).
// The zero value is Loading.
type Resource[T any] struct {
	kind    Kind
	data    T
	hasData bool
	message string
	code    int
}

// Loading returns a fetch-in-progress value
func Loading[T any]() Resource[T] {
	return Resource[T]{kind: KindLoading}
}

// Success returns a completed fetch. data may itself be a nil pointer when
// the lookup legitimately found nothing.
func Success[T any](data T) Resource[T] {
	return Resource[T]{kind: KindSuccess, data: data, hasData: true}
}

// Error returns a failed fetch with no partial data. code is the HTTP
// status when the remote rejected the request, 0 otherwise.
func Error[T any](message string, code int) Resource[T] {
	return Resource[T]{kind: KindError, message: message, code: code}
}

// ErrorWithData returns a failed fetch that still carries the last known
// value, so the consumer can render it and keep offering actions.
func ErrorWithData[T any](message string, data T, code int) Resource[T] {
	return Resource[T]{kind: KindError, message: message, data: data, hasData: true, code: code}
}

func (r Resource[T]) Kind() Kind { return r.kind }
func (r Resource[T]) IsLoading() bool { return r.kind == KindLoading }
func (r Resource[T]) IsSuccess() bool { return r.kind == KindSuccess }
func (r Resource[T]) IsError() bool { return r.kind == KindError }
func (r Resource[T]) Message() string { return r.message }

// Data returns the payload and whether one is present. Success always has
// data; Error has data only when built with ErrorWithData.
func (r Resource[T]) Data() (T, bool) {
	return r.data, r.hasData
}

// Code returns the HTTP status code of an Error and whether one is set
func (r Resource[T]) Code() (int, bool) {
	return r.code, r.code != 0
}

func (r Resource[T]) String() string {
	switch r.kind {
	case KindSuccess:
		return fmt.Sprintf("Success(%v)", r.data)
	case KindError:
		if r.code != 0 {
			return fmt.Sprintf("Error(%q, code=%d)", r.message, r.code)
		}
		return fmt.Sprintf("Error(%q)", r.message)
	default:
		return "Loading"
	}
}

// Map converts the payload of r with fn, preserving kind, message and code
func Map[T, U any](r Resource[T], fn func(T) U) Resource[U] {
	out := Resource[U]{kind: r.kind, message: r.message, code: r.code, hasData: r.hasData}
	if r.hasData {
		out.data = fn(r.data)
	}
	return out
}
