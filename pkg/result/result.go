// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package result

import "fmt"

// Result is a tagged sum with two variants: Ok, carrying a value of
// type T, and Err, carrying an error and an optional untyped cause.
// The zero value is not a valid Result; always construct one via Ok
// or Err. Results are immutable and compare structurally through
// their exported accessors.
type Result[T any] struct {
	ok    bool
	value T
	err   error
	cause any
}

// Ok constructs a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{ok: true, value: value}
}

// Err constructs a failed Result. cause is an optional, untyped
// carrier for the underlying thrown/rejected value; pass nil when
// there is none.
func Err[T any](err error, cause any) Result[T] {
	return Result[T]{ok: false, err: err, cause: cause}
}

// IsOk reports whether r is the Ok variant.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether r is the Err variant.
func (r Result[T]) IsErr() bool { return !r.ok }

// Value returns the Ok payload and true, or the zero value and false
// if r is an Err.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// MustValue returns the Ok payload, panicking if r is an Err. Intended
// for tests and call sites that have already checked IsOk.
func (r Result[T]) MustValue() T {
	if !r.ok {
		panic(fmt.Sprintf("result: MustValue called on Err: %v", r.err))
	}
	return r.value
}

// Error returns the Err payload, or nil if r is Ok.
func (r Result[T]) Error() error {
	if r.ok {
		return nil
	}
	return r.err
}

// Cause returns the opaque cause attached to an Err, or nil.
func (r Result[T]) Cause() any {
	return r.cause
}

// Match is the only combinator that escapes the Result type: it calls
// onOk or onErr exhaustively and returns their result.
func Match[T, U any](r Result[T], onOk func(T) U, onErr func(err error, cause any) U) U {
	if r.ok {
		return onOk(r.value)
	}
	return onErr(r.err, r.cause)
}

// Map transforms the Ok payload; an Err passes through unchanged,
// preserving its cause.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.ok {
		return Ok(f(r.value))
	}
	return Err[U](r.err, r.cause)
}

// MapError transforms the Err payload; an Ok passes through unchanged.
func MapError[T any](r Result[T], f func(err error, cause any) (error, any)) Result[T] {
	if r.ok {
		return r
	}
	newErr, newCause := f(r.err, r.cause)
	return Err[T](newErr, newCause)
}

// AndThen is the monadic bind: given Ok it returns f(value) (itself a
// Result); given Err it short-circuits, preserving cause.
func AndThen[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.ok {
		return f(r.value)
	}
	return Err[U](r.err, r.cause)
}

// OrElse recovers from an Err by invoking f to produce a replacement
// Result; an Ok passes through unchanged.
func OrElse[T any](r Result[T], f func(err error, cause any) Result[T]) Result[T] {
	if r.ok {
		return r
	}
	return f(r.err, r.cause)
}

// Recover is a total recovery to a raw value: it always yields the Ok
// payload, computing it from f when r is an Err.
func Recover[T any](r Result[T], f func(err error, cause any) T) T {
	if r.ok {
		return r.value
	}
	return f(r.err, r.cause)
}

// Bimap applies onOk or onErr depending on the variant, producing a
// new Result of a possibly different Ok type.
func Bimap[T, U any](r Result[T], onOk func(T) U, onErr func(err error, cause any) (error, any)) Result[U] {
	if r.ok {
		return Ok(onOk(r.value))
	}
	newErr, newCause := onErr(r.err, r.cause)
	return Err[U](newErr, newCause)
}

// Tap runs f for its side effect on an Ok value without changing r.
func Tap[T any](r Result[T], f func(T)) Result[T] {
	if r.ok {
		f(r.value)
	}
	return r
}

// TapError runs f for its side effect on an Err without changing r.
func TapError[T any](r Result[T], f func(err error, cause any)) Result[T] {
	if !r.ok {
		f(r.err, r.cause)
	}
	return r
}

// MapTry is like Map, but f may fail: it returns (U, error), and it may
// also panic. A returned error or a recovered panic is passed to
// mapErr to produce the typed Err. An Err input passes through
// unchanged.
func MapTry[T, U any](r Result[T], f func(T) (U, error), mapErr func(thrown any) error) (result Result[U]) {
	if !r.ok {
		return Err[U](r.err, r.cause)
	}

	defer func() {
		if p := recover(); p != nil {
			result = Err[U](mapErr(p), p)
		}
	}()

	v, err := f(r.value)
	if err != nil {
		return Err[U](mapErr(err), err)
	}
	return Ok(v)
}

// MapErrorTry is like MapError, but f may panic; a recovered panic is
// passed to mapErr to produce the replacement error. An Ok input
// passes through unchanged.
func MapErrorTry[T any](r Result[T], f func(err error, cause any) (error, any), mapErr func(thrown any) error) (result Result[T]) {
	if r.ok {
		return r
	}

	defer func() {
		if p := recover(); p != nil {
			result = Err[T](mapErr(p), p)
		}
	}()

	newErr, newCause := f(r.err, r.cause)
	return Err[T](newErr, newCause)
}
