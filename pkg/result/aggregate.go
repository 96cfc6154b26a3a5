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

// All implements fail-fast aggregation: the first Err by input order
// wins. An empty input yields Ok of an empty, non-nil slice.
func All[T any](results []Result[T]) Result[[]T] {
	values := make([]T, len(results))
	for i, r := range results {
		if r.IsErr() {
			return Err[[]T](r.err, r.cause)
		}
		values[i] = r.value
	}
	return Ok(values)
}

// settledOutcome runs a thunk, recovering a panic into a
// PromiseRejectedError the way a rejected Promise would be captured.
func settledOutcome[T any](thunk func() Result[T]) (r Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			r = Err[T](&PromiseRejectedError{Reason: p}, p)
		}
	}()
	return thunk()
}

// AllAsync runs every thunk concurrently and implements fail-fast
// aggregation without awaiting still-pending work: as soon as any
// thunk settles Err, AllAsync returns that Err immediately. A panic
// inside a thunk is captured as a PromiseRejectedError. If every thunk
// settles Ok, the results are returned in input order.
func AllAsync[T any](thunks []func() Result[T]) Result[[]T] {
	type indexed struct {
		index int
		r     Result[T]
	}

	n := len(thunks)
	if n == 0 {
		return Ok([]T{})
	}

	out := make(chan indexed, n)
	for i, thunk := range thunks {
		go func(i int, thunk func() Result[T]) {
			out <- indexed{i, settledOutcome(thunk)}
		}(i, thunk)
	}

	values := make([]T, n)
	remaining := n
	for remaining > 0 {
		item := <-out
		remaining--
		if item.r.IsErr() {
			// Fail fast: return immediately, the still-running
			// goroutines' sends are buffered and simply discarded.
			return Err[[]T](item.r.err, item.r.cause)
		}
		values[item.index] = item.r.value
	}
	return Ok(values)
}

// Any returns the first Ok in input order. If every input is Err, it
// returns the first Err by input order. An empty input is an
// EmptyInputError.
func Any[T any](results []Result[T]) Result[T] {
	if len(results) == 0 {
		return Err[T](&EmptyInputError{}, nil)
	}
	for _, r := range results {
		if r.IsOk() {
			return r
		}
	}
	return results[0]
}

// AnyAsync returns the first Ok to settle across all thunks, run
// concurrently. If every thunk settles Err, the Err payload is an
// AllRejectedError carrying every failure in input order. An empty
// input is an EmptyInputError.
func AnyAsync[T any](thunks []func() Result[T]) Result[T] {
	n := len(thunks)
	if n == 0 {
		return Err[T](&EmptyInputError{}, nil)
	}

	type indexed struct {
		index int
		r     Result[T]
	}

	out := make(chan indexed, n)
	for i, thunk := range thunks {
		go func(i int, thunk func() Result[T]) {
			out <- indexed{i, settledOutcome(thunk)}
		}(i, thunk)
	}

	errs := make([]SettledError, n)
	have := make([]bool, n)
	remaining := n
	for remaining > 0 {
		item := <-out
		remaining--
		if item.r.IsOk() {
			return item.r
		}
		errs[item.index] = SettledError{Error: item.r.err, Cause: item.r.cause}
		have[item.index] = true
	}

	ordered := make([]SettledError, 0, n)
	for i := 0; i < n; i++ {
		if have[i] {
			ordered = append(ordered, errs[i])
		}
	}
	return Err[T](&AllRejectedError{Errors: ordered}, nil)
}

// AllSettled evaluates every input and reports every outcome. It
// returns Ok(values) iff every input is Ok; otherwise it returns an
// Err whose payload is an AllSettledError preserving input order,
// with a nil entry marking a successful input.
func AllSettled[T any](results []Result[T]) Result[[]T] {
	outcomes := make([]*SettledError, len(results))
	values := make([]T, len(results))
	anyErr := false
	for i, r := range results {
		if r.IsErr() {
			anyErr = true
			outcomes[i] = &SettledError{Error: r.err, Cause: r.cause}
			continue
		}
		values[i] = r.value
	}
	if anyErr {
		return Err[[]T](&AllSettledError{Outcomes: outcomes}, nil)
	}
	return Ok(values)
}

// AllSettledAsync is the concurrent form of AllSettled: it waits for
// every thunk to settle (no fail-fast) before reporting.
func AllSettledAsync[T any](thunks []func() Result[T]) Result[[]T] {
	n := len(thunks)
	results := make([]Result[T], n)

	type indexed struct {
		index int
		r     Result[T]
	}
	out := make(chan indexed, n)
	for i, thunk := range thunks {
		go func(i int, thunk func() Result[T]) {
			out <- indexed{i, settledOutcome(thunk)}
		}(i, thunk)
	}
	for j := 0; j < n; j++ {
		item := <-out
		results[item.index] = item.r
	}
	return AllSettled(results)
}

// Partition splits results into successful values and failures,
// preserving their relative order.
func Partition[T any](results []Result[T]) (values []T, errs []SettledError) {
	for _, r := range results {
		if r.IsOk() {
			values = append(values, r.value)
		} else {
			errs = append(errs, SettledError{Error: r.err, Cause: r.cause})
		}
	}
	return values, errs
}

// Pair is the two-element tuple produced by Zip/ZipAsync.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip is the tuple form of All for exactly two inputs: fail-fast,
// first input-order error wins.
func Zip[A, B any](a Result[A], b Result[B]) Result[Pair[A, B]] {
	if a.IsErr() {
		return Err[Pair[A, B]](a.err, a.cause)
	}
	if b.IsErr() {
		return Err[Pair[A, B]](b.err, b.cause)
	}
	return Ok(Pair[A, B]{First: a.value, Second: b.value})
}

// ZipAsync runs both thunks concurrently and awaits both before
// reporting; it does not fail-fast. If both fail, the first
// input-order error (a, then b) is reported.
func ZipAsync[A, B any](ta func() Result[A], tb func() Result[B]) Result[Pair[A, B]] {
	type aResult struct {
		r Result[A]
	}
	type bResult struct {
		r Result[B]
	}
	aCh := make(chan aResult, 1)
	bCh := make(chan bResult, 1)
	go func() { aCh <- aResult{settledOutcome(ta)} }()
	go func() { bCh <- bResult{settledOutcome(tb)} }()

	a := (<-aCh).r
	b := (<-bCh).r
	return Zip(a, b)
}
