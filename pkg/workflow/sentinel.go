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

package workflow

import "github.com/jagreehal/awaitly-go/pkg/xerrors"

// abortMarker is an unexported type used only as a type-assertion tag:
// an ordinary recover() in user workflow code that re-panics whatever
// it caught (the conventional Go idiom) will still propagate this
// value up to Run's boundary recover, since only Run checks for this
// concrete type. A plain recover-and-swallow cannot distinguish it
// from any other panic it might accidentally catch, but the only code
// permitted to panic with an *abortSignal is this package itself.
type abortMarker struct{}

// abortSignal unwinds a workflow body from the point a step fails up
// to Run's boundary. It is this package's one deliberate use of
// panic/recover, implementing the early-exit contract: user code that
// writes `v := step.Do(...)` never sees a returned error on failure;
// the call simply never returns, and Run converts the unwind back into
// a Result[T] Err.
type abortSignal struct {
	abortMarker
	err   error
	cause any
	meta  map[string]any
}

// abort panics with the early-exit sentinel carrying err, cause, and
// meta. Every Step method that can fail calls this instead of
// returning an error, so ordinary Go control flow in the workflow body
// reads as straight-line code.
func abort(err error, cause any, meta map[string]any) {
	panic(&abortSignal{err: err, cause: cause, meta: meta})
}

// recoverAbort inspects a recovered panic value. If it is this
// package's sentinel, it returns it and ok=true; any other value
// (including nil, meaning no panic occurred) is re-panicked by the
// caller, since only an *abortSignal is ours to catch.
func recoverAbort(recovered any) (*abortSignal, bool) {
	sig, ok := recovered.(*abortSignal)
	return sig, ok
}

func isAbortSignal(recovered any) bool {
	_, ok := recovered.(*abortSignal)
	return ok
}

// isValidationError reports whether recovered is this package's own
// programmer-error panic (requireID's empty or duplicate step id).
func isValidationError(recovered any) bool {
	_, ok := recovered.(*xerrors.ValidationError)
	return ok
}
