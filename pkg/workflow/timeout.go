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

import (
	"context"
	"time"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// TimeoutMode selects what happens when an operation does not settle
// within its TimeoutPolicy.Duration.
type TimeoutMode string

const (
	// OnTimeoutError aborts the workflow with a StepTimeoutError (the
	// default if TimeoutPolicy.OnTimeout is left blank).
	OnTimeoutError TimeoutMode = "error"

	// OnTimeoutOption resolves the step to T's zero value instead of
	// aborting; the operation keeps running in the background and its
	// eventual outcome is discarded.
	OnTimeoutOption TimeoutMode = "option"

	// OnTimeoutDisconnect returns immediately on timeout without
	// persisting any outcome for this step id, leaving the operation
	// detached; its eventual panic or value is swallowed so it cannot
	// surface as an unhandled background failure.
	OnTimeoutDisconnect TimeoutMode = "disconnect"
)

// TimeoutPolicy bounds how long an operation may run.
type TimeoutPolicy struct {
	Duration time.Duration

	// OnTimeout selects the fallback behavior; zero value means
	// OnTimeoutError. Ignored if CustomError is set.
	OnTimeout TimeoutMode

	// CustomError, if set, builds the error the workflow aborts with
	// on timeout, overriding OnTimeout.
	CustomError func(stepID string, timeout time.Duration) error
}

// Timeout runs op with a context scoped to policy.Duration. If op does
// not settle in time, the step resolves per policy.OnTimeout (or
// policy.CustomError) instead of waiting indefinitely.
func Timeout[T any](ctx context.Context, s *Step, id string, op TimeoutOp[T], policy TimeoutPolicy, opts ...StepOption) T {
	s.requireID(id)
	o := resolveStepOpts(id, opts)

	if cached, ok := s.checkCache(o.key); ok {
		return replay[T](ctx, s, id, o.key, cached)
	}

	s.emit(Event{Type: EventStepStart, StepID: id})
	start := time.Now()

	opCtx, cancel := context.WithTimeout(ctx, policy.Duration)
	defer cancel()

	done := make(chan result.Result[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				if sig, ok := recoverAbort(p); ok {
					done <- result.Err[T](sig.err, sig.cause)
					return
				}
				done <- result.Err[T](errFromPanic(p), p)
			}
		}()
		done <- op(opCtx)
	}()

	select {
	case r := <-done:
		dur := time.Since(start)
		if v, ok := r.Value(); ok {
			return recordSuccess(ctx, s, id, o, dur, v)
		}
		recordFailure(ctx, s, id, o, dur, r.Error(), r.Cause(), OriginResult)
		panic("unreachable")

	case <-opCtx.Done():
		dur := time.Since(start)
		s.emit(Event{Type: EventStepTimeout, StepID: id, Duration: dur})

		switch {
		case policy.CustomError != nil:
			recordFailure(ctx, s, id, o, dur, policy.CustomError(id, policy.Duration), nil, OriginResult)
			panic("unreachable")

		case policy.OnTimeout == OnTimeoutOption:
			go func() { <-done }() // drain so op's send never blocks forever
			var zero T
			return recordSuccess(ctx, s, id, o, dur, zero)

		case policy.OnTimeout == OnTimeoutDisconnect:
			go func() { <-done }()
			s.emit(Event{Type: EventStepComplete, StepID: id, Duration: dur})
			var zero T
			return zero

		default:
			recordFailure(ctx, s, id, o, dur, &xerrors.StepTimeoutError{StepID: id, Timeout: policy.Duration}, nil, OriginResult)
			panic("unreachable")
		}
	}
}
