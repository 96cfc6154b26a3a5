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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// Do runs op under id, memoizing its outcome. On Ok it returns the
// value directly; on Err it aborts the enclosing workflow, so the
// call site never sees a returned error.
func Do[T any](ctx context.Context, s *Step, id string, op StepOp[T], opts ...StepOption) T {
	s.requireID(id)
	o := resolveStepOpts(id, opts)

	if cached, ok := s.checkCache(o.key); ok {
		return replay[T](ctx, s, id, o.key, cached)
	}

	ctx, span := s.startStepSpan(ctx, id)
	defer span.End()

	s.emit(Event{Type: EventStepStart, StepID: id})
	start := time.Now()
	r := op(ctx)
	dur := time.Since(start)

	if v, ok := r.Value(); ok {
		span.SetStatus(codes.Ok, "")
		return recordSuccess(ctx, s, id, o, dur, v)
	}
	span.RecordError(r.Error())
	span.SetStatus(codes.Error, r.Error().Error())
	recordFailure(ctx, s, id, o, dur, r.Error(), r.Cause(), OriginResult)
	panic("unreachable")
}

// FromResult behaves like Do but remaps a failing Result's error
// through mapErr before it is persisted and propagated, letting a
// workflow translate a generic op failure into a domain-specific
// error type without losing the original cause.
func FromResult[T any](ctx context.Context, s *Step, id string, op StepOp[T], mapErr func(err error, cause any) error, opts ...StepOption) T {
	s.requireID(id)
	o := resolveStepOpts(id, opts)

	if cached, ok := s.checkCache(o.key); ok {
		return replay[T](ctx, s, id, o.key, cached)
	}

	ctx, span := s.startStepSpan(ctx, id)
	defer span.End()

	s.emit(Event{Type: EventStepStart, StepID: id})
	start := time.Now()
	r := op(ctx)
	dur := time.Since(start)

	if v, ok := r.Value(); ok {
		span.SetStatus(codes.Ok, "")
		return recordSuccess(ctx, s, id, o, dur, v)
	}
	mapped := mapErr(r.Error(), r.Cause())
	span.RecordError(mapped)
	span.SetStatus(codes.Error, mapped.Error())
	recordFailure(ctx, s, id, o, dur, mapped, r.Cause(), OriginResult)
	panic("unreachable")
}

// Try wraps an operation that signals failure by panicking rather
// than returning an Err, the Go analogue of a step body that throws.
// mapErr classifies the recovered value into a typed error.
func Try[T any](ctx context.Context, s *Step, id string, op ThrowingOp[T], mapErr func(thrown any) error, opts ...StepOption) T {
	s.requireID(id)
	o := resolveStepOpts(id, opts)

	if cached, ok := s.checkCache(o.key); ok {
		return replay[T](ctx, s, id, o.key, cached)
	}

	ctx, span := s.startStepSpan(ctx, id)
	defer span.End()

	s.emit(Event{Type: EventStepStart, StepID: id})
	start := time.Now()

	var value T
	var thrown any
	var threw bool
	func() {
		defer func() {
			if p := recover(); p != nil {
				threw = true
				thrown = p
			}
		}()
		value = op(ctx)
	}()
	dur := time.Since(start)

	if !threw {
		span.SetStatus(codes.Ok, "")
		return recordSuccess(ctx, s, id, o, dur, value)
	}
	err := mapErr(thrown)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	recordFailure(ctx, s, id, o, dur, err, thrown, OriginThrow)
	panic("unreachable")
}

// recordSuccess persists, replays the AfterStep hook for, and emits
// the event pair for a step that produced v.
func recordSuccess[T any](ctx context.Context, s *Step, id string, o stepOpts, dur time.Duration, v T) T {
	outcome := StepResult{Ok: true, Value: s.encodeStepValue(id, v)}
	s.storeCache(o.key, o.ttl, outcome)
	s.afterStep(ctx, o.key, outcome)
	s.scopes.recordSuccess(id)
	s.emit(Event{Type: EventStepSuccess, StepID: id, Duration: dur})
	s.emit(Event{Type: EventStepComplete, StepID: id, Duration: dur})
	return v
}

// recordFailure persists, replays the AfterStep hook for, emits the
// event pair for, and finally aborts the workflow on behalf of a step
// that failed with err (and optional cause). It never returns.
func recordFailure(ctx context.Context, s *Step, id string, o stepOpts, dur time.Duration, err error, cause any, origin ResultOrigin) {
	outcome := StepResult{Ok: false, Error: err.Error(), Origin: origin}
	if cause != nil {
		outcome.Cause = s.encodeStepValue(id, cause)
	}
	s.storeCache(o.key, o.ttl, outcome)
	s.afterStep(ctx, o.key, outcome)
	if s.onError != nil {
		s.onError(err, id, s.callerContext)
	}
	s.emit(Event{Type: EventStepError, StepID: id, Err: err, Cause: cause, Duration: dur})
	abort(err, cause, nil)
}

// replay resolves a step id against a previously recorded outcome
// (either the coordinator's ShouldRun hook or an attached
// CacheAdapter) without invoking its op again.
func replay[T any](ctx context.Context, s *Step, id, key string, cached StepResult) T {
	s.emit(Event{Type: EventStepCacheHit, StepID: id})

	if cached.Ok {
		v := decodeStepValue[T](s, id, cached.Value)
		s.afterStep(ctx, key, cached)
		s.scopes.recordSuccess(id)
		s.emit(Event{Type: EventStepSuccess, StepID: id})
		s.emit(Event{Type: EventStepComplete, StepID: id})
		return v
	}

	err := errors.New(cached.Error)
	var cause any
	if len(cached.Cause) > 0 {
		_ = json.Unmarshal(cached.Cause, &cause)
	}
	s.afterStep(ctx, key, cached)
	s.emit(Event{Type: EventStepError, StepID: id, Err: err, Cause: cause})
	abort(err, cause, cached.Meta)
	panic("unreachable")
}

func decodeStepValue[T any](s *Step, stepID string, data json.RawMessage) T {
	var v T
	if len(data) == 0 {
		return v
	}
	if err := json.Unmarshal(data, &v); err != nil {
		s.recordWarning(Warning{Type: "lossy_value", StepID: stepID, Reason: err.Error()})
	}
	return v
}

// errFromPanic normalizes a recovered panic value to an error,
// preserving it as-is if it already was one.
func errFromPanic(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("%v", p)
}

// runCaptured executes op, converting both this package's abort
// sentinel and any other recovered panic into a Result so a fan-out
// goroutine never crashes the process.
func runCaptured(ctx context.Context, s *Step, op StepOp[any]) (r result.Result[any]) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if sig, ok := recoverAbort(p); ok {
			r = result.Err[any](sig.err, sig.cause)
			return
		}
		var err error
		if s.catchUnexpected != nil {
			err = s.catchUnexpected(p)
		} else {
			err = &xerrors.UnexpectedError{Cause: errFromPanic(p)}
		}
		r = result.Err[any](err, p)
	}()
	return op(ctx)
}
