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
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// Body is a workflow's business logic: given a context and the Step
// handle used to allocate durable steps, it produces a Result.
type Body[T any] func(ctx context.Context, s *Step) result.Result[T]

// Run executes body to completion, converting the sentinel unwind any
// failing step triggers back into an ordinary Result[T]. It is the
// single panic/recover boundary in this package: every step operation
// aborts by panicking, and only Run's deferred recover is entitled to
// catch that panic and turn it back into data.
func Run[T any](ctx context.Context, body Body[T], opts ...Option) (out result.Result[T]) {
	cfg := newConfig()
	for _, apply := range opts {
		apply(cfg)
	}
	s := newStep(cfg)
	if cfg.onEvent != nil {
		s.emitter.OnAny(cfg.onEvent)
	}

	ctx, span := cfg.tracer.Start(ctx, "workflow.run: "+cfg.workflowID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("workflow.id", cfg.workflowID)),
	)

	defer func() {
		if p := recover(); p != nil {
			switch {
			case isAbortSignal(p):
				sig, _ := recoverAbort(p)
				out = result.Err[T](sig.err, sig.cause)
			case isValidationError(p):
				// A programmer error (missing or duplicate step id) is
				// never converted into a business Result; it crashes
				// the caller the way an ordinary Go panic would.
				span.End()
				panic(p)
			default:
				var err error
				if cfg.catchUnexpected != nil {
					err = cfg.catchUnexpected(p)
				} else {
					err = &xerrors.UnexpectedError{Cause: errFromPanic(p)}
				}
				out = result.Err[T](err, p)
			}
		}
		if out.IsErr() {
			span.RecordError(out.Error())
			span.SetStatus(codes.Error, out.Error().Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		finish(s, out)
	}()

	s.emit(Event{Type: EventWorkflowStart})

	if cfg.hooks != nil && cfg.hooks.BeforeStart != nil {
		if err := cfg.hooks.BeforeStart(ctx); err != nil {
			out = result.Err[T](err, nil)
			return out
		}
	}

	if err := ctx.Err(); err != nil {
		out = result.Err[T](&xerrors.WorkflowCancelledError{Reason: err}, nil)
		return out
	}

	out = body(ctx, s)
	return out
}

// finish emits the terminal workflow event matching out's shape.
func finish[T any](s *Step, out result.Result[T]) {
	if out.IsOk() {
		s.emit(Event{Type: EventWorkflowSuccess})
		return
	}

	var cancelled *xerrors.WorkflowCancelledError
	if errors.As(out.Error(), &cancelled) {
		s.emit(Event{Type: EventWorkflowCancelled, Err: out.Error(), Cause: out.Cause()})
		return
	}
	s.emit(Event{Type: EventWorkflowError, Err: out.Error(), Cause: out.Cause()})
}
