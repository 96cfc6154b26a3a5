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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/store"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// StepOp is a 0-arg operation returning a Result, the shape every
// step-allocating function normalizes its argument to. Go has no
// ergonomic equivalent of overloading on a direct value versus a
// thunk: callers simply pass a closure.
type StepOp[T any] func(ctx context.Context) result.Result[T]

// ThrowingOp is an operation that produces T directly and signals
// failure by panicking, the Go analogue of a function that throws.
// Try recovers the panic and classifies it via a mapErr.
type ThrowingOp[T any] func(ctx context.Context) T

// TimeoutOp is a StepOp given a context.Context already scoped to a
// per-call deadline by Timeout.
type TimeoutOp[T any] func(ctx context.Context) result.Result[T]

// stepOpts accumulates per-step options.
type stepOpts struct {
	key string
	ttl time.Duration
}

// StepOption configures one step call.
type StepOption func(*stepOpts)

// WithKey overrides the memoization key, which otherwise defaults to
// the step's id.
func WithKey(key string) StepOption {
	return func(o *stepOpts) { o.key = key }
}

// WithTTL sets this step's cache entry lifetime in an attached
// CacheAdapter (WithCache). Zero means the adapter's own default.
func WithTTL(ttl time.Duration) StepOption {
	return func(o *stepOpts) { o.ttl = ttl }
}

func resolveStepOpts(id string, opts []StepOption) stepOpts {
	o := stepOpts{key: id}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Step is the handle a workflow body uses to allocate steps. It owns
// the id-uniqueness table, the active scope stack, the event emitter,
// and the hooks a Durable Coordinator installs to memoize replay. The
// zero value is not usable; obtain one from Run's body callback.
type Step struct {
	workflowID string
	logger     *slog.Logger
	tracer     trace.Tracer
	emitter    *EventEmitter
	scopes     *scopeStack

	onError         func(err error, stepName string, context any)
	catchUnexpected func(thrown any) error
	callerContext   any
	cache           store.CacheAdapter
	hooks           *Hooks
	snapshot        *Snapshot

	mu       sync.Mutex
	seenIDs  map[string]bool
	warnings []Warning
}

func newStep(cfg *config) *Step {
	return &Step{
		workflowID:      cfg.workflowID,
		logger:          cfg.logger,
		tracer:          cfg.tracer,
		emitter:         NewEventEmitter(cfg.asyncEvents),
		scopes:          newScopeStack(),
		onError:         cfg.onError,
		catchUnexpected: cfg.catchUnexpected,
		callerContext:   cfg.callerContext,
		cache:           cfg.cacheAdapter,
		hooks:           cfg.hooks,
		snapshot:        cfg.snapshot,
		seenIDs:         make(map[string]bool),
	}
}

// requireID enforces contract 1: mandatory, unique identity. A
// violation is a programmer error reported immediately, bypassing the
// Result channel entirely (it panics a plain error, never the
// abortSignal sentinel, so Run's boundary recover does not convert it
// into a business Err).
func (s *Step) requireID(id string) {
	if id == "" {
		panic(&xerrors.ValidationError{Field: "id", Message: "step id must not be empty"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenIDs[id] {
		panic(&xerrors.ValidationError{Field: "id", Message: fmt.Sprintf("duplicate step id %q", id)})
	}
	s.seenIDs[id] = true
}

// startStepSpan opens a child span for one step invocation, the
// per-step analogue of tracing.StartStep in the teacher: a span named
// "step: <id>" carrying the step and workflow identifiers as
// attributes. The returned context carries the span and must be
// passed to the step's op so nested spans (e.g. a further Do call)
// parent correctly.
func (s *Step) startStepSpan(ctx context.Context, id string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "step: "+id,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.id", id),
			attribute.String("workflow.id", s.workflowID),
		),
	)
}

func (s *Step) emit(e Event) {
	e.WorkflowID = s.workflowID
	e.Context = s.callerContext
	s.emitter.Emit(e)
}

// recordWarning appends a non-fatal anomaly to be surfaced on the
// next Snapshot the coordinator persists.
func (s *Step) recordWarning(w Warning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, w)
}

// Warnings returns every warning recorded so far (e.g. lossy-value
// notices). Intended for internal/coordinator to copy onto its
// Snapshot before persisting.
func (s *Step) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Warning(nil), s.warnings...)
}

// encodeStepValue marshals v for persistence. If v cannot be
// marshaled, it records a lossy-value Warning and returns a JSON null
// instead of failing the step outright, per spec.md §3.1.
func (s *Step) encodeStepValue(stepID string, v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		s.recordWarning(Warning{
			Type:   "lossy_value",
			StepID: stepID,
			Reason: err.Error(),
		})
		return json.RawMessage("null")
	}
	return data
}

// checkCache consults, in order, the coordinator's shouldRun hook, the
// Snapshot this run was seeded with (WireSnapshot), and finally the
// optional in-process CacheAdapter (WithCache).
func (s *Step) checkCache(key string) (StepResult, bool) {
	if s.hooks != nil && s.hooks.ShouldRun != nil {
		if outcome, ok := s.hooks.ShouldRun(StepKey(key)); ok {
			return outcome, true
		}
	}
	if s.snapshot != nil {
		if outcome, ok := s.snapshot.Steps[StepKey(key)]; ok {
			return outcome, true
		}
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if sr, ok := v.(StepResult); ok {
				return sr, true
			}
		}
	}
	return StepResult{}, false
}

func (s *Step) storeCache(key string, ttl time.Duration, outcome StepResult) {
	if s.cache != nil {
		s.cache.Set(key, outcome, ttl)
	}
}

func (s *Step) afterStep(ctx context.Context, key string, outcome StepResult) {
	if s.hooks != nil && s.hooks.AfterStep != nil {
		s.hooks.AfterStep(ctx, StepKey(key), outcome, s.Warnings())
	}
}
