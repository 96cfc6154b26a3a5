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
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jagreehal/awaitly-go/pkg/store"
)

// config collects the settings an Option mutates. It is unexported;
// callers only ever see Option values.
type config struct {
	workflowID      string
	logger          *slog.Logger
	tracer          trace.Tracer
	onEvent         EventListener
	onError         func(err error, stepName string, context any)
	catchUnexpected func(thrown any) error
	callerContext   any
	hooks           *hooks
	snapshot        *Snapshot
	cacheAdapter    store.CacheAdapter
	asyncEvents     bool
}

func newConfig() *config {
	return &config{
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/jagreehal/awaitly-go/pkg/workflow"),
	}
}

// Option configures a Run invocation.
type Option func(*config)

// WithWorkflowID overrides the identifier attached to every emitted event.
func WithWorkflowID(id string) Option {
	return func(c *config) { c.workflowID = id }
}

// WithLogger sets the *slog.Logger used for the runtime's own
// diagnostic logging (distinct from the user-facing event stream).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer installs the OpenTelemetry tracer used for the workflow's
// root span and each step's child span, mirroring the teacher's
// Runner.SetWorkflowTracer/WithWorkflowTracer. Without it, Run falls
// back to otel.Tracer, which is a no-op until the embedding process
// calls otel.SetTracerProvider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithOnEvent registers a single observer invoked for every emitted event.
func WithOnEvent(fn EventListener) Option {
	return func(c *config) { c.onEvent = fn }
}

// WithOnError registers a callback invoked whenever a step fails,
// before the failure propagates to the workflow boundary.
func WithOnError(fn func(err error, stepName string, context any)) Option {
	return func(c *config) { c.onError = fn }
}

// WithCatchUnexpected installs a mapper from a recovered panic value to
// a typed error. Without it, unexpected panics are wrapped in
// xerrors.UnexpectedError.
func WithCatchUnexpected(fn func(thrown any) error) Option {
	return func(c *config) { c.catchUnexpected = fn }
}

// WithContext attaches an arbitrary correlation value echoed on every
// emitted event. Unrelated to context.Context, which every operation
// still takes as its first argument.
func WithContext(value any) Option {
	return func(c *config) { c.callerContext = value }
}

// WithCache installs a CacheAdapter consulted by Do (and friends)
// after the coordinator's own snapshot-based memoization finds no
// recorded outcome, for step outcomes a caller wants cached independently of a durable
// run (e.g. inside a single process, across multiple Run calls).
func WithCache(adapter store.CacheAdapter) Option {
	return func(c *config) { c.cacheAdapter = adapter }
}

// WithAsyncEvents dispatches emitted events to listeners concurrently
// instead of synchronously in emission order.
func WithAsyncEvents() Option {
	return func(c *config) { c.asyncEvents = true }
}

// withHooks and withSnapshot are unexported: only internal/coordinator
// constructs these, via WireHooks/WireSnapshot below.
func withHooks(h *hooks) Option {
	return func(c *config) { c.hooks = h }
}

func withSnapshot(s *Snapshot) Option {
	return func(c *config) { c.snapshot = s }
}

// Hooks is the coordinator's view into the Step Runtime: shouldRun
// gates keyed-step replay, beforeStart runs once at entry, and
// afterStep runs after every keyed step settles.
type Hooks struct {
	ShouldRun   func(stepKey StepKey) (StepResult, bool)
	BeforeStart func(ctx context.Context) error
	// AfterStep fires once a keyed step settles. warnings is the full,
	// current warnings ledger (not just this step's), since spec.md
	// §4.4's resume invariants require metadata.warnings to be
	// rewritten wholesale on every save.
	AfterStep func(ctx context.Context, stepKey StepKey, outcome StepResult, warnings []Warning)
}

type hooks = Hooks

// WireHooks installs the coordinator's hooks into a Run invocation.
// Exported so internal/coordinator (a sibling module boundary) can
// wire itself into the Step Runtime without pkg/workflow importing it.
func WireHooks(h Hooks) Option { return withHooks(&h) }

// WireSnapshot seeds Run's memoization table from a previously loaded
// Snapshot, used by the coordinator on resume.
func WireSnapshot(s *Snapshot) Option { return withSnapshot(s) }
