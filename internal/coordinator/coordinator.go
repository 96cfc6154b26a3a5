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

// Package coordinator implements the resume/execute/finalize algorithm
// that turns pkg/workflow's single-shot Step Runtime into a durable
// workflow: snapshot-backed memoization across process restarts,
// cross-process locking, and version-gated resume, grounded on the
// teacher's runner.StateManager plus checkpoint.Manager (run-state
// bookkeeping and crash-recovery checkpoints, here unified into one
// store-backed snapshot per run).
package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/store"
	"github.com/jagreehal/awaitly-go/pkg/workflow"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// WorkflowFunc is a coordinator-managed workflow body; identical in
// shape to workflow.Body, aliased here so callers of this package
// never need to import pkg/workflow just to name the type.
type WorkflowFunc[T any] = workflow.Body[T]

// Coordinator tracks in-process run activity. The zero value is not
// usable; construct one with New.
type Coordinator struct {
	mu     sync.Mutex
	active map[string]struct{}
	logger *slog.Logger
}

// New creates a Coordinator. logger may be nil (defaults to
// slog.Default()); it logs only best-effort failures that spec.md
// explicitly says are not surfaced to the caller (e.g. a failed lock
// release).
func New(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		active: make(map[string]struct{}),
		logger: logger,
	}
}

var (
	defaultStoreOnce sync.Once
	defaultStore     *store.MemoryStore
)

// sharedDefaultStore returns the process-wide in-memory SnapshotStore
// used when a Run call supplies no WithStore option, per spec.md
// §6.4's "default is a process-wide in-memory store" — a single
// instance shared by every such call, not a fresh one per run.
func sharedDefaultStore() *store.MemoryStore {
	defaultStoreOnce.Do(func() { defaultStore = store.NewMemoryStore() })
	return defaultStore
}

// Run executes body under the coordinator's resume/execute/finalize
// algorithm (spec.md §4.4). Go's method-type-parameter restriction
// (a method cannot declare type parameters beyond its receiver's)
// means this is a free function taking *Coordinator explicitly, the
// same adaptation pkg/workflow applies to Do/Try/Retry/etc.
func Run[T any](ctx context.Context, c *Coordinator, body WorkflowFunc[T], opts ...Option) result.Result[T] {
	cfg := newConfig()
	for _, apply := range opts {
		apply(cfg)
	}
	if cfg.id == "" {
		return result.Err[T](&xerrors.ValidationError{Field: "id", Message: "coordinator run requires WithID"}, nil)
	}
	if cfg.store == nil {
		cfg.store = sharedDefaultStore()
	}

	logger := cfg.logger.With(slog.String("component", "coordinator"), slog.String("workflow_id", cfg.id))

	emit := func(e workflow.Event) {
		if cfg.onEvent == nil {
			return
		}
		if e.WorkflowID == "" {
			e.WorkflowID = cfg.id
		}
		cfg.onEvent(e)
	}

	ownerToken, locked, lockErr := c.acquire(ctx, cfg)
	if lockErr != nil {
		return result.Err[T](lockErr, nil)
	}
	defer c.release(ctx, cfg, ownerToken, locked, logger)

	snap, loadErr := loadSnapshot(ctx, cfg.store, cfg.id)
	if loadErr != nil {
		return result.Err[T](loadErr, nil)
	}

	snap, versionErr := reconcileVersion(ctx, cfg, snap, logger)
	if versionErr != nil {
		return result.Err[T](versionErr, nil)
	}

	var snapMu sync.Mutex
	hooks := workflow.Hooks{
		ShouldRun: func(key workflow.StepKey) (workflow.StepResult, bool) {
			snapMu.Lock()
			defer snapMu.Unlock()
			outcome, ok := snap.Steps[key]
			return outcome, ok
		},
		AfterStep: func(ctx context.Context, key workflow.StepKey, outcome workflow.StepResult, warnings []workflow.Warning) {
			snapMu.Lock()
			if outcome.Ok {
				// Only successful outcomes are memoized: a replayed
				// failure would make the failing step permanently
				// un-retryable, contradicting spec.md §4.4's resume
				// scenario (a fixed dependency must be allowed to
				// re-run and succeed on the next attempt).
				snap.Steps[key] = outcome
			}
			snap.Execution.CurrentStepID = string(key)
			snap.Execution.LastUpdated = time.Now()
			snap.Warnings = warnings
			persisted := snap.Clone()
			snapMu.Unlock()

			data, err := json.Marshal(persisted)
			if err == nil {
				err = cfg.store.Save(ctx, cfg.id, data)
			}
			if err != nil {
				logger.Warn("failed to persist snapshot after step", slog.String("step", string(key)), slog.Any("error", err))
				recordPersistenceError("save", err)
				emit(workflow.Event{Type: workflow.EventHookPersistError, StepID: string(key), Err: err})
				return
			}
			emit(workflow.Event{Type: workflow.EventHookPersistSuccess, StepID: string(key)})
		},
	}

	runOpts := []workflow.Option{
		workflow.WithWorkflowID(cfg.id),
		workflow.WireHooks(hooks),
		workflow.WireSnapshot(snap),
		workflow.WithOnEvent(emit),
	}
	if cfg.onError != nil {
		runOpts = append(runOpts, workflow.WithOnError(cfg.onError))
	}
	if cfg.catchUnexpected != nil {
		runOpts = append(runOpts, workflow.WithCatchUnexpected(cfg.catchUnexpected))
	}
	if cfg.callerContext != nil {
		runOpts = append(runOpts, workflow.WithContext(cfg.callerContext))
	}
	if cfg.cache != nil {
		runOpts = append(runOpts, workflow.WithCache(cfg.cache))
	}
	if cfg.asyncEvents {
		runOpts = append(runOpts, workflow.WithAsyncEvents())
	}
	runOpts = append(runOpts, workflow.WithLogger(logger))

	out := workflow.Run(ctx, body, runOpts...)
	return finalize(ctx, cfg, snap, out, logger)
}
