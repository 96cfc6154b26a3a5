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

package coordinator

import (
	"log/slog"

	"github.com/jagreehal/awaitly-go/pkg/store"
	"github.com/jagreehal/awaitly-go/pkg/workflow"
)

// VersionAction selects what a version mismatch resolves to.
type VersionAction string

const (
	// VersionClear deletes the stored snapshot and starts fresh.
	VersionClear VersionAction = "clear"
	// VersionThrow fails the run with a VersionMismatchError. Default.
	VersionThrow VersionAction = "throw"
	// VersionMigrate proceeds with VersionDecision.Migrated in place of
	// the snapshot that was actually loaded.
	VersionMigrate VersionAction = "migrate"
)

// VersionDecision is what an OnVersionMismatch hook returns.
type VersionDecision struct {
	Action   VersionAction
	Migrated *workflow.Snapshot
}

func defaultOnVersionMismatch(_, _ uint32) VersionDecision {
	return VersionDecision{Action: VersionThrow}
}

// config collects the settings an Option mutates, mirroring
// pkg/workflow's own unexported config/Option pair.
type config struct {
	id                string
	store             store.SnapshotStore
	version           uint32
	onVersionMismatch func(stored, requested uint32) VersionDecision
	allowConcurrent   bool
	logger            *slog.Logger
	onEvent           workflow.EventListener
	onError           func(err error, stepName string, context any)
	catchUnexpected   func(thrown any) error
	callerContext     any
	cache             store.CacheAdapter
	asyncEvents       bool
}

func newConfig() *config {
	return &config{
		version:           1,
		onVersionMismatch: defaultOnVersionMismatch,
		logger:            slog.Default(),
	}
}

// Option configures one Run invocation.
type Option func(*config)

// WithID sets the run's identity: the snapshot store key and the event
// stream's workflow id. Required.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithStore overrides the SnapshotStore. Without it, Run uses a
// process-wide in-memory store shared across every caller that also
// omits this option, per spec.md §6.4's default.
func WithStore(s store.SnapshotStore) Option {
	return func(c *config) { c.store = s }
}

// WithVersion declares the workflow body's current version, compared
// against a resumed snapshot's recorded metadata version.
func WithVersion(v uint32) Option {
	return func(c *config) { c.version = v }
}

// WithOnVersionMismatch overrides the default ("throw") resolution for
// a stored/requested version mismatch.
func WithOnVersionMismatch(fn func(stored, requested uint32) VersionDecision) Option {
	return func(c *config) { c.onVersionMismatch = fn }
}

// WithAllowConcurrent disables both the in-process and store-level lock
// checks, letting multiple Run calls for the same id execute at once.
func WithAllowConcurrent() Option {
	return func(c *config) { c.allowConcurrent = true }
}

// WithLogger sets the coordinator's own diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnEvent registers a single observer for every event emitted by
// this run, including the coordinator's own hook_persist_* events.
func WithOnEvent(fn workflow.EventListener) Option {
	return func(c *config) { c.onEvent = fn }
}

// WithOnError forwards to the underlying Step Runtime's WithOnError.
func WithOnError(fn func(err error, stepName string, context any)) Option {
	return func(c *config) { c.onError = fn }
}

// WithCatchUnexpected forwards to the underlying Step Runtime's
// WithCatchUnexpected.
func WithCatchUnexpected(fn func(thrown any) error) Option {
	return func(c *config) { c.catchUnexpected = fn }
}

// WithContext attaches a correlation value echoed on every event.
func WithContext(value any) Option {
	return func(c *config) { c.callerContext = value }
}

// WithCache installs an in-process CacheAdapter alongside the durable
// snapshot memoization (forwarded to the Step Runtime's WithCache).
func WithCache(adapter store.CacheAdapter) Option {
	return func(c *config) { c.cache = adapter }
}

// WithAsyncEvents dispatches events to listeners concurrently.
func WithAsyncEvents() Option {
	return func(c *config) { c.asyncEvents = true }
}
