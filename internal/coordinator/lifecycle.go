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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/store"
	"github.com/jagreehal/awaitly-go/pkg/workflow"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// acquire implements spec.md §4.4 step 1. It returns the store-level
// owner token (empty if none was needed), whether the in-process slot
// was reserved (so release knows whether to free it), and a non-nil
// error if acquisition failed outright.
func (c *Coordinator) acquire(ctx context.Context, cfg *config) (ownerToken string, reserved bool, err error) {
	if cfg.allowConcurrent {
		return "", false, nil
	}

	c.mu.Lock()
	if _, busy := c.active[cfg.id]; busy {
		c.mu.Unlock()
		return "", false, &xerrors.ConcurrentExecutionError{RunID: cfg.id, Reason: "in-process"}
	}
	c.active[cfg.id] = struct{}{}
	c.mu.Unlock()
	reserved = true

	locker, ok := cfg.store.(store.Locker)
	if !ok {
		return "", reserved, nil
	}

	token, acquired, lockErr := locker.TryAcquire(ctx, cfg.id)
	if lockErr != nil {
		c.releaseInProcess(cfg.id)
		recordPersistenceError("acquire", lockErr)
		return "", false, &xerrors.PersistenceError{Op: "acquire", RunID: cfg.id, Cause: lockErr}
	}
	if !acquired {
		c.releaseInProcess(cfg.id)
		return "", false, &xerrors.ConcurrentExecutionError{RunID: cfg.id, Reason: "cross-process"}
	}
	return token, reserved, nil
}

// release implements spec.md §4.4 step 6: always executed, failures
// logged but never surfaced.
func (c *Coordinator) release(ctx context.Context, cfg *config, ownerToken string, reserved bool, logger *slog.Logger) {
	if !reserved {
		return
	}
	c.releaseInProcess(cfg.id)

	if locker, ok := cfg.store.(store.Locker); ok && ownerToken != "" {
		if err := locker.Release(ctx, cfg.id, ownerToken); err != nil {
			logger.Warn("failed to release store lock", slog.Any("error", err))
			recordPersistenceError("release", err)
		}
	}
}

func (c *Coordinator) releaseInProcess(id string) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}

// loadSnapshot implements spec.md §4.4 step 2.
func loadSnapshot(ctx context.Context, s store.SnapshotStore, id string) (*workflow.Snapshot, error) {
	data, err := s.Load(ctx, id)
	if err != nil {
		recordPersistenceError("load", err)
		return nil, &xerrors.PersistenceError{Op: "load", RunID: id, Cause: err}
	}
	if data == nil {
		return workflow.NewSnapshot(), nil
	}

	var snap workflow.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		recordPersistenceError("load", err)
		return nil, &xerrors.PersistenceError{Op: "load", RunID: id, Cause: err}
	}
	if err := snap.Validate(); err != nil {
		recordPersistenceError("load", err)
		return nil, &xerrors.PersistenceError{Op: "load", RunID: id, Cause: err}
	}
	return &snap, nil
}

// reconcileVersion implements spec.md §4.4 step 3.
func reconcileVersion(ctx context.Context, cfg *config, snap *workflow.Snapshot, logger *slog.Logger) (*workflow.Snapshot, error) {
	stored := snap.Metadata.Version
	if stored == 0 {
		stored = 1
	}
	requested := cfg.version
	if requested == 0 {
		requested = 1
	}
	if stored == requested {
		return snap, nil
	}

	decision := cfg.onVersionMismatch(stored, requested)
	switch decision.Action {
	case VersionClear:
		if err := cfg.store.Delete(ctx, cfg.id); err != nil {
			logger.Warn("failed to delete snapshot on version-mismatch clear", slog.Any("error", err))
			recordPersistenceError("delete", err)
		}
		fresh := workflow.NewSnapshot()
		fresh.Metadata.Version = requested
		return fresh, nil
	case VersionMigrate:
		migrated := decision.Migrated
		if migrated == nil {
			migrated = workflow.NewSnapshot()
		}
		migrated.Metadata.Version = requested
		return migrated, nil
	default:
		return nil, &xerrors.VersionMismatchError{
			RunID:           cfg.id,
			SnapshotVersion: versionString(stored),
			CurrentVersion:  versionString(requested),
		}
	}
}

func versionString(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// finalize implements spec.md §4.4 step 5.
func finalize[T any](ctx context.Context, cfg *config, snap *workflow.Snapshot, out result.Result[T], logger *slog.Logger) result.Result[T] {
	if out.IsOk() {
		if err := cfg.store.Delete(ctx, cfg.id); err != nil {
			recordPersistenceError("delete", err)
			v, _ := out.Value()
			return result.Err[T](&xerrors.PersistenceError{Op: "delete", RunID: cfg.id, Cause: err}, v)
		}
		return out
	}

	var cancelled *xerrors.WorkflowCancelledError
	status := workflow.StatusFailed
	if errors.As(out.Error(), &cancelled) {
		status = workflow.StatusCancelled
	}

	// Leave the snapshot intact (every successful keyed step up to the
	// failure was already persisted by the AfterStep hook) but stamp
	// its terminal status so a later List/inspect reflects why the run
	// stopped, then persist that final state.
	snap.Execution.Status = status
	if data, err := json.Marshal(snap); err == nil {
		if err := cfg.store.Save(ctx, cfg.id, data); err != nil {
			logger.Warn("failed to persist final snapshot status", slog.Any("error", err))
			recordPersistenceError("save", err)
		}
	}
	return out
}
