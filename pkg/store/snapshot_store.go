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

package store

import (
	"context"
	"time"
)

// SnapshotRecord pairs a run id with its last-updated time, the shape
// returned by SnapshotStore.List.
type SnapshotRecord struct {
	ID        string
	UpdatedAt time.Time
}

// ListOptions filters SnapshotStore.List.
type ListOptions struct {
	Prefix string
	Limit  int
}

// SnapshotStore is the core persistence contract the coordinator
// requires: save, load, delete, and list. Snapshot is passed as
// encoding-agnostic bytes (the coordinator owns JSON encoding via
// workflow.Snapshot) so a store implementation never needs to import
// pkg/workflow.
type SnapshotStore interface {
	Save(ctx context.Context, id string, snapshot []byte) error
	Load(ctx context.Context, id string) ([]byte, error) // nil, nil if absent
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]SnapshotRecord, error)
}

// Locker is an optional capability: a store that implements it
// supports cross-process advisory locking. The coordinator probes for
// it via type assertion rather than requiring it on SnapshotStore.
type Locker interface {
	TryAcquire(ctx context.Context, id string) (ownerToken string, acquired bool, err error)
	Release(ctx context.Context, id string, ownerToken string) error
}

// Clearer is an optional bulk-delete fast path.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Closer is an optional lifecycle hook.
type Closer interface {
	Close() error
}
