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

// Package store defines the external collaborator interfaces the
// workflow engine consumes — SnapshotStore, StreamStore, and
// CacheAdapter — plus in-memory, filesystem, and SQLite reference
// implementations. Interface segregation lets a minimal store
// implement only the required methods; optional capabilities (cross-
// process locking, bulk clear) are probed by the caller via type
// assertion, the same pattern the teacher uses to segregate its
// backend.Backend interface. SQLiteStore is the durable,
// single-node option, grounded on the teacher's
// internal/controller/backend/sqlite.Backend.
package store
