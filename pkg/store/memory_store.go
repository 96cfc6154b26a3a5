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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the default, process-wide in-memory SnapshotStore:
// no persistence across restarts, used when a caller does not supply
// one. It also implements Locker so tests and single-process
// deployments can exercise the coordinator's lock-acquisition path
// without standing up a real backend.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	stamp map[string]time.Time
	locks map[string]string // id -> ownerToken
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		stamp: make(map[string]time.Time),
		locks: make(map[string]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, id string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), snapshot...)
	m.data[id] = cp
	m.stamp[id] = time.Now()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	delete(m.stamp, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SnapshotRecord, 0, len(m.data))
	for id := range m.data {
		if opts.Prefix != "" && !strings.HasPrefix(id, opts.Prefix) {
			continue
		}
		out = append(out, SnapshotRecord{ID: id, UpdatedAt: m.stamp[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.stamp = make(map[string]time.Time)
	return nil
}

func (m *MemoryStore) TryAcquire(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, locked := m.locks[id]; locked {
		return "", false, nil
	}
	token := uuid.NewString()
	m.locks[id] = token
	return token, true, nil
}

func (m *MemoryStore) Release(_ context.Context, id string, ownerToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] == ownerToken {
		delete(m.locks, id)
	}
	return nil
}
