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
	"fmt"
	"sync"
	"time"
)

// StreamItem is one entry of a namespaced stream: a value plus its
// dense, strictly increasing position and write timestamp.
type StreamItem struct {
	Value    any
	Position uint64
	Ts       time.Time
}

// StreamMetadata tracks a namespaced stream's lifecycle.
type StreamMetadata struct {
	Length      uint64
	Closed      bool
	CreatedAt   time.Time
	LastWriteAt time.Time
	ClosedAt    *time.Time
}

// Unsubscribe cancels a StreamStore.Subscribe registration.
type Unsubscribe func()

// StreamStore is the append-only, multi-writer multi-reader contract
// for namespaced per-workflow streams. Append must be serialized per
// (workflowID, namespace); callers coordinate that externally (the
// workflow owns exactly one StreamWriter per namespace).
type StreamStore interface {
	Append(ctx context.Context, workflowID, namespace string, value any) (StreamItem, error)
	Read(ctx context.Context, workflowID, namespace string, startIndex uint64, limit int) ([]StreamItem, error)
	GetMetadata(ctx context.Context, workflowID, namespace string) (*StreamMetadata, error)
	CloseStream(ctx context.Context, workflowID, namespace string) error
	Subscribe(ctx context.Context, workflowID, namespace string, cb func(StreamItem)) Unsubscribe
}

type streamKey struct {
	workflowID string
	namespace  string
}

// MemoryStreamStore is an in-process StreamStore: items live only for
// the process lifetime, which is sufficient for single-process runs
// and tests.
type MemoryStreamStore struct {
	mu    sync.Mutex
	items map[streamKey][]StreamItem
	meta  map[streamKey]*StreamMetadata
	subs  map[streamKey][]func(StreamItem)
}

// NewMemoryStreamStore creates an empty MemoryStreamStore.
func NewMemoryStreamStore() *MemoryStreamStore {
	return &MemoryStreamStore{
		items: make(map[streamKey][]StreamItem),
		meta:  make(map[streamKey]*StreamMetadata),
		subs:  make(map[streamKey][]func(StreamItem)),
	}
}

func (s *MemoryStreamStore) Append(_ context.Context, workflowID, namespace string, value any) (StreamItem, error) {
	s.mu.Lock()
	key := streamKey{workflowID, namespace}
	m, ok := s.meta[key]
	if !ok {
		m = &StreamMetadata{CreatedAt: time.Now()}
		s.meta[key] = m
	}
	if m.Closed {
		s.mu.Unlock()
		return StreamItem{}, fmt.Errorf("store: stream %s/%s is closed", workflowID, namespace)
	}

	item := StreamItem{Value: value, Position: m.Length, Ts: time.Now()}
	s.items[key] = append(s.items[key], item)
	m.Length++
	m.LastWriteAt = item.Ts

	subs := append([]func(StreamItem){}, s.subs[key]...)
	s.mu.Unlock()

	for _, cb := range subs {
		if cb == nil {
			continue
		}
		func(cb func(StreamItem)) {
			defer func() { _ = recover() }() // subscriber errors are swallowed
			cb(item)
		}(cb)
	}
	return item, nil
}

func (s *MemoryStreamStore) Read(_ context.Context, workflowID, namespace string, startIndex uint64, limit int) ([]StreamItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamKey{workflowID, namespace}
	all := s.items[key]
	if startIndex >= uint64(len(all)) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && int(startIndex)+limit < end {
		end = int(startIndex) + limit
	}
	out := make([]StreamItem, end-int(startIndex))
	copy(out, all[startIndex:end])
	return out, nil
}

func (s *MemoryStreamStore) GetMetadata(_ context.Context, workflowID, namespace string) (*StreamMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meta[streamKey{workflowID, namespace}]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStreamStore) CloseStream(_ context.Context, workflowID, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamKey{workflowID, namespace}
	m, ok := s.meta[key]
	if !ok {
		m = &StreamMetadata{CreatedAt: time.Now()}
		s.meta[key] = m
	}
	if m.Closed {
		return nil
	}
	m.Closed = true
	now := time.Now()
	m.ClosedAt = &now
	return nil
}

func (s *MemoryStreamStore) Subscribe(_ context.Context, workflowID, namespace string, cb func(StreamItem)) Unsubscribe {
	s.mu.Lock()
	key := streamKey{workflowID, namespace}
	s.subs[key] = append(s.subs[key], cb)
	idx := len(s.subs[key]) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[key]
		if idx < len(subs) {
			subs[idx] = nil
		}
	}
}
