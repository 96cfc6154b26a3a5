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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore is a filesystem-backed SnapshotStore: one JSON file per
// run id under Dir. Cross-process locking is implemented with an
// exclusively-created ".lock" sidecar file, so TryAcquire genuinely
// fails when another process holds the lock.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the store directory (0700) if needed and
// returns a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *FileStore) lockPath(id string) string {
	return filepath.Join(f.dir, id+".lock")
}

func (f *FileStore) Save(_ context.Context, id string, snapshot []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.WriteFile(f.path(id), snapshot, 0o600); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read snapshot: %w", err)
	}
	return data, nil
}

func (f *FileStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) List(_ context.Context, opts ListOptions) ([]SnapshotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}

	var out []SnapshotRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		if opts.Prefix != "" && !strings.HasPrefix(id, opts.Prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, SnapshotRecord{ID: id, UpdatedAt: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: clear: %w", err)
	}
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil {
			return fmt.Errorf("store: clear: %w", err)
		}
	}
	return nil
}

// TryAcquire creates an exclusive lock file; if it already exists the
// lock is held (possibly by another process) and acquisition fails.
func (f *FileStore) TryAcquire(_ context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token := uuid.NewString()
	file, err := os.OpenFile(f.lockPath(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: acquire lock: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(token + "\n" + time.Now().Format(time.RFC3339)); err != nil {
		return "", false, fmt.Errorf("store: write lock token: %w", err)
	}
	return token, true, nil
}

// Release removes the lock file if its token matches ownerToken.
func (f *FileStore) Release(_ context.Context, id string, ownerToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.lockPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: release lock: %w", err)
	}
	if !strings.HasPrefix(string(data), ownerToken) {
		return fmt.Errorf("store: release lock: owner token mismatch for %q", id)
	}
	if err := os.Remove(f.lockPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: release lock: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
