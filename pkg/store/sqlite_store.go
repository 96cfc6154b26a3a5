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
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Compile-time interface assertions, same pattern the teacher's
// sqlite.Backend uses against its backend interfaces.
var (
	_ SnapshotStore = (*SQLiteStore)(nil)
	_ Locker        = (*SQLiteStore)(nil)
	_ Clearer       = (*SQLiteStore)(nil)
	_ Closer        = (*SQLiteStore)(nil)
)

// SQLiteConfig contains SQLite connection configuration.
type SQLiteConfig struct {
	// Path is the database file path ("file::memory:?cache=shared" for
	// an in-process, in-memory database useful in tests).
	Path string

	// WAL enables Write-Ahead Logging mode for concurrent readers.
	WAL bool
}

// SQLiteStore is a single-node persistent SnapshotStore backed by
// modernc.org/sqlite (pure-Go, no cgo), grounded on the teacher's
// internal/controller/backend/sqlite.Backend: same pragma set,
// migration style, and single-writer connection-pool sizing, adapted
// from conductor's runs/checkpoints/step_results schema down to the
// one snapshots-plus-locks shape SnapshotStore/Locker need.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store at
// cfg.Path and runs its migration.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent Save/Delete from this process.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) configurePragmas(ctx context.Context, enableWAL bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("store: execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_locks (
			id TEXT PRIMARY KEY,
			owner_token TEXT NOT NULL,
			acquired_at TEXT NOT NULL
		)`,
	}
	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("store: migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, id string, snapshot []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, id, snapshot, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load snapshot: %w", err)
	}
	return data, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]SnapshotRecord, error) {
	query := `SELECT id, updated_at FROM snapshots`
	args := []any{}
	if opts.Prefix != "" {
		query += ` WHERE id LIKE ?`
		args = append(args, opts.Prefix+"%")
	}
	query += ` ORDER BY id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var id, updatedAt string
		if err := rows.Scan(&id, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan snapshot row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			ts = time.Time{}
		}
		out = append(out, SnapshotRecord{ID: id, UpdatedAt: ts})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshot_locks`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// TryAcquire inserts a lock row; the id's PRIMARY KEY constraint makes
// the insert fail when another owner already holds it, the same
// exclusive-creation idea as FileStore's ".lock" sidecar file applied
// to a row instead of a file.
func (s *SQLiteStore) TryAcquire(ctx context.Context, id string) (string, bool, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot_locks (id, owner_token, acquired_at) VALUES (?, ?, ?)
	`, id, token, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintErr(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: acquire lock: %w", err)
	}
	return token, true, nil
}

func (s *SQLiteStore) Release(ctx context.Context, id string, ownerToken string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshot_locks WHERE id = ? AND owner_token = ?
	`, id, ownerToken)
	if err != nil {
		return fmt.Errorf("store: release lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM snapshot_locks WHERE id = ?`, id).Scan(&exists)
		if exists {
			return fmt.Errorf("store: release lock: owner token mismatch for %q", id)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueConstraintErr reports whether err is a SQLite UNIQUE/PRIMARY
// KEY constraint violation. modernc.org/sqlite formats these as a
// plain *sqlite.Error whose message contains "UNIQUE constraint
// failed"; matching on text avoids importing its internal error type.
func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}
