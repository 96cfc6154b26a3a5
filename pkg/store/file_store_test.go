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

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagreehal/awaitly-go/pkg/store"
)

func TestFileStoreSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	loaded, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, s.Save(ctx, "wf-1", []byte(`{"a":1}`)))
	loaded, err = s.Load(ctx, "wf-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(loaded))

	require.NoError(t, s.Delete(ctx, "wf-1"))
	loaded, err = s.Load(ctx, "wf-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStoreLockingIsExclusive(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	token, ok, err := s.TryAcquire(ctx, "wf-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.TryAcquire(ctx, "wf-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, "wf-1", token))

	_, ok, err = s.TryAcquire(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStoreList(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "wf-1", []byte(`{}`)))
	require.NoError(t, s.Save(ctx, "wf-2", []byte(`{}`)))

	recs, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
