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

package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagreehal/awaitly-go/pkg/store"
)

func TestStreamWriterReaderRoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStreamStore()

	w := NewStreamWriter(backing, "wf-1", "events", nil)
	_, err := w.Write(ctx, "hello")
	require.NoError(t, err)
	_, err = w.Write(ctx, "world")
	require.NoError(t, err)

	r := NewStreamReader(backing, "wf-1", "events", 0, nil).WithPoll(5*time.Millisecond, time.Second)
	item, ended, err := r.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, ended)
	assert.Equal(t, "hello", item.Value)

	item, ended, err = r.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, ended)
	assert.Equal(t, "world", item.Value)
}

func TestStreamReaderYieldsStreamEndedAfterClose(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStreamStore()

	w := NewStreamWriter(backing, "wf-1", "events", nil)
	_, err := w.Write(ctx, "only")
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx))

	r := NewStreamReader(backing, "wf-1", "events", 0, nil).WithPoll(5*time.Millisecond, time.Second)
	_, ended, err := r.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, ended)

	_, ended, err = r.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, ended)
	assert.Equal(t, uint64(1), ended.FinalPosition)
}

func TestStreamReaderTimesOutWhenNothingArrives(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStreamStore()

	r := NewStreamReader(backing, "wf-1", "events", 0, nil).WithPoll(5*time.Millisecond, 20*time.Millisecond)
	_, ended, err := r.Next(ctx)
	assert.Nil(t, ended)
	assert.Error(t, err)
}

func TestStreamWriterIncrementsBackpressureAndReaderDrainsIt(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStreamStore()
	bp := NewBackpressureController(2, 1, nil)

	w := NewStreamWriter(backing, "wf-1", "events", bp)
	_, err := w.Write(ctx, 1)
	require.NoError(t, err)
	_, err = w.Write(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, Paused, bp.State())

	r := NewStreamReader(backing, "wf-1", "events", 0, bp).WithPoll(5*time.Millisecond, time.Second)
	_, _, err = r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, bp.Count())
}

func TestStreamWriterAppendAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStreamStore()
	w := NewStreamWriter(backing, "wf-1", "events", nil)
	require.NoError(t, w.Close(ctx))

	_, err := w.Write(ctx, "too late")
	assert.Error(t, err)
}
