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

package coordinator_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagreehal/awaitly-go/internal/coordinator"
	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/store"
	"github.com/jagreehal/awaitly-go/pkg/workflow"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

func TestRunRequiresID(t *testing.T) {
	c := coordinator.New(nil)
	out := coordinator.Run(context.Background(), c, func(ctx context.Context, s *workflow.Step) result.Result[int] {
		return result.Ok(1)
	})

	require.True(t, out.IsErr())
	var verr *xerrors.ValidationError
	assert.True(t, errors.As(out.Error(), &verr))
}

func TestRunHappyPathPersistsThenDeletes(t *testing.T) {
	c := coordinator.New(nil)
	s := store.NewMemoryStore()

	var calls int32
	out := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		a := workflow.Do(ctx, st, "fetch-user", func(context.Context) result.Result[int] {
			atomic.AddInt32(&calls, 1)
			return result.Ok(1)
		})
		b := workflow.Do(ctx, st, "create-order", func(context.Context) result.Result[int] {
			atomic.AddInt32(&calls, 1)
			return result.Ok(a + 1)
		})
		return result.Ok(b)
	}, coordinator.WithID("order-1"), coordinator.WithStore(s))

	require.True(t, out.IsOk())
	v, _ := out.Value()
	assert.Equal(t, 2, v)
	assert.EqualValues(t, 2, calls)

	// Success deletes the snapshot per spec.md §4.4 step 5.
	data, err := s.Load(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRunFailureAtSecondStepPreservesSnapshot(t *testing.T) {
	c := coordinator.New(nil)
	s := store.NewMemoryStore()
	sentinel := errors.New("create-order unavailable")

	out := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		a := workflow.Do(ctx, st, "fetch-user", func(context.Context) result.Result[int] { return result.Ok(1) })
		workflow.Do(ctx, st, "create-order", func(context.Context) result.Result[int] {
			return result.Err[int](sentinel, nil)
		})
		return result.Ok(a)
	}, coordinator.WithID("order-2"), coordinator.WithStore(s))

	require.True(t, out.IsErr())
	assert.Same(t, sentinel, out.Error())

	data, err := s.Load(context.Background(), "order-2")
	require.NoError(t, err)
	require.NotNil(t, data)

	var snap workflow.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	_, hasFetch := snap.Steps["fetch-user"]
	_, hasCreate := snap.Steps["create-order"]
	assert.True(t, hasFetch, "the step preceding the failure must be memoized")
	assert.False(t, hasCreate, "a failed step must never be memoized")
	assert.Equal(t, workflow.StatusFailed, snap.Execution.Status)
}

func TestRunResumeAfterFailureDoesNotReplaySucceededStep(t *testing.T) {
	c := coordinator.New(nil)
	s := store.NewMemoryStore()
	sentinel := errors.New("transient")

	var fetchCalls, createCalls int32
	body := func(ctx context.Context, st *workflow.Step, fail bool) func() result.Result[int] {
		return func() result.Result[int] {
			a := workflow.Do(ctx, st, "fetch-user", func(context.Context) result.Result[int] {
				atomic.AddInt32(&fetchCalls, 1)
				return result.Ok(1)
			})
			b := workflow.Do(ctx, st, "create-order", func(context.Context) result.Result[int] {
				atomic.AddInt32(&createCalls, 1)
				if fail {
					return result.Err[int](sentinel, nil)
				}
				return result.Ok(a + 1)
			})
			return result.Ok(b)
		}
	}

	first := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		return body(ctx, st, true)()
	}, coordinator.WithID("order-3"), coordinator.WithStore(s))
	require.True(t, first.IsErr())

	second := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		return body(ctx, st, false)()
	}, coordinator.WithID("order-3"), coordinator.WithStore(s))

	require.True(t, second.IsOk())
	v, _ := second.Value()
	assert.Equal(t, 2, v)
	assert.EqualValues(t, 1, fetchCalls, "fetch-user must not be re-invoked on resume")
	assert.EqualValues(t, 2, createCalls, "create-order must be re-invoked once on resume")
}

func TestRunVersionMismatchDefaultsToThrow(t *testing.T) {
	c := coordinator.New(nil)
	s := store.NewMemoryStore()

	first := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		workflow.Do(ctx, st, "a", func(context.Context) result.Result[int] { return result.Err[int](errors.New("boom"), nil) })
		return result.Ok(0)
	}, coordinator.WithID("order-4"), coordinator.WithStore(s), coordinator.WithVersion(1))
	require.True(t, first.IsErr())

	second := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		return result.Ok(1)
	}, coordinator.WithID("order-4"), coordinator.WithStore(s), coordinator.WithVersion(2))

	require.True(t, second.IsErr())
	var verr *xerrors.VersionMismatchError
	assert.True(t, errors.As(second.Error(), &verr))
}

func TestRunVersionMismatchClearStartsFresh(t *testing.T) {
	c := coordinator.New(nil)
	s := store.NewMemoryStore()

	first := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		workflow.Do(ctx, st, "a", func(context.Context) result.Result[int] { return result.Err[int](errors.New("boom"), nil) })
		return result.Ok(0)
	}, coordinator.WithID("order-5"), coordinator.WithStore(s), coordinator.WithVersion(1))
	require.True(t, first.IsErr())

	var calls int32
	second := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		v := workflow.Do(ctx, st, "a", func(context.Context) result.Result[int] {
			atomic.AddInt32(&calls, 1)
			return result.Ok(7)
		})
		return result.Ok(v)
	}, coordinator.WithID("order-5"), coordinator.WithStore(s), coordinator.WithVersion(2),
		coordinator.WithOnVersionMismatch(func(stored, requested uint32) coordinator.VersionDecision {
			return coordinator.VersionDecision{Action: coordinator.VersionClear}
		}))

	require.True(t, second.IsOk())
	v, _ := second.Value()
	assert.Equal(t, 7, v)
	assert.EqualValues(t, 1, calls, "the cleared run must re-invoke step a, not replay the old failure")
}

func TestRunRejectsConcurrentInProcessExecution(t *testing.T) {
	c := coordinator.New(nil)
	s := store.NewMemoryStore()

	release := make(chan struct{})
	entered := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
			v := workflow.Do(ctx, st, "block", func(context.Context) result.Result[int] {
				close(entered)
				<-release
				return result.Ok(1)
			})
			return result.Ok(v)
		}, coordinator.WithID("order-6"), coordinator.WithStore(s))
	}()

	<-entered
	out := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		return result.Ok(2)
	}, coordinator.WithID("order-6"), coordinator.WithStore(s))

	require.True(t, out.IsErr())
	var cerr *xerrors.ConcurrentExecutionError
	require.True(t, errors.As(out.Error(), &cerr))
	assert.Equal(t, "in-process", cerr.Reason)

	close(release)
	wg.Wait()
}

func TestRunAllowConcurrentBypassesLock(t *testing.T) {
	c := coordinator.New(nil)
	s := store.NewMemoryStore()

	release := make(chan struct{})
	entered := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
			v := workflow.Do(ctx, st, "block", func(context.Context) result.Result[int] {
				close(entered)
				<-release
				return result.Ok(1)
			})
			return result.Ok(v)
		}, coordinator.WithID("order-7"), coordinator.WithStore(s), coordinator.WithAllowConcurrent())
	}()

	<-entered
	out := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		return result.Ok(2)
	}, coordinator.WithID("order-7"), coordinator.WithStore(s), coordinator.WithAllowConcurrent())

	require.True(t, out.IsOk())
	close(release)
	wg.Wait()
}

// failingStore always fails Save, used to verify persistence failures
// never abort a successful workflow outcome (spec.md §4.4 step 4).
type failingStore struct {
	*store.MemoryStore
}

func newFailingStore() *failingStore { return &failingStore{MemoryStore: store.NewMemoryStore()} }

func (f *failingStore) Save(ctx context.Context, id string, data []byte) error {
	return errors.New("disk full")
}

func TestRunTreatsPersistErrorsAsNonFatal(t *testing.T) {
	c := coordinator.New(nil)
	s := newFailingStore()

	var events []workflow.EventType
	out := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		v := workflow.Do(ctx, st, "a", func(context.Context) result.Result[int] { return result.Ok(5) })
		return result.Ok(v)
	}, coordinator.WithID("order-8"), coordinator.WithStore(s),
		coordinator.WithOnEvent(func(e workflow.Event) { events = append(events, e.Type) }))

	require.True(t, out.IsOk())
	v, _ := out.Value()
	assert.Equal(t, 5, v)
	assert.Contains(t, events, workflow.EventHookPersistError)
}

func TestRunDeleteFailureOnSuccessSurfacesAsErrWithValueAsCause(t *testing.T) {
	c := coordinator.New(nil)
	s := &deleteFailingStore{MemoryStore: store.NewMemoryStore()}

	out := coordinator.Run(context.Background(), c, func(ctx context.Context, st *workflow.Step) result.Result[int] {
		v := workflow.Do(ctx, st, "a", func(context.Context) result.Result[int] { return result.Ok(42) })
		return result.Ok(v)
	}, coordinator.WithID("order-9"), coordinator.WithStore(s))

	require.True(t, out.IsErr())
	var perr *xerrors.PersistenceError
	require.True(t, errors.As(out.Error(), &perr))
	assert.Equal(t, "delete", perr.Op)
	assert.Equal(t, 42, out.Cause())
}

type deleteFailingStore struct {
	*store.MemoryStore
}

func (d *deleteFailingStore) Delete(ctx context.Context, id string) error {
	return errors.New("lock held")
}
