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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEmitterOnDispatchesOnlyMatchingType(t *testing.T) {
	e := NewEventEmitter(false)

	var starts, successes []Event
	e.On(EventStepStart, func(ev Event) { starts = append(starts, ev) })
	e.On(EventStepSuccess, func(ev Event) { successes = append(successes, ev) })

	e.Emit(Event{Type: EventStepStart, StepID: "a"})
	e.Emit(Event{Type: EventStepSuccess, StepID: "a"})

	require.Len(t, starts, 1)
	require.Len(t, successes, 1)
	assert.Equal(t, "a", starts[0].StepID)
	assert.False(t, starts[0].Timestamp.IsZero(), "Emit should fill in a zero timestamp")
}

func TestEventEmitterOnAnyReceivesEveryType(t *testing.T) {
	e := NewEventEmitter(false)

	var seen []EventType
	e.OnAny(func(ev Event) { seen = append(seen, ev.Type) })

	e.Emit(Event{Type: EventWorkflowStart})
	e.Emit(Event{Type: EventStepStart, StepID: "a"})
	e.Emit(Event{Type: EventWorkflowSuccess})

	assert.Equal(t, []EventType{EventWorkflowStart, EventStepStart, EventWorkflowSuccess}, seen)
}

func TestEventEmitterOffRemovesListenersForType(t *testing.T) {
	e := NewEventEmitter(false)
	calls := 0
	e.On(EventStepStart, func(ev Event) { calls++ })
	e.Off(EventStepStart)
	e.Emit(Event{Type: EventStepStart})
	assert.Equal(t, 0, calls)
}

func TestEventEmitterAsyncWaitsForEveryListener(t *testing.T) {
	e := NewEventEmitter(true)

	var mu sync.Mutex
	count := 0
	for i := 0; i < 5; i++ {
		e.On(EventStepStart, func(ev Event) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	e.Emit(Event{Type: EventStepStart})
	assert.Equal(t, 5, count, "Emit must block until every async listener returns")
}

func TestEventEmitterListenerCountAndRemoveAll(t *testing.T) {
	e := NewEventEmitter(false)
	e.On(EventStepStart, func(Event) {})
	e.On(EventStepStart, func(Event) {})
	assert.Equal(t, 2, e.ListenerCount(EventStepStart))

	e.RemoveAllListeners()
	assert.Equal(t, 0, e.ListenerCount(EventStepStart))
}
