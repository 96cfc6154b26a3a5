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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackpressureControllerDefaultLowIsHalfHigh(t *testing.T) {
	var transitions []FlowState
	b := NewBackpressureController(10, 0, func(s FlowState) { transitions = append(transitions, s) })

	for i := 0; i < 10; i++ {
		b.Increment()
	}
	assert.Equal(t, Paused, b.State())

	for i := 0; i < 4; i++ {
		b.Decrement()
	}
	assert.Equal(t, Paused, b.State(), "count 6 must still be paused; low is 5, and the transition fires at <=")

	b.Decrement()
	assert.Equal(t, Flowing, b.State())
	require.Equal(t, []FlowState{Paused, Flowing}, transitions)
}

func TestBackpressureControllerWaitForDrainReleasedOnFlowing(t *testing.T) {
	b := NewBackpressureController(2, 1, nil)
	b.Increment()
	b.Increment()
	require.Equal(t, Paused, b.State())

	done := make(chan struct{})
	go func() {
		<-b.WaitForDrain()
		close(done)
	}()

	b.Decrement()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain channel should have been released once flowing")
	}
}

func TestBackpressureControllerWaitForDrainImmediateWhenFlowing(t *testing.T) {
	b := NewBackpressureController(10, 0, nil)
	ch := b.WaitForDrain()
	select {
	case <-ch:
	default:
		t.Fatal("WaitForDrain must return an already-closed channel while flowing")
	}
}

func TestBackpressureControllerSetCountClampsAtZero(t *testing.T) {
	b := NewBackpressureController(10, 0, nil)
	b.SetCount(-5)
	assert.Equal(t, 0, b.Count())
}

func TestBackpressureControllerDecrementFloorsAtZero(t *testing.T) {
	b := NewBackpressureController(10, 0, nil)
	b.Decrement()
	assert.Equal(t, 0, b.Count())
}
