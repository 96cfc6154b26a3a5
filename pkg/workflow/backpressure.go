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

import "sync"

// FlowState is the BackpressureController's current regime.
type FlowState string

const (
	Flowing FlowState = "flowing"
	Paused  FlowState = "paused"
)

// BackpressureController tracks a buffered item count against a
// high-water mark and a low-water mark, transitioning between Flowing
// and Paused and notifying an observer on each transition. Callers
// blocked in WaitForDrain are released when the controller returns to
// Flowing.
type BackpressureController struct {
	mu       sync.Mutex
	count    int
	high     int
	low      int
	state    FlowState
	onChange func(FlowState)
	drain    []chan struct{}
}

// NewBackpressureController creates a controller with the given
// high-water mark. If low <= 0, it defaults to high/2.
func NewBackpressureController(high, low int, onChange func(FlowState)) *BackpressureController {
	if low <= 0 {
		low = high / 2
	}
	return &BackpressureController{
		high:     high,
		low:      low,
		state:    Flowing,
		onChange: onChange,
	}
}

// Increment adds one to the buffered count, pausing if it reaches the
// high-water mark.
func (b *BackpressureController) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	b.checkTransition()
}

// Decrement subtracts one from the buffered count (floored at 0),
// resuming flow if it falls to the low-water mark.
func (b *BackpressureController) Decrement() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count > 0 {
		b.count--
	}
	b.checkTransition()
}

// SetCount forces the buffered count to n, clamped to >= 0, and
// re-evaluates the flow state.
func (b *BackpressureController) SetCount(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 {
		n = 0
	}
	b.count = n
	b.checkTransition()
}

// checkTransition must be called with mu held.
func (b *BackpressureController) checkTransition() {
	switch b.state {
	case Flowing:
		if b.count >= b.high {
			b.state = Paused
			b.notify()
		}
	case Paused:
		if b.count <= b.low {
			b.state = Flowing
			b.notify()
			b.releaseDrain()
		}
	}
}

// notify must be called with mu held.
func (b *BackpressureController) notify() {
	if b.onChange != nil {
		b.onChange(b.state)
	}
}

// releaseDrain must be called with mu held.
func (b *BackpressureController) releaseDrain() {
	for _, ch := range b.drain {
		close(ch)
	}
	b.drain = nil
}

// State reports the current flow state.
func (b *BackpressureController) State() FlowState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Count reports the current buffered count.
func (b *BackpressureController) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// WaitForDrain blocks until the controller next transitions to
// Flowing. If it is already Flowing, WaitForDrain returns immediately.
func (b *BackpressureController) WaitForDrain() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	if b.state == Flowing {
		close(ch)
		return ch
	}
	b.drain = append(b.drain, ch)
	return ch
}
