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

// The methods below are runtime no-ops. They exist so workflow bodies
// can annotate branch and fan-out structure (conditionals, named
// arms, loop items, declared dependencies) for an external static
// analyzer to consume; this package does not ship that analyzer and
// ignores the annotations at execution time.

// If tags a conditional branch taken in the workflow body.
func (s *Step) If(cond bool, label string) bool { return cond }

// Label tags the current position with a human-readable name.
func (s *Step) Label(name string) {}

// Branch tags the start of a named alternative.
func (s *Step) Branch(name string) {}

// Arm tags one arm of a Branch.
func (s *Step) Arm(name string) {}

// ForEach tags the start of a loop over a named collection.
func (s *Step) ForEach(label string) {}

// Item tags the current iteration index of a ForEach.
func (s *Step) Item(i int) int { return i }

// Dep declares that the current step logically depends on the named
// prior steps, beyond what data flow already implies.
func (s *Step) Dep(ids ...string) {}
