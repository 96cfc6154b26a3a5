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

package result

import "fmt"

// PromiseRejectedError wraps a panic recovered from inside an async
// aggregator thunk, mirroring a rejected Promise in the source system.
// The recovered value is also attached as the Result's Cause.
type PromiseRejectedError struct {
	Reason any
}

func (e *PromiseRejectedError) Error() string {
	return fmt.Sprintf("promise rejected: %v", e.Reason)
}

// EmptyInputError is returned by Any when given zero inputs.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string { return "any: empty input" }

// SettledError is one entry of a collect-all aggregator's failure
// report: AllSettled, AllSettledAsync, and AnyAsync (when every input
// failed) all report failures as an ordered slice of these.
type SettledError struct {
	Error error
	Cause any
}

// AllRejectedError is the Err payload of AnyAsync when every input
// settled as an Err; it carries every failure in input order.
type AllRejectedError struct {
	Errors []SettledError
}

func (e *AllRejectedError) Error() string {
	return fmt.Sprintf("any: all %d inputs rejected", len(e.Errors))
}

// AllSettledError is the Err payload of AllSettled/AllSettledAsync
// when at least one input failed; it reports every input's outcome in
// order, with a nil entry marking an input that succeeded.
type AllSettledError struct {
	Outcomes []*SettledError
}

func (e *AllSettledError) Error() string {
	n := 0
	for _, o := range e.Outcomes {
		if o != nil {
			n++
		}
	}
	return fmt.Sprintf("all_settled: %d of %d inputs failed", n, len(e.Outcomes))
}
