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

package xerrors

// ErrorClassifier lets callers branch on error category without a type
// switch over every concrete type in this package. Every error type
// defined here implements it.
type ErrorClassifier interface {
	error

	// ErrorType returns a short category, e.g. "validation", "step_timeout".
	ErrorType() string

	// IsRetryable reports whether the runtime's retry loop should
	// attempt the step again after this error.
	IsRetryable() bool
}
