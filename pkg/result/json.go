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

import "encoding/json"

// wireResult is the on-disk shape of a Result: {"ok":true,"value":...}
// or {"ok":false,"error":...,"cause":...}. Snapshot persistence in
// pkg/workflow builds on this shape directly (see StepResult there);
// this type exists so Result values can round-trip on their own, e.g.
// in tests.
type wireResult struct {
	Ok    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
	Cause json.RawMessage `json:"cause,omitempty"`
}

// MarshalJSON encodes r as {"ok":true,"value":...} or
// {"ok":false,"error":"...","cause":...}. The error is encoded as its
// string form; callers needing a structured error should encode it
// themselves via MapError before marshaling.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.ok {
		value, err := json.Marshal(r.value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireResult{Ok: true, Value: value})
	}

	w := wireResult{Ok: false}
	if r.err != nil {
		w.Error = r.err.Error()
	}
	if r.cause != nil {
		cause, err := json.Marshal(r.cause)
		if err == nil {
			w.Cause = cause
		}
		// A non-serializable cause is dropped from the wire form rather
		// than failing the whole encode; the snapshot-level warning
		// ledger in pkg/workflow is what records this, not this codec.
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the shape produced by MarshalJSON. The
// reconstructed Err carries a plain string error (the original typed
// error identity is not recoverable from JSON alone).
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	if w.Ok {
		var value T
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &value); err != nil {
				return err
			}
		}
		*r = Ok(value)
		return nil
	}

	var cause any
	if len(w.Cause) > 0 {
		if err := json.Unmarshal(w.Cause, &cause); err != nil {
			return err
		}
	}

	var errVal error
	if w.Error != "" {
		errVal = errString(w.Error)
	}
	*r = Err[T](errVal, cause)
	return nil
}

// errString is a trivial error implementation used when decoding a
// Result from JSON, where only the error's message survives.
type errString string

func (e errString) Error() string { return string(e) }
