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
	"encoding/json"
	"time"
)

// StepKey identifies a completed, persisted step within a snapshot.
type StepKey string

// ResultOrigin records how a StepResult's error was produced.
type ResultOrigin string

const (
	OriginResult ResultOrigin = "result"
	OriginThrow  ResultOrigin = "throw"
)

// StepResult is the persisted form of a step outcome: {ok:true,value}
// or {ok:false,error,cause?,meta?}.
type StepResult struct {
	Ok     bool            `json:"ok"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
	Cause  json.RawMessage `json:"cause,omitempty"`
	Origin ResultOrigin    `json:"origin,omitempty"`
	Meta   map[string]any  `json:"meta,omitempty"`
}

// ExecutionStatus is the run-level status recorded on a Snapshot.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Execution is the Snapshot's run-state block.
type Execution struct {
	Status        ExecutionStatus `json:"status"`
	LastUpdated   time.Time       `json:"lastUpdated"`
	CurrentStepID string          `json:"currentStepId,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

// Metadata is the Snapshot's opaque, application-owned block.
type Metadata struct {
	Version        uint32         `json:"version,omitempty"`
	WorkflowID     string         `json:"workflowId,omitempty"`
	Input          any            `json:"input,omitempty"`
	DefinitionHash string         `json:"definitionHash,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// Warning flags a non-fatal anomaly recorded on a Snapshot, e.g. a
// step whose Ok value could not be JSON-marshaled.
type Warning struct {
	Type   string `json:"type"`
	StepID string `json:"stepId,omitempty"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}

// Snapshot is the persisted record of one workflow run: every
// completed keyed step plus execution and application metadata.
// FormatVersion gates structural compatibility; Metadata.Version gates
// application compatibility.
type Snapshot struct {
	FormatVersion int                   `json:"formatVersion"`
	Steps         map[StepKey]StepResult `json:"steps"`
	Execution     Execution             `json:"execution"`
	Metadata      Metadata              `json:"metadata,omitempty"`
	Warnings      []Warning             `json:"warnings,omitempty"`
}

// CurrentFormatVersion is the only structurally-compatible format
// version this package can load.
const CurrentFormatVersion = 1

// NewSnapshot returns an empty, running snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		FormatVersion: CurrentFormatVersion,
		Steps:         make(map[StepKey]StepResult),
		Execution: Execution{
			Status:      StatusRunning,
			LastUpdated: time.Now(),
		},
		Metadata: Metadata{Version: 1},
	}
}

// Clone deep-copies s so callers holding a reference to the live,
// mutating snapshot cannot observe later writes through an earlier
// copy (mirrors the teacher's snapshot-on-read discipline).
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		FormatVersion: s.FormatVersion,
		Steps:         make(map[StepKey]StepResult, len(s.Steps)),
		Execution:     s.Execution,
		Metadata:      s.Metadata,
		Warnings:      append([]Warning(nil), s.Warnings...),
	}
	for k, v := range s.Steps {
		out.Steps[k] = v
	}
	return out
}

// Validate enforces the structural invariants required before a
// loaded snapshot may be resumed from: FormatVersion must be the one
// this package understands, and Steps must be non-nil.
func (s *Snapshot) Validate() error {
	if s.FormatVersion != CurrentFormatVersion {
		return &validationErr{reason: "unsupported formatVersion"}
	}
	if s.Steps == nil {
		return &validationErr{reason: "steps map is nil"}
	}
	return nil
}

type validationErr struct{ reason string }

func (e *validationErr) Error() string { return "invalid snapshot: " + e.reason }
