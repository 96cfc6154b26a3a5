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

package coordinator

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var persistenceErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "awaitly_persistence_errors_total",
		Help: "Total persistence operation errors by operation and error type",
	},
	[]string{"operation", "error_type"},
)

// recordPersistenceError increments the persistence error counter for
// a lock/load/save/delete operation, the coordinator-side analogue of
// metrics.RecordPersistenceError in the teacher.
func recordPersistenceError(operation string, err error) {
	persistenceErrors.WithLabelValues(operation, classifyPersistenceError(err)).Inc()
}

// classifyPersistenceError buckets a store error for the operation
// label, same three buckets the teacher's RecordPersistenceError
// comment documents: context_canceled, io_error, unknown.
func classifyPersistenceError(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context_canceled"
	default:
		return "io_error"
	}
}
