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
	"context"
	"time"

	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// Sleep pauses the workflow for d, recorded as a keyed step so a
// resumed run does not sleep again. Cancelling ctx during the sleep
// aborts the workflow with a WorkflowCancelledError rather than
// returning early, consistent with every other Step operation.
func (s *Step) Sleep(ctx context.Context, id string, d time.Duration, opts ...StepOption) {
	s.requireID(id)
	o := resolveStepOpts(id, opts)

	if cached, ok := s.checkCache(o.key); ok {
		replay[struct{}](ctx, s, id, o.key, cached)
		return
	}

	s.emit(Event{Type: EventStepStart, StepID: id})
	start := time.Now()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		recordSuccess(ctx, s, id, o, time.Since(start), struct{}{})
	case <-ctx.Done():
		recordFailure(ctx, s, id, o, time.Since(start), &xerrors.WorkflowCancelledError{Reason: ctx.Err()}, nil, OriginResult)
	}
}
