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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

func TestSleepBlocksForAtLeastTheRequestedDuration(t *testing.T) {
	start := time.Now()
	out := Run(context.Background(), func(ctx context.Context, s *Step) result.Result[struct{}] {
		s.Sleep(ctx, "pause", 20*time.Millisecond)
		return result.Ok(struct{}{})
	})
	elapsed := time.Since(start)

	require.True(t, out.IsOk())
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestSleepCancelledDuringWaitAbortsAsCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	out := Run(ctx, func(ctx context.Context, s *Step) result.Result[struct{}] {
		s.Sleep(ctx, "pause", time.Hour)
		return result.Ok(struct{}{})
	})

	require.True(t, out.IsErr())
	var cancelled *xerrors.WorkflowCancelledError
	assert.ErrorAs(t, out.Error(), &cancelled)
}
