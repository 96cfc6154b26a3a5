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
	"math/rand"
	"time"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/xerrors"
)

// BackoffStrategy selects how RetryPolicy.delay grows between attempts.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy configures Retry's attempt count, backoff shape, and
// which failures are worth retrying.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	// Values <= 1 run the operation exactly once.
	Attempts int

	Backoff      BackoffStrategy
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Jitter adds up to 25% of the computed delay, uniformly at random.
	Jitter bool

	// RetryOn decides whether attempt should be retried after err. A
	// nil RetryOn retries every failure until Attempts is exhausted.
	RetryOn func(err error, attempt int) bool

	// OnRetry, if set, runs before each retry's delay.
	OnRetry func(err error, attempt int)
}

// delay computes the backoff before retrying attempt (1-indexed: the
// delay before the 2nd try is delay(1)).
func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Backoff {
	case BackoffLinear:
		d = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		d = p.InitialDelay * time.Duration(uint64(1)<<uint(attempt-1))
	default:
		d = p.InitialDelay
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		d += time.Duration(rand.Int63n(int64(d)/4 + 1))
	}
	return d
}

// Retry runs op up to policy.Attempts times, backing off between
// failures per policy.Backoff, and aborts the workflow with the final
// attempt's failure once retries are exhausted or RetryOn declines.
func Retry[T any](ctx context.Context, s *Step, id string, op StepOp[T], policy RetryPolicy, opts ...StepOption) T {
	s.requireID(id)
	o := resolveStepOpts(id, opts)

	if cached, ok := s.checkCache(o.key); ok {
		return replay[T](ctx, s, id, o.key, cached)
	}

	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	s.emit(Event{Type: EventStepStart, StepID: id})
	start := time.Now()

	var outcome result.Result[T]
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome = op(ctx)
		if outcome.IsOk() {
			break
		}

		retryable := policy.RetryOn == nil || policy.RetryOn(outcome.Error(), attempt)
		if attempt == attempts || !retryable {
			break
		}

		s.emit(Event{Type: EventStepRetry, StepID: id, Attempt: attempt, Err: outcome.Error()})
		if policy.OnRetry != nil {
			policy.OnRetry(outcome.Error(), attempt)
		}

		if d := policy.delay(attempt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				recordFailure(ctx, s, id, o, time.Since(start), &xerrors.WorkflowCancelledError{Reason: ctx.Err()}, nil, OriginResult)
				panic("unreachable")
			case <-timer.C:
			}
		}
	}

	dur := time.Since(start)
	if v, ok := outcome.Value(); ok {
		return recordSuccess(ctx, s, id, o, dur, v)
	}

	s.emit(Event{Type: EventStepRetriesExhausted, StepID: id, Attempt: attempts})
	recordFailure(ctx, s, id, o, dur, outcome.Error(), outcome.Cause(), OriginResult)
	panic("unreachable")
}
