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
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jagreehal/awaitly-go/pkg/result"
)

// Parallel runs every op in ops concurrently and waits for every op to
// settle (each op's own outer panic, including a nested Step op's
// abort, is caught and converted to a Result rather than crashing the
// process). If any op failed, it then aborts the workflow with the
// error of the failing op whose name sorts first; it does not return
// before the remaining ops settle, and the error it reports is chosen
// by name order, not by which op failed first. On success it returns
// every op's value keyed by name.
//
// Goroutine lifecycle is managed by errgroup.Group rather than a bare
// WaitGroup; an unadorned Group (not WithContext) never cancels
// sibling branches on a first error, matching the every-op-settles
// contract above.
func Parallel(ctx context.Context, s *Step, name string, ops map[string]StepOp[any]) map[string]result.Result[any] {
	s.requireID(name)
	s.scopes.push(name, ScopeParallel)
	s.emit(Event{Type: EventScopeStart, StepID: name, ScopeKind: ScopeParallel})

	var (
		mu      sync.Mutex
		results = make(map[string]result.Result[any], len(ops))
		g       errgroup.Group
	)
	for key, op := range ops {
		key, op := key, op
		g.Go(func() error {
			r := runCaptured(ctx, s, op)
			mu.Lock()
			results[key] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	var firstCause any
	for _, key := range sortedKeys(ops) {
		r := results[key]
		if r.IsErr() && firstErr == nil {
			firstErr = r.Error()
			firstCause = r.Cause()
		}
	}

	winner := s.scopes.pop(name)
	s.emit(Event{Type: EventScopeEnd, StepID: name, ScopeKind: ScopeParallel, WinnerID: winner})

	if firstErr != nil {
		abort(firstErr, firstCause, nil)
	}
	return results
}

// sortedKeys gives Parallel a deterministic scan order when picking
// the "first" failing branch, since map iteration order is not.
func sortedKeys(ops map[string]StepOp[any]) []string {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Race runs every op concurrently and settles on the first to succeed.
// If every op fails, it returns the chronologically first failure.
// The scope's recorded winner (visible on the corresponding scope_end
// event) is whichever keyed step inside the winning op called
// recordSuccess first, not necessarily the op that settled this call.
func Race(ctx context.Context, s *Step, name string, ops ...StepOp[any]) result.Result[any] {
	s.requireID(name)
	s.scopes.push(name, ScopeRace)
	s.emit(Event{Type: EventScopeStart, StepID: name, ScopeKind: ScopeRace})

	ch := make(chan result.Result[any], len(ops))
	for _, op := range ops {
		go func(op StepOp[any]) {
			ch <- runCaptured(ctx, s, op)
		}(op)
	}

	var outcome result.Result[any]
	haveOutcome := false
	for i := 0; i < len(ops); i++ {
		r := <-ch
		if r.IsOk() {
			outcome = r
			break
		}
		if !haveOutcome {
			outcome = r
			haveOutcome = true
		}
	}

	winner := s.scopes.pop(name)
	s.emit(Event{Type: EventScopeEnd, StepID: name, ScopeKind: ScopeRace, WinnerID: winner})
	return outcome
}

// AllSettled runs every op concurrently and always returns every
// outcome, in input order, regardless of failures.
func AllSettled(ctx context.Context, s *Step, name string, ops ...StepOp[any]) []result.Result[any] {
	s.requireID(name)
	s.scopes.push(name, ScopeAllSettled)
	s.emit(Event{Type: EventScopeStart, StepID: name, ScopeKind: ScopeAllSettled})

	results := make([]result.Result[any], len(ops))
	var g errgroup.Group
	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			results[i] = runCaptured(ctx, s, op)
			return nil
		})
	}
	_ = g.Wait()

	winner := s.scopes.pop(name)
	s.emit(Event{Type: EventScopeEnd, StepID: name, ScopeKind: ScopeAllSettled, WinnerID: winner})
	return results
}
