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

	"github.com/jagreehal/awaitly-go/pkg/store"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultPollTimeout  = 30 * time.Second
)

// StreamWriter appends values to one namespaced stream, optionally
// reporting its outstanding item count to a BackpressureController so
// a producer can throttle itself against a slow consumer.
type StreamWriter struct {
	store      store.StreamStore
	workflowID string
	namespace  string
	bp         *BackpressureController
}

// NewStreamWriter returns a writer for workflowID's namespace. bp may
// be nil to opt out of backpressure tracking.
func NewStreamWriter(s store.StreamStore, workflowID, namespace string, bp *BackpressureController) *StreamWriter {
	return &StreamWriter{store: s, workflowID: workflowID, namespace: namespace, bp: bp}
}

// Write appends value, assigning it the next position, and reports
// one more buffered (unconsumed) item to the backpressure controller.
// A StreamReader sharing the same controller decrements it as items
// are delivered.
func (w *StreamWriter) Write(ctx context.Context, value any) (store.StreamItem, error) {
	item, err := w.store.Append(ctx, w.workflowID, w.namespace, value)
	if err == nil && w.bp != nil {
		w.bp.Increment()
	}
	return item, err
}

// Close marks the stream closed, forbidding further writes.
func (w *StreamWriter) Close(ctx context.Context) error {
	return w.store.CloseStream(ctx, w.workflowID, w.namespace)
}

// Abort closes the stream immediately without waiting for any
// in-flight write; reason is informational only (the stream store has
// no field to record it, matching the teacher's fire-and-forget
// cancellation style).
func (w *StreamWriter) Abort(ctx context.Context, reason error) error {
	return w.Close(ctx)
}

// StreamEnded is returned by StreamReader.Next once a closed stream's
// final item has already been delivered.
type StreamEnded struct {
	FinalPosition uint64
}

// StreamReader consumes one namespaced stream from a given start
// position, either by bounded polling (Next) or push subscription
// (Subscribe).
type StreamReader struct {
	store        store.StreamStore
	workflowID   string
	namespace    string
	pos          uint64
	pollInterval time.Duration
	pollTimeout  time.Duration
	bp           *BackpressureController
}

// NewStreamReader returns a reader positioned at startIndex, with the
// spec's default poll interval (100ms) and timeout (30s). bp, if
// non-nil, is decremented as each item is delivered; pass the same
// controller given to the namespace's StreamWriter to throttle it.
func NewStreamReader(s store.StreamStore, workflowID, namespace string, startIndex uint64, bp *BackpressureController) *StreamReader {
	return &StreamReader{
		store:        s,
		workflowID:   workflowID,
		namespace:    namespace,
		pos:          startIndex,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		bp:           bp,
	}
}

// WithPoll overrides the default poll interval and timeout.
func (r *StreamReader) WithPoll(interval, timeout time.Duration) *StreamReader {
	r.pollInterval = interval
	r.pollTimeout = timeout
	return r
}

// Next blocks until an item is available at the reader's position, the
// stream is closed with no further items (StreamEnded), ctx is done,
// or the poll timeout elapses.
func (r *StreamReader) Next(ctx context.Context) (store.StreamItem, *StreamEnded, error) {
	deadline := time.Now().Add(r.pollTimeout)
	for {
		items, err := r.store.Read(ctx, r.workflowID, r.namespace, r.pos, 1)
		if err != nil {
			return store.StreamItem{}, nil, err
		}
		if len(items) > 0 {
			item := items[0]
			r.pos = item.Position + 1
			if r.bp != nil {
				r.bp.Decrement()
			}
			return item, nil, nil
		}

		meta, err := r.store.GetMetadata(ctx, r.workflowID, r.namespace)
		if err != nil {
			return store.StreamItem{}, nil, err
		}
		if meta != nil && meta.Closed && r.pos >= meta.Length {
			return store.StreamItem{}, &StreamEnded{FinalPosition: meta.Length}, nil
		}

		if time.Now().After(deadline) {
			return store.StreamItem{}, nil, context.DeadlineExceeded
		}

		select {
		case <-ctx.Done():
			return store.StreamItem{}, nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// Subscribe delivers items via cb as they are appended, bypassing
// polling entirely.
func (r *StreamReader) Subscribe(ctx context.Context, cb func(store.StreamItem)) store.Unsubscribe {
	return r.store.Subscribe(ctx, r.workflowID, r.namespace, func(item store.StreamItem) {
		if r.bp != nil {
			r.bp.Decrement()
		}
		cb(item)
	})
}
