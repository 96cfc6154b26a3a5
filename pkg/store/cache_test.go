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

package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jagreehal/awaitly-go/pkg/store"
)

func TestMemoryCacheGetSetHasDelete(t *testing.T) {
	c := store.NewMemoryCache(0, 0)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", 42, 0)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.True(t, c.Has("k"))

	c.Delete("k")
	assert.False(t, c.Has("k"))
}

func TestMemoryCacheExpiresByDefaultTTL(t *testing.T) {
	c := store.NewMemoryCache(0, time.Millisecond)
	c.Set("k", "v", 0)

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok, "entry should have expired per the adapter's default TTL")
}

func TestMemoryCachePerEntryTTLOverridesDefault(t *testing.T) {
	c := store.NewMemoryCache(0, time.Hour)
	c.Set("k", "v", time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok, "per-entry ttl should override the adapter default")
}

func TestMemoryCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := store.NewMemoryCache(2, 0)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	// touch "a" so "b" becomes the least recently used entry
	_, _ = c.Get("a")

	c.Set("c", 3, 0)

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"), "b should have been evicted as LRU")
	assert.True(t, c.Has("c"))
}

func TestMemoryCacheClear(t *testing.T) {
	c := store.NewMemoryCache(0, 0)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Clear()

	assert.False(t, c.Has("a"))
	assert.False(t, c.Has("b"))
}
