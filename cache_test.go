package capflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameCachePutGet(t *testing.T) {
	c := NewFrameCache(2)
	start := mustDate(t, "2026-01-01")
	end := mustDate(t, "2026-06-01")
	frame := &Frame{StartingCash: 100}

	c.Put(start, end, "baseline", frame)
	got, ok := c.Get(start, end, "baseline")
	assert.True(t, ok)
	assert.Same(t, frame, got)

	_, ok = c.Get(start, end, "optimistic")
	assert.False(t, ok)
}

func TestFrameCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewFrameCache(2)
	start := mustDate(t, "2026-01-01")
	end := mustDate(t, "2026-06-01")

	frameA := &Frame{StartingCash: 1}
	frameB := &Frame{StartingCash: 2}
	frameC := &Frame{StartingCash: 3}

	c.Put(start, end, "a", frameA)
	c.Put(start, end, "b", frameB)
	// Touch "a" so "b" becomes the least recently used entry.
	c.Get(start, end, "a")
	c.Put(start, end, "c", frameC)

	_, ok := c.Get(start, end, "b")
	assert.False(t, ok, "b should have been evicted")

	_, ok = c.Get(start, end, "a")
	assert.True(t, ok)
	_, ok = c.Get(start, end, "c")
	assert.True(t, ok)
}

func TestFrameCacheClear(t *testing.T) {
	c := NewFrameCache(4)
	start := mustDate(t, "2026-01-01")
	end := mustDate(t, "2026-06-01")
	c.Put(start, end, "baseline", &Frame{})

	c.Clear()
	_, ok := c.Get(start, end, "baseline")
	assert.False(t, ok)
}

func TestFrameCacheDefaultsCapacity(t *testing.T) {
	c := NewFrameCache(0)
	assert.Equal(t, 32, c.capacity)
}
