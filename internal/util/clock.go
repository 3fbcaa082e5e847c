package util

import (
	"sync"
	"time"
)

// Clock supplies acceptance timestamps.
type Clock interface {
	Now() time.Time
}

// MonotonicClock never returns the same instant twice. When the source clock
// stalls or steps back, the previous reading is advanced by one nanosecond.
type MonotonicClock struct {
	mu     sync.Mutex
	last   time.Time
	source func() time.Time
}

// NewMonotonicClock wraps source; nil means time.Now.
func NewMonotonicClock(source func() time.Time) *MonotonicClock {
	if source == nil {
		source = time.Now
	}
	return &MonotonicClock{source: source}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.source()
	if !now.After(c.last) {
		now = c.last.Add(time.Nanosecond)
	}
	c.last = now
	return now
}
