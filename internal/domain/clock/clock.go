// Package clock produces epoch timestamps that never go backwards.
package clock

import (
	"sync"
	"time"
)

// Clock reports seconds since the Unix epoch as a float. Readings are
// anchored to the wall clock and advanced by the monotonic clock, so
// successive calls are non-decreasing even if the system time is stepped
// back. The monotonic clock stops while the host is suspended; when the
// wall clock is found ahead of the reading, the clock re-anchors to it.
type Clock struct {
	mu         sync.Mutex
	anchor     time.Time
	anchorUnix float64
}

// New anchors a Clock at the current time.
func New() *Clock {
	return NewAt(time.Now())
}

// NewAt anchors a Clock at t. t should carry a monotonic reading
// (as returned by time.Now) for the non-decreasing guarantee to hold.
func NewAt(t time.Time) *Clock {
	return &Clock{
		anchor:     t,
		anchorUnix: unixSeconds(t),
	}
}

// Now returns the current epoch time in seconds.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	reading := c.anchorUnix + now.Sub(c.anchor).Seconds()
	if w := unixSeconds(now); w > reading {
		c.anchor = now
		c.anchorUnix = w
		return w
	}
	return reading
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
