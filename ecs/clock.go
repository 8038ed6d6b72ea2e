package ecs

import "time"

// Clock is the simulation time source. It only moves when advanced, so a
// run is reproducible frame for frame.
type Clock struct {
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}
