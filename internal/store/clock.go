package store

import "time"

// Clock reports device uptime. Stored timestamps are uptime, not wall-clock,
// and restart from zero with the process.
type Clock interface {
	Uptime() time.Duration
}

type uptimeClock struct {
	start time.Time
}

// NewUptimeClock returns a Clock measuring from the moment it is created.
func NewUptimeClock() Clock {
	return uptimeClock{start: time.Now()}
}

func (c uptimeClock) Uptime() time.Duration {
	return time.Since(c.start)
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Duration

func (f ClockFunc) Uptime() time.Duration {
	return f()
}
