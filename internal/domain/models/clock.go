package models

import "time"

// ClockState is the simulated clock for a benchmark run. It is a value:
// round processing receives one and returns the advanced copy, nothing
// is mutated in place and no package-level clock exists.
type ClockState struct {
	Round int
	Now   time.Time
}

// NewClockState starts a clock at the given instant, round 0.
func NewClockState(start time.Time) ClockState {
	return ClockState{Round: 0, Now: start}
}

// Advance returns the clock moved to the next round at the given instant.
func (c ClockState) Advance(next time.Time) ClockState {
	return ClockState{Round: c.Round + 1, Now: next}
}
