package sim

import (
	"log"
)

// VTimeInCycle is a point on the simulated timeline, counted in cycles of the
// clock that drives the engine.
type VTimeInCycle uint64

// VTimeInSec is a simulated time in seconds. It is only used for reporting.
type VTimeInSec float64

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Seconds converts a cycle count of this clock into seconds.
func (f Freq) Seconds(c VTimeInCycle) VTimeInSec {
	return VTimeInSec(float64(c)) * f.Period()
}

// Cycles converts a duration in seconds into a whole number of cycles,
// rounding up so that a non-zero duration never becomes zero cycles.
func (f Freq) Cycles(t VTimeInSec) VTimeInCycle {
	if t <= 0 {
		return 0
	}

	n := float64(t) * float64(f)
	c := VTimeInCycle(n)

	if float64(c) < n {
		c++
	}

	return c
}
