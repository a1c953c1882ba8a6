package pcc

import (
	"time"
)

// Poll is a bounded busy-wait budget.
type Poll struct {
	Retries int
	Delay   time.Duration
}

// DefaultPoll waits for up to about one second.
var DefaultPoll = Poll{Retries: 1_000_000, Delay: time.Microsecond}

// Until checks cond up to Retries times, sleeping Delay between checks. It
// returns ErrTimeout if cond never holds.
func (p Poll) Until(cond func() bool) error {
	for i := 0; i < p.Retries; i++ {
		if cond() {
			return nil
		}

		if i+1 < p.Retries && p.Delay > 0 {
			time.Sleep(p.Delay)
		}
	}

	return ErrTimeout
}
