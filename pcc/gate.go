package pcc

import (
	"github.com/sarchlab/pcc/debug"
)

// gateCount is a reference count that saturates at zero.
type gateCount struct {
	n int
}

// acquire takes a reference and tells if it was the first one.
func (g *gateCount) acquire() bool {
	g.n++
	return g.n == 1
}

// release drops a reference and tells if it was the last one. Releasing with
// no reference held is reported as underflow and leaves the count at zero.
func (g *gateCount) release() (last, underflow bool) {
	if g.n == 0 {
		debug.Assert(false, "clock gate released more often than acquired")
		return false, true
	}

	g.n--

	return g.n == 0, false
}

func (g *gateCount) reset() {
	g.n = 0
}

func (g *gateCount) count() int {
	return g.n
}

func (c *Controller) setGate(on bool) {
	c.gateLock.Lock()
	defer c.gateLock.Unlock()

	if on {
		if c.gate.acquire() {
			c.logWriteErr(c.regs.Write(RegIPProcessing, 1))
		}

		return
	}

	last, underflow := c.gate.release()
	if underflow {
		c.warnf("clock gate reference underflow")
		return
	}

	if last {
		c.logWriteErr(c.regs.Write(RegIPProcessing, 0))
	}
}

// GateCount returns the number of clock gate references held.
func (c *Controller) GateCount() int {
	c.gateLock.Lock()
	defer c.gateLock.Unlock()

	return c.gate.count()
}
