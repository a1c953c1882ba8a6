package pcc

import (
	"fmt"
	"strings"
)

// State is the progress of the hardware command queue as reported by the
// debug status register. The hardware sets one bit per non-idle state.
type State uint32

// States of the command queue. The hardware walks them in order and returns
// to StateIdle after StatePostFrame.
const (
	StateIdle   State = 0
	StatePopped State = 1 << (iota - 1)
	StatePreConfig
	StatePreStart
	StateFrame
	StatePostFrame
)

// statePopping covers the states in which a command is between the queue and
// the configuration registers.
const statePopping = StatePopped | StatePreConfig

var stateNames = []string{
	"ACTIVE_CMD_POPPED",
	"PRE_CONFIG",
	"PRE_START",
	"FRAME",
	"POST_FRAME",
}

func (s State) String() string {
	if s == StateIdle {
		return "IDLE"
	}

	var names []string

	for i, name := range stateNames {
		if s&(1<<i) != 0 {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return fmt.Sprintf("State(0x%x)", uint32(s))
	}

	return strings.Join(names, " ")
}

// Busy tells if the hardware is anywhere but idle.
func (s State) Busy() bool {
	return s != StateIdle
}

// State returns the current progress of the hardware.
func (c *Controller) State() State {
	return State(c.regs.ReadField(FieldCmdQProcess))
}

// WaitIdle polls until the hardware is idle. It returns ErrTimeout if the
// poll budget runs out first.
func (c *Controller) WaitIdle() error {
	err := c.poll.Until(func() bool {
		return !c.State().Busy()
	})
	if err != nil {
		c.warnf("wait idle timeout(%s)", c.State())
		return fmt.Errorf("%s: wait idle: %w", c.name, err)
	}

	return nil
}

// waitPopDone polls until no command is being popped.
func (c *Controller) waitPopDone() error {
	err := c.poll.Until(func() bool {
		return c.State()&statePopping == 0
	})
	if err != nil {
		c.warnf("timeout(0x%x)", uint32(c.State()))
		return fmt.Errorf("%s: wait pop: %w", c.name, err)
	}

	return nil
}
