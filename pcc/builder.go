package pcc

import (
	"log"

	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/regs"
	"github.com/sarchlab/pcc/sim"
)

// Builder can build controllers.
type Builder struct {
	mode           Mode
	regs           regs.Map
	loader         loader.Allocator
	loaderBuffers  int
	poll           Poll
	physBase       uint32
	ignorePhysBase bool
	sfrLogs        [NumSFRAccessLogs]SFRLogRange
	debugParams    *DebugParams
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		mode:          ModeStreaming,
		loaderBuffers: 4,
		poll:          DefaultPoll,
	}
}

// WithMode sets the mode of the controller.
func (b Builder) WithMode(mode Mode) Builder {
	b.mode = mode
	return b
}

// WithRegs sets the register window the controller programs.
func (b Builder) WithRegs(m regs.Map) Builder {
	b.regs = m
	return b
}

// WithLoader sets the allocator of loader buffers for dummy commands. If not
// set, a streaming controller gets its own pool.
func (b Builder) WithLoader(a loader.Allocator) Builder {
	b.loader = a
	return b
}

// WithLoaderBuffers sets the size of the pool created when no allocator is
// given.
func (b Builder) WithLoaderBuffers(n int) Builder {
	b.loaderBuffers = n
	return b
}

// WithPoll sets the budget of every busy-wait.
func (b Builder) WithPoll(p Poll) Builder {
	b.poll = p
	return b
}

// WithPhysBase sets the physical address of the register window.
func (b Builder) WithPhysBase(base uint32) Builder {
	b.physBase = base
	return b
}

// WithIgnorePhysBase makes the loader treat offsets as relative to the
// window.
func (b Builder) WithIgnorePhysBase(ignore bool) Builder {
	b.ignorePhysBase = ignore
	return b
}

// WithSFRAccessLog makes the hardware record accesses to a register range.
func (b Builder) WithSFRAccessLog(i int, r SFRLogRange) Builder {
	if i < 0 || i >= NumSFRAccessLogs {
		log.Panicf("SFR access log %d out of range", i)
	}

	b.sfrLogs[i] = r

	return b
}

// WithDebugParams sets the initial debug parameters.
func (b Builder) WithDebugParams(p DebugParams) Builder {
	b.debugParams = &p
	return b
}

// Build creates a controller with the given name.
func (b Builder) Build(name string) *Controller {
	if b.regs == nil {
		log.Panicf("controller %s has no register window", name)
	}

	if !b.mode.Valid() {
		log.Panicf("controller %s has invalid mode %d", name, int(b.mode))
	}

	sim.NameMustBeValid(name)

	c := &Controller{
		name:           name,
		regs:           b.regs,
		loader:         b.loader,
		poll:           b.poll,
		physBase:       b.physBase,
		ignorePhysBase: b.ignorePhysBase,
		sfrLogs:        b.sfrLogs,
	}
	c.mode.Store(int32(b.mode))

	if c.loader == nil && b.mode == ModeStreaming && b.loaderBuffers > 0 {
		c.loader = loader.MakeBuilder().
			WithNumBuffers(b.loaderBuffers).
			Build(name + ".Loader")
	}

	if b.debugParams != nil {
		c.SetDebugParams(*b.debugParams)
	}

	c.infof("mode(%s)", b.mode)

	return c
}
