package cmdqhw

import (
	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/regs"
	"github.com/sarchlab/pcc/sim"
)

// Builder can build command queue hardware.
type Builder struct {
	engine           sim.Engine
	freq             sim.Freq
	loader           loader.Resolver
	resetLatency     int
	preConfigLatency int
	frameLatency     int
}

// MakeBuilder returns a Builder with default timing.
func MakeBuilder() Builder {
	return Builder{
		freq:             500 * sim.MHz,
		preConfigLatency: 8,
		frameLatency:     64,
	}
}

// WithEngine sets the engine that runs the hardware. A new SerialEngine is
// used if not set.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock of the hardware.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithLoader sets where the configuration loader finds buffers.
func (b Builder) WithLoader(r loader.Resolver) Builder {
	b.loader = r
	return b
}

// WithResetLatency sets the number of cycles before a reset register clears
// itself. With 0, resets complete on the write.
func (b Builder) WithResetLatency(cycles int) Builder {
	b.resetLatency = cycles
	return b
}

// WithPreConfigLatency sets the number of cycles to apply a configuration.
func (b Builder) WithPreConfigLatency(cycles int) Builder {
	b.preConfigLatency = cycles
	return b
}

// WithFrameLatency sets the number of cycles a frame takes.
func (b Builder) WithFrameLatency(cycles int) Builder {
	b.frameLatency = cycles
	return b
}

// Build creates the hardware and its register window.
func (b Builder) Build(name string) *Hardware {
	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	h := &Hardware{
		engine:           engine,
		loader:           b.loader,
		resetLatency:     sim.VTimeInCycle(b.resetLatency),
		preConfigLatency: sim.VTimeInCycle(b.preConfigLatency),
		frameLatency:     sim.VTimeInCycle(b.frameLatency),
		wake:             make(chan struct{}, 1),
	}
	h.TickingComponent = sim.NewTickingComponent(name, engine, b.freq, h)

	h.space = regs.NewSpace(sim.BuildName(name, "Regs"), pcc.WindowSize)
	h.space.MarkReadOnly(
		pcc.RegVersion,
		pcc.RegCmdQQueueInfo,
		pcc.RegCmdQDebugStatus,
		pcc.RegCmdQFrameCounter,
		pcc.RegCmdQFrameID,
		pcc.RegCmdQPreLoad,
		pcc.RegQChStatus,
		pcc.RegIdlenessStatus,
	)
	h.space.Poke(pcc.RegVersion, Version)
	h.space.AddObserver(h)

	h.mu.Lock()
	h.syncQueueInfo()
	h.mu.Unlock()

	return h
}
