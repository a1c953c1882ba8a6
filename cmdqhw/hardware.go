// Package cmdqhw simulates the command queue hardware behind the register
// window of a controller. It pops queued commands, walks the hardware state
// machine and raises interrupts.
package cmdqhw

import (
	"log"
	"sync"

	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/regs"
	"github.com/sarchlab/pcc/sim"
)

// QueueDepth is the number of entries of the command ring.
const QueueDepth = 16

// Version is the value of the version register.
const Version = 0x01_04_00

// Hook positions of the Hardware.
var (
	// HookPosTransition is triggered when the state machine changes state.
	// The item is a Transition. Hooks run with the hardware locked and must
	// not call back into it.
	HookPosTransition = &sim.HookPos{Name: "CmdQTransition"}

	// HookPosRaise is triggered when an interrupt bit is latched. The item is
	// a Raise.
	HookPosRaise = &sim.HookPos{Name: "CmdQRaise"}
)

// A Transition is a change of the hardware state.
type Transition struct {
	Time sim.VTimeInCycle
	From pcc.State
	To   pcc.State
	Cmd  pcc.Command
}

// A Raise is an interrupt bit latched by the hardware.
type Raise struct {
	Time sim.VTimeInCycle
	ID   pcc.IntID
	Bit  int
	Cmd  pcc.Command
}

// Hardware is the simulated command queue. Register writes that trigger an
// action (queueing, flushing, resets and debug reads) take effect right away.
// The state machine moves one step per tick.
type Hardware struct {
	*sim.TickingComponent

	space  *regs.Space
	engine sim.Engine
	loader loader.Resolver

	resetLatency     sim.VTimeInCycle
	preConfigLatency sim.VTimeInCycle
	frameLatency     sim.VTimeInCycle

	mu sync.Mutex

	ring     [QueueDepth][3]uint32
	wptr     uint32
	rptr     uint32
	fullness uint32

	state      pcc.State
	cur        pcc.Command
	left       sim.VTimeInCycle
	frameStart bool
	resets     []pendingReset
	pending    []pcc.IntID
	frames     uint32

	sinkLock sync.RWMutex
	sink     InterruptSink
	irq      chan pcc.IntID
	done     <-chan struct{}
	wake     chan struct{}
	wg       sync.WaitGroup
}

type pendingReset struct {
	reg  regs.Register
	left sim.VTimeInCycle
}

// Regs returns the register window of the hardware.
func (h *Hardware) Regs() *regs.Space {
	return h.space
}

// State returns the current state of the state machine.
func (h *Hardware) State() pcc.State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// Fullness returns the number of queued commands.
func (h *Hardware) Fullness() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.fullness
}

// Frames returns the number of frames run since the last reset.
func (h *Hardware) Frames() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.frames
}

// InjectFrameStart signals a frame start on the input. A command waiting in
// PRE_START with the VVALID_RISE frame start mode proceeds on it.
func (h *Hardware) InjectFrameStart() {
	h.mu.Lock()
	h.frameStart = true
	h.mu.Unlock()

	h.kick()
}

// ObserveWrite reacts to software writes to the register window.
func (h *Hardware) ObserveWrite(w regs.Write) {
	h.mu.Lock()

	switch w.Offset {
	case pcc.RegCmdQAddToQueue.Offset:
		h.addToQueue()
	case pcc.RegCmdQFlush.Offset:
		h.flush()
	case pcc.RegCmdQRptrForDebug.Offset:
		h.loadDebugCmd(pcc.FieldRptrForDebug.Get(w.Value))
	case pcc.RegSwReset.Offset:
		h.reset(pcc.RegSwReset, true)
	case pcc.RegSwAPBReset.Offset:
		h.reset(pcc.RegSwAPBReset, true)
	case pcc.RegSwCoreReset.Offset:
		h.reset(pcc.RegSwCoreReset, false)
	case pcc.RegPerfMonClear.Offset:
		h.clearPerfMon()
	default:
		h.clearInterrupts(w)
	}

	h.mu.Unlock()

	h.kick()
}

func (h *Hardware) addToQueue() {
	h.space.Poke(pcc.RegCmdQAddToQueue, 0)

	if h.fullness == QueueDepth {
		log.Printf("[%s][WRN] command queue overflow", h.Name())
		h.raiseLine(pcc.IntCmdQ, cmdqIntOverflow)

		return
	}

	h.ring[h.wptr] = [3]uint32{
		h.space.Peek(pcc.RegCmdQQueCmdH),
		h.space.Peek(pcc.RegCmdQQueCmdM),
		h.space.Peek(pcc.RegCmdQQueCmdL),
	}
	h.wptr = (h.wptr + 1) % QueueDepth
	h.fullness++
	h.syncQueueInfo()
}

func (h *Hardware) flush() {
	h.space.Poke(pcc.RegCmdQFlush, 0)

	h.wptr = h.rptr
	h.fullness = 0
	h.syncQueueInfo()
}

func (h *Hardware) loadDebugCmd(i uint32) {
	words := h.ring[i%QueueDepth]

	h.space.Poke(pcc.RegCmdQDebugCmdH, words[0])
	h.space.Poke(pcc.RegCmdQDebugCmdM, words[1])
	h.space.Poke(pcc.RegCmdQDebugCmdL, words[2])
}

// reset brings the queue and the state machine back to idle. A register
// domain reset also clears the clock and the queue control registers. The
// trigger register clears itself after the reset latency.
func (h *Hardware) reset(trigger regs.Register, regDomain bool) {
	h.wptr, h.rptr, h.fullness = 0, 0, 0
	h.cur = pcc.Command{}
	h.left = 0
	h.frameStart = false
	h.frames = 0
	h.setState(pcc.StateIdle)
	h.syncQueueInfo()

	if regDomain {
		h.space.Poke(pcc.RegIPProcessing, 0)
		h.space.Poke(pcc.RegCmdQLock, 0)
		h.space.Poke(pcc.RegCmdQEnable, 0)
		h.space.Poke(pcc.RegCmdQFrameCounter, 0)
	}

	if h.resetLatency == 0 {
		h.space.Poke(trigger, 0)
		return
	}

	h.resets = append(h.resets, pendingReset{reg: trigger, left: h.resetLatency})
}

func (h *Hardware) clearPerfMon() {
	h.space.Poke(pcc.RegPerfMonClear, 0)

	for _, r := range perfMonCounters {
		h.space.Poke(r, 0)
	}
}

func (h *Hardware) clearInterrupts(w regs.Write) {
	for _, r := range pcc.IntRegMap {
		if w.Offset != r.Clear.Offset {
			continue
		}

		h.space.Update(r.Status, func(old uint32) uint32 {
			return old &^ w.Value
		})
		h.space.Poke(r.Clear, 0)
	}
}

func (h *Hardware) syncQueueInfo() {
	var info uint32
	info = pcc.FieldQueueFullness.Set(info, h.fullness)
	info = pcc.FieldQueueWptr.Set(info, h.wptr)
	info = pcc.FieldQueueRptr.Set(info, h.rptr)
	h.space.Poke(pcc.RegCmdQQueueInfo, info)

	idle := uint32(0)
	if h.state == pcc.StateIdle && h.fullness == 0 {
		idle = 1
	}
	h.space.PokeField(pcc.FieldIdlenessStatus, idle)
}

func (h *Hardware) setState(s pcc.State) {
	if s == h.state {
		return
	}

	t := Transition{Time: h.CurrentTime(), From: h.state, To: s, Cmd: h.cur}
	h.state = s
	h.space.PokeField(pcc.FieldCmdQProcess, uint32(s))

	if h.NumHooks() > 0 {
		h.InvokeHook(sim.HookCtx{Domain: h, Pos: HookPosTransition, Item: t})
	}
}

// kick wakes up a driver loop waiting for register activity.
func (h *Hardware) kick() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}
