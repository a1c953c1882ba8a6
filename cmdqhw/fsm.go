package cmdqhw

import (
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/regs"
	"github.com/sarchlab/pcc/sim"
)

// Tick moves the hardware forward by one cycle.
func (h *Hardware) Tick() bool {
	if h.stopped() {
		return false
	}

	h.mu.Lock()
	progress := h.tickResets()

	if h.space.Peek(pcc.RegIPProcessing) != 0 {
		progress = h.step() || progress
		h.countPerf()
	}

	irqs := h.pending
	h.pending = nil
	h.mu.Unlock()

	if len(irqs) > 0 {
		h.engine.Schedule(irqEvent{
			EventBase: sim.NewSecondaryEventBase(h.CurrentTime(), h),
			ids:       irqs,
		})
	}

	return progress || len(irqs) > 0
}

func (h *Hardware) tickResets() bool {
	if len(h.resets) == 0 {
		return false
	}

	remaining := h.resets[:0]

	for _, r := range h.resets {
		r.left--
		if r.left == 0 {
			h.space.Poke(r.reg, 0)
			continue
		}

		remaining = append(remaining, r)
	}

	h.resets = remaining

	return true
}

func (h *Hardware) step() bool {
	switch h.state {
	case pcc.StateIdle:
		return h.pop()
	case pcc.StatePopped:
		h.load()
		return true
	case pcc.StatePreConfig:
		return h.countDown(h.finishPreConfig)
	case pcc.StatePreStart:
		return h.startFrame()
	case pcc.StateFrame:
		return h.countDown(h.endFrame)
	case pcc.StatePostFrame:
		return h.countDown(h.finishPostFrame)
	}

	return false
}

func (h *Hardware) countDown(done func()) bool {
	if h.left > 0 {
		h.left--
	}

	if h.left == 0 {
		done()
	}

	return true
}

func (h *Hardware) pop() bool {
	if h.fullness == 0 ||
		h.space.PeekField(pcc.FieldCmdQEnable) == 0 ||
		h.space.PeekField(pcc.FieldPopLock) != 0 {
		return false
	}

	words := h.ring[h.rptr]
	h.cur = pcc.DecodeCommand(words[0], words[1], words[2])
	h.rptr = (h.rptr + 1) % QueueDepth
	h.fullness--

	h.setState(pcc.StatePopped)
	h.syncQueueInfo()

	return true
}

// load starts applying the configuration of the popped command. Commands
// that use the configuration loader have their headers checked against the
// loader buffer they point to.
func (h *Hardware) load() {
	h.setState(pcc.StatePreConfig)
	h.left = h.preConfigLatency

	switch h.cur.SetMode {
	case pcc.SetModeDMADirect, pcc.SetModeDMAPreloading:
		h.checkHeaders()
	default:
		h.bumpField(pcc.FieldHeaderAPBed, 1)
	}
}

func (h *Hardware) checkHeaders() {
	h.space.PokeField(pcc.FieldHeaderToReq, h.cur.HeaderNum)

	if h.loader == nil {
		h.bumpField(pcc.FieldHeaderSkipped, h.cur.HeaderNum)
		return
	}

	buf, ok := h.loader.Lookup(h.cur.BaseAddr)
	if !ok || buf.HeaderDVA() != h.cur.BaseAddr ||
		uint32(len(buf.DeviceHeaders())) != h.cur.HeaderNum {
		h.raise(pcc.IntID0, pcc.Int0ErrCorrupt, pcc.GroupErrCorrupt)
		return
	}

	h.bumpField(pcc.FieldHeaderReqed, h.cur.HeaderNum)
}

func (h *Hardware) finishPreConfig() {
	var pre uint32
	pre = pcc.FieldChargedFrameID.Set(pre, h.cur.FCount&pcc.FieldChargedFrameID.Max())
	pre = pcc.FieldChargedCmdID.Set(pre, uint32(h.cur.Kind))
	pre = pcc.FieldChargedForNext.Set(pre, 1)
	h.space.Poke(pcc.RegCmdQPreLoad, pre)

	h.setState(pcc.StatePreStart)
	h.raise(pcc.IntID0, pcc.Int0SettingDone, pcc.GroupSettingDone)
}

func (h *Hardware) startFrame() bool {
	asap := pcc.FSMode(h.space.Peek(pcc.RegCinfifoNewFrameIn)) == pcc.FSModeASAP
	if !asap && !h.frameStart {
		return false
	}

	h.frameStart = false

	fid := h.space.Peek(pcc.RegCmdQFrameID)
	fid = pcc.FieldPreFrameID.Set(fid, pcc.FieldCurrentFrameID.Get(fid))
	fid = pcc.FieldPreCmdID.Set(fid, pcc.FieldCurrentCmdID.Get(fid))
	fid = pcc.FieldCurrentFrameID.Set(fid, h.cur.FCount&pcc.FieldCurrentFrameID.Max())
	fid = pcc.FieldCurrentCmdID.Set(fid, uint32(h.cur.Kind))
	h.space.Poke(pcc.RegCmdQFrameID, fid)
	h.space.PokeField(pcc.FieldChargedForNext, 0)

	h.frames++
	h.space.Update(pcc.RegCmdQFrameCounter, func(old uint32) uint32 {
		return old + 1
	})

	h.setState(pcc.StateFrame)
	h.left = h.frameLatency
	h.raise(pcc.IntID0, pcc.Int0FrameStart, pcc.GroupFrameStart)

	return true
}

func (h *Hardware) endFrame() {
	h.raise(pcc.IntID0, pcc.Int0FrameEnd, pcc.GroupFrameEnd)
	h.pushHistory()

	h.setState(pcc.StatePostFrame)
	h.left = sim.VTimeInCycle(h.space.PeekField(pcc.FieldPostFrameGap))
}

func (h *Hardware) finishPostFrame() {
	h.setState(pcc.StateIdle)
	h.syncQueueInfo()
}

func (h *Hardware) bumpField(f regs.Field, n uint32) {
	h.space.PokeField(f, (h.space.PeekField(f)+n)&f.Max())
}
