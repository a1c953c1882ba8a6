package cmdqhw

import (
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/regs"
	"github.com/sarchlab/pcc/sim"
)

// An InterruptSink is told when an interrupt line has new status bits.
type InterruptSink interface {
	Interrupt(id pcc.IntID)
}

// InterruptSinkFunc adapts a function to an InterruptSink.
type InterruptSinkFunc func(id pcc.IntID)

// Interrupt calls f(id).
func (f InterruptSinkFunc) Interrupt(id pcc.IntID) {
	f(id)
}

// Bits of the CMDQ interrupt line.
const (
	cmdqIntOverflow = 0
)

var perfMonCounters = []regs.Register{
	pcc.RegPerfMonIntStart,
	pcc.RegPerfMonIntEnd,
	pcc.RegPerfMonIntUser,
	pcc.RegPerfMonPreConfig,
	pcc.RegPerfMonFrame,
}

// SetInterruptSink sets where interrupts are delivered.
func (h *Hardware) SetInterruptSink(s InterruptSink) {
	h.sinkLock.Lock()
	defer h.sinkLock.Unlock()

	h.sink = s
}

func groupEnabled(groups uint32, group int) bool {
	return groups&(1<<pcc.GroupEnableAll) != 0 || groups&(1<<group) != 0
}

// raise latches an INT0-style bit if the active command has the group
// enabled.
func (h *Hardware) raise(id pcc.IntID, bit, group int) {
	if !groupEnabled(h.cur.IntGroups, group) {
		return
	}

	h.raiseLine(id, bit)
}

func (h *Hardware) raiseLine(id pcc.IntID, bit int) {
	r := pcc.IntRegMap[id]
	if h.space.Peek(r.Enable)&(1<<bit) == 0 {
		return
	}

	h.space.Update(r.Status, func(old uint32) uint32 {
		return old | 1<<bit
	})

	h.recordCurrent(id, bit)
	h.stampPerf(id, bit)

	if !h.isPending(id) {
		h.pending = append(h.pending, id)
	}

	if h.NumHooks() > 0 {
		h.InvokeHook(sim.HookCtx{
			Domain: h,
			Pos:    HookPosRaise,
			Item:   Raise{Time: h.CurrentTime(), ID: id, Bit: bit, Cmd: h.cur},
		})
	}
}

func (h *Hardware) isPending(id pcc.IntID) bool {
	for _, p := range h.pending {
		if p == id {
			return true
		}
	}

	return false
}

func (h *Hardware) recordCurrent(id pcc.IntID, bit int) {
	var cur, en regs.Register

	switch id {
	case pcc.IntID0:
		cur, en = pcc.RegIntHistCurInt0, pcc.RegIntHistCurInt0Enable
	case pcc.IntID1:
		cur, en = pcc.RegIntHistCurInt1, pcc.RegIntHistCurInt1Enable
	default:
		return
	}

	if h.space.Peek(en)&(1<<bit) == 0 {
		return
	}

	h.space.Update(cur, func(old uint32) uint32 {
		return old | 1<<bit
	})
}

// pushHistory moves the interrupts collected during the frame into the first
// history entry, shifting older entries down.
func (h *Hardware) pushHistory() {
	for i := pcc.IntHistNum - 1; i > 0; i-- {
		h.space.Poke(pcc.IntHistFrameIDReg(i), h.space.Peek(pcc.IntHistFrameIDReg(i-1)))
		h.space.Poke(pcc.IntHistInt0Reg(i), h.space.Peek(pcc.IntHistInt0Reg(i-1)))
		h.space.Poke(pcc.IntHistInt1Reg(i), h.space.Peek(pcc.IntHistInt1Reg(i-1)))
	}

	var fid uint32
	fid = pcc.FieldIntHistFrameID.Set(fid, h.cur.FCount&pcc.FieldIntHistFrameID.Max())
	fid = pcc.FieldIntHistCmdID.Set(fid, uint32(h.cur.Kind))

	h.space.Poke(pcc.IntHistFrameIDReg(0), fid)
	h.space.Poke(pcc.IntHistInt0Reg(0), h.space.Peek(pcc.RegIntHistCurInt0))
	h.space.Poke(pcc.IntHistInt1Reg(0), h.space.Peek(pcc.RegIntHistCurInt1))
	h.space.Poke(pcc.RegIntHistCurInt0, 0)
	h.space.Poke(pcc.RegIntHistCurInt1, 0)
}

func (h *Hardware) perfEnabled() bool {
	return h.space.PeekField(pcc.FieldPerfMonEnable) != 0
}

// stampPerf records the cycle of frame start, frame end and the user
// selected interrupt.
func (h *Hardware) stampPerf(id pcc.IntID, bit int) {
	if !h.perfEnabled() {
		return
	}

	now := uint32(h.CurrentTime())

	if id == pcc.IntID0 {
		switch bit {
		case pcc.Int0FrameStart:
			h.space.Poke(pcc.RegPerfMonIntStart, now)
		case pcc.Int0FrameEnd:
			h.space.Poke(pcc.RegPerfMonIntEnd, now)
		}
	}

	if pcc.IntID(h.space.PeekField(pcc.FieldPerfMonUserIntID)) == id &&
		h.space.PeekField(pcc.FieldPerfMonUserSel) == uint32(bit) {
		h.space.Poke(pcc.RegPerfMonIntUser, now)
	}
}

// countPerf counts the cycles spent applying configurations and running
// frames.
func (h *Hardware) countPerf() {
	if !h.perfEnabled() {
		return
	}

	var r regs.Register

	switch h.state {
	case pcc.StatePreConfig:
		r = pcc.RegPerfMonPreConfig
	case pcc.StateFrame:
		r = pcc.RegPerfMonFrame
	default:
		return
	}

	h.space.Update(r, func(old uint32) uint32 {
		return old + 1
	})
}

// irqEvent carries the interrupts latched in one cycle. It is a secondary
// event, so the sink runs once the cycle is over.
type irqEvent struct {
	*sim.EventBase
	ids []pcc.IntID
}

// Handle delivers interrupt events and passes ticks on.
func (h *Hardware) Handle(e sim.Event) error {
	switch e := e.(type) {
	case irqEvent:
		h.deliver(e.ids)
		return nil
	default:
		return h.TickingComponent.Handle(e)
	}
}

// deliver hands interrupts to the IRQ goroutine if the hardware was started,
// or to the sink directly otherwise. It must not be called with h.mu held.
func (h *Hardware) deliver(irqs []pcc.IntID) {
	if len(irqs) == 0 {
		return
	}

	h.sinkLock.RLock()
	sink, irq, done := h.sink, h.irq, h.done
	h.sinkLock.RUnlock()

	for _, id := range irqs {
		if irq != nil {
			select {
			case irq <- id:
			case <-done:
				return
			}

			continue
		}

		if sink != nil {
			sink.Interrupt(id)
		}
	}
}
