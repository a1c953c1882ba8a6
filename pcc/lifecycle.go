package pcc

// Enable programs the controller and enables the command queue. It waits for
// a reset left over from a previous Disable to finish first.
func (c *Controller) Enable(cfg Config) error {
	if !cfg.FSMode.Valid() {
		c.errf("invalid fs_mode(%d)", uint32(cfg.FSMode))
		return c.wrap(ErrInvalidArgument, "fs mode %d", uint32(cfg.FSMode))
	}

	if err := c.waitReset(ResetAll); err != nil {
		return err
	}

	c.setGate(true)

	w := c.writer()

	c.setSFRLog(w)
	c.setPerfMon(w)
	w.field(FieldDebugClockEnable, 1)

	// Frame start is asserted on the first valid input when requested.
	w.write(RegCinfifoNewFrameIn, uint32(cfg.FSMode))
	w.field(FieldVHDStallOnQStop, 1)
	w.field(FieldLogicalOffsetEn, boolToU32(c.ignorePhysBase))
	w.write(RegCLoaderEnable, 1)

	for id, r := range IntRegMap {
		w.write(r.Enable, cfg.IntEnable[id])
	}

	w.write(RegIntHistCurInt0Enable, 0xffffffff)
	w.write(RegIntHistCurInt1Enable, 0xffffffff)

	w.write(RegCmdQEnable, 1)

	c.cmdqLock.Lock()
	c.cfg = cfg
	c.cmdqLock.Unlock()

	if err := w.err(); err != nil {
		c.errf("enable: %v", err)
		return c.wrap(err, "enable")
	}

	c.infof("fs_mode(%d) int0(0x%08x) int1(0x%08x) cmdq_int(0x%08x) corex_int(0x%08x)",
		uint32(cfg.FSMode), cfg.IntEnable[IntID0], cfg.IntEnable[IntID1],
		cfg.IntEnable[IntCmdQ], cfg.IntEnable[IntCoreX])

	return nil
}

// Disable stops the controller. The streaming modes also reset the register
// domain of the hardware and wait for it.
func (c *Controller) Disable() error {
	c.lockQueue()
	c.flushQueue()
	c.releaseBuffers()
	c.unlockQueue()

	c.setGate(false)

	var err error
	if c.Mode().streaming() {
		c.swReset(ResetAPB)
		err = c.waitReset(ResetAPB)
	}

	c.infof("disabled")

	return err
}

// Reset issues a full software reset and waits for it to finish.
func (c *Controller) Reset() error {
	c.swReset(ResetAll)

	return c.waitReset(ResetAll)
}

// Recover nudges a stalled pipeline. In streaming mode it replaces the queue
// content with a dummy command. Without dummies, a queue parked in PRE_START
// is reset; the result tells if that happened. Bursts are left alone.
func (c *Controller) Recover(fcount uint32) (bool, error) {
	mode := c.Mode()
	if !mode.streaming() {
		return false, c.wrap(ErrInvalidArgument, "recover in %s mode", mode)
	}

	c.lockQueue()
	defer c.unlockQueue()

	fc := c.frameCfg
	if fc.NumBuffers > 1 {
		return false, nil
	}

	if mode == ModeStreaming {
		c.flushQueue()
		c.prepareDummyCmd(fc)

		return false, nil
	}

	if c.State() != StatePreStart {
		return false, nil
	}

	c.infof("recover fcount %d", fcount)
	c.swReset(ResetAPB)

	return true, c.waitReset(ResetAPB)
}

// SetClockGate takes or drops a reference on the block clock. Only batch
// controllers manage the clock this way; streaming ones hold it between
// Enable and Disable.
func (c *Controller) SetClockGate(on bool) error {
	if c.Mode() != ModeBatch {
		return c.wrap(ErrInvalidArgument, "clock gate in %s mode", c.Mode())
	}

	c.setGate(on)

	return nil
}

// SetPostFrameDelay sets the gap the hardware leaves after each frame. Values
// below MinPostFrameGap are raised to it.
func (c *Controller) SetPostFrameDelay(ticks uint32) error {
	if !c.Mode().streaming() {
		return c.wrap(ErrInvalidArgument, "post frame delay in %s mode", c.Mode())
	}

	if ticks < MinPostFrameGap {
		ticks = MinPostFrameGap
	}

	if !FieldPostFrameGap.Fits(ticks) {
		return c.wrap(ErrInvalidArgument, "post frame delay %d", ticks)
	}

	cur := c.regs.ReadField(FieldPostFrameGap)
	if cur == ticks {
		return nil
	}

	c.infof("post frame gap %d -> %d", cur, ticks)

	if err := c.regs.WriteField(FieldPostFrameGap, ticks); err != nil {
		c.errf("post frame gap: %v", err)
		return c.wrap(err, "post frame gap")
	}

	return nil
}

// SetMode switches the mode of the controller.
func (c *Controller) SetMode(mode Mode) error {
	if !mode.Valid() {
		c.errf("mode(%d) is out-of-range", int(mode))
		return c.wrap(ErrInvalidArgument, "mode %d", int(mode))
	}

	if c.Mode() == mode {
		return nil
	}

	c.mode.Store(int32(mode))
	c.infof("mode(%s)", mode)

	return nil
}

// Close releases what the controller holds. A clock gate reference left
// behind is dropped with a warning.
func (c *Controller) Close() {
	c.gateLock.Lock()
	n := c.gate.count()
	if n > 0 {
		c.warnf("remaining qch_ref_cnt(%d)", n)
		c.gate.n = 1
	}
	c.gateLock.Unlock()

	if n > 0 {
		c.setGate(false)
	}

	c.cmdqLock.Lock()
	c.releaseBuffers()
	c.cmdqLock.Unlock()
}

// swReset triggers a software reset. Resets other than the core one also
// clear the clock gate, so the reference count starts over.
func (c *Controller) swReset(kind ResetKind) {
	c.logWriteErr(c.regs.Write(RegCmdQLock, queueLockValue))

	c.infof("sw reset(%d)", int(kind))
	c.logWriteErr(c.regs.Write(ResetRegs[kind], 1))

	if kind != ResetCore {
		c.gateLock.Lock()
		c.gate.reset()
		c.gateLock.Unlock()
	}

	c.invokeHook(HookPosReset, kind, nil)
}

// waitReset polls until a reset register self-clears.
func (c *Controller) waitReset(kind ResetKind) error {
	err := c.poll.Until(func() bool {
		return c.regs.Read(ResetRegs[kind]) == 0
	})
	if err != nil {
		c.errf("sw_reset(%d) timeout", int(kind))
		return c.wrap(err, "sw reset %d", int(kind))
	}

	return nil
}

func (c *Controller) setSFRLog(w *regWriter) {
	enable := false

	for i, l := range c.sfrLogs {
		if l.Range == 0 {
			continue
		}

		w.field(SFRLogAdjustRangeField(i), sfrLogAdjustRange(l.Range))
		w.write(SFRAccessLogAddrReg(i), (c.physBase+l.Offset)&apbAddrMask)

		enable = true
	}

	w.write(RegSFRAccessLogEnable, boolToU32(enable))
}

func (c *Controller) setPerfMon(w *regWriter) {
	var sel uint32
	sel = FieldPerfMonUserIntID.Set(sel, uint32(perfMonUserIntID))
	sel = FieldPerfMonUserSel.Set(sel, perfMonUserBit)

	w.write(RegPerfMonUserSel, sel)
	w.field(FieldPerfMonEnable, PerfMonMask)
}

const apbAddrMask = 0x0fffffff

var sfrLogMultiples = [...]uint32{1, 4, 16, 256}

const (
	sfrLogIncrementBits = 6
	sfrLogIncrementMax  = 1 << sfrLogIncrementBits
)

// sfrLogAdjustRange encodes a range in bytes as an increment and a multiple
// of registers.
func sfrLogAdjustRange(rangeBytes uint32) uint32 {
	numCR := rangeBytes >> 2
	if numCR == 0 {
		return 0
	}

	for i, multiple := range sfrLogMultiples {
		if numCR > sfrLogIncrementMax*multiple {
			continue
		}

		increment := (numCR+multiple-1)/multiple - 1

		return increment | uint32(i)<<sfrLogIncrementBits
	}

	return 0
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}

	return 0
}
