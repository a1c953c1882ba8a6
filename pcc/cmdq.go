package pcc

import (
	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/regs"
)

// maxDummyBuffersInFlight is the number of loader buffers kept for dummy
// commands the hardware may still fetch.
const maxDummyBuffersInFlight = 2

// Submit hands the configuration of the next frame to the hardware.
//
// It fails with ErrNotEnabled, without writing any register, if the command
// queue is disabled. In the streaming modes a burst submitted while the
// previous burst is still draining is retained and enqueued later by the
// settings-done interrupt.
func (c *Controller) Submit(cfg *FrameConfig) error {
	if cfg == nil {
		return c.wrap(ErrInvalidArgument, "nil frame config")
	}

	if !c.Enabled() {
		c.errf("CMDQ is not enabled")
		return c.wrap(ErrNotEnabled, "submit fcount %d", cfg.Cmd.FCount)
	}

	fc := cfg.clone()
	c.invokeHook(HookPosSubmit, fc, nil)

	c.lockQueue()
	defer c.unlockQueue()

	c.frameCfg = fc
	c.hasFrameCfg = true

	if c.Mode().streaming() && fc.NumBuffers > 1 {
		fullness := c.queueFullness()
		if fullness%fc.NumBuffers != 0 {
			c.infof("defer fcount %d: fullness %d", fc.Cmd.FCount, fullness)
			return nil
		}
	}

	return c.prepareRealCmd(fc)
}

// lockQueue takes the submission lock and stops the hardware from popping.
func (c *Controller) lockQueue() {
	c.cmdqLock.Lock()
	c.suspendQueue()
}

// suspendQueue asserts the pop and reload locks and waits for an ongoing pop
// to finish. A timeout is logged and otherwise ignored.
func (c *Controller) suspendQueue() {
	c.logWriteErr(c.regs.Write(RegCmdQLock, queueLockValue))
	_ = c.waitPopDone()
}

// unlockQueue resumes the hardware and releases the submission lock. Hooks of
// the commands queued under the lock run after it is released.
func (c *Controller) unlockQueue() {
	c.logWriteErr(c.regs.Write(RegCmdQLock, 0))

	queued := c.queued
	c.queued = nil
	c.cmdqLock.Unlock()

	for _, cmd := range queued {
		c.invokeHook(HookPosCmdQueued, cmd, nil)
	}
}

func (c *Controller) queueFullness() uint32 {
	return c.regs.ReadField(FieldQueueFullness)
}

// flushQueue drops the commands that have not been popped yet.
func (c *Controller) flushQueue() {
	if c.queueFullness() == 0 {
		return
	}

	c.logWriteErr(c.regs.WriteField(FieldFlushQueue, 1))
}

func (c *Controller) prepareRealCmd(fc FrameConfig) error {
	if !c.Enabled() {
		c.errf("CMDQ is being disabled")
		return c.wrap(ErrNotEnabled, "fcount %d", fc.Cmd.FCount)
	}

	fc.Cmd.Kind = CmdNormal

	// Routing changed in PRE_START would apply to the frame already latched.
	if c.State() != StatePreStart {
		c.writeCotf(fc)
	}

	c.flushQueue()

	err := c.writeCmd(fc, nil)

	if c.Mode() == ModeStreaming {
		c.prepareDummyCmd(fc)
	}

	return err
}

func (c *Controller) writeCotf(fc FrameConfig) {
	w := c.writer()

	for i, f := range cotfInFields {
		w.field(f, (fc.CotfIn>>i)&1)
	}

	for i, f := range cotfOutFields {
		w.field(f, (fc.CotfOut>>i)&1)
	}

	c.logWriteErr(w.err())
}

// BurstIntGroups returns the interrupt groups of sub-command i of a burst of
// n sub-commands.
func BurstIntGroups(i, n uint32) uint32 {
	groups := MaskFROBase

	if i == 0 {
		groups |= MaskFROFirst
	}

	if i > 0 && i < n-1 {
		groups |= MaskFROMid
	}

	if i == n-1 {
		groups |= MaskFROLast
	}

	return groups
}

// writeCmd writes one command per burst index and adds each to the queue.
// With a stage the writes only reach the stage and nothing is queued.
func (c *Controller) writeCmd(fc FrameConfig, stage *regs.Cache) error {
	cmd := fc.Cmd

	switch cmd.SetMode {
	case SetModeDMAPreloading, SetModeDMADirect:
		if cmd.BaseAddr>>4 == 0 {
			c.warnf("Missing base_addr. Force APB_DIRECT mode.")
			cmd.SetMode = SetModeAPBDirect
			cmd.BaseAddr = 0
			cmd.HeaderNum = 0
		}
	case SetModeCoreX, SetModeAPBDirect:
		cmd.BaseAddr = 0
		cmd.HeaderNum = 0
	default:
		c.errf("Invalid CMDQ setting mode(%d)", uint32(cmd.SetMode))
		return c.wrap(ErrInvalidArgument, "setting mode %d", uint32(cmd.SetMode))
	}

	n := fc.NumBuffers
	if n == 0 {
		c.warnf("Invalid num_buffers(%d)", n)
		n = 1
	}

	w := c.writer()
	if stage != nil {
		w = &regWriter{m: stage}
	}

	for fro := uint32(0); fro < n; fro++ {
		sub := cmd
		sub.FROIndex = fro

		if n > 1 {
			sub.IntGroups = BurstIntGroups(fro, n)

			if fro > 0 {
				sub.SetMode = SetModeAPBDirect
				sub.BaseAddr = 0
				sub.HeaderNum = 0
			}
		}

		h, m, l := EncodeCommand(sub)
		w.write(RegCmdQQueCmdH, h)
		w.write(RegCmdQQueCmdM, m)
		w.write(RegCmdQQueCmdL, l)
		w.write(RegCmdQAddToQueue, 1)

		if stage == nil {
			c.queued = append(c.queued, sub)
		}
	}

	if err := w.err(); err != nil {
		c.errf("write cmd fcount %d: %v", cmd.FCount, err)
		return c.wrap(err, "write cmd fcount %d", cmd.FCount)
	}

	return nil
}

// prepareDummyCmd queues a dummy command that replays the current register
// state. Without a free loader buffer the dummy degrades to an APB command
// that applies nothing.
func (c *Controller) prepareDummyCmd(fc FrameConfig) {
	dummy := FrameConfig{
		NumBuffers: fc.NumBuffers,
		Cmd: Command{
			SetMode:   SetModeAPBDirect,
			Kind:      CmdDummy,
			FCount:    fc.Cmd.FCount,
			IntGroups: fc.Cmd.IntGroups,
		},
	}

	buf, ok := c.acquireLoaderBuffer()
	if !ok {
		c.warnf("degraded dummy_cmd fcount %d: %v", fc.Cmd.FCount, ErrResourceExhausted)
		c.logWriteErr(c.writeCmd(dummy, nil))

		return
	}

	staged := dummy
	if !c.stageDummy(buf, fc, &staged) {
		c.loader.Release(buf)
		c.logWriteErr(c.writeCmd(dummy, nil))

		return
	}

	c.trackBuffer(buf)
	c.logWriteErr(c.writeCmd(staged, nil))
}

// stageDummy fills buf with the extra registers of fc and the dummy command
// itself, and points the dummy at it. It returns false if the buffer content
// does not match what the dummy announces.
func (c *Controller) stageDummy(buf *loader.Buffer, fc FrameConfig, dummy *FrameConfig) bool {
	if len(fc.ExtCRs) > MaxExtCRNum {
		c.errf("Too many ext_cr_set size(%d)", len(fc.ExtCRs))
	} else if len(fc.ExtCRs) > 0 {
		if err := buf.AppendPairs(fc.ExtCRs); err != nil {
			c.errf("stage ext_cr: %v", err)
			return false
		}

		buf.Seal()
	}

	dummy.Cmd.BaseAddr = buf.HeaderDVA()
	dummy.Cmd.HeaderNum = uint32(buf.NumHeaders() + 1)
	dummy.Cmd.SetMode = SetModeDMADirect

	stage := regs.NewCache(c.regs)
	if err := c.writeCmd(*dummy, stage); err != nil {
		return false
	}

	pairs := stage.Snapshot()

	if err := buf.AppendPairs(pairs); err != nil {
		c.errf("stage dummy_cmd: %v", err)
		return false
	}

	buf.Seal()
	buf.SyncForDevice()

	if uint32(buf.NumHeaders()) != dummy.Cmd.HeaderNum {
		c.errf("Invalid header of dummy_cmd! clb_header_num(%d) cmd_header_num(%d)",
			buf.NumHeaders(), dummy.Cmd.HeaderNum)
		return false
	}

	return true
}

func (c *Controller) acquireLoaderBuffer() (*loader.Buffer, bool) {
	if c.loader == nil {
		return nil, false
	}

	return c.loader.TryAcquire()
}

// trackBuffer records a buffer a queued dummy points to. Buffers older than
// the most recent ones go back to the pool.
func (c *Controller) trackBuffer(buf *loader.Buffer) {
	c.inFlight = append(c.inFlight, buf)

	for len(c.inFlight) > maxDummyBuffersInFlight {
		c.loader.Release(c.inFlight[0])
		c.inFlight = c.inFlight[1:]
	}
}

func (c *Controller) releaseBuffers() {
	for _, buf := range c.inFlight {
		c.loader.Release(buf)
	}

	c.inFlight = nil
}

// readLastCmd reads back the command the hardware popped last.
func (c *Controller) readLastCmd() Command {
	rptrMax := FieldRptrForDebug.Max()
	rptr := c.regs.ReadField(FieldQueueRptr)
	last := (rptr + rptrMax) & rptrMax

	c.dbg.LastRptr = last
	c.logWriteErr(c.regs.WriteField(FieldRptrForDebug, last))

	c.dbg.LastCmd = DecodeCommand(
		c.regs.Read(RegCmdQDebugCmdH),
		c.regs.Read(RegCmdQDebugCmdM),
		c.regs.Read(RegCmdQDebugCmdL),
	)

	return c.dbg.LastCmd
}
