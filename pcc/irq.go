package pcc

// irqHandler names the action taken for one interrupt bit.
type irqHandler int

const (
	handlerNone irqHandler = iota
	handlerFrameStart
	handlerSettingDoneStreaming
	handlerSettingDoneBatch
)

// handlerFor returns the action for a bit of an interrupt line in a mode.
// Combinations with nothing to do map to handlerNone.
func handlerFor(id IntID, bit int, mode Mode) irqHandler {
	if id != IntID0 {
		return handlerNone
	}

	switch bit {
	case Int0FrameStart:
		return handlerFrameStart
	case Int0SettingDone:
		switch mode {
		case ModeStreaming, ModeStreamingNoDummy:
			return handlerSettingDoneStreaming
		case ModeBatch:
			return handlerSettingDoneBatch
		}
	}

	return handlerNone
}

// InterruptStatus reads the status of an interrupt line, optionally clears
// it, and handles every set bit. It returns the status as read.
func (c *Controller) InterruptStatus(id IntID, clear bool) uint32 {
	if id < 0 || id >= NumIntIDs {
		c.errf("Invalid INT_ID(%d)", int(id))
		return 0
	}

	r := IntRegMap[id]

	status := c.regs.Read(r.Status)
	if clear {
		c.logWriteErr(c.regs.Write(r.Clear, status))
	}

	mode := c.Mode()

	for bit := 0; bit < 32; bit++ {
		if status&(1<<bit) == 0 {
			continue
		}

		c.handle(handlerFor(id, bit, mode))
	}

	c.debugDump(id, status, mode)

	if id == perfMonUserIntID && status&(1<<perfMonUserBit) != 0 {
		c.logWriteErr(c.regs.Write(RegPerfMonClear, PerfMonMask))
	}

	c.invokeHook(HookPosInterrupt, InterruptEvent{ID: id, Status: status, Clear: clear}, nil)

	return status
}

func (c *Controller) handle(h irqHandler) {
	switch h {
	case handlerFrameStart:
		c.frameStart()
	case handlerSettingDoneStreaming:
		c.settingDoneStreaming()
	case handlerSettingDoneBatch:
		c.settingDoneBatch()
	case handlerNone:
	}
}

func (c *Controller) frameStart() {
	c.lastFCount.Store(c.regs.ReadField(FieldCurrentFrameID))
}

// settingDoneStreaming records the popped command and enqueues the retained
// burst again once all of its sub-commands have left the queue.
func (c *Controller) settingDoneStreaming() {
	c.cmdqLock.Lock()

	prev := c.dbg.LastCmd
	last := c.readLastCmd()
	fc := c.frameCfg

	if !c.hasFrameCfg || fc.NumBuffers <= 1 || !last.after(prev) {
		c.cmdqLock.Unlock()
		return
	}

	c.suspendQueue()

	if c.queueFullness()%fc.NumBuffers == 0 {
		if err := c.prepareRealCmd(fc); err != nil {
			c.errf("re-arm fcount %d: %v", fc.Cmd.FCount, err)
		}
	}

	c.unlockQueue()
}

func (c *Controller) settingDoneBatch() {
	c.cmdqLock.Lock()
	defer c.cmdqLock.Unlock()

	c.readLastCmd()
}

func (c *Controller) debugDump(id IntID, status uint32, mode Mode) {
	p := c.debugParams.Load()
	if p == nil || !p.DumpEnabled {
		return
	}

	if p.ModeMask&(1<<uint(mode)) == 0 || status&p.IntMask[id] == 0 {
		return
	}

	c.infof("[INT%d] 0x%08x", int(id), status)
	c.Dump(DumpFull)
}

// CompareFrameCount compares fcount with the frame id recorded by the last
// frame start. Zero means equal.
func (c *Controller) CompareFrameCount(fcount uint32) int {
	return int(fcount&FieldCurrentFrameID.Max()) - int(c.lastFCount.Load())
}
