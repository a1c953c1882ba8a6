package pcc

import (
	"fmt"
	"log"
)

// FrameID is a frame id as latched by the command queue.
type FrameID struct {
	Kind    CmdKind
	FrameID uint32
}

// DumpReport is the result of a dump. Lines hold the text as logged; the other
// fields hold the decoded values of the CMDQ section.
type DumpReport struct {
	Controller   string
	Mode         DumpMode
	Version      string
	State        State
	FrameCounter uint32
	Fullness     uint32
	LastRptr     uint32
	Rptr         uint32
	Wptr         uint32
	Pre          FrameID
	Cur          FrameID
	Next         FrameID
	Charged      bool
	LastCmd      Command
	PostFrameGap uint32
	Lines        []string
}

type dumper struct {
	c *Controller
	r *DumpReport
}

func (d *dumper) printf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	d.r.Lines = append(d.r.Lines, line)
	log.Printf("[%s][DUMP] %s", d.c.name, line)
}

// Dump logs the state of the controller and the hardware. It only reads
// registers.
func (c *Controller) Dump(mode DumpMode) DumpReport {
	r := DumpReport{Controller: c.name, Mode: mode}
	d := &dumper{c: c, r: &r}

	if mode == DumpFull {
		d.version()
	}

	d.cotf()
	d.cmdq()

	if mode == DumpFull {
		d.cloader()
	}

	d.intHist()

	if mode == DumpFull {
		d.dbgStatus()
		d.sfrAccessLog()
		d.perfMonitor()
	}

	d.printf("==============================")

	c.invokeHook(HookPosDump, r, nil)

	return r
}

func (d *dumper) version() {
	v := d.c.regs.Read(RegVersion)
	d.r.Version = fmt.Sprintf("v%02x.%02x.%02x",
		FieldCtrlMajor.Get(v), FieldCtrlMinor.Get(v), FieldCtrlMicro.Get(v))

	d.printf("%s ====================", d.r.Version)
}

func (d *dumper) cotf() {
	m := d.c.regs

	d.printf("COTF IN *********************")
	for i, f := range cotfInFields {
		if m.ReadField(f) != 0 {
			d.printf("[IN%d] ON", i)
		}
	}

	d.printf("COTF OUT ********************")
	for i, f := range cotfOutFields {
		if m.ReadField(f) != 0 {
			d.printf("[OUT%d] ON", i)
		}
	}
}

func (d *dumper) cmdq() {
	c := d.c
	m := c.regs
	r := d.r

	r.State = c.State()
	r.FrameCounter = m.ReadField(FieldFrameCounter)

	info := m.Read(RegCmdQQueueInfo)
	r.Fullness = FieldQueueFullness.Get(info)
	r.Wptr = FieldQueueWptr.Get(info)
	r.Rptr = FieldQueueRptr.Get(info)

	fid := m.Read(RegCmdQFrameID)
	r.Pre = FrameID{CmdKind(FieldPreCmdID.Get(fid)), FieldPreFrameID.Get(fid)}
	r.Cur = FrameID{CmdKind(FieldCurrentCmdID.Get(fid)), FieldCurrentFrameID.Get(fid)}

	pre := m.Read(RegCmdQPreLoad)
	r.Charged = FieldChargedForNext.Get(pre) != 0
	r.Next = FrameID{CmdKind(FieldChargedCmdID.Get(pre)), FieldChargedFrameID.Get(pre)}

	c.cmdqLock.Lock()
	r.LastRptr = c.dbg.LastRptr
	r.LastCmd = c.dbg.LastCmd
	c.cmdqLock.Unlock()

	r.PostFrameGap = m.ReadField(FieldPostFrameGap)

	d.printf("CMDQ ************************")
	d.printf("STATE: %s", r.State)
	d.printf("CMD_CNT: %d", r.FrameCounter)
	d.printf("QUEUE: fullness %d last_rptr %d rptr %d wptr %d",
		r.Fullness, r.LastRptr, r.Rptr, r.Wptr)

	next, nextID := "", -1
	if r.Charged {
		next, nextID = r.Next.Kind.String(), int(r.Next.FrameID)
	}

	d.printf("FRAME_ID: PRE[%.3s][F%d] -> CUR[%.3s][F%d] -> NEXT[%.3s][F%d]",
		r.Pre.Kind, r.Pre.FrameID, r.Cur.Kind, r.Cur.FrameID, next, nextID)

	cmd := r.LastCmd
	d.printf("LAST_CMD_H: dva 0x%x", cmd.BaseAddr)
	d.printf("LAST_CMD_M: header_num %d set_mode %d cmd_id %d fcount %d",
		cmd.HeaderNum, uint32(cmd.SetMode), uint32(cmd.Kind), cmd.FCount)
	d.printf("LAST_CMD_L: int_grp_en 0x%x fro_id %d", cmd.IntGroups, cmd.FROIndex)
	d.printf("POST_FRAME_GAP: %d", r.PostFrameGap)
}

func (d *dumper) cloader() {
	m := d.c.regs

	d.printf("CLOADER *********************")
	d.printf("ENABLE: %s", onOff(m.ReadField(FieldCLoaderEnable) != 0))

	state := "IDLE"
	if m.ReadField(FieldCLoaderBusy) != 0 {
		state = "BUSY"
	}
	d.printf("STATE: %s", state)

	d.printf("HEADER_CNT[DMA] header %d payload %d",
		m.ReadField(FieldHeaderToReq), m.ReadField(FieldHeaderReqed))
	d.printf("HEADER_CNT[APB] set %d skip %d",
		m.ReadField(FieldHeaderAPBed), m.ReadField(FieldHeaderSkipped))
}

func (d *dumper) intHist() {
	m := d.c.regs

	d.printf("INT_HIST ********************")
	d.printf("[CUR] 0x%08x 0x%08x", m.Read(RegIntHistCurInt0), m.Read(RegIntHistCurInt1))

	for i := 0; i < IntHistNum; i++ {
		fid := m.Read(IntHistFrameIDReg(i))

		d.printf("[%.3s][F%d] 0x%08x 0x%08x",
			CmdKind(FieldIntHistCmdID.Get(fid)), FieldIntHistFrameID.Get(fid),
			m.Read(IntHistInt0Reg(i)), m.Read(IntHistInt1Reg(i)))
	}
}

func (d *dumper) dbgStatus() {
	m := d.c.regs

	d.printf("DBG_STATUS ******************")
	d.printf("STATUS: qch 0x%x chain_idle %d idle %d",
		m.ReadField(FieldQChStatus), m.ReadField(FieldChainIdleness),
		m.ReadField(FieldIdlenessStatus))

	for i := 0; i < NumMonitors; i++ {
		d.printf("BUSY_MON[%d] 0x%08x", i, m.Read(BusyMonitorReg(i)))
	}

	for i := 0; i < NumMonitors; i++ {
		d.printf("STAL_OUT[%d] 0x%08x", i, m.Read(StallOutReg(i)))
	}
}

func (d *dumper) sfrAccessLog() {
	m := d.c.regs

	if m.Read(RegSFRAccessLogEnable) == 0 {
		return
	}

	d.printf("SFR_ACCESS_LOG **************")

	for i := 0; i < NumSFRAccessLogs; i++ {
		addr := m.Read(SFRAccessLogAddrReg(i))
		v := m.Read(SFRAccessLogReg(i))
		end := addr + sfrLogRangeBytes(SFRLogAdjustRangeField(i).Get(v))

		d.printf("LOG[%d] 0x%08x--0x%08x", i, addr, end)
		d.printf("LOG[%d] APB: POST/IDLE(%d) PRE_CONFIG(%d) PRE_START(%d) FRAME(%d)", i,
			nibble(v, 28), nibble(v, 24), nibble(v, 20), nibble(v, 16))
		d.printf("LOG[%d] C_LOADER: PRE_CONFIG(%d) FRAME(%d)", i,
			nibble(v, 12), nibble(v, 8))
	}
}

func (d *dumper) perfMonitor() {
	m := d.c.regs

	if m.ReadField(FieldPerfMonEnable) == 0 {
		return
	}

	d.printf("PERF_MONITOR ****************")
	d.printf("INT%d: 0x%08x", m.ReadField(FieldPerfMonUserIntID),
		uint32(1)<<m.ReadField(FieldPerfMonUserSel))
	d.printf("INT_START 0x%08x", m.Read(RegPerfMonIntStart))
	d.printf("INT_END 0x%08x", m.Read(RegPerfMonIntEnd))
	d.printf("INT_USER 0x%08x", m.Read(RegPerfMonIntUser))
	d.printf("PRE_CONFIG 0x%08x", m.Read(RegPerfMonPreConfig))
	d.printf("FRAME 0x%08x", m.Read(RegPerfMonFrame))
}

// sfrLogRangeBytes decodes an adjust range back to a range in bytes.
func sfrLogRangeBytes(adjust uint32) uint32 {
	increment := adjust & (sfrLogIncrementMax - 1)
	multiple := sfrLogMultiples[(adjust>>sfrLogIncrementBits)&3]

	return (increment + 1) * multiple * 4
}

func nibble(v uint32, shift uint) uint32 {
	return (v >> shift) & 0xf
}

func onOff(on bool) string {
	if on {
		return "ON"
	}

	return "OFF"
}
