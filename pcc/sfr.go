package pcc

import "github.com/sarchlab/pcc/regs"

// The register layout of the v1.4 common control block. The simulated
// hardware in cmdqhw shares this table.

// WindowSize is the size in bytes of the register window.
const WindowSize = 0x1d4

func reg(name string, offset uint32) regs.Register {
	return regs.Register{Name: name, Offset: offset}
}

func field(name string, r regs.Register, shift, width uint8) regs.Field {
	return regs.Field{Name: name, Reg: r, Shift: shift, Width: width}
}

// Registers.
var (
	RegVersion           = reg("COMMON_CTRL_VERSION", 0x00)
	RegSwReset           = reg("SW_RESET", 0x04)
	RegSwCoreReset       = reg("SW_CORE_RESET", 0x08)
	RegSwAPBReset        = reg("SW_APB_RESET", 0x0c)
	RegIPProcessing      = reg("IP_PROCESSING", 0x10)
	RegPostFrameGap      = reg("IP_POST_FRAME_GAP", 0x14)
	RegCinfifoNewFrameIn = reg("IP_USE_CINFIFO_NEW_FRAME_IN", 0x18)
	RegDebugClockEnable  = reg("DEBUG_CLOCK_ENABLE", 0x1c)
	RegQChStatus         = reg("QCH_STATUS", 0x20)
	RegIdlenessStatus    = reg("IDLENESS_STATUS", 0x24)

	RegOTFPath01 = reg("IP_USE_OTF_PATH_01", 0x30)
	RegOTFPath23 = reg("IP_USE_OTF_PATH_23", 0x34)
	RegOTFPath45 = reg("IP_USE_OTF_PATH_45", 0x38)
	RegOTFPath67 = reg("IP_USE_OTF_PATH_67", 0x3c)

	RegCLoaderEnable           = reg("C_LOADER_ENABLE", 0x40)
	RegCLoaderLogicalOffsetEn  = reg("C_LOADER_LOGICAL_OFFSET_EN", 0x44)
	RegCLoaderDebugStatus      = reg("C_LOADER_DEBUG_STATUS", 0x48)
	RegCLoaderHeaderReqCounter = reg("C_LOADER_DEBUG_HEADER_REQ_COUNTER", 0x4c)
	RegCLoaderHeaderAPBCounter = reg("C_LOADER_DEBUG_HEADER_APB_COUNTER", 0x50)

	RegCmdQEnable       = reg("CMDQ_ENABLE", 0x60)
	RegCmdQLock         = reg("CMDQ_LOCK", 0x64)
	RegCmdQVHDControl   = reg("CMDQ_VHD_CONTROL", 0x68)
	RegCmdQFlush        = reg("CMDQ_FLUSH_QUEUE_0", 0x6c)
	RegCmdQQueCmdH      = reg("CMDQ_QUE_CMD_H", 0x70)
	RegCmdQQueCmdM      = reg("CMDQ_QUE_CMD_M", 0x74)
	RegCmdQQueCmdL      = reg("CMDQ_QUE_CMD_L", 0x78)
	RegCmdQAddToQueue   = reg("CMDQ_ADD_TO_QUEUE_0", 0x7c)
	RegCmdQQueueInfo    = reg("CMDQ_QUEUE_0_INFO", 0x80)
	RegCmdQRptrForDebug = reg("CMDQ_QUEUE_0_RPTR_FOR_DEBUG", 0x84)
	RegCmdQDebugCmdH    = reg("CMDQ_DEBUG_QUE_0_CMD_H", 0x88)
	RegCmdQDebugCmdM    = reg("CMDQ_DEBUG_QUE_0_CMD_M", 0x8c)
	RegCmdQDebugCmdL    = reg("CMDQ_DEBUG_QUE_0_CMD_L", 0x90)
	RegCmdQDebugStatus  = reg("CMDQ_DEBUG_STATUS", 0x94)
	RegCmdQFrameCounter = reg("CMDQ_FRAME_COUNTER", 0x98)
	RegCmdQFrameID      = reg("CMDQ_FRAME_ID", 0x9c)
	RegCmdQPreLoad      = reg("CMDQ_DEBUG_STATUS_PRE_LOAD", 0xa0)

	RegInt0         = reg("INT_REQ_INT0", 0xb0)
	RegInt0Enable   = reg("INT_REQ_INT0_ENABLE", 0xb4)
	RegInt0Clear    = reg("INT_REQ_INT0_CLEAR", 0xb8)
	RegInt1         = reg("INT_REQ_INT1", 0xc0)
	RegInt1Enable   = reg("INT_REQ_INT1_ENABLE", 0xc4)
	RegInt1Clear    = reg("INT_REQ_INT1_CLEAR", 0xc8)
	RegCmdQInt      = reg("CMDQ_INT", 0xd0)
	RegCmdQIntEn    = reg("CMDQ_INT_ENABLE", 0xd4)
	RegCmdQIntClear = reg("CMDQ_INT_CLEAR", 0xd8)
	RegCoreXInt     = reg("COREX_INT", 0xe0)
	RegCoreXIntEn   = reg("COREX_INT_ENABLE", 0xe4)
	RegCoreXIntClr  = reg("COREX_INT_CLEAR", 0xe8)

	RegIntHistCurInt0       = reg("INT_HIST_CURINT0", 0xf0)
	RegIntHistCurInt1       = reg("INT_HIST_CURINT1", 0xf4)
	RegIntHistCurInt0Enable = reg("INT_HIST_CURINT0_ENABLE", 0xf8)
	RegIntHistCurInt1Enable = reg("INT_HIST_CURINT1_ENABLE", 0xfc)

	RegSFRAccessLogEnable = reg("SFR_ACCESS_LOG_ENABLE", 0x180)

	RegPerfMonEnable    = reg("PERF_MONITOR_ENABLE", 0x1b0)
	RegPerfMonClear     = reg("PERF_MONITOR_CLEAR", 0x1b4)
	RegPerfMonUserSel   = reg("PERF_MONITOR_INT_USER_SEL", 0x1b8)
	RegPerfMonIntStart  = reg("PERF_MONITOR_INT_START", 0x1bc)
	RegPerfMonIntEnd    = reg("PERF_MONITOR_INT_END", 0x1c0)
	RegPerfMonIntUser   = reg("PERF_MONITOR_INT_USER", 0x1c4)
	RegPerfMonPreConfig = reg("PERF_MONITOR_PROCESS_PRE_CONFIG", 0x1c8)
	RegPerfMonFrame     = reg("PERF_MONITOR_PROCESS_FRAME", 0x1cc)

	RegFreezeCorruptedEnable = reg("FREEZE_CORRUPTED_ENABLE", 0x1d0)
)

// Fields.
var (
	FieldCtrlMicro = field("CTRL_MICRO", RegVersion, 0, 8)
	FieldCtrlMinor = field("CTRL_MINOR", RegVersion, 8, 8)
	FieldCtrlMajor = field("CTRL_MAJOR", RegVersion, 16, 8)

	FieldPostFrameGap     = field("IP_POST_FRAME_GAP", RegPostFrameGap, 0, 16)
	FieldDebugClockEnable = field("DEBUG_CLOCK_ENABLE", RegDebugClockEnable, 0, 1)
	FieldQChStatus        = field("QCH_STATUS", RegQChStatus, 0, 4)
	FieldIdlenessStatus   = field("IDLENESS_STATUS", RegIdlenessStatus, 0, 1)
	FieldChainIdleness    = field("CHAIN_IDLENESS_STATUS", RegIdlenessStatus, 1, 1)
	FieldCLoaderEnable    = field("C_LOADER_ENABLE", RegCLoaderEnable, 0, 1)
	FieldLogicalOffsetEn  = field("C_LOADER_LOGICAL_OFFSET_EN", RegCLoaderLogicalOffsetEn, 0, 1)
	FieldCLoaderBusy      = field("C_LOADER_BUSY", RegCLoaderDebugStatus, 0, 1)
	FieldHeaderToReq      = field("C_LOADER_NUM_OF_HEADER_TO_REQ", RegCLoaderHeaderReqCounter, 0, 16)
	FieldHeaderReqed      = field("C_LOADER_NUM_OF_HEADER_REQED", RegCLoaderHeaderReqCounter, 16, 16)
	FieldHeaderAPBed      = field("C_LOADER_NUM_OF_HEADER_APBED", RegCLoaderHeaderAPBCounter, 0, 16)
	FieldHeaderSkipped    = field("C_LOADER_NUM_OF_HEADER_SKIPED", RegCLoaderHeaderAPBCounter, 16, 16)
	FieldCmdQEnable       = field("CMDQ_ENABLE", RegCmdQEnable, 0, 1)
	FieldPopLock          = field("CMDQ_POP_LOCK", RegCmdQLock, 0, 1)
	FieldReloadLock       = field("CMDQ_RELOAD_LOCK", RegCmdQLock, 8, 1)
	FieldVHDStallOnQStop  = field("CMDQ_VHD_STALL_ON_QSTOP_ENABLE", RegCmdQVHDControl, 24, 1)
	FieldFlushQueue       = field("CMDQ_FLUSH_QUEUE_0", RegCmdQFlush, 0, 1)
	FieldQueCmdBaseAddr   = field("CMDQ_QUE_CMD_BASE_ADDR", RegCmdQQueCmdH, 0, 32)
	FieldQueCmdHeaderNum  = field("CMDQ_QUE_CMD_HEADER_NUM", RegCmdQQueCmdM, 0, 12)
	FieldQueCmdSetMode    = field("CMDQ_QUE_CMD_SETTING_MODE", RegCmdQQueCmdM, 12, 2)
	FieldQueCmdHoldMode   = field("CMDQ_QUE_CMD_HOLD_MODE", RegCmdQQueCmdM, 14, 1)
	FieldQueCmdCmdID      = field("CMDQ_QUE_CMD_CMD_ID", RegCmdQQueCmdM, 15, 1)
	FieldQueCmdFrameID    = field("CMDQ_QUE_CMD_FRAME_ID", RegCmdQQueCmdM, 16, 16)
	FieldQueCmdIntGroup   = field("CMDQ_QUE_CMD_INT_GROUP_ENABLE", RegCmdQQueCmdL, 0, 8)
	FieldQueCmdFROIndex   = field("CMDQ_QUE_CMD_FRO_INDEX", RegCmdQQueCmdL, 8, 6)
	FieldQueueFullness    = field("CMDQ_QUEUE_0_FULLNESS", RegCmdQQueueInfo, 0, 5)
	FieldQueueWptr        = field("CMDQ_QUEUE_0_WPTR", RegCmdQQueueInfo, 8, 4)
	FieldQueueRptr        = field("CMDQ_QUEUE_0_RPTR", RegCmdQQueueInfo, 16, 4)
	FieldRptrForDebug     = field("CMDQ_QUEUE_0_RPTR_FOR_DEBUG", RegCmdQRptrForDebug, 0, 4)
	FieldCmdQProcess      = field("CMDQ_DEBUG_PROCESS", RegCmdQDebugStatus, 0, 5)
	FieldFrameCounter     = field("CMDQ_FRAME_COUNTER", RegCmdQFrameCounter, 0, 32)
	FieldCurrentFrameID   = field("CMDQ_CURRENT_FRAME_ID", RegCmdQFrameID, 0, 15)
	FieldCurrentCmdID     = field("CMDQ_CURRENT_CMD_ID", RegCmdQFrameID, 15, 1)
	FieldPreFrameID       = field("CMDQ_PRE_FRAME_ID", RegCmdQFrameID, 16, 15)
	FieldPreCmdID         = field("CMDQ_PRE_CMD_ID", RegCmdQFrameID, 31, 1)
	FieldChargedFrameID   = field("CMDQ_CHARGED_FRAME_ID", RegCmdQPreLoad, 0, 15)
	FieldChargedCmdID     = field("CMDQ_CHARGED_CMD_ID", RegCmdQPreLoad, 15, 1)
	FieldChargedForNext   = field("CMDQ_CHARGED_FOR_NEXT_FRAME", RegCmdQPreLoad, 16, 1)
	FieldPerfMonEnable    = field("PERF_MONITOR_ENABLE", RegPerfMonEnable, 0, 5)
	FieldPerfMonUserSel   = field("PERF_MONITOR_INT_USER_SEL", RegPerfMonUserSel, 0, 5)
	FieldPerfMonUserIntID = field("PERF_MONITOR_INT_USER_SEL_INT_ID", RegPerfMonUserSel, 8, 2)
)

// Queue lock bits written while the submission path owns the queue.
var queueLockValue = FieldPopLock.Set(FieldReloadLock.Set(0, 1), 1)

// Interrupt history. Each entry has a frame id word followed by the INT0 and
// INT1 words.
const (
	IntHistNum    = 8
	intHistBase   = 0x100
	intHistStride = 12
)

// IntHistFrameIDReg returns the frame id register of history entry i.
func IntHistFrameIDReg(i int) regs.Register {
	return reg("INT_HIST_FRAME_ID", intHistBase+uint32(i)*intHistStride)
}

// IntHistInt0Reg returns the INT0 register of history entry i.
func IntHistInt0Reg(i int) regs.Register {
	return reg("INT_HIST_INT0", intHistBase+uint32(i)*intHistStride+4)
}

// IntHistInt1Reg returns the INT1 register of history entry i.
func IntHistInt1Reg(i int) regs.Register {
	return reg("INT_HIST_INT1", intHistBase+uint32(i)*intHistStride+8)
}

// Fields of an interrupt history frame id word.
var (
	FieldIntHistFrameID = field("INT_HIST_FRAME_ID", IntHistFrameIDReg(0), 0, 15)
	FieldIntHistCmdID   = field("INT_HIST_CMD_ID", IntHistFrameIDReg(0), 15, 1)
)

// Busy and stall monitors.
const NumMonitors = 4

// BusyMonitorReg returns busy monitor register i.
func BusyMonitorReg(i int) regs.Register {
	return reg("IP_BUSY_MONITOR", 0x160+uint32(i)*4)
}

// StallOutReg returns stall-out status register i.
func StallOutReg(i int) regs.Register {
	return reg("IP_STALL_OUT_STATUS", 0x170+uint32(i)*4)
}

// SFR access logs.
const NumSFRAccessLogs = 4

// SFRAccessLogReg returns access log register i.
func SFRAccessLogReg(i int) regs.Register {
	return reg("SFR_ACCESS_LOG", 0x184+uint32(i)*8)
}

// SFRLogAdjustRangeField returns the encoded range field of access log i.
func SFRLogAdjustRangeField(i int) regs.Field {
	return field("SFR_ACCESS_LOG_ADJUST_RANGE", SFRAccessLogReg(i), 0, 8)
}

// SFRAccessLogAddrReg returns the address register of access log i.
func SFRAccessLogAddrReg(i int) regs.Register {
	return reg("SFR_ACCESS_LOG_ADDRESS", 0x188+uint32(i)*8)
}

// Routing bitmaps are spread over the OTF path registers.
const (
	MaxCotfIn  = 8
	MaxCotfOut = 6
)

var cotfInFields = [MaxCotfIn]regs.Field{
	field("IP_USE_OTF_IN_FOR_PATH_0", RegOTFPath01, 0, 1),
	field("IP_USE_OTF_IN_FOR_PATH_1", RegOTFPath01, 16, 1),
	field("IP_USE_OTF_IN_FOR_PATH_2", RegOTFPath23, 0, 1),
	field("IP_USE_OTF_IN_FOR_PATH_3", RegOTFPath23, 16, 1),
	field("IP_USE_OTF_IN_FOR_PATH_4", RegOTFPath45, 0, 1),
	field("IP_USE_OTF_IN_FOR_PATH_5", RegOTFPath45, 16, 1),
	field("IP_USE_OTF_IN_FOR_PATH_6", RegOTFPath67, 0, 1),
	field("IP_USE_OTF_IN_FOR_PATH_7", RegOTFPath67, 16, 1),
}

var cotfOutFields = [MaxCotfOut]regs.Field{
	field("IP_USE_OTF_OUT_FOR_PATH_0", RegOTFPath01, 8, 1),
	field("IP_USE_OTF_OUT_FOR_PATH_1", RegOTFPath01, 24, 1),
	field("IP_USE_OTF_OUT_FOR_PATH_2", RegOTFPath23, 8, 1),
	field("IP_USE_OTF_OUT_FOR_PATH_3", RegOTFPath23, 24, 1),
	field("IP_USE_OTF_OUT_FOR_PATH_4", RegOTFPath45, 8, 1),
	field("IP_USE_OTF_OUT_FOR_PATH_5", RegOTFPath45, 24, 1),
}

// IntRegs groups the status, enable and clear registers of one line.
type IntRegs struct {
	Status regs.Register
	Enable regs.Register
	Clear  regs.Register
}

// IntRegMap maps each interrupt line to its registers.
var IntRegMap = [NumIntIDs]IntRegs{
	IntID0:   {RegInt0, RegInt0Enable, RegInt0Clear},
	IntID1:   {RegInt1, RegInt1Enable, RegInt1Clear},
	IntCmdQ:  {RegCmdQInt, RegCmdQIntEn, RegCmdQIntClear},
	IntCoreX: {RegCoreXInt, RegCoreXIntEn, RegCoreXIntClr},
}

// ResetKind selects the scope of a software reset.
type ResetKind int

// Reset kinds.
const (
	ResetAll ResetKind = iota
	ResetCore
	ResetAPB
)

// ResetRegs maps each reset kind to its trigger register.
var ResetRegs = [...]regs.Register{
	ResetAll:  RegSwReset,
	ResetCore: RegSwCoreReset,
	ResetAPB:  RegSwAPBReset,
}

// Performance monitor selection.
const (
	PerfMonMask      uint32 = 0x1f
	perfMonUserIntID        = IntID0
	perfMonUserBit          = Int0FrameEnd
)

// EncodeCommand packs a command into the CMD_H, CMD_M and CMD_L words.
func EncodeCommand(cmd Command) (h, m, l uint32) {
	h = uint32(cmd.BaseAddr >> 4)

	m = FieldQueCmdHeaderNum.Set(m, cmd.HeaderNum)
	m = FieldQueCmdSetMode.Set(m, uint32(cmd.SetMode))
	m = FieldQueCmdHoldMode.Set(m, 0)
	m = FieldQueCmdCmdID.Set(m, uint32(cmd.Kind))
	m = FieldQueCmdFrameID.Set(m, cmd.FCount)

	l = FieldQueCmdIntGroup.Set(l, cmd.IntGroups)
	l = FieldQueCmdFROIndex.Set(l, cmd.FROIndex)

	return h, m, l
}

// DecodeCommand unpacks the CMD_H, CMD_M and CMD_L words.
func DecodeCommand(h, m, l uint32) Command {
	return Command{
		BaseAddr:  uint64(h) << 4,
		HeaderNum: FieldQueCmdHeaderNum.Get(m),
		SetMode:   SetMode(FieldQueCmdSetMode.Get(m)),
		Kind:      CmdKind(FieldQueCmdCmdID.Get(m)),
		FCount:    FieldQueCmdFrameID.Get(m),
		IntGroups: FieldQueCmdIntGroup.Get(l),
		FROIndex:  FieldQueCmdFROIndex.Get(l),
	}
}
