package pcc

import (
	"fmt"
	"strings"

	"github.com/sarchlab/pcc/regs"
)

// Mode selects how a controller feeds its hardware.
type Mode int

// Controller modes.
const (
	// ModeStreaming serves an on-the-fly pipeline and backfills the queue
	// with dummy commands.
	ModeStreaming Mode = iota
	// ModeBatch serves memory-to-memory jobs, one per submission.
	ModeBatch
	// ModeStreamingNoDummy serves an on-the-fly pipeline without backfill.
	ModeStreamingNoDummy
	numModes
)

var modeNames = [numModes]string{"streaming", "batch", "streaming-no-dummy"}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}

	return modeNames[m]
}

// Valid tells if m is a known mode.
func (m Mode) Valid() bool {
	return m >= 0 && m < numModes
}

func (m Mode) streaming() bool {
	return m == ModeStreaming || m == ModeStreamingNoDummy
}

// ParseMode converts the name of a mode back to the mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}

	return 0, fmt.Errorf("unknown mode %q: %w", s, ErrInvalidArgument)
}

// SetMode is the way the hardware applies the configuration of a command.
type SetMode uint32

// Setting modes.
const (
	SetModeDMAPreloading SetMode = iota
	SetModeDMADirect
	SetModeCoreX
	SetModeAPBDirect
	numSetModes
)

var setModeNames = [numSetModes]string{
	"DMA_PRELOADING", "DMA_DIRECT", "COREX", "APB_DIRECT",
}

func (s SetMode) String() string {
	if s >= numSetModes {
		return fmt.Sprintf("SetMode(%d)", uint32(s))
	}

	return setModeNames[s]
}

// CmdKind tells real commands apart from backfill.
type CmdKind uint32

// Command kinds.
const (
	CmdNormal CmdKind = iota
	CmdDummy
)

func (k CmdKind) String() string {
	if k == CmdDummy {
		return "DUM"
	}

	return "NOR"
}

// FSMode selects what the hardware treats as a frame start.
type FSMode uint32

// Frame start modes.
const (
	// FSModeASAP starts a frame as soon as the configuration is applied.
	FSModeASAP FSMode = iota
	// FSModeVValidRise waits for the rising edge of the input valid signal.
	FSModeVValidRise
	numFSModes
)

// Valid tells if m is a known frame start mode.
func (m FSMode) Valid() bool {
	return m < numFSModes
}

// IntID identifies one interrupt line of the controller.
type IntID int

// Interrupt lines.
const (
	IntID0 IntID = iota
	IntID1
	IntCmdQ
	IntCoreX
	NumIntIDs
)

var intIDNames = [NumIntIDs]string{"INT0", "INT1", "CMDQ", "COREX"}

func (id IntID) String() string {
	if id < 0 || id >= NumIntIDs {
		return fmt.Sprintf("IntID(%d)", int(id))
	}

	return intIDNames[id]
}

// Interrupt groups a command can enable.
const (
	GroupFrameStart  = 0
	GroupFrameEnd    = 1
	GroupErrCorrupt  = 2
	GroupCmdQHold    = 3
	GroupSettingDone = 4
	GroupDebug       = 5
	GroupEnableAll   = 7
)

// Interrupt group masks of burst sub-commands.
const (
	MaskFROBase  uint32 = 1<<GroupErrCorrupt | 1<<GroupCmdQHold
	MaskFROFirst uint32 = 1 << GroupFrameStart
	MaskFROMid   uint32 = 1 << GroupDebug
	MaskFROLast  uint32 = 1<<GroupFrameEnd | 1<<GroupSettingDone
)

// Bits of the INT0 line.
const (
	Int0FrameStart  = 0
	Int0FrameEnd    = 1
	Int0CmdQHold    = 2
	Int0SettingDone = 3
	Int0ErrCorrupt  = 4
	Int0CinRow      = 5
)

// DumpMode selects how much a dump covers.
type DumpMode int

// Dump modes.
const (
	DumpFull DumpMode = iota
	DumpLight
)

// MaxExtCRNum is the largest extra register list a frame can carry.
const MaxExtCRNum = 100

// MinPostFrameGap is the smallest post frame gap the hardware accepts.
const MinPostFrameGap = 25

// A Command is one entry of the hardware command queue.
type Command struct {
	BaseAddr  uint64
	HeaderNum uint32
	SetMode   SetMode
	Kind      CmdKind
	FCount    uint32
	IntGroups uint32
	FROIndex  uint32
}

// after tells if c comes after prev in submission order.
func (c Command) after(prev Command) bool {
	if c.FCount != prev.FCount {
		return c.FCount > prev.FCount
	}

	return c.FROIndex > prev.FROIndex
}

// FrameConfig is what a block driver submits for one frame.
type FrameConfig struct {
	CotfIn     uint32
	CotfOut    uint32
	NumBuffers uint32
	Cmd        Command
	ExtCRs     []regs.Pair
}

func (f FrameConfig) clone() FrameConfig {
	c := f
	if f.ExtCRs != nil {
		c.ExtCRs = append([]regs.Pair(nil), f.ExtCRs...)
	}

	return c
}

// Config is applied when a controller is enabled.
type Config struct {
	FSMode    FSMode
	IntEnable [NumIntIDs]uint32
}

// DebugSnapshot keeps what the controller last learned from the hardware.
type DebugSnapshot struct {
	LastCmd    Command
	LastRptr   uint32
	LastFCount uint32
}
