package pcc

import (
	"fmt"
	"strconv"
	"strings"
)

// DebugType selects a debug feature.
type DebugType uint32

// Debug features.
const (
	DebugDump DebugType = iota
	numDebugTypes
)

var debugTypeNames = [numDebugTypes]string{"DUMP"}

var debugTypeArgs = [numDebugTypes]string{
	"<pcc_mode_msk> <int0_msk> <int1_msk> <cmdq_int_msk> <corex_int_msk>",
}

// DebugParams decide when an interrupt triggers a full dump. A dump happens
// if dumping is enabled, the controller mode has its bit set in ModeMask and
// the interrupt status intersects IntMask of the line.
type DebugParams struct {
	DumpEnabled bool
	ModeMask    uint32
	IntMask     [NumIntIDs]uint32
}

// ParseDebugParams applies a parameter string to p and returns the result.
// The string reads "<type> <en> [<mode_msk> <int0> <int1> <cmdq> <corex>]"
// and numbers may be given in decimal, octal or hexadecimal notation. The
// masks are left unchanged when omitted.
func ParseDebugParams(s string, p DebugParams) (DebugParams, error) {
	argv := strings.Fields(s)
	if len(argv) < 2 {
		return p, fmt.Errorf("debug param %q: too short: %w", s, ErrInvalidArgument)
	}

	typ, err := parseUint(argv[0])
	if err != nil || typ >= uint32(numDebugTypes) {
		return p, fmt.Errorf("debug param: invalid type %q: %w", argv[0], ErrInvalidArgument)
	}

	en, err := parseUint(argv[1])
	if err != nil {
		return p, fmt.Errorf("debug param: invalid en %q: %w", argv[1], ErrInvalidArgument)
	}

	args := argv[2:]
	if len(args) == 0 {
		p.DumpEnabled = en != 0
		return p, nil
	}

	if len(args) != int(NumIntIDs)+1 {
		return p, fmt.Errorf("debug param: %d arguments for %s: %w",
			len(args), DebugType(typ), ErrInvalidArgument)
	}

	var masks [NumIntIDs + 1]uint32
	for i, a := range args {
		if masks[i], err = parseUint(a); err != nil {
			return p, fmt.Errorf("debug param: invalid mask %q: %w", a, ErrInvalidArgument)
		}
	}

	p.DumpEnabled = en != 0
	p.ModeMask = masks[0]
	copy(p.IntMask[:], masks[1:])

	return p, nil
}

func parseUint(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func (t DebugType) String() string {
	if t >= numDebugTypes {
		return fmt.Sprintf("DebugType(%d)", uint32(t))
	}

	return debugTypeNames[t]
}

func (p DebugParams) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "= PCC DEBUG Configuration =====================\n"+
		"  DBG Infos:\n"+
		"    - MODE_MASK: 0x%x\n"+
		"    - INT_MASK: INT0(0x%08x) INT1(0x%08x) CMDQ(0x%08x) COREX(0x%08x)\n"+
		"===============================================\n",
		p.ModeMask, p.IntMask[IntID0], p.IntMask[IntID1],
		p.IntMask[IntCmdQ], p.IntMask[IntCoreX])

	fmt.Fprintf(&b, "%10s[%3s]\n", DebugDump, onOff(p.DumpEnabled))

	return b.String()
}

// DebugUsage describes the accepted parameter strings.
func DebugUsage() string {
	var b strings.Builder

	for t := DebugType(0); t < numDebugTypes; t++ {
		fmt.Fprintf(&b, "    %10s : %d <en> %s\n", t, uint32(t), debugTypeArgs[t])
	}

	return b.String()
}
