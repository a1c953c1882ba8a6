package pcc

import "github.com/sarchlab/pcc/sim"

// Hook positions of a Controller.
var (
	// HookPosSubmit is triggered when a frame configuration is accepted. The
	// item is a copy of the FrameConfig.
	HookPosSubmit = &sim.HookPos{Name: "PCCSubmit"}

	// HookPosCmdQueued is triggered for every command added to the hardware
	// queue. The item is the Command.
	HookPosCmdQueued = &sim.HookPos{Name: "PCCCmdQueued"}

	// HookPosInterrupt is triggered for every handled interrupt. The item is
	// an InterruptEvent.
	HookPosInterrupt = &sim.HookPos{Name: "PCCInterrupt"}

	// HookPosDump is triggered after a dump. The item is the DumpReport.
	HookPosDump = &sim.HookPos{Name: "PCCDump"}

	// HookPosReset is triggered after a software reset is issued. The item
	// is the ResetKind.
	HookPosReset = &sim.HookPos{Name: "PCCReset"}
)

// InterruptEvent describes one call to InterruptStatus.
type InterruptEvent struct {
	ID     IntID
	Status uint32
	Clear  bool
}
