package datarecording

import (
	"sync/atomic"

	"github.com/sarchlab/pcc/cmdqhw"
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/sim"
)

// Tables written by a Recorder.
const (
	SubmitTable     = "pcc_submit"
	CommandTable    = "pcc_command"
	InterruptTable  = "pcc_interrupt"
	ResetTable      = "pcc_reset"
	DumpTable       = "pcc_dump"
	TransitionTable = "cmdq_transition"
	RaiseTable      = "cmdq_raise"
)

// SubmitEntry is an accepted frame configuration.
type SubmitEntry struct {
	Seq        uint64
	Controller string
	FCount     uint32
	NumBuffers uint32
	SetMode    string
	BaseAddr   uint64
	CotfIn     uint32
	CotfOut    uint32
	NumExtCRs  int
}

// CommandEntry is a command added to a hardware queue.
type CommandEntry struct {
	Seq        uint64
	Controller string
	Kind       string
	FCount     uint32
	FROIndex   uint32
	SetMode    string
	BaseAddr   uint64
	HeaderNum  uint32
	IntGroups  uint32
}

// InterruptEntry is a handled interrupt.
type InterruptEntry struct {
	Seq        uint64
	Controller string
	Line       string
	Status     uint32
	Clear      bool
}

// ResetEntry is a software reset.
type ResetEntry struct {
	Seq        uint64
	Controller string
	Kind       int
}

// DumpEntry summarizes a dump.
type DumpEntry struct {
	Seq          uint64
	Controller   string
	Full         bool
	State        string
	Fullness     uint32
	FrameCounter uint32
	LastFCount   uint32
}

// TransitionEntry is a state change of the simulated hardware.
type TransitionEntry struct {
	Seq       uint64
	Hardware  string
	Time      uint64
	FromState string
	ToState   string
	Kind      string
	FCount    uint32
	FROIndex  uint32
}

// RaiseEntry is an interrupt bit latched by the simulated hardware.
type RaiseEntry struct {
	Seq      uint64
	Hardware string
	Time     uint64
	Line     string
	Bit      int
	FCount   uint32
}

// Recorder is a hook that writes controller and hardware activity into a
// DataRecorder. Entries of all tables share one sequence so that they can be
// put back in order.
type Recorder struct {
	recorder DataRecorder
	seq      atomic.Uint64
}

// NewRecorder creates the tables of a Recorder in recorder.
func NewRecorder(recorder DataRecorder) *Recorder {
	recorder.CreateTable(SubmitTable, SubmitEntry{})
	recorder.CreateTable(CommandTable, CommandEntry{})
	recorder.CreateTable(InterruptTable, InterruptEntry{})
	recorder.CreateTable(ResetTable, ResetEntry{})
	recorder.CreateTable(DumpTable, DumpEntry{})
	recorder.CreateTable(TransitionTable, TransitionEntry{})
	recorder.CreateTable(RaiseTable, RaiseEntry{})

	return &Recorder{recorder: recorder}
}

// Func records the hook item.
func (r *Recorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case pcc.HookPosSubmit:
		r.submit(ctx)
	case pcc.HookPosCmdQueued:
		r.command(ctx)
	case pcc.HookPosInterrupt:
		r.interrupt(ctx)
	case pcc.HookPosReset:
		r.reset(ctx)
	case pcc.HookPosDump:
		r.dump(ctx)
	case cmdqhw.HookPosTransition:
		r.transition(ctx)
	case cmdqhw.HookPosRaise:
		r.raise(ctx)
	}
}

// Flush writes buffered entries.
func (r *Recorder) Flush() {
	r.recorder.Flush()
}

func (r *Recorder) next() uint64 {
	return r.seq.Add(1)
}

func domainName(ctx sim.HookCtx) string {
	if n, ok := ctx.Domain.(sim.Named); ok {
		return n.Name()
	}

	return ""
}

func (r *Recorder) submit(ctx sim.HookCtx) {
	fc := ctx.Item.(pcc.FrameConfig)

	r.recorder.InsertData(SubmitTable, SubmitEntry{
		Seq:        r.next(),
		Controller: domainName(ctx),
		FCount:     fc.Cmd.FCount,
		NumBuffers: fc.NumBuffers,
		SetMode:    fc.Cmd.SetMode.String(),
		BaseAddr:   fc.Cmd.BaseAddr,
		CotfIn:     fc.CotfIn,
		CotfOut:    fc.CotfOut,
		NumExtCRs:  len(fc.ExtCRs),
	})
}

func (r *Recorder) command(ctx sim.HookCtx) {
	cmd := ctx.Item.(pcc.Command)

	r.recorder.InsertData(CommandTable, CommandEntry{
		Seq:        r.next(),
		Controller: domainName(ctx),
		Kind:       cmd.Kind.String(),
		FCount:     cmd.FCount,
		FROIndex:   cmd.FROIndex,
		SetMode:    cmd.SetMode.String(),
		BaseAddr:   cmd.BaseAddr,
		HeaderNum:  cmd.HeaderNum,
		IntGroups:  cmd.IntGroups,
	})
}

func (r *Recorder) interrupt(ctx sim.HookCtx) {
	evt := ctx.Item.(pcc.InterruptEvent)

	r.recorder.InsertData(InterruptTable, InterruptEntry{
		Seq:        r.next(),
		Controller: domainName(ctx),
		Line:       evt.ID.String(),
		Status:     evt.Status,
		Clear:      evt.Clear,
	})
}

func (r *Recorder) reset(ctx sim.HookCtx) {
	r.recorder.InsertData(ResetTable, ResetEntry{
		Seq:        r.next(),
		Controller: domainName(ctx),
		Kind:       int(ctx.Item.(pcc.ResetKind)),
	})
}

func (r *Recorder) dump(ctx sim.HookCtx) {
	rep := ctx.Item.(pcc.DumpReport)

	r.recorder.InsertData(DumpTable, DumpEntry{
		Seq:          r.next(),
		Controller:   rep.Controller,
		Full:         rep.Mode == pcc.DumpFull,
		State:        rep.State.String(),
		Fullness:     rep.Fullness,
		FrameCounter: rep.FrameCounter,
		LastFCount:   rep.LastCmd.FCount,
	})
}

func (r *Recorder) transition(ctx sim.HookCtx) {
	t := ctx.Item.(cmdqhw.Transition)

	r.recorder.InsertData(TransitionTable, TransitionEntry{
		Seq:       r.next(),
		Hardware:  domainName(ctx),
		Time:      uint64(t.Time),
		FromState: t.From.String(),
		ToState:   t.To.String(),
		Kind:      t.Cmd.Kind.String(),
		FCount:    t.Cmd.FCount,
		FROIndex:  t.Cmd.FROIndex,
	})
}

func (r *Recorder) raise(ctx sim.HookCtx) {
	e := ctx.Item.(cmdqhw.Raise)

	r.recorder.InsertData(RaiseTable, RaiseEntry{
		Seq:      r.next(),
		Hardware: domainName(ctx),
		Time:     uint64(e.Time),
		Line:     e.ID.String(),
		Bit:      e.Bit,
		FCount:   e.Cmd.FCount,
	})
}
