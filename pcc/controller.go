// Package pcc implements the common command-queue controller shared by the
// blocks of an imaging pipeline. A Controller owns the hardware command
// queue of one block: it builds and enqueues commands, backfills the queue
// with dummy commands in streaming mode, dispatches interrupts and drives the
// enable, disable, reset and recover sequences.
package pcc

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/regs"
	"github.com/sarchlab/pcc/sim"
)

// SFRLogRange is a register range the hardware records accesses to.
type SFRLogRange struct {
	Offset uint32
	Range  uint32
}

// Controller drives the command queue of one hardware block.
type Controller struct {
	sim.HookableBase

	name string
	mode atomic.Int32

	regs   regs.Map
	loader loader.Allocator
	poll   Poll

	physBase       uint32
	ignorePhysBase bool
	sfrLogs        [NumSFRAccessLogs]SFRLogRange

	gateLock sync.Mutex
	gate     gateCount

	// cmdqLock serializes every access to the command descriptor registers,
	// the flush trigger and the queue lock bits.
	cmdqLock    sync.Mutex
	frameCfg    FrameConfig
	hasFrameCfg bool
	cfg         Config
	dbg         DebugSnapshot
	inFlight    []*loader.Buffer
	queued      []Command

	lastFCount  atomic.Uint32
	debugParams atomic.Pointer[DebugParams]
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Mode returns the current mode of the controller.
func (c *Controller) Mode() Mode {
	return Mode(c.mode.Load())
}

// Config returns the configuration applied by the last Enable.
func (c *Controller) Config() Config {
	c.cmdqLock.Lock()
	defer c.cmdqLock.Unlock()

	return c.cfg
}

// FrameConfig returns a copy of the retained frame configuration.
func (c *Controller) FrameConfig() (FrameConfig, bool) {
	c.cmdqLock.Lock()
	defer c.cmdqLock.Unlock()

	return c.frameCfg.clone(), c.hasFrameCfg
}

// DebugSnapshot returns what the controller last read back from the queue.
func (c *Controller) DebugSnapshot() DebugSnapshot {
	c.cmdqLock.Lock()
	defer c.cmdqLock.Unlock()

	s := c.dbg
	s.LastFCount = c.lastFCount.Load()

	return s
}

// LastFCount returns the frame id recorded by the last frame start. It does
// not take any lock.
func (c *Controller) LastFCount() uint32 {
	return c.lastFCount.Load()
}

// Enabled tells if the hardware command queue is enabled.
func (c *Controller) Enabled() bool {
	return c.regs.ReadField(FieldCmdQEnable) != 0
}

// DebugParams returns the debug parameters of the controller.
func (c *Controller) DebugParams() DebugParams {
	if p := c.debugParams.Load(); p != nil {
		return *p
	}

	return DebugParams{}
}

// SetDebugParams replaces the debug parameters of the controller.
func (c *Controller) SetDebugParams(p DebugParams) {
	c.debugParams.Store(&p)
}

func (c *Controller) invokeHook(pos *sim.HookPos, item, detail interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

func (c *Controller) errf(format string, args ...interface{}) {
	log.Printf("[%s][ERR] %s", c.name, fmt.Sprintf(format, args...))
}

func (c *Controller) warnf(format string, args ...interface{}) {
	log.Printf("[%s][WRN] %s", c.name, fmt.Sprintf(format, args...))
}

func (c *Controller) infof(format string, args ...interface{}) {
	log.Printf("[%s] %s", c.name, fmt.Sprintf(format, args...))
}

func (c *Controller) wrap(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", c.name, fmt.Sprintf(format, args...), err)
}

func (c *Controller) logWriteErr(err error) {
	if err != nil {
		c.errf("%v", err)
	}
}

// regWriter issues a sequence of writes and merges their failures.
type regWriter struct {
	m    regs.Writer
	errs regs.ErrMask
}

func (c *Controller) writer() *regWriter {
	return &regWriter{m: c.regs}
}

func (w *regWriter) write(r regs.Register, v uint32) {
	w.errs.Add(w.m.Write(r, v))
}

func (w *regWriter) field(f regs.Field, v uint32) {
	w.errs.Add(w.m.WriteField(f, v))
}

func (w *regWriter) err() error {
	return w.errs.Err()
}
