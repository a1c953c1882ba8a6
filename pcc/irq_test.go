package pcc

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/regs"
	"github.com/sarchlab/pcc/sim"
)

var _ = Describe("handlerFor", func() {
	It("should only handle INT0", func() {
		for _, id := range []IntID{IntID1, IntCmdQ, IntCoreX} {
			for bit := 0; bit < 32; bit++ {
				for m := Mode(0); m < numModes; m++ {
					Expect(handlerFor(id, bit, m)).To(Equal(handlerNone))
				}
			}
		}
	})

	It("should pick the settings-done handler by mode", func() {
		Expect(handlerFor(IntID0, Int0SettingDone, ModeStreaming)).
			To(Equal(handlerSettingDoneStreaming))
		Expect(handlerFor(IntID0, Int0SettingDone, ModeStreamingNoDummy)).
			To(Equal(handlerSettingDoneStreaming))
		Expect(handlerFor(IntID0, Int0SettingDone, ModeBatch)).
			To(Equal(handlerSettingDoneBatch))
		Expect(handlerFor(IntID0, Int0FrameStart, ModeBatch)).
			To(Equal(handlerFrameStart))
		Expect(handlerFor(IntID0, Int0FrameEnd, ModeStreaming)).
			To(Equal(handlerNone))
	})
})

var _ = Describe("InterruptStatus", func() {
	var (
		space *regs.Space
		q     *fakeQueue
		pool  *loader.Pool
		c     *Controller
	)

	settingDone := func() {
		q.pop()
		status := c.InterruptStatus(IntID0, true)
		Expect(status & (1 << Int0SettingDone)).NotTo(BeZero())
	}

	BeforeEach(func() {
		space = regs.NewSpace("Byrp", WindowSize)
		q = newFakeQueue(space)
		pool = loader.MakeBuilder().WithNumBuffers(4).Build("Pool")
		c = buildTestController(ModeStreaming, space, pool)
		Expect(c.Enable(testConfig)).To(Succeed())
	})

	It("should return zero for an unknown line", func() {
		Expect(c.InterruptStatus(NumIntIDs, true)).To(BeZero())
		Expect(c.InterruptStatus(-1, true)).To(BeZero())
	})

	It("should clear the status when asked", func() {
		space.Poke(RegInt1, 0x5)

		Expect(c.InterruptStatus(IntID1, false)).To(Equal(uint32(0x5)))
		Expect(space.Peek(RegInt1)).To(Equal(uint32(0x5)))

		Expect(c.InterruptStatus(IntID1, true)).To(Equal(uint32(0x5)))
		Expect(space.Peek(RegInt1)).To(BeZero())
	})

	It("should record the popped command without re-submitting a single buffer", func() {
		Expect(c.Submit(&FrameConfig{
			NumBuffers: 1,
			Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 10},
		})).To(Succeed())
		queued := q.numAdded()

		settingDone()

		snap := c.DebugSnapshot()
		Expect(snap.LastCmd.FCount).To(Equal(uint32(10)))
		Expect(snap.LastCmd.Kind).To(Equal(CmdNormal))
		Expect(snap.LastRptr).To(Equal(uint32(0)))
		Expect(q.numAdded()).To(Equal(queued))
	})

	It("should re-submit a burst once all of its sub-commands are popped", func() {
		Expect(c.Submit(&FrameConfig{
			NumBuffers: 4,
			Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 20},
		})).To(Succeed())
		queued := q.numAdded()

		for i := 0; i < 3; i++ {
			settingDone()
			Expect(q.numAdded()).To(Equal(queued))
		}

		settingDone()

		again := q.addedSince(queued)
		Expect(again).To(HaveLen(8))
		Expect(again[0]).To(HaveField("FCount", uint32(20)))
		Expect(again[0]).To(HaveField("Kind", CmdNormal))
		Expect(again[4]).To(HaveField("Kind", CmdDummy))
		Expect(c.DebugSnapshot().LastCmd.FROIndex).To(Equal(uint32(3)))
	})

	It("should ignore a settings-done of an older command", func() {
		Expect(c.Submit(&FrameConfig{
			NumBuffers: 2,
			Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 30},
		})).To(Succeed())

		settingDone()
		settingDone()
		queued := q.numAdded()

		settingDone()

		Expect(c.DebugSnapshot().LastCmd.FROIndex).To(Equal(uint32(0)))
		Expect(q.numAdded()).To(Equal(queued))
	})

	It("should enqueue a deferred burst when the previous one drains", func() {
		cfg := &FrameConfig{NumBuffers: 2, Cmd: Command{SetMode: SetModeAPBDirect, FCount: 40}}
		Expect(c.Submit(cfg)).To(Succeed())

		settingDone()

		cfg.Cmd.FCount = 41
		Expect(c.Submit(cfg)).To(Succeed())
		queued := q.numAdded()

		settingDone()

		again := q.addedSince(queued)
		Expect(again).NotTo(BeEmpty())
		Expect(again[0].FCount).To(Equal(uint32(41)))
	})

	Context("without dummies", func() {
		BeforeEach(func() {
			Expect(c.SetMode(ModeStreamingNoDummy)).To(Succeed())
		})

		It("should re-submit on the last settings-done of a burst only", func() {
			Expect(c.Submit(&FrameConfig{
				NumBuffers: 4,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 20},
			})).To(Succeed())
			Expect(q.numAdded()).To(Equal(4))

			for i := 0; i < 3; i++ {
				settingDone()
				Expect(q.numAdded()).To(Equal(4))
			}

			settingDone()

			Expect(q.numAdded()).To(Equal(8))
		})
	})

	Context("in batch mode", func() {
		BeforeEach(func() {
			Expect(c.SetMode(ModeBatch)).To(Succeed())
		})

		It("should only record the popped command", func() {
			Expect(c.Submit(&FrameConfig{
				NumBuffers: 2,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 5},
			})).To(Succeed())

			settingDone()
			settingDone()

			Expect(c.DebugSnapshot().LastCmd.FROIndex).To(Equal(uint32(1)))
			Expect(q.numAdded()).To(Equal(2))
		})
	})

	It("should record the frame id on frame start", func() {
		q.frameStart(0x1234)

		c.InterruptStatus(IntID0, true)

		Expect(c.LastFCount()).To(Equal(uint32(0x1234)))
		Expect(c.CompareFrameCount(0x1234)).To(Equal(0))
		Expect(c.CompareFrameCount(0x1235)).To(BeNumerically(">", 0))
		Expect(c.CompareFrameCount(0x1233)).To(BeNumerically("<", 0))
		Expect(c.CompareFrameCount(0x8000 | 0x1234)).To(Equal(0))
	})

	It("should give non-decreasing comparisons for increasing frame counts", func() {
		q.frameStart(50)
		c.InterruptStatus(IntID0, true)

		prev := c.CompareFrameCount(0)
		for f := uint32(1); f < 100; f++ {
			cur := c.CompareFrameCount(f)
			Expect(cur).To(BeNumerically(">=", prev))
			Expect(cur == 0).To(Equal(f == 50))
			prev = cur
		}
	})

	It("should clear the performance counters on frame end", func() {
		space.Poke(RegInt0, 1<<Int0FrameEnd)

		c.InterruptStatus(IntID0, true)

		Expect(space.Peek(RegPerfMonClear)).To(Equal(PerfMonMask))
	})

	Context("with hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
			pos      []*sim.HookPos
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
			pos = nil

			hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
				Expect(ctx.Domain).To(BeIdenticalTo(c))
				pos = append(pos, ctx.Pos)
			}).AnyTimes()

			c.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report the interrupt", func() {
			space.Poke(RegInt1, 0x2)

			c.InterruptStatus(IntID1, true)

			Expect(pos).To(Equal([]*sim.HookPos{HookPosInterrupt}))
		})

		It("should dump when the debug parameters ask for it", func() {
			p := DebugParams{DumpEnabled: true, ModeMask: 1 << ModeStreaming}
			p.IntMask[IntID0] = 1 << Int0FrameStart
			c.SetDebugParams(p)

			q.frameStart(1)
			c.InterruptStatus(IntID0, true)

			Expect(pos).To(Equal([]*sim.HookPos{HookPosDump, HookPosInterrupt}))
		})

		It("should not dump for another mode", func() {
			p := DebugParams{DumpEnabled: true, ModeMask: 1 << ModeBatch}
			p.IntMask[IntID0] = 0xffffffff
			c.SetDebugParams(p)

			q.frameStart(1)
			c.InterruptStatus(IntID0, true)

			Expect(pos).To(Equal([]*sim.HookPos{HookPosInterrupt}))
		})

		It("should report submissions and queued commands", func() {
			Expect(c.Submit(&FrameConfig{
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 1},
			})).To(Succeed())

			Expect(pos).To(Equal([]*sim.HookPos{
				HookPosSubmit, HookPosCmdQueued, HookPosCmdQueued,
			}))
		})
	})
})
