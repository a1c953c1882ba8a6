package pcc

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/regs"
)

var testPoll = Poll{Retries: 3}

func buildTestController(mode Mode, space *regs.Space, a loader.Allocator) *Controller {
	return MakeBuilder().
		WithMode(mode).
		WithRegs(space).
		WithLoader(a).
		WithPoll(testPoll).
		Build("Byrp")
}

var testConfig = Config{
	FSMode:    FSModeASAP,
	IntEnable: [NumIntIDs]uint32{0x1f, 0x07, 0, 0},
}

var _ = Describe("BurstIntGroups", func() {
	DescribeTable("partitions the groups of a burst",
		func(n uint32) {
			for i := uint32(0); i < n; i++ {
				groups := BurstIntGroups(i, n)

				Expect(groups & MaskFROBase).To(Equal(MaskFROBase))
				Expect(groups&MaskFROFirst != 0).To(Equal(i == 0))
				Expect(groups&MaskFROLast != 0).To(Equal(i == n-1))
				Expect(groups&MaskFROMid != 0).To(Equal(i > 0 && i < n-1))
			}
		},
		Entry("2 buffers", uint32(2)),
		Entry("3 buffers", uint32(3)),
		Entry("4 buffers", uint32(4)),
		Entry("7 buffers", uint32(7)),
	)
})

var _ = Describe("Submit", func() {
	var (
		space *regs.Space
		q     *fakeQueue
		pool  *loader.Pool
		c     *Controller
	)

	BeforeEach(func() {
		space = regs.NewSpace("Byrp", WindowSize)
		q = newFakeQueue(space)
		pool = loader.MakeBuilder().WithNumBuffers(4).Build("Pool")
	})

	Context("when the queue is disabled", func() {
		It("should fail without writing any register", func() {
			c = buildTestController(ModeStreaming, space, pool)
			before := space.WriteCount()

			err := c.Submit(&FrameConfig{NumBuffers: 1, Cmd: Command{FCount: 1}})

			Expect(errors.Is(err, ErrNotEnabled)).To(BeTrue())
			Expect(space.WriteCount()).To(Equal(before))
			Expect(q.numAdded()).To(Equal(0))
		})
	})

	It("should reject a nil frame config", func() {
		c = buildTestController(ModeBatch, space, nil)
		Expect(c.Enable(testConfig)).To(Succeed())

		Expect(errors.Is(c.Submit(nil), ErrInvalidArgument)).To(BeTrue())
	})

	Context("in batch mode", func() {
		BeforeEach(func() {
			c = buildTestController(ModeBatch, space, nil)
			Expect(c.Enable(testConfig)).To(Succeed())
		})

		It("should queue one command and program the routing", func() {
			err := c.Submit(&FrameConfig{
				CotfIn:     0x5,
				CotfOut:    0x2,
				NumBuffers: 1,
				Cmd: Command{
					BaseAddr:  0x8000_0000,
					HeaderNum: 3,
					SetMode:   SetModeDMAPreloading,
					Kind:      CmdDummy,
					FCount:    7,
					IntGroups: 0x1b,
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(q.added).To(Equal([]Command{{
				BaseAddr:  0x8000_0000,
				HeaderNum: 3,
				SetMode:   SetModeDMAPreloading,
				Kind:      CmdNormal,
				FCount:    7,
				IntGroups: 0x1b,
			}}))
			Expect(space.ReadField(cotfInFields[0])).To(Equal(uint32(1)))
			Expect(space.ReadField(cotfInFields[1])).To(Equal(uint32(0)))
			Expect(space.ReadField(cotfInFields[2])).To(Equal(uint32(1)))
			Expect(space.ReadField(cotfOutFields[1])).To(Equal(uint32(1)))
			Expect(space.Read(RegCmdQLock)).To(Equal(uint32(0)))
		})

		It("should split a burst into sub-commands", func() {
			err := c.Submit(&FrameConfig{
				NumBuffers: 4,
				Cmd: Command{
					BaseAddr:  0x8000_0000,
					HeaderNum: 3,
					SetMode:   SetModeDMADirect,
					FCount:    9,
					IntGroups: 0xff,
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(q.added).To(HaveLen(4))

			for i, cmd := range q.added {
				Expect(cmd.FROIndex).To(Equal(uint32(i)))
				Expect(cmd.FCount).To(Equal(uint32(9)))
				Expect(cmd.IntGroups).To(Equal(BurstIntGroups(uint32(i), 4)))

				if i == 0 {
					Expect(cmd.SetMode).To(Equal(SetModeDMADirect))
					Expect(cmd.BaseAddr).To(Equal(uint64(0x8000_0000)))
					continue
				}

				Expect(cmd.SetMode).To(Equal(SetModeAPBDirect))
				Expect(cmd.BaseAddr).To(BeZero())
				Expect(cmd.HeaderNum).To(BeZero())
			}
		})

		It("should never defer a burst", func() {
			cfg := &FrameConfig{NumBuffers: 4, Cmd: Command{SetMode: SetModeAPBDirect, FCount: 1}}
			Expect(c.Submit(cfg)).To(Succeed())
			q.pop()

			cfg.Cmd.FCount = 2
			Expect(c.Submit(cfg)).To(Succeed())

			Expect(q.flushes).To(Equal(1))
			Expect(q.addedSince(4)).To(HaveLen(4))
		})

		It("should flush unpopped commands first", func() {
			cfg := &FrameConfig{NumBuffers: 1, Cmd: Command{SetMode: SetModeAPBDirect, FCount: 1}}
			Expect(c.Submit(cfg)).To(Succeed())
			Expect(c.Submit(cfg)).To(Succeed())

			Expect(q.flushes).To(Equal(1))
			Expect(q.queueFullness()).To(Equal(uint32(1)))
		})

		It("should force APB_DIRECT when the base address is missing", func() {
			err := c.Submit(&FrameConfig{
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeDMAPreloading, HeaderNum: 2},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(q.added[0].SetMode).To(Equal(SetModeAPBDirect))
			Expect(q.added[0].HeaderNum).To(BeZero())
		})

		It("should reject an unknown setting mode", func() {
			err := c.Submit(&FrameConfig{NumBuffers: 1, Cmd: Command{SetMode: 5}})

			Expect(errors.Is(err, ErrInvalidArgument)).To(BeTrue())
			Expect(q.numAdded()).To(Equal(0))
		})

		It("should treat zero buffers as one", func() {
			err := c.Submit(&FrameConfig{Cmd: Command{SetMode: SetModeAPBDirect, IntGroups: 0x3}})

			Expect(err).NotTo(HaveOccurred())
			Expect(q.added).To(HaveLen(1))
			Expect(q.added[0].IntGroups).To(Equal(uint32(0x3)))
		})

		It("should keep the routing while the next frame waits to start", func() {
			q.setState(StatePreStart)

			err := c.Submit(&FrameConfig{
				CotfIn:     0xff,
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeAPBDirect},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(space.Read(RegOTFPath01)).To(BeZero())
			Expect(q.added).To(HaveLen(1))
		})
	})

	Context("in streaming mode", func() {
		BeforeEach(func() {
			c = buildTestController(ModeStreaming, space, pool)
			Expect(c.Enable(testConfig)).To(Succeed())
		})

		It("should queue a dummy behind the real command", func() {
			err := c.Submit(&FrameConfig{
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 3, IntGroups: 0x13},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(q.added).To(HaveLen(2))
			Expect(q.added[0].Kind).To(Equal(CmdNormal))

			dummy := q.added[1]
			Expect(dummy.Kind).To(Equal(CmdDummy))
			Expect(dummy.SetMode).To(Equal(SetModeDMADirect))
			Expect(dummy.FCount).To(Equal(uint32(3)))
			Expect(dummy.IntGroups).To(Equal(uint32(0x13)))
			Expect(dummy.HeaderNum).To(Equal(uint32(1)))

			buf, ok := pool.Lookup(dummy.BaseAddr)
			Expect(ok).To(BeTrue())
			Expect(buf.DeviceHeaders()).To(HaveLen(1))
			Expect(buf.DeviceHeaders()[0].Pairs).To(ConsistOf(
				regs.Pair{Offset: RegCmdQQueCmdH.Offset, Value: uint32(dummy.BaseAddr >> 4)},
				HaveField("Offset", RegCmdQQueCmdM.Offset),
				HaveField("Offset", RegCmdQQueCmdL.Offset),
				regs.Pair{Offset: RegCmdQAddToQueue.Offset, Value: 1},
			))
		})

		It("should stage the extra registers with the dummy", func() {
			err := c.Submit(&FrameConfig{
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 3},
				ExtCRs: []regs.Pair{
					{Offset: 0x1000, Value: 1},
					{Offset: 0x1004, Value: 2},
				},
			})

			Expect(err).NotTo(HaveOccurred())

			dummy := q.added[1]
			Expect(dummy.HeaderNum).To(Equal(uint32(2)))

			buf, _ := pool.Lookup(dummy.BaseAddr)
			Expect(buf.DeviceHeaders()[0].Pairs).To(HaveLen(2))
		})

		It("should keep only the most recent dummy buffers", func() {
			cfg := &FrameConfig{NumBuffers: 1, Cmd: Command{SetMode: SetModeAPBDirect}}

			for i := 0; i < 5; i++ {
				cfg.Cmd.FCount = uint32(i)
				Expect(c.Submit(cfg)).To(Succeed())
			}

			Expect(pool.NumFree()).To(Equal(pool.NumBuffers() - maxDummyBuffersInFlight))
		})

		It("should defer a burst while the previous one drains", func() {
			cfg := &FrameConfig{NumBuffers: 4, Cmd: Command{SetMode: SetModeAPBDirect, FCount: 20}}
			Expect(c.Submit(cfg)).To(Succeed())
			Expect(q.numAdded()).To(Equal(8))

			q.pop()

			cfg.Cmd.FCount = 21
			Expect(c.Submit(cfg)).To(Succeed())

			Expect(q.numAdded()).To(Equal(8))
			retained, ok := c.FrameConfig()
			Expect(ok).To(BeTrue())
			Expect(retained.Cmd.FCount).To(Equal(uint32(21)))
		})
	})

	Context("when no loader buffer is free", func() {
		var (
			mockCtrl  *gomock.Controller
			allocator *MockAllocator
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			allocator = NewMockAllocator(mockCtrl)
			c = buildTestController(ModeStreaming, space, allocator)
			Expect(c.Enable(testConfig)).To(Succeed())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should queue a degraded dummy", func() {
			allocator.EXPECT().TryAcquire().Return(nil, false)

			err := c.Submit(&FrameConfig{
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 4},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(q.added).To(HaveLen(2))
			Expect(q.added[1].Kind).To(Equal(CmdDummy))
			Expect(q.added[1].SetMode).To(Equal(SetModeAPBDirect))
			Expect(q.added[1].BaseAddr).To(BeZero())
		})

		It("should fall back when the buffer cannot hold the snapshot", func() {
			tiny := loader.MakeBuilder().
				WithNumBuffers(1).
				WithMaxHeaders(1).
				WithPairsPerHeader(1).
				Build("Tiny")
			buf, ok := tiny.TryAcquire()
			Expect(ok).To(BeTrue())

			allocator.EXPECT().TryAcquire().Return(buf, true)
			allocator.EXPECT().Release(buf)

			err := c.Submit(&FrameConfig{
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 4},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(q.added[1].SetMode).To(Equal(SetModeAPBDirect))
		})

		It("should not swallow register writes made while staging", func() {
			buf, ok := pool.TryAcquire()
			Expect(ok).To(BeTrue())

			allocator.EXPECT().TryAcquire().DoAndReturn(
				func() (*loader.Buffer, bool) {
					Expect(c.SetPostFrameDelay(100)).To(Succeed())
					return buf, true
				})

			err := c.Submit(&FrameConfig{
				NumBuffers: 1,
				Cmd:        Command{SetMode: SetModeAPBDirect, FCount: 4},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(space.ReadField(FieldPostFrameGap)).To(Equal(uint32(100)))
			Expect(q.added[1].BaseAddr).To(Equal(buf.HeaderDVA()))
			for _, h := range buf.DeviceHeaders() {
				for _, p := range h.Pairs {
					Expect(p.Offset).NotTo(Equal(RegPostFrameGap.Offset))
				}
			}
		})
	})
})
