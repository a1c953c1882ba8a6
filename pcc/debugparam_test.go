package pcc

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pcc/regs"
)

var _ = Describe("ParseDebugParams", func() {
	var base DebugParams

	BeforeEach(func() {
		base = DebugParams{
			ModeMask: 0x1,
			IntMask:  [NumIntIDs]uint32{0x8, 0, 0, 0},
		}
	})

	It("should toggle dumping and keep the masks", func() {
		p, err := ParseDebugParams("0 1", base)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.DumpEnabled).To(BeTrue())
		Expect(p.ModeMask).To(Equal(base.ModeMask))
		Expect(p.IntMask).To(Equal(base.IntMask))

		p, err = ParseDebugParams("0 0", p)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.DumpEnabled).To(BeFalse())
	})

	It("should replace all masks", func() {
		p, err := ParseDebugParams("0 1 0x3 0x1f 010 0 255", base)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.ModeMask).To(Equal(uint32(3)))
		Expect(p.IntMask).To(Equal([NumIntIDs]uint32{0x1f, 8, 0, 255}))
	})

	DescribeTable("rejects malformed strings",
		func(s string) {
			p, err := ParseDebugParams(s, base)

			Expect(errors.Is(err, ErrInvalidArgument)).To(BeTrue())
			Expect(p).To(Equal(base))
		},
		Entry("empty", ""),
		Entry("type only", "0"),
		Entry("unknown type", "1 1"),
		Entry("bad enable", "0 yes"),
		Entry("too few masks", "0 1 1 2"),
		Entry("too many masks", "0 1 1 2 3 4 5 6"),
		Entry("bad mask", "0 1 1 2 3 4 z"),
	)

	It("should describe itself", func() {
		p := DebugParams{DumpEnabled: true, ModeMask: 0x2}

		Expect(p.String()).To(ContainSubstring("MODE_MASK: 0x2"))
		Expect(p.String()).To(ContainSubstring("      DUMP[ ON]"))
		Expect(DebugUsage()).To(ContainSubstring("DUMP : 0 <en> <pcc_mode_msk>"))
	})
})

var _ = Describe("Controller debug params", func() {
	It("should start from the builder value", func() {
		p := DebugParams{DumpEnabled: true, ModeMask: 0x4}
		c := MakeBuilder().
			WithMode(ModeBatch).
			WithRegs(regs.NewSpace("Byrp", WindowSize)).
			WithDebugParams(p).
			Build("Byrp")

		Expect(c.DebugParams()).To(Equal(p))

		c.SetDebugParams(DebugParams{})

		Expect(c.DebugParams()).To(Equal(DebugParams{}))
	})
})
