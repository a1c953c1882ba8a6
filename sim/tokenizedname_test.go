package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Name", func() {
	It("should accept hierarchical names", func() {
		Expect(func() { NameMustBeValid("Camera.Byrp[0]") }).NotTo(Panic())
		Expect(func() { NameMustBeValid("PCC") }).NotTo(Panic())
	})

	DescribeTable("should reject malformed names",
		func(name string) {
			Expect(func() { NameMustBeValid(name) }).To(Panic())
		},
		Entry("empty element", "A..B"),
		Entry("trailing dot", "A.B."),
		Entry("lower case", "A.b"),
		Entry("underscore", "A.B_C"),
		Entry("open bracket", "A.B[0"),
		Entry("bad index", "A.B[x]"),
	)

	It("should build names", func() {
		Expect(BuildName("", "Camera")).To(Equal("Camera"))
		Expect(BuildNameWithIndex("Camera", "Mcsc", 2)).
			To(Equal("Camera.Mcsc[2]"))
	})
})
