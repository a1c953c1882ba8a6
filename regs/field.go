// Package regs describes 32-bit register windows and provides an in-memory
// implementation of one.
package regs

import "fmt"

// Register is one 32-bit word of a register window.
type Register struct {
	Name   string
	Offset uint32
}

func (r Register) String() string {
	return fmt.Sprintf("%s@0x%04x", r.Name, r.Offset)
}

// Field is a contiguous bit range of a Register.
type Field struct {
	Name  string
	Reg   Register
	Shift uint8
	Width uint8
}

// Mask returns the in-register mask of the field.
func (f Field) Mask() uint32 {
	return f.Max() << f.Shift
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	if f.Width >= 32 {
		return 0xffffffff
	}

	return (1 << f.Width) - 1
}

// Fits tells if v can be stored in the field without truncation.
func (f Field) Fits(v uint32) bool {
	return v <= f.Max()
}

// Get extracts the field from a register word.
func (f Field) Get(word uint32) uint32 {
	return (word & f.Mask()) >> f.Shift
}

// Set returns word with the field replaced by v. Bits of v that do not fit
// are dropped.
func (f Field) Set(word, v uint32) uint32 {
	return (word &^ f.Mask()) | ((v << f.Shift) & f.Mask())
}

// Pair is a register offset and the value to be written there. It is the
// record format of register snapshots.
type Pair struct {
	Offset uint32
	Value  uint32
}
