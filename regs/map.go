package regs

// Reader reads registers.
type Reader interface {
	// Read returns the current word of a register.
	Read(r Register) uint32

	// ReadField returns the value of a field.
	ReadField(f Field) uint32
}

// Writer writes registers.
type Writer interface {
	// Write stores a full register word.
	Write(r Register, v uint32) error

	// WriteField performs a read-modify-write of a field.
	WriteField(f Field, v uint32) error
}

// Map is the register interface a driver programs hardware through.
type Map interface {
	Reader
	Writer
}
