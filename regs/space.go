package regs

import (
	"sync"
)

// A Write is a software write that reached the hardware layer of a Space.
type Write struct {
	Offset uint32
	Old    uint32
	Value  uint32
}

// An Observer is notified of every software write that reaches the hardware
// layer. It is called after the Space is unlocked, on the writer's goroutine.
type Observer interface {
	ObserveWrite(w Write)
}

// Space is an in-memory register window. It implements Map for software and
// exposes Peek and Poke for the hardware model behind it.
type Space struct {
	lock sync.Mutex

	name     string
	hw       []uint32
	readOnly []bool
	writes   uint64

	observers []Observer
}

// NewSpace creates a register window of size bytes. The size is rounded down
// to a whole number of registers.
func NewSpace(name string, size uint32) *Space {
	n := size / 4

	return &Space{
		name:     name,
		hw:       make([]uint32, n),
		readOnly: make([]bool, n),
	}
}

// Name returns the name of the window.
func (s *Space) Name() string {
	return s.name
}

// AddObserver registers an observer of hardware writes.
func (s *Space) AddObserver(o Observer) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.observers = append(s.observers, o)
}

// MarkReadOnly makes software writes to the registers fail. The hardware can
// still update them with Poke.
func (s *Space) MarkReadOnly(rs ...Register) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, r := range rs {
		if i, ok := s.index(r.Offset); ok {
			s.readOnly[i] = true
		}
	}
}

func (s *Space) index(offset uint32) (int, bool) {
	if offset%4 != 0 || offset/4 >= uint32(len(s.hw)) {
		return 0, false
	}

	return int(offset / 4), true
}

// Read returns the current word of a register.
func (s *Space) Read(r Register) uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()

	i, ok := s.index(r.Offset)
	if !ok {
		return 0
	}

	return s.hw[i]
}

// ReadField returns the value of a field.
func (s *Space) ReadField(f Field) uint32 {
	return f.Get(s.Read(f.Reg))
}

// Write stores a full register word.
func (s *Space) Write(r Register, v uint32) error {
	return s.write(r, nil, v)
}

// WriteField performs a read-modify-write of a field. A value that does not
// fit the field is rejected without writing.
func (s *Space) WriteField(f Field, v uint32) error {
	if !f.Fits(v) {
		return &WriteError{Kind: ErrOverflow, Target: f.Name, Value: v}
	}

	return s.write(f.Reg, &f, v)
}

func (s *Space) write(r Register, f *Field, v uint32) error {
	s.lock.Lock()

	i, ok := s.index(r.Offset)
	if !ok {
		s.lock.Unlock()
		return &WriteError{Kind: ErrOutOfRange, Target: r.String(), Value: v}
	}

	if s.readOnly[i] {
		s.lock.Unlock()
		return &WriteError{Kind: ErrReadOnly, Target: r.String(), Value: v}
	}

	old := s.hw[i]
	word := v
	if f != nil {
		word = f.Set(old, v)
	}

	s.writes++
	s.hw[i] = word
	observers := s.observers
	s.lock.Unlock()

	w := Write{Offset: r.Offset, Old: old, Value: word}
	for _, o := range observers {
		o.ObserveWrite(w)
	}

	return nil
}

// WriteCount returns the number of accepted software writes.
func (s *Space) WriteCount() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.writes
}

// Peek returns the hardware word of a register.
func (s *Space) Peek(r Register) uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()

	i, ok := s.index(r.Offset)
	if !ok {
		return 0
	}

	return s.hw[i]
}

// PeekField returns a field of the hardware word of a register.
func (s *Space) PeekField(f Field) uint32 {
	return f.Get(s.Peek(f.Reg))
}

// Poke updates a register from the hardware side. It is not counted as a
// software write and does not notify observers.
func (s *Space) Poke(r Register, v uint32) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if i, ok := s.index(r.Offset); ok {
		s.hw[i] = v
	}
}

// PokeField updates a field from the hardware side.
func (s *Space) PokeField(f Field, v uint32) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if i, ok := s.index(f.Reg.Offset); ok {
		s.hw[i] = f.Set(s.hw[i], v)
	}
}

// Update atomically applies fn to the hardware word of a register.
func (s *Space) Update(r Register, fn func(old uint32) uint32) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if i, ok := s.index(r.Offset); ok {
		s.hw[i] = fn(s.hw[i])
	}
}
