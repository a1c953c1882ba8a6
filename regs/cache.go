package regs

import (
	"sort"
)

// A Cache stages register writes that must not reach the hardware, such as
// the content of a configuration loader buffer. Reads see the staged words
// first and fall back to the Reader the cache was created on. A Cache belongs
// to one writer and is not safe for concurrent use.
type Cache struct {
	base  Reader
	words map[uint32]uint32
}

// NewCache creates an empty cache on top of base.
func NewCache(base Reader) *Cache {
	return &Cache{
		base:  base,
		words: make(map[uint32]uint32),
	}
}

// Read returns the staged word of a register, or the word of the base.
func (c *Cache) Read(r Register) uint32 {
	if v, ok := c.words[r.Offset]; ok {
		return v
	}

	return c.base.Read(r)
}

// ReadField returns the value of a field.
func (c *Cache) ReadField(f Field) uint32 {
	return f.Get(c.Read(f.Reg))
}

// Write stages a full register word.
func (c *Cache) Write(r Register, v uint32) error {
	if r.Offset%4 != 0 {
		return &WriteError{Kind: ErrOutOfRange, Target: r.String(), Value: v}
	}

	c.words[r.Offset] = v

	return nil
}

// WriteField stages a read-modify-write of a field.
func (c *Cache) WriteField(f Field, v uint32) error {
	if !f.Fits(v) {
		return &WriteError{Kind: ErrOverflow, Target: f.Name, Value: v}
	}

	return c.Write(f.Reg, f.Set(c.Read(f.Reg), v))
}

// Len returns the number of staged registers.
func (c *Cache) Len() int {
	return len(c.words)
}

// Snapshot returns the staged words ordered by offset and empties the cache.
func (c *Cache) Snapshot() []Pair {
	pairs := make([]Pair, 0, len(c.words))
	for off, v := range c.words {
		pairs = append(pairs, Pair{Offset: off, Value: v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Offset < pairs[j].Offset
	})

	c.words = make(map[uint32]uint32)

	return pairs
}
