package loader

import (
	"log"
)

// Builder can build loader buffer pools.
type Builder struct {
	numBuffers     int
	baseAddr       uint64
	maxHeaders     int
	pairsPerHeader int
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		numBuffers:     4,
		baseAddr:       0x1_0000_0000,
		maxHeaders:     64,
		pairsPerHeader: 8,
	}
}

// WithNumBuffers sets the number of buffers in the pool.
func (b Builder) WithNumBuffers(n int) Builder {
	b.numBuffers = n
	return b
}

// WithBaseAddr sets the device address of the first buffer. It must be
// aligned to the header size.
func (b Builder) WithBaseAddr(addr uint64) Builder {
	b.baseAddr = addr
	return b
}

// WithMaxHeaders sets how many header records a buffer can hold.
func (b Builder) WithMaxHeaders(n int) Builder {
	b.maxHeaders = n
	return b
}

// WithPairsPerHeader sets how many register pairs one header record covers.
func (b Builder) WithPairsPerHeader(n int) Builder {
	b.pairsPerHeader = n
	return b
}

// Build creates a pool with the given name.
func (b Builder) Build(name string) *Pool {
	if b.baseAddr%HeaderSize != 0 {
		log.Panicf("base address 0x%x is not %d-byte aligned",
			b.baseAddr, HeaderSize)
	}

	if b.maxHeaders <= 0 || b.pairsPerHeader <= 0 {
		log.Panic("a loader buffer must hold at least one pair")
	}

	headerArea := uint64(b.maxHeaders * HeaderSize)
	payloadArea := uint64(b.maxHeaders * b.pairsPerHeader * 8)

	p := &Pool{
		name:       name,
		baseAddr:   b.baseAddr,
		bufferSize: headerArea + payloadArea,
	}

	for i := 0; i < b.numBuffers; i++ {
		dva := b.baseAddr + uint64(i)*p.bufferSize
		buf := &Buffer{
			index:          i,
			headerDVA:      dva,
			payloadDVA:     dva + headerArea,
			pairsPerHeader: b.pairsPerHeader,
			maxHeaders:     b.maxHeaders,
		}

		p.buffers = append(p.buffers, buf)
		p.free = append(p.free, buf)
	}

	return p
}
