package loader

import (
	"log"
	"sync"
)

// An Allocator hands out preallocated buffers without blocking.
type Allocator interface {
	// TryAcquire returns a free buffer, or false if all are in use.
	TryAcquire() (*Buffer, bool)

	// Release returns a buffer to the allocator.
	Release(b *Buffer)
}

// A Resolver finds the buffer that a device address points into.
type Resolver interface {
	Lookup(dva uint64) (*Buffer, bool)
}

// Pool is a fixed set of buffers laid out back to back in device memory.
type Pool struct {
	lock sync.Mutex

	name       string
	baseAddr   uint64
	bufferSize uint64
	buffers    []*Buffer
	free       []*Buffer
}

// Name returns the name of the pool.
func (p *Pool) Name() string {
	return p.name
}

// TryAcquire takes the lowest-indexed free buffer. The buffer comes back
// empty.
func (p *Pool) TryAcquire() (*Buffer, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if len(p.free) == 0 {
		return nil, false
	}

	b := p.free[0]
	p.free = p.free[1:]
	b.inUse = true
	b.Reset()

	return b, true
}

// Release returns a buffer to the pool. Releasing a buffer that is not in
// use is a programming error.
func (p *Pool) Release(b *Buffer) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if b.index >= len(p.buffers) || p.buffers[b.index] != b {
		log.Panicf("%s: buffer %d does not belong to the pool", p.name, b.index)
	}

	if !b.inUse {
		log.Panicf("%s: buffer %d released twice", p.name, b.index)
	}

	b.inUse = false

	i := 0
	for i < len(p.free) && p.free[i].index < b.index {
		i++
	}

	p.free = append(p.free, nil)
	copy(p.free[i+1:], p.free[i:])
	p.free[i] = b
}

// Lookup returns the in-use buffer whose header area starts at dva.
func (p *Pool) Lookup(dva uint64) (*Buffer, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if dva < p.baseAddr {
		return nil, false
	}

	off := dva - p.baseAddr
	if off%p.bufferSize != 0 || off/p.bufferSize >= uint64(len(p.buffers)) {
		return nil, false
	}

	b := p.buffers[off/p.bufferSize]
	if !b.inUse {
		return nil, false
	}

	return b, true
}

// NumBuffers returns the size of the pool.
func (p *Pool) NumBuffers() int {
	return len(p.buffers)
}

// NumFree returns how many buffers can be acquired.
func (p *Pool) NumFree() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return len(p.free)
}

// Resolvers combines several resolvers into one.
type Resolvers []Resolver

// Lookup asks each resolver in turn.
func (rs Resolvers) Lookup(dva uint64) (*Buffer, bool) {
	for _, r := range rs {
		if b, ok := r.Lookup(dva); ok {
			return b, true
		}
	}

	return nil, false
}
