// Package loader provides pools of preallocated, device-visible buffers that
// stage register snapshots for the hardware configuration loader.
package loader

import (
	"errors"

	"github.com/sarchlab/pcc/regs"
)

// ErrBufferFull is returned when a buffer has no room for more headers.
var ErrBufferFull = errors.New("loader buffer full")

// HeaderSize is the size of one header record in device memory.
const HeaderSize = 16

// A Header groups the register pairs that the loader fetches with one
// header record.
type Header struct {
	Pairs []regs.Pair
}

// A Buffer is a device-visible region holding header records followed by
// their payload. Headers only become visible to the device after
// SyncForDevice.
type Buffer struct {
	index          int
	headerDVA      uint64
	payloadDVA     uint64
	pairsPerHeader int
	maxHeaders     int

	headers []Header
	open    []regs.Pair
	device  []Header
	inUse   bool
}

// Index returns the position of the buffer in its pool.
func (b *Buffer) Index() int {
	return b.index
}

// HeaderDVA returns the device address of the first header record.
func (b *Buffer) HeaderDVA() uint64 {
	return b.headerDVA
}

// PayloadDVA returns the device address of the payload area.
func (b *Buffer) PayloadDVA() uint64 {
	return b.payloadDVA
}

// AppendPairs formats pairs into header records. Every full record is
// counted as a header right away. A partially filled record stays open until
// Seal.
func (b *Buffer) AppendPairs(pairs []regs.Pair) error {
	for _, p := range pairs {
		if len(b.headers) >= b.maxHeaders {
			return ErrBufferFull
		}

		b.open = append(b.open, p)

		if len(b.open) == b.pairsPerHeader {
			b.closeOpen()
		}
	}

	return nil
}

// Seal closes a partially filled header record, if any.
func (b *Buffer) Seal() {
	if len(b.open) > 0 {
		b.closeOpen()
	}
}

func (b *Buffer) closeOpen() {
	b.headers = append(b.headers, Header{Pairs: b.open})
	b.open = nil
}

// NumHeaders returns the number of closed header records.
func (b *Buffer) NumHeaders() int {
	return len(b.headers)
}

// NumOpenPairs returns the number of pairs in the open header record.
func (b *Buffer) NumOpenPairs() int {
	return len(b.open)
}

// SyncForDevice publishes the closed header records to the device.
func (b *Buffer) SyncForDevice() {
	b.device = make([]Header, len(b.headers))
	copy(b.device, b.headers)
}

// DeviceHeaders returns the header records the device can see.
func (b *Buffer) DeviceHeaders() []Header {
	return b.device
}

// Reset drops all staged content.
func (b *Buffer) Reset() {
	b.headers = nil
	b.open = nil
	b.device = nil
}
