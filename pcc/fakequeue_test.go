package pcc

import (
	"sync"

	"github.com/sarchlab/pcc/regs"
)

const fakeQueueDepth = 16

// fakeQueue plays the part of the command queue behind a register space. It
// latches queued commands and answers flushes, resets and debug reads. The
// test moves the queue forward with pop and frameStart.
type fakeQueue struct {
	sync.Mutex

	space *regs.Space

	ring     [fakeQueueDepth][3]uint32
	wptr     uint32
	rptr     uint32
	fullness uint32

	added   []Command
	flushes int
	resets  []regs.Register
}

func newFakeQueue(space *regs.Space) *fakeQueue {
	q := &fakeQueue{space: space}
	space.AddObserver(q)

	return q
}

func (q *fakeQueue) ObserveWrite(w regs.Write) {
	q.Lock()
	defer q.Unlock()

	switch w.Offset {
	case RegCmdQAddToQueue.Offset:
		words := [3]uint32{
			q.space.Peek(RegCmdQQueCmdH),
			q.space.Peek(RegCmdQQueCmdM),
			q.space.Peek(RegCmdQQueCmdL),
		}
		q.ring[q.wptr] = words
		q.wptr = (q.wptr + 1) % fakeQueueDepth
		q.fullness++
		q.added = append(q.added, DecodeCommand(words[0], words[1], words[2]))
		q.space.Poke(RegCmdQAddToQueue, 0)
	case RegCmdQFlush.Offset:
		q.wptr = q.rptr
		q.fullness = 0
		q.flushes++
		q.space.Poke(RegCmdQFlush, 0)
	case RegCmdQRptrForDebug.Offset:
		words := q.ring[FieldRptrForDebug.Get(w.Value)]
		q.space.Poke(RegCmdQDebugCmdH, words[0])
		q.space.Poke(RegCmdQDebugCmdM, words[1])
		q.space.Poke(RegCmdQDebugCmdL, words[2])
	case RegSwReset.Offset, RegSwAPBReset.Offset, RegSwCoreReset.Offset:
		for _, r := range ResetRegs {
			if r.Offset == w.Offset {
				q.resets = append(q.resets, r)
				q.space.Poke(r, 0)
			}
		}
	default:
		for _, r := range IntRegMap {
			if w.Offset == r.Clear.Offset {
				q.space.Update(r.Status, func(old uint32) uint32 {
					return old &^ w.Value
				})
			}
		}
	}

	q.syncInfo()
}

func (q *fakeQueue) syncInfo() {
	var info uint32
	info = FieldQueueFullness.Set(info, q.fullness)
	info = FieldQueueWptr.Set(info, q.wptr)
	info = FieldQueueRptr.Set(info, q.rptr)
	q.space.Poke(RegCmdQQueueInfo, info)
}

// pop takes the head command off the queue and raises SETTING_DONE.
func (q *fakeQueue) pop() Command {
	q.Lock()
	defer q.Unlock()

	words := q.ring[q.rptr]
	q.rptr = (q.rptr + 1) % fakeQueueDepth
	q.fullness--
	q.syncInfo()

	q.space.Update(RegInt0, func(old uint32) uint32 {
		return old | 1<<Int0SettingDone
	})

	return DecodeCommand(words[0], words[1], words[2])
}

// frameStart latches a frame id and raises FRAME_START.
func (q *fakeQueue) frameStart(fid uint32) {
	q.space.PokeField(FieldCurrentFrameID, fid)
	q.space.Update(RegInt0, func(old uint32) uint32 {
		return old | 1<<Int0FrameStart
	})
}

func (q *fakeQueue) setState(s State) {
	q.space.PokeField(FieldCmdQProcess, uint32(s))
}

func (q *fakeQueue) numAdded() int {
	q.Lock()
	defer q.Unlock()

	return len(q.added)
}

func (q *fakeQueue) addedSince(n int) []Command {
	q.Lock()
	defer q.Unlock()

	return append([]Command(nil), q.added[n:]...)
}

func (q *fakeQueue) queueFullness() uint32 {
	q.Lock()
	defer q.Unlock()

	return q.fullness
}
