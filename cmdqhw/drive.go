package cmdqhw

import (
	"context"
	"log"

	"github.com/sarchlab/pcc/pcc"
)

const irqBacklog = 64

// RunUntilIdle runs the hardware on the calling goroutine until it has
// nothing left to do. Interrupts are delivered to the sink from inside the
// run, so the sink sees the hardware as it was when the interrupt fired.
func (h *Hardware) RunUntilIdle() error {
	select {
	case <-h.wake:
	default:
	}

	h.TickNow()

	return h.engine.Run()
}

// Start runs the hardware on its own goroutine until ctx is done. The
// hardware sleeps while idle and wakes up on register writes and injected
// frame starts. Interrupts are delivered to the sink from another goroutine.
func (h *Hardware) Start(ctx context.Context) {
	irq := make(chan pcc.IntID, irqBacklog)

	h.sinkLock.Lock()
	h.irq = irq
	h.done = ctx.Done()
	h.sinkLock.Unlock()

	h.wg.Add(2)

	go h.runLoop(ctx)
	go h.irqLoop(ctx, irq)
}

// Wait blocks until the goroutines of Start have returned.
func (h *Hardware) Wait() {
	h.wg.Wait()
}

func (h *Hardware) runLoop(ctx context.Context) {
	defer h.wg.Done()

	for {
		h.TickNow()

		if err := h.engine.Run(); err != nil {
			log.Printf("[%s][ERR] %v", h.Name(), err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-h.wake:
		}
	}
}

func (h *Hardware) irqLoop(ctx context.Context, irq <-chan pcc.IntID) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-irq:
			h.sinkLock.RLock()
			sink := h.sink
			h.sinkLock.RUnlock()

			if sink != nil {
				sink.Interrupt(id)
			}
		}
	}
}

func (h *Hardware) stopped() bool {
	h.sinkLock.RLock()
	done := h.done
	h.sinkLock.RUnlock()

	if done == nil {
		return false
	}

	select {
	case <-done:
		return true
	default:
		return false
	}
}
