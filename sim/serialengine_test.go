package sim

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func mockEventAt(
	mockCtrl *gomock.Controller,
	t VTimeInCycle,
	handler Handler,
	secondary bool,
) *MockEvent {
	evt := NewMockEvent(mockCtrl)
	evt.EXPECT().Time().Return(t).AnyTimes()
	evt.EXPECT().Handler().Return(handler).AnyTimes()
	evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

	return evt
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 4, handler1, false)
		evt2 := mockEventAt(mockCtrl, 2, handler2, false)
		evt3 := mockEventAt(mockCtrl, 3, handler1, false)
		evt4 := mockEventAt(mockCtrl, 5, handler1, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(e Event) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().Handle(evt3).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInCycle(5)))
		Expect(engine.HasPendingEvents()).To(BeFalse())
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 2, handler1, true)
		evt2 := mockEventAt(mockCtrl, 2, handler2, false)
		evt3 := mockEventAt(mockCtrl, 2, handler3, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2)
		handleEvt3 := handler3.EXPECT().Handle(evt3)
		handler1.EXPECT().
			Handle(evt1).
			After(handleEvt2).
			After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should run a secondary event base after primary events", func() {
		handler := NewMockHandler(mockCtrl)
		secondary := NewSecondaryEventBase(3, handler)
		primary := NewEventBase(3, handler)

		Expect(secondary.IsSecondary()).To(BeTrue())
		Expect(primary.IsSecondary()).To(BeFalse())

		first := handler.EXPECT().Handle(*primary)
		handler.EXPECT().Handle(*secondary).After(first)

		engine.Schedule(*secondary)
		engine.Schedule(*primary)

		Expect(engine.Run()).To(Succeed())
	})

	It("should keep same-cycle events in scheduling order", func() {
		handler := NewMockHandler(mockCtrl)

		var calls []*gomock.Call
		for i := 0; i < 8; i++ {
			evt := mockEventAt(mockCtrl, 7, handler, false)
			call := handler.EXPECT().Handle(evt)
			if len(calls) > 0 {
				call.After(calls[len(calls)-1])
			}
			calls = append(calls, call)
			engine.Schedule(evt)
		}

		Expect(engine.Run()).To(Succeed())
	})

	It("should invoke hooks around each event", func() {
		handler := NewMockHandler(mockCtrl)
		hook := NewMockHook(mockCtrl)
		evt := mockEventAt(mockCtrl, 1, handler, false)
		engine.AcceptHook(hook)

		before := hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosBeforeEvent))
			Expect(ctx.Item).To(BeIdenticalTo(evt))
		})
		handleEvt := handler.EXPECT().Handle(evt).After(before)
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosAfterEvent))
		}).After(handleEvt)

		engine.Schedule(evt)

		Expect(engine.Run()).To(Succeed())
	})

	It("should stop at the first handler error", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 1, handler, false)
		evt2 := mockEventAt(mockCtrl, 2, handler, false)
		failure := errors.New("handler failed")

		handler.EXPECT().Handle(evt1).Return(failure)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(MatchError(failure))
		Expect(engine.HasPendingEvents()).To(BeTrue())
	})

	It("should panic when scheduling into the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEventAt(mockCtrl, 10, handler, false)
		evt2 := mockEventAt(mockCtrl, 3, handler, false)
		handler.EXPECT().Handle(evt1)

		engine.Schedule(evt1)
		Expect(engine.Run()).To(Succeed())

		Expect(func() { engine.Schedule(evt2) }).To(Panic())
	})

	It("should handle many events in time order", func() {
		handler := NewMockHandler(mockCtrl)
		last := VTimeInCycle(0)
		handler.EXPECT().Handle(gomock.Any()).DoAndReturn(func(e Event) error {
			Expect(e.Time()).To(BeNumerically(">=", last))
			last = e.Time()
			return nil
		}).Times(1000)

		for i := 0; i < 1000; i++ {
			t := VTimeInCycle(rand.Uint64() % 100)
			engine.Schedule(mockEventAt(mockCtrl, t, handler, rand.Uint32()%2 == 0))
		}

		Expect(engine.Run()).To(Succeed())
	})
})
