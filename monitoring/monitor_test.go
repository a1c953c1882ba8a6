package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/sim"
)

type fakeController struct {
	name   string
	mode   pcc.Mode
	state  pcc.State
	dumps  []pcc.DumpMode
	Frames int
}

func (c *fakeController) Name() string {
	return c.name
}

func (c *fakeController) Mode() pcc.Mode {
	return c.mode
}

func (c *fakeController) State() pcc.State {
	return c.state
}

func (c *fakeController) Dump(mode pcc.DumpMode) pcc.DumpReport {
	c.dumps = append(c.dumps, mode)

	return pcc.DumpReport{
		Controller:   c.name,
		Mode:         mode,
		State:        c.state,
		FrameCounter: 5,
		LastCmd:      pcc.Command{FCount: 4, Kind: pcc.CmdDummy},
		Lines:        []string{"line"},
	}
}

type fakeHardware struct {
	name string
}

func (h *fakeHardware) Name() string     { return h.name }
func (h *fakeHardware) State() pcc.State { return pcc.StateFrame }
func (h *fakeHardware) Fullness() uint32 { return 3 }
func (h *fakeHardware) Frames() uint32   { return 9 }

type fakeClock struct{}

func (fakeClock) CurrentTime() sim.VTimeInCycle { return 42 }

var _ = Describe("Monitor", func() {
	var (
		m    *Monitor
		ctrl *fakeController
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.Router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		ctrl = &fakeController{
			name:  "PCC0",
			mode:  pcc.ModeStreaming,
			state: pcc.StatePreStart,
		}

		m.RegisterEngine(fakeClock{})
		m.RegisterController(ctrl)
		m.RegisterHardware(&fakeHardware{name: "HW0"})
	})

	It("should report the current time", func() {
		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":42}`))
	})

	It("should list controllers", func() {
		rec := get("/api/list_controllers")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"PCC0"}))
	})

	It("should report controller state", func() {
		rec := get("/api/controller/PCC0/state")

		var rsp stateRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.State).To(Equal("PRE_START"))
		Expect(rsp.Mode).To(Equal(pcc.ModeStreaming.String()))
		Expect(rsp.Busy).To(BeTrue())
	})

	It("should return 404 for unknown controllers", func() {
		Expect(get("/api/controller/PCC9/state").Code).
			To(Equal(http.StatusNotFound))
		Expect(get("/api/hardware/HW9").Code).To(Equal(http.StatusNotFound))
	})

	It("should dump light by default", func() {
		rec := get("/api/controller/PCC0/dump")

		var rsp dumpRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Full).To(BeFalse())
		Expect(rsp.FrameCounter).To(Equal(uint32(5)))
		Expect(rsp.LastFCount).To(Equal(uint32(4)))
		Expect(rsp.LastKind).To(Equal("DUM"))
		Expect(rsp.Lines).To(Equal([]string{"line"}))
		Expect(ctrl.dumps).To(Equal([]pcc.DumpMode{pcc.DumpLight}))
	})

	It("should dump full on request", func() {
		get("/api/controller/PCC0/dump?mode=full")

		Expect(ctrl.dumps).To(Equal([]pcc.DumpMode{pcc.DumpFull}))
	})

	It("should reject unknown dump modes", func() {
		rec := get("/api/controller/PCC0/dump?mode=medium")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(ctrl.dumps).To(BeEmpty())
	})

	It("should report hardware state", func() {
		rec := get("/api/hardware/HW0")

		var rsp hardwareRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal(hardwareRsp{
			Name: "HW0", State: "FRAME", Fullness: 3, Frames: 9,
		}))
	})

	It("should serialize controllers", func() {
		rec := get("/api/controller/PCC0")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should reject malformed field requests", func() {
		rec := get("/api/field/" + url.PathEscape("{not json"))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("frames", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		rec := get("/api/progress")

		var bars []progressRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("frames"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should report process resources", func() {
		rec := get("/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a CPU profile", func() {
		m.profileDuration = 10 * time.Millisecond

		rec := get("/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("SampleType"))
	})

	It("should fall back to a random port", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})
