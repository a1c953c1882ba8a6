// Package monitoring turns a simulated PCC session into an HTTP server so that
// the controllers and the hardware can be inspected while they run.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Controller is what the monitor needs from a PCC controller.
type Controller interface {
	sim.Named
	Mode() pcc.Mode
	State() pcc.State
	Dump(mode pcc.DumpMode) pcc.DumpReport
}

// Hardware is what the monitor needs from a command queue model.
type Hardware interface {
	sim.Named
	State() pcc.State
	Fullness() uint32
	Frames() uint32
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the controllers.
type Monitor struct {
	engine      sim.TimeTeller
	controllers []Controller
	hardware    []Hardware
	portNumber  int

	profileDuration time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{profileDuration: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.TimeTeller) {
	m.engine = e
}

// RegisterController registers a controller to be monitored.
func (m *Monitor) RegisterController(c Controller) {
	m.controllers = append(m.controllers, c)
}

// RegisterHardware registers a command queue model to be monitored.
func (m *Monitor) RegisterHardware(h Hardware) {
	m.hardware = append(m.hardware, h)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes served by the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_controllers", m.listControllers)
	r.HandleFunc("/api/controller/{name}", m.controllerDetails)
	r.HandleFunc("/api/controller/{name}/state", m.controllerState)
	r.HandleFunc("/api/controller/{name}/dump", m.controllerDump)
	r.HandleFunc("/api/hardware/{name}", m.hardwareState)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	var now sim.VTimeInCycle
	if m.engine != nil {
		now = m.engine.CurrentTime()
	}

	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) listControllers(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.controllers))
	for _, c := range m.controllers {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) controllerDetails(w http.ResponseWriter, r *http.Request) {
	c := m.findControllerOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type stateRsp struct {
	Name  string `json:"name"`
	Mode  string `json:"mode"`
	State string `json:"state"`
	Busy  bool   `json:"busy"`
}

func (m *Monitor) controllerState(w http.ResponseWriter, r *http.Request) {
	c := m.findControllerOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	s := c.State()

	writeJSON(w, stateRsp{
		Name:  c.Name(),
		Mode:  c.Mode().String(),
		State: s.String(),
		Busy:  s.Busy(),
	})
}

type dumpRsp struct {
	Controller   string   `json:"controller"`
	Full         bool     `json:"full"`
	Version      string   `json:"version,omitempty"`
	State        string   `json:"state"`
	FrameCounter uint32   `json:"frame_counter"`
	Fullness     uint32   `json:"fullness"`
	Rptr         uint32   `json:"rptr"`
	Wptr         uint32   `json:"wptr"`
	Charged      bool     `json:"charged"`
	LastFCount   uint32   `json:"last_fcount"`
	LastKind     string   `json:"last_kind"`
	PostFrameGap uint32   `json:"post_frame_gap"`
	Lines        []string `json:"lines"`
}

func (m *Monitor) controllerDump(w http.ResponseWriter, r *http.Request) {
	c := m.findControllerOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	mode := pcc.DumpLight

	switch r.URL.Query().Get("mode") {
	case "", "light":
	case "full":
		mode = pcc.DumpFull
	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: invalid dump mode %q", r.URL.Query().Get("mode"))

		return
	}

	rep := c.Dump(mode)

	writeJSON(w, dumpRsp{
		Controller:   rep.Controller,
		Full:         rep.Mode == pcc.DumpFull,
		Version:      rep.Version,
		State:        rep.State.String(),
		FrameCounter: rep.FrameCounter,
		Fullness:     rep.Fullness,
		Rptr:         rep.Rptr,
		Wptr:         rep.Wptr,
		Charged:      rep.Charged,
		LastFCount:   rep.LastCmd.FCount,
		LastKind:     rep.LastCmd.Kind.String(),
		PostFrameGap: rep.PostFrameGap,
		Lines:        rep.Lines,
	})
}

type hardwareRsp struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Fullness uint32 `json:"fullness"`
	Frames   uint32 `json:"frames"`
}

func (m *Monitor) hardwareState(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	for _, h := range m.hardware {
		if h.Name() == name {
			writeJSON(w, hardwareRsp{
				Name:     h.Name(),
				State:    h.State().String(),
				Fullness: h.Fullness(),
				Frames:   h.Frames(),
			})

			return
		}
	}

	notFound(w, "Hardware not found")
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	c := m.findControllerOr404(w, req.CompName)
	if c == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findControllerOr404(
	w http.ResponseWriter,
	name string,
) Controller {
	for _, c := range m.controllers {
		if c.Name() == name {
			return c
		}
	}

	notFound(w, "Controller not found")

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func notFound(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte(msg))
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
