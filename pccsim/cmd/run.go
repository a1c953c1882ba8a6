package cmd

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/sarchlab/pcc/cmdqhw"
	"github.com/sarchlab/pcc/datarecording"
	"github.com/sarchlab/pcc/loader"
	"github.com/sarchlab/pcc/monitoring"
	"github.com/sarchlab/pcc/pcc"
	"github.com/sarchlab/pcc/sim"
	"github.com/spf13/cobra"
)

// maxFrameStarts bounds the frame starts injected while draining a queue
// that waits for the input valid signal.
const maxFrameStarts = 1024

type runOptions struct {
	mode          string
	frames        int
	burst         int
	fsMode        string
	loaderBuffers int
	db            string
	monitor       bool
	port          int
	openMonitor   bool
	hold          bool
	dump          string
	debug         string
	parallelIDs   bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit frames to a simulated command queue and dump the result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := applyEnv(cmd.Flags()); err != nil {
			return err
		}

		if runOpts.parallelIDs {
			sim.UseParallelIDGenerator()
		} else {
			sim.UseSequentialIDGenerator()
		}

		s, err := newSession(runOpts)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.run(); err != nil {
			return err
		}

		if s.monitor != nil && runOpts.hold {
			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.ErrOrStderr(),
				"Simulation finished, press Ctrl+C to stop the monitor.")
			<-ctx.Done()
		}

		return nil
	},
}

func init() {
	f := runCmd.Flags()

	f.StringVar(&runOpts.mode, "mode", "streaming",
		"controller mode: streaming, batch or streaming-no-dummy")
	f.IntVar(&runOpts.frames, "frames", 4, "number of frames to submit")
	f.IntVar(&runOpts.burst, "burst", 1, "commands per frame submission")
	f.StringVar(&runOpts.fsMode, "fs-mode", "asap",
		"frame start mode: asap or vvalid")
	f.IntVar(&runOpts.loaderBuffers, "loader-buffers", 4,
		"number of loader buffers")
	f.StringVar(&runOpts.db, "db", "",
		"record the session into NAME.sqlite3")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the monitoring API while running")
	f.IntVar(&runOpts.port, "port", 0, "port of the monitoring server")
	f.BoolVar(&runOpts.openMonitor, "open-monitor", false,
		"open the monitoring server in a browser")
	f.BoolVar(&runOpts.hold, "hold", false,
		"keep the monitoring server up after the run")
	f.StringVar(&runOpts.dump, "dump", "full",
		"dump printed at the end: full or light")
	f.StringVar(&runOpts.debug, "debug", "",
		"debug parameter string, see the debug-param command")
	f.BoolVar(&runOpts.parallelIDs, "parallel-ids", false,
		"use globally unique event ids instead of sequential ones")

	rootCmd.AddCommand(runCmd)
}

type session struct {
	opts   runOptions
	mode   pcc.Mode
	fsMode pcc.FSMode
	dump   pcc.DumpMode

	engine *sim.SerialEngine
	pool   *loader.Pool
	hw     *cmdqhw.Hardware
	ctrl   *pcc.Controller

	// frames counts the frames the hardware ran. A reset clears the
	// hardware counter, so it is sampled after every drain.
	frames uint32

	recorder *datarecording.Recorder
	exec     *datarecording.ExecRecorder
	monitor  *monitoring.Monitor
}

func parseFSMode(s string) (pcc.FSMode, error) {
	switch s {
	case "asap":
		return pcc.FSModeASAP, nil
	case "vvalid":
		return pcc.FSModeVValidRise, nil
	}

	return 0, fmt.Errorf("unknown frame start mode %q: %w",
		s, pcc.ErrInvalidArgument)
}

func parseDumpMode(s string) (pcc.DumpMode, error) {
	switch s {
	case "full":
		return pcc.DumpFull, nil
	case "light":
		return pcc.DumpLight, nil
	}

	return 0, fmt.Errorf("unknown dump mode %q: %w", s, pcc.ErrInvalidArgument)
}

func newSession(opts runOptions) (*session, error) {
	s := &session{opts: opts}

	var err error

	if s.mode, err = pcc.ParseMode(opts.mode); err != nil {
		return nil, err
	}

	if s.fsMode, err = parseFSMode(opts.fsMode); err != nil {
		return nil, err
	}

	if s.dump, err = parseDumpMode(opts.dump); err != nil {
		return nil, err
	}

	if opts.frames < 0 || opts.burst < 1 {
		return nil, fmt.Errorf("frames %d burst %d: %w",
			opts.frames, opts.burst, pcc.ErrInvalidArgument)
	}

	var debug pcc.DebugParams
	if opts.debug != "" {
		if debug, err = pcc.ParseDebugParams(opts.debug, debug); err != nil {
			return nil, err
		}
	}

	s.build(debug)

	if opts.db != "" {
		s.record(opts.db)
	}

	if opts.monitor {
		s.startMonitor()
	}

	return s, nil
}

func (s *session) build(debug pcc.DebugParams) {
	s.engine = sim.NewSerialEngine()
	s.pool = loader.MakeBuilder().
		WithNumBuffers(s.opts.loaderBuffers).
		Build("Loader")
	s.hw = cmdqhw.MakeBuilder().
		WithEngine(s.engine).
		WithLoader(s.pool).
		Build("CmdQ")
	s.ctrl = pcc.MakeBuilder().
		WithMode(s.mode).
		WithRegs(s.hw.Regs()).
		WithLoader(s.pool).
		WithPoll(pcc.Poll{Retries: 10}).
		WithDebugParams(debug).
		Build("PCC")

	s.hw.SetInterruptSink(cmdqhw.InterruptSinkFunc(func(id pcc.IntID) {
		s.ctrl.InterruptStatus(id, true)
	}))
}

func (s *session) record(db string) {
	w := datarecording.New(db)

	s.recorder = datarecording.NewRecorder(w)
	s.ctrl.AcceptHook(s.recorder)
	s.hw.AcceptHook(s.recorder)

	s.exec = datarecording.NewExecRecorder(w)
	s.exec.Start()
	s.exec.Set("Mode", s.mode.String())
	s.exec.Set("Frames", fmt.Sprint(s.opts.frames))
	s.exec.Set("Burst", fmt.Sprint(s.opts.burst))
}

func (s *session) startMonitor() {
	s.monitor = monitoring.NewMonitor().WithPortNumber(s.opts.port)
	s.monitor.RegisterEngine(s.engine)
	s.monitor.RegisterController(s.ctrl)
	s.monitor.RegisterHardware(s.hw)

	url := s.monitor.StartServer()

	if s.opts.openMonitor {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("cannot open %s: %v", url, err)
		}
	}
}

func (s *session) run() error {
	err := s.ctrl.Enable(pcc.Config{
		FSMode:    s.fsMode,
		IntEnable: [pcc.NumIntIDs]uint32{0x3f, 0, 0x1, 0},
	})
	if err != nil {
		return err
	}

	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("Frames", uint64(s.opts.frames))
		defer s.monitor.CompleteProgressBar(bar)
	}

	for f := 1; f <= s.opts.frames; f++ {
		if err := s.ctrl.Submit(s.frame(uint32(f))); err != nil {
			return err
		}

		if bar != nil {
			bar.IncrementInProgress(1)
		}

		if err := s.drain(); err != nil {
			return err
		}

		s.frames = s.hw.Frames()

		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}
	}

	s.ctrl.Dump(s.dump)
	log.Printf("%s ran %d frames", s.hw.Name(), s.frames)

	if s.exec != nil {
		s.exec.Set("HardwareFrames", fmt.Sprint(s.frames))
	}

	return s.ctrl.Disable()
}

func (s *session) frame(fcount uint32) *pcc.FrameConfig {
	return &pcc.FrameConfig{
		NumBuffers: uint32(s.opts.burst),
		Cmd: pcc.Command{
			SetMode:   pcc.SetModeAPBDirect,
			FCount:    fcount,
			IntGroups: 1 << pcc.GroupEnableAll,
		},
	}
}

// drain runs the hardware until it stops, feeding frame starts to commands
// that wait for the input.
func (s *session) drain() error {
	for i := 0; ; i++ {
		if err := s.hw.RunUntilIdle(); err != nil {
			return err
		}

		if s.fsMode != pcc.FSModeVValidRise ||
			s.hw.State() != pcc.StatePreStart {
			return nil
		}

		if i >= maxFrameStarts {
			return fmt.Errorf("%s stuck in %s: %w",
				s.hw.Name(), s.hw.State(), pcc.ErrTimeout)
		}

		s.hw.InjectFrameStart()
	}
}

func (s *session) close() {
	s.ctrl.Close()

	if s.exec != nil {
		s.exec.End()
	}
}
