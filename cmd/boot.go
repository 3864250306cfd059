package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"orionos/blockdev"
	"orionos/boot"
	"orionos/config"
	"orionos/fd"
	"orionos/fs"
	"orionos/gui"
	"orionos/logging"
	"orionos/metrics"
	"orionos/process"
	"orionos/trap"
	"orionos/workqueue"
)

var (
	bootCmdline     string
	bootMetricsAddr string
	bootTickHz      int
)

var bootCmd = &cobra.Command{
	Use:   "boot <disk-image>",
	Short: "Boot the orionOS kernel simulator against a disk image",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoot,
}

func init() {
	bootCmd.Flags().StringVar(&bootCmdline, "cmdline", "", "Multiboot2-style kernel command line (rd=N#, ramdisk=path, enable_font)")
	bootCmd.Flags().StringVar(&bootMetricsAddr, "metrics-addr", "", "address to serve /metrics and /healthz on (disabled if empty)")
	bootCmd.Flags().IntVar(&bootTickHz, "tick-hz", 100, "simulated PIT frequency driving the timer table")
	rootCmd.AddCommand(bootCmd)
}

// kernel bundles the subsystems a booted instance wires together: the
// drive table, the mounted filesystem, the process table, the trap
// dispatcher, the GUI server and the deferred-work queue. It is the
// simulator's analogue of the kernel's global state, assembled once at
// boot and driven by the shell loop.
type kernel struct {
	drives *blockdev.DriveTable
	vfs    *fs.Dispatcher
	procs  *process.Table
	traps  *trap.Dispatcher
	gui    *gui.Server
	work   *workqueue.Queue
	timers *workqueue.TimerTable
	cfg    config.Config

	metrics *metrics.Registry
	ready   atomic.Bool

	shellPID int32
	as       *trap.AddressSpace
	asNext   uint32

	fds       *fd.Table
	consoleMu sync.Mutex
	cursor    uint32
	sysmgrPID int32

	programs map[int32]userProgram
	progMu   sync.Mutex

	shutdown context.CancelFunc
}

// desktopResolution queries the controlling terminal's pixel
// dimensions via TIOCGWINSZ to size the GUI desktop the way a real
// framebuffer's mode-set would, falling back to a fixed VGA-era
// resolution when stdout isn't a terminal (e.g. under test or when
// piped).
func desktopResolution() (w, h int) {
	const defaultW, defaultH = 640, 480
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Xpixel == 0 || ws.Ypixel == 0 {
		return defaultW, defaultH
	}
	return int(ws.Xpixel), int(ws.Ypixel)
}

func runBoot(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	log := logging.Default()

	backend, err := blockdev.NewFileBackend(args[0], blockdev.KindAHCI, "orion-disk")
	if err != nil {
		return fmt.Errorf("open disk image: %w", err)
	}
	defer backend.Close()

	screenW, screenH := desktopResolution()
	k := &kernel{
		drives:   blockdev.NewDriveTable(),
		procs:    process.NewTable(),
		gui:      gui.NewServer(screenW, screenH, 8, 16, 24, 12),
		work:     workqueue.New(64),
		timers:   workqueue.NewTimerTable(bootTickHz),
		cfg:      config.Default(),
		as:       trap.NewAddressSpace(64 * 1024),
		asNext:   4096,
		fds:      fd.NewTable(),
		programs: make(map[int32]userProgram),
	}
	k.drives.RefreshDriveMap([]blockdev.Backend{backend})
	k.traps = trap.NewDispatcher(logging.WithOperation(log, "syscall"))

	opts := boot.ParseCmdline(bootCmdline)

	rootDrive := 0
	if opts.RootDrive >= 0 {
		rootDrive = opts.RootDrive
	}
	driver, err := fs.OpenDriver(k.drives, rootDrive)
	if err != nil {
		logging.WithDrive(log, rootDrive).Warn("no filesystem found on root drive", "err", err)
	} else {
		k.vfs = fs.NewDispatcher()
		k.vfs.Mount(driver, rootDrive)
	}

	if k.vfs != nil {
		if raw, err := k.vfs.ReadFile("/system/config/orion.stg"); err == nil {
			if cfg, err := config.Load(strings.NewReader(string(raw))); err == nil {
				k.cfg = cfg
			}
		}
	}

	shellPCB, err := k.procs.Create("shell", 0, true, 8192)
	if err != nil {
		return fmt.Errorf("create initial process: %w", err)
	}
	k.shellPID = shellPCB.PID
	k.procs.SetForeground(k.shellPID)

	trap.RegisterProcessSyscalls(k.traps, k.procs)
	k.registerFSSyscalls()
	k.registerFDSyscalls()
	k.registerGUISyscalls()
	k.registerLifecycleSyscalls()
	k.registerProgramSyscalls()
	k.registerExitHook()

	k.timers.Schedule(0, int32(bootTickHz), int32(bootTickHz), func(ctx any) {
		k.work.Enqueue(workqueue.Work{Fn: k.reapZombies})
	}, nil)

	if k.cfg.BootClear {
		clearScreen()
	}
	k.printMOTD()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	k.shutdown = cancelRun
	group, gctx := errgroup.WithContext(runCtx)
	if bootMetricsAddr != "" {
		k.metrics = metrics.NewRegistry()
		srv := metrics.NewServer(bootMetricsAddr, k.metrics, &k.ready)
		group.Go(func() error {
			log.Info("metrics server listening", "addr", bootMetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}

	group.Go(func() error {
		return k.tickLoop(gctx)
	})

	k.ready.Store(true)
	group.Go(func() error {
		err := k.shellLoop(gctx)
		cancelRun()
		return err
	})

	return group.Wait()
}

// tickLoop advances the timer table at the configured PIT frequency
// until ctx is cancelled, the deferred-work analogue of the hardware
// timer interrupt.
func (k *kernel) tickLoop(ctx context.Context) error {
	var now int32
	ticker := time.NewTicker(time.Second / time.Duration(max(1, bootTickHz)))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now++
			k.timers.RunDue(now)
			k.work.Drain()
			k.runSpawnedPrograms()
			if k.metrics != nil {
				k.publishMetrics()
			}
		}
	}
}

// reapZombies is the housekeeping task the once-per-second periodic
// timer hands off to the workqueue: it runs outside the timer table's
// own critical section, reaping any process left in a terminal state
// by a caller that never called Wait.
func (k *kernel) reapZombies(ctx any) {
	for _, p := range k.procs.List() {
		if p.State == process.Exited && p.PID != k.shellPID {
			if _, err := k.procs.Reap(p.PID); err == nil {
				logging.WithPID(logging.Default(), int(p.PID)).Debug("reaped exited process", "exit_code", p.ExitCode)
			}
		}
	}
}

func (k *kernel) publishMetrics() {
	var ready, blocked int
	for _, p := range k.procs.List() {
		switch p.State {
		case process.Ready, process.Running:
			ready++
		case process.Blocked:
			blocked++
		}
	}
	k.metrics.ReadyProcs.Set(float64(ready))
	k.metrics.BlockedProcs.Set(float64(blocked))
	k.metrics.WorkqueueDepth.Set(float64(k.work.Len()))
	k.metrics.GUIQueueDepth.Set(float64(k.gui.QueueLen()))
}

// shellLoop reads lines from stdin and dispatches them through the
// shell command table until EOF, "exit", or ctx cancellation.
func (k *kernel) shellLoop(ctx context.Context) error {
	table := k.buildShellTable()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("orion> ")
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "exit" {
			return nil
		}
		if _, err := table.Dispatch(line); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		fmt.Printf("orion> ")
	}
	return scanner.Err()
}

func clearScreen() {
	fmt.Print("\x1b[2J\x1b[H")
}

// ansiColor maps orionOS's 0-15 console colour indices onto a 16-colour
// ANSI escape so boot.RenderMOTD's per-line colour directives are
// visible on a real terminal, since the simulator has no VGA text-mode
// buffer to render into.
func ansiColor(fg, bg int) string {
	fgCode := 30 + fg%8
	if fg >= 8 {
		fgCode += 60
	}
	bgCode := 40 + bg%8
	if bg >= 8 {
		bgCode += 60
	}
	return fmt.Sprintf("\x1b[%d;%dm", fgCode, bgCode)
}

// motdPath is where the boot glue looks for the message of the day.
const motdPath = "/system/config/motd.txt"

func (k *kernel) printMOTD() {
	k.printMOTDFile(motdPath)
}

func (k *kernel) printMOTDFile(path string) {
	if k.vfs == nil {
		return
	}
	raw, err := k.vfs.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range boot.RenderMOTD(string(raw)) {
		fmt.Printf("%s%s\x1b[0m\n", ansiColor(line.FG, line.BG), line.Text)
	}
}
