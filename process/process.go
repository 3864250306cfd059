// Package process implements the process table and round-robin
// scheduler: a fixed array of process control blocks walking the
// UNUSED -> READY -> RUNNING -> {BLOCKED, EXITED} -> UNUSED state
// machine.
package process

import (
	"sync"

	kerrors "orionos/errors"
)

// MaxProcs is the fixed process-table size.
const MaxProcs = 64

// State is a PCB's lifecycle state.
type State int

const (
	Unused State = iota
	Ready
	Running
	Blocked
	Exited
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Exited:
		return "exited"
	default:
		return "unused"
	}
}

// Context models the saved register frame: general-purpose registers,
// segment selectors, and the flow-control trio.
type Context struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP, ESP uint32
	CS, DS, SS         uint16
	EIP                uint32
	EFlags             uint32
}

// Image is an owned loaded user program.
type Image struct {
	Base     uint32
	Size     uint32
	LoadBase uint32
}

// PCB is one process control block.
type PCB struct {
	PID         int32
	Name        string
	State       State
	IsKernel    bool
	Entry       uint32
	Ctx         Context
	KernelStack []byte
	Image       *Image
	Argv        []string
	Foreground  bool
	ParentPID   int32
	ExitCode    int32
	VforkParent int32 // 0 if none
}

// WaitStatus is the result of a non-blocking Wait poll.
type WaitStatus int

const (
	WaitRunning WaitStatus = iota
	WaitNoSuch
	WaitExited
)

// KillResult enumerates Kill's outcomes.
type KillResult int

const (
	KillOK KillResult = iota
	KillRequiresForce
	KillAlreadyExited
	KillNoSuch
	KillBadArg
)

// Table is the fixed process table plus the scheduler's cursor.
type Table struct {
	mu         sync.Mutex
	procs      [MaxProcs]PCB
	nextGen    int32
	current    int   // slot index of the RUNNING process, -1 if none
	foreground int32 // pid of the foreground process, 0 if none
}

// NewTable returns an empty table with no running process.
func NewTable() *Table {
	return &Table{current: -1}
}

func (t *Table) nextPID() int32 {
	for {
		t.nextGen++
		if t.nextGen <= 0 {
			t.nextGen = 1
		}
		id := t.nextGen
		inUse := false
		for i := range t.procs {
			if t.procs[i].State != Unused && t.procs[i].PID == id {
				inUse = true
				break
			}
		}
		if !inUse {
			return id
		}
	}
}

func (t *Table) slotOf(pid int32) int {
	for i := range t.procs {
		if t.procs[i].State != Unused && t.procs[i].PID == pid {
			return i
		}
	}
	return -1
}

// Create allocates a pid and a kernel stack for entry. Kernel-mode
// processes start immediately in Ready.
func (t *Table) Create(name string, entry uint32, isKernel bool, stackSize int) (*PCB, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.procs {
		if t.procs[i].State != Unused {
			continue
		}
		pid := t.nextPID()
		t.procs[i] = PCB{
			PID:         pid,
			Name:        name,
			State:       Ready,
			IsKernel:    isKernel,
			Entry:       entry,
			KernelStack: make([]byte, stackSize),
		}
		return &t.procs[i], nil
	}
	return nil, kerrors.New(kerrors.OutOfMemory, "process.create", "process table full")
}

// Fork duplicates the process at parentPID into a new slot. The
// parent's returned eax is set to the child pid; the child's saved
// eax is set to 0, so that resuming either context yields the classic
// fork() return-value split.
func (t *Table) Fork(parentPID int32) (*PCB, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pi := t.slotOf(parentPID)
	if pi < 0 {
		return nil, kerrors.New(kerrors.NotFound, "process.fork", "no such parent pid")
	}
	var ci int = -1
	for i := range t.procs {
		if t.procs[i].State == Unused {
			ci = i
			break
		}
	}
	if ci < 0 {
		return nil, kerrors.New(kerrors.OutOfMemory, "process.fork", "process table full")
	}

	parent := &t.procs[pi]
	childPID := t.nextPID()
	argv := make([]string, len(parent.Argv))
	copy(argv, parent.Argv)

	child := PCB{
		PID:        childPID,
		Name:       parent.Name,
		State:      Ready,
		IsKernel:   parent.IsKernel,
		Entry:      parent.Entry,
		Ctx:        parent.Ctx,
		Image:      parent.Image, // shared per ownership policy; exec() installs a fresh one
		Argv:       argv,
		Foreground: parent.Foreground,
		ParentPID:  parentPID,
	}
	child.Ctx.EAX = 0
	t.procs[ci] = child

	parent.Ctx.EAX = uint32(childPID)
	return &t.procs[ci], nil
}

// Exec replaces proc's image in place, freeing the previous image and
// installing a fresh kernel stack, then transitions it to Ready and
// wakes its vfork parent if any.
func (t *Table) Exec(pid int32, entry uint32, img Image, argv []string, stackSize int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.slotOf(pid)
	if i < 0 {
		return kerrors.New(kerrors.NotFound, "process.exec", "no such pid")
	}
	if stackSize <= 0 {
		return kerrors.New(kerrors.OutOfMemory, "process.exec", "stack allocation failed")
	}
	stack := make([]byte, stackSize)
	p := &t.procs[i]
	p.Image = &img
	p.Entry = entry
	p.KernelStack = stack
	p.Argv = append([]string(nil), argv...)
	p.State = Ready

	if p.VforkParent != 0 {
		if pj := t.slotOf(p.VforkParent); pj >= 0 && t.procs[pj].State == Blocked {
			t.procs[pj].State = Ready
		}
		p.VforkParent = 0
	}
	return nil
}

// SetArgv replaces pid's argument vector with a deep copy of argv,
// used by the syscall layer to attach the argument list a SPAWN
// passed after Create (Create itself only knows about entry/stack).
func (t *Table) SetArgv(pid int32, argv []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.slotOf(pid)
	if i < 0 {
		return kerrors.New(kerrors.NotFound, "process.setargv", "no such pid")
	}
	t.procs[i].Argv = append([]string(nil), argv...)
	return nil
}

// Wait polls pid without blocking.
func (t *Table) Wait(pid int32) (WaitStatus, int32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.slotOf(pid)
	if i < 0 {
		return WaitNoSuch, 0
	}
	if t.procs[i].State == Exited {
		return WaitExited, t.procs[i].ExitCode
	}
	return WaitRunning, 0
}

// Exit records code, transitions pid to Exited and releases its
// foreground claim. It does not reschedule; a caller that needs
// another process to run calls Schedule next.
func (t *Table) Exit(pid int32, code int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.slotOf(pid)
	if i < 0 {
		return kerrors.New(kerrors.NotFound, "process.exit", "no such pid")
	}
	t.procs[i].State = Exited
	t.procs[i].ExitCode = code
	if t.procs[i].Foreground {
		t.procs[i].Foreground = false
		if t.foreground == pid {
			t.foreground = 0
		}
	}
	return nil
}

// Reap frees an Exited slot back to Unused, returning its exit code.
func (t *Table) Reap(pid int32) (int32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.slotOf(pid)
	if i < 0 {
		return 0, kerrors.New(kerrors.NotFound, "process.reap", "no such pid")
	}
	if t.procs[i].State != Exited {
		return 0, kerrors.New(kerrors.InvalidArgument, "process.reap", "process has not exited")
	}
	code := t.procs[i].ExitCode
	t.procs[i] = PCB{}
	return code, nil
}

// Kill terminates pid. Kernel processes require force; an already
// exited pid and an unknown pid report distinct results.
func (t *Table) Kill(pid int32, force bool) KillResult {
	if pid <= 0 {
		return KillBadArg
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.slotOf(pid)
	if i < 0 {
		return KillNoSuch
	}
	if t.procs[i].State == Exited {
		return KillAlreadyExited
	}
	if t.procs[i].IsKernel && !force {
		return KillRequiresForce
	}
	t.procs[i].State = Exited
	t.procs[i].ExitCode = -1
	return KillOK
}

// Schedule implements round-robin selection: save regs into the
// outgoing PCB, pick the next Ready slot after the current index
// (wrapping), install its context into regs, and mark it Running. If
// no Ready process exists and yield is false, the current process
// keeps running.
func (t *Table) Schedule(regs Context, yield bool) (Context, int32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current >= 0 && t.procs[t.current].State == Running {
		t.procs[t.current].Ctx = regs
		t.procs[t.current].State = Ready
	}

	start := t.current
	for offset := 1; offset <= MaxProcs; offset++ {
		idx := (start + offset) % MaxProcs
		if t.procs[idx].State == Ready {
			t.procs[idx].State = Running
			t.current = idx
			return t.procs[idx].Ctx, t.procs[idx].PID
		}
	}

	if !yield && t.current >= 0 {
		t.procs[t.current].State = Running
		return t.procs[t.current].Ctx, t.procs[t.current].PID
	}
	t.current = -1
	return regs, 0
}

// MakeCurrent installs child directly as the running process. The FORK
// syscall handler does not call it; the forked child stays Ready.
func (t *Table) MakeCurrent(childPID int32) (Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.slotOf(childPID)
	if i < 0 {
		return Context{}, kerrors.New(kerrors.NotFound, "process.makecurrent", "no such pid")
	}
	t.procs[i].State = Running
	t.current = i
	return t.procs[i].Ctx, nil
}

// SetForeground applies the at-most-one-foreground policy: the given
// pid becomes foreground only if no foreground process is currently
// busy; callers (the shell) decide background placement for trailing
// "&" commands by simply not calling this.
func (t *Table) SetForeground(pid int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.foreground != 0 {
		if i := t.slotOf(t.foreground); i >= 0 && t.procs[i].State != Exited {
			return false
		}
	}
	i := t.slotOf(pid)
	if i < 0 {
		return false
	}
	t.procs[i].Foreground = true
	t.foreground = pid
	return true
}

// Foreground returns the current foreground pid, 0 if none.
func (t *Table) Foreground() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.foreground
}

// Get returns a copy of the PCB for pid.
func (t *Table) Get(pid int32) (PCB, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.slotOf(pid)
	if i < 0 {
		return PCB{}, false
	}
	return t.procs[i], true
}

// List returns a snapshot of every occupied slot, for the shell's ps
// command and the scheduler metrics gauges.
func (t *Table) List() []PCB {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PCB, 0, MaxProcs)
	for i := range t.procs {
		if t.procs[i].State != Unused {
			out = append(out, t.procs[i])
		}
	}
	return out
}
