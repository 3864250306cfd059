package cmd

import (
	"fmt"
	"os"

	kerrors "orionos/errors"
	"orionos/logging"
	"orionos/process"
	"orionos/trap"
)

// registerLifecycleSyscalls wires the console/boot-control syscalls
// that don't belong to the filesystem, GUI, process, or fd groups:
// shell startup, raw console output, the speaker, MOTD display, the
// cursor position, and the boot-flags query.
func (k *kernel) registerLifecycleSyscalls() {
	k.traps.Register(trap.StartShell, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		p, err := k.procs.Create("shell", 0, true, 8192)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		return trap.Result{EAX: uint32(p.PID)}, nil
	})

	k.traps.Register(trap.Kprint, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		s, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		k.consoleMu.Lock()
		fmt.Fprint(os.Stdout, s)
		k.consoleMu.Unlock()
		return trap.Result{EAX: uint32(len(s))}, nil
	})

	k.traps.Register(trap.Clear, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		clearScreen()
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.Beep, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		if k.cfg.BeepEnabled {
			k.consoleMu.Lock()
			fmt.Fprint(os.Stdout, "\a")
			k.consoleMu.Unlock()
		}
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.Pause, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		if _, err := readKeyRaw(); err != nil {
			wrapped := kerrors.Wrap(err, kerrors.Fault, "trap.pause")
			return trap.Result{EAX: uint32(kerrors.Errno(wrapped))}, wrapped
		}
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.Reboot, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		if k.shutdown != nil {
			k.shutdown()
		}
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.BootFlags, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		return trap.Result{EAX: k.cfg.BootFlags()}, nil
	})

	k.traps.Register(trap.StartSysmgr, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		p, err := k.procs.Create("sysmgr", 0, true, 8192)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		if err := k.gui.Bind(p.PID); err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		k.sysmgrPID = p.PID
		return trap.Result{EAX: uint32(p.PID)}, nil
	})

	k.traps.Register(trap.PrintMotd, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		if req.EBX == 0 {
			k.printMOTD()
			return trap.Result{EAX: 0}, nil
		}
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		k.printMOTDFile(path)
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.ShMotd, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		k.printMOTD()
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.CursorGet, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		return trap.Result{EAX: k.cursor}, nil
	})

	k.traps.Register(trap.CursorSet, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		k.cursor = req.EBX
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.DirList, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		if k.vfs == nil {
			e := kerrors.New(kerrors.NotFound, "trap.dirlist", "no filesystem mounted")
			return trap.Result{EAX: uint32(kerrors.Errno(e))}, nil
		}
		entries, err := k.vfs.List(path)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		return trap.Result{EAX: uint32(len(entries))}, nil
	})
}

// registerProgramSyscalls wires SPAWN/EXEC against the builtin-program
// registry: since the simulator has no real machine code to load, both
// resolve path to a registered userProgram and defer running it to the
// next tickLoop drain, so wait(pid) observably returns RUNNING until
// the scheduler actually gets to it.
func (k *kernel) registerProgramSyscalls() {
	k.traps.Register(trap.Spawn, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		prog, ok := builtinPrograms[path]
		if !ok {
			e := kerrors.New(kerrors.NotExecutable, "trap.spawn", "no such program: "+path)
			return trap.Result{EAX: uint32(kerrors.Errno(e))}, nil
		}
		argv, err := as.ReadArgv(req.ECX, int(req.EDX))
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		child, err := k.procs.Create(path, 0, false, 4096)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		k.procs.SetArgv(child.PID, argv)

		k.progMu.Lock()
		k.programs[child.PID] = prog
		k.progMu.Unlock()
		logging.WithPath(logging.WithPID(logging.Default(), int(child.PID)), path).Debug("spawned program", "argc", len(argv))
		return trap.Result{EAX: uint32(child.PID)}, nil
	})

	k.traps.Register(trap.Exec, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		prog, ok := builtinPrograms[path]
		if !ok {
			e := kerrors.New(kerrors.NotExecutable, "trap.exec", "no such program: "+path)
			return trap.Result{EAX: uint32(kerrors.Errno(e))}, nil
		}
		argv, err := as.ReadArgv(req.ECX, int(req.EDX))
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		if err := k.execProcess(req.PID, argv); err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}

		k.progMu.Lock()
		k.programs[req.PID] = prog
		k.progMu.Unlock()
		return trap.Result{EAX: 0}, nil
	})
}

// execProcess replaces pid's image with an empty placeholder and
// attaches argv, the EXEC half of the builtin-program model: the
// calling process's image is replaced in place.
func (k *kernel) execProcess(pid int32, argv []string) error {
	return k.procs.Exec(pid, 0, process.Image{}, argv, 4096)
}

// runSpawnedPrograms drains the pending builtin-program table and runs
// each to completion, the tickLoop step that models "scheduler drain"
// for spawned/exec'd processes: a fresh snapshot is taken and cleared
// up front so a program enqueued mid-run waits for the next tick
// rather than racing this one.
func (k *kernel) runSpawnedPrograms() {
	k.progMu.Lock()
	pending := k.programs
	k.programs = make(map[int32]userProgram, len(pending))
	k.progMu.Unlock()

	for pid, prog := range pending {
		pcb, ok := k.procs.Get(pid)
		if !ok {
			continue
		}
		k.consoleMu.Lock()
		code := prog(pcb.Argv, os.Stdout)
		k.consoleMu.Unlock()
		k.procs.Exit(pid, code)
		k.fds.ReleaseOwnedBy(pid)
	}
}
