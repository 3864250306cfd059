package trap

import (
	kerrors "orionos/errors"
	"orionos/process"
)

// RegisterProcessSyscalls wires EXIT/YIELD/WAIT/FORK/SPAWN_THREAD
// against a process.Table, the thinnest possible adapter between the
// trap ABI's (EAX=number, EBX..EDX=args) calling convention and the
// table's typed Go methods.
func RegisterProcessSyscalls(d *Dispatcher, procs *process.Table) {
	d.Register(Exit, func(req Request, as *AddressSpace) (Result, error) {
		err := procs.Exit(req.PID, int32(req.EBX))
		return Result{}, err
	})

	d.Register(Yield, func(req Request, as *AddressSpace) (Result, error) {
		_, pid := procs.Schedule(process.Context{}, true)
		return Result{EAX: uint32(pid)}, nil
	})

	d.Register(Wait, func(req Request, as *AddressSpace) (Result, error) {
		status, code := procs.Wait(int32(req.EBX))
		switch status {
		case process.WaitExited:
			return Result{EAX: uint32(code)}, nil
		case process.WaitRunning:
			return Result{EAX: 0xFFFFFFFF}, nil // -1: still running
		default:
			e := kerrors.New(kerrors.NotFound, "trap.wait", "no such pid")
			return Result{EAX: uint32(kerrors.Errno(e))}, nil
		}
	})

	d.Register(Fork, func(req Request, as *AddressSpace) (Result, error) {
		child, err := procs.Fork(req.PID)
		if err != nil {
			return Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		return Result{EAX: uint32(child.PID)}, nil
	})

	d.Register(SpawnThread, func(req Request, as *AddressSpace) (Result, error) {
		name := "kthread"
		if req.ECX != 0 {
			if s, err := as.ReadString(req.ECX, MaxPathLen); err == nil && s != "" {
				name = s
			}
		}
		p, err := procs.Create(name, req.EBX, true, 4096)
		if err != nil {
			return Result{EAX: 0}, err
		}
		return Result{EAX: uint32(p.PID)}, nil
	})
}
