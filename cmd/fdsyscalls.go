package cmd

import (
	"os"

	kerrors "orionos/errors"
	"orionos/fd"
	"orionos/logging"
	"orionos/trap"
)

// OpenRead and OpenWrite are the two OPEN mode values the ECX argument
// carries: a read-mode open seeds the descriptor's cache
// from the backing file, a write-mode open starts it empty and flushes
// the accumulated buffer back to the filesystem on CLOSE.
const (
	OpenRead  = 0
	OpenWrite = 1
)

// registerFDSyscalls wires OPEN/READ/WRITE/CLOSE against the
// descriptor table: an open-then-stream-then-close contract in place
// of the whole-buffer path-based reads/writes the FS syscalls used
// before this table existed.
func (k *kernel) registerFDSyscalls() {
	k.traps.Register(trap.Open, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}

		var data []byte
		if path != fd.ConsolePath {
			switch req.ECX {
			case OpenRead:
				if k.vfs == nil {
					e := kerrors.New(kerrors.NotFound, "trap.open", "no filesystem mounted")
					return trap.Result{EAX: uint32(kerrors.Errno(e))}, nil
				}
				data, err = k.vfs.ReadFile(path)
				if err != nil {
					return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
				}
			case OpenWrite:
				// starts empty; CLOSE flushes whatever was written.
			default:
				e := kerrors.New(kerrors.InvalidArgument, "trap.open", "unknown open mode")
				return trap.Result{EAX: uint32(kerrors.Errno(e))}, nil
			}
		}

		fdNum, err := k.fds.Open(req.PID, path, data)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		return trap.Result{EAX: uint32(fdNum)}, nil
	})

	k.traps.Register(trap.Read, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		fdNum, max, bufPtr := int(req.EBX), int(req.ECX), req.EDX

		slot, ok := k.fds.Get(fdNum)
		if !ok {
			e := kerrors.New(kerrors.InvalidArgument, "trap.read", "bad descriptor")
			return trap.Result{EAX: uint32(kerrors.Errno(e))}, nil
		}

		if slot.Console {
			key, err := readKeyRaw()
			if err != nil {
				wrapped := kerrors.Wrap(err, kerrors.Fault, "trap.read")
				return trap.Result{EAX: uint32(kerrors.Errno(wrapped))}, wrapped
			}
			if err := as.WriteBytes(bufPtr, []byte{key}); err != nil {
				return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
			}
			return trap.Result{EAX: 1}, nil
		}

		data, err := k.fds.Read(fdNum, max)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		if len(data) == 0 {
			return trap.Result{EAX: 0}, nil
		}
		if err := as.WriteBytes(bufPtr, data); err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		return trap.Result{EAX: uint32(len(data))}, nil
	})

	k.traps.Register(trap.Write, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		fdNum, bufPtr, length := int(req.EBX), req.ECX, int(req.EDX)

		slot, ok := k.fds.Get(fdNum)
		if !ok {
			e := kerrors.New(kerrors.InvalidArgument, "trap.write", "bad descriptor")
			return trap.Result{EAX: uint32(kerrors.Errno(e))}, nil
		}
		data, err := as.ReadBytes(bufPtr, length)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}

		if slot.Console {
			k.consoleMu.Lock()
			os.Stdout.Write(data)
			k.consoleMu.Unlock()
			return trap.Result{EAX: uint32(len(data))}, nil
		}

		n, err := k.fds.Write(fdNum, data)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		return trap.Result{EAX: uint32(n)}, nil
	})

	k.traps.Register(trap.Close, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		slot, err := k.fds.Close(int(req.EBX))
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		if slot.Dirty && !slot.Console && k.vfs != nil {
			if err := k.vfs.WriteFile(slot.Path, slot.Data, nil); err != nil {
				return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
			}
		}
		return trap.Result{EAX: 0}, nil
	})
}

// registerExitHook re-registers EXIT over trap.RegisterProcessSyscalls'
// handler so a process's open descriptors are released the instant it
// exits, something process.Table itself cannot do since it has no
// knowledge of the fd package.
func (k *kernel) registerExitHook() {
	k.traps.Register(trap.Exit, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		err := k.procs.Exit(req.PID, int32(req.EBX))
		k.fds.ReleaseOwnedBy(req.PID)
		if err == nil {
			logging.WithPID(logging.Default(), int(req.PID)).Debug("process exited", "exit_code", int32(req.EBX))
		}
		return trap.Result{}, err
	})
}
