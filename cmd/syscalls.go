package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	kerrors "orionos/errors"
	"orionos/gui"
	"orionos/shell"
	"orionos/trap"
)

// putCString copies s plus a trailing NUL into the kernel's scratch
// address space and returns its pointer, bump-allocating forward. Each
// shell command that writes scratch defers resetScratch, which moves
// the cursor back to 4096 when that command returns, so long-running
// sessions don't exhaust it.
func (k *kernel) putCString(s string) uint32 {
	addr := k.asNext
	length := len(s) + 1
	k.as.MapRange(addr, length)
	k.as.WriteBytes(addr, append([]byte(s), 0))
	k.asNext += uint32(length)
	return addr
}

func (k *kernel) resetScratch() {
	k.asNext = 4096
}

// putArgv copies each string in args into scratch space and then
// copies the resulting pointer array itself, returning the array's
// address and length the way ReadArgv expects to find them.
func (k *kernel) putArgv(args []string) (uint32, uint32) {
	ptrs := make([]uint32, len(args))
	for i, a := range args {
		ptrs[i] = k.putCString(a)
	}
	arrPtr := k.asNext
	buf := make([]byte, len(ptrs)*4)
	for i, p := range ptrs {
		buf[i*4], buf[i*4+1], buf[i*4+2], buf[i*4+3] = byte(p), byte(p>>8), byte(p>>16), byte(p>>24)
	}
	k.as.MapRange(arrPtr, len(buf))
	k.as.WriteBytes(arrPtr, buf)
	k.asNext += uint32(len(buf))
	return arrPtr, uint32(len(ptrs))
}

// registerFSSyscalls wires LS/CAT/CHDIR/DISK/GETKEY against the
// mounted fs.Dispatcher, per the trap ABI's (EAX=number, EBX..EDX=args)
// calling convention. OPEN/READ/WRITE/CLOSE live
// in registerFDSyscalls against the descriptor table instead.
func (k *kernel) registerFSSyscalls() {
	k.traps.Register(trap.Ls, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		if k.vfs == nil {
			err := kerrors.New(kerrors.NotFound, "trap.ls", "no filesystem mounted")
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		entries, err := k.vfs.List(path)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		for _, e := range entries {
			tag := "f"
			if e.IsDir {
				tag = "d"
			}
			fmt.Printf("  %s %8d %s\n", tag, e.Size, e.Name)
		}
		return trap.Result{EAX: uint32(len(entries))}, nil
	})

	k.traps.Register(trap.Cat, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		if k.vfs == nil {
			err := kerrors.New(kerrors.NotFound, "trap.cat", "no filesystem mounted")
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		raw, err := k.vfs.ReadFile(path)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}

		// stream it through the descriptor table in chunks, exercising
		// the OPEN->READ*->CLOSE contract rather than
		// printing the whole buffer fetched above directly.
		fdNum, err := k.fds.Open(req.PID, path, raw)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		const chunk = 64
		var total int
		for {
			part, err := k.fds.Read(fdNum, chunk)
			if err != nil {
				k.fds.Close(fdNum)
				return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
			}
			if len(part) == 0 {
				break
			}
			os.Stdout.Write(part)
			total += len(part)
		}
		k.fds.Close(fdNum)
		if total == 0 || raw[total-1] != '\n' {
			fmt.Println()
		}
		return trap.Result{EAX: uint32(total)}, nil
	})

	k.traps.Register(trap.Chdir, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		path, err := as.ReadString(req.EBX, trap.MaxPathLen)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		if k.vfs == nil {
			err := kerrors.New(kerrors.NotFound, "trap.chdir", "no filesystem mounted")
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		if err := k.vfs.Chdir(path); err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		return trap.Result{EAX: 0}, nil
	})

	k.traps.Register(trap.Disk, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		slot, err := k.drives.Slot(int(req.EBX))
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		fmt.Printf("drive %d: present=%v kind=%s model=%q fstype=%s\n", req.EBX, slot.Present, slot.Kind, slot.Model, slot.FSType)
		return trap.Result{EAX: 1}, nil
	})

	k.traps.Register(trap.Getkey, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		key, err := readKeyRaw()
		if err != nil {
			wrapped := kerrors.Wrap(err, kerrors.Fault, "trap.getkey")
			return trap.Result{EAX: uint32(kerrors.Errno(wrapped))}, wrapped
		}
		return trap.Result{ECX: uint32(key)}, nil
	})
}

// registerGUISyscalls wires GUI_BIND/GUI_SEND/GUI_RECV against the
// compositor. EBX carries a pointer to a gui.Wire-shaped
// buffer on both sides, since the message's inline text and the C
// packed-size field don't fit in the three scalar registers alone.
// GUI_RECV applies the dequeued message to the compositor's window
// table itself (HandleMessage), so any real caller that drains the
// queue also drives CREATE/SET_TEXT/CLOSE; there is no separate
// drain loop racing it for the same ring.
func (k *kernel) registerGUISyscalls() {
	k.traps.Register(trap.GUIBind, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		if err := k.gui.Bind(req.PID); err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		return trap.Result{EAX: 1}, nil
	})

	k.traps.Register(trap.GUISend, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		raw, err := as.ReadBytes(req.EBX, gui.WireSize)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		msg, err := gui.DecodeMessage(raw)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
		}
		ok, err := k.gui.Send(req.PID, msg)
		if err != nil {
			return trap.Result{EAX: uint32(kerrors.Errno(err))}, nil
		}
		if !ok {
			return trap.Result{EAX: 0}, nil
		}
		return trap.Result{EAX: 1}, nil
	})

	k.traps.Register(trap.GUIRecv, func(req trap.Request, as *trap.AddressSpace) (trap.Result, error) {
		msg, ok := k.gui.Recv()
		if !ok {
			return trap.Result{EAX: 0}, nil
		}
		k.gui.HandleMessage(msg)
		if req.EBX != 0 {
			raw, err := gui.EncodeMessage(msg)
			if err != nil {
				return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
			}
			if err := as.WriteBytes(req.EBX, raw); err != nil {
				return trap.Result{EAX: uint32(kerrors.Errno(err))}, err
			}
		}
		return trap.Result{EAX: 1, ECX: uint32(msg.SenderPID)}, nil
	})
}

// readKeyRaw reads a single byte from stdin without waiting for a
// newline, toggling the terminal into raw mode for the duration of the
// read and restoring it immediately after. GETKEY is a blocking
// single-keypress read, not a line read.
func readKeyRaw() (byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var buf [1]byte
		if _, err := os.Stdin.Read(buf[:]); err != nil {
			return 0, err
		}
		return buf[0], nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return 0, err
	}
	defer term.Restore(fd, old)
	var buf [1]byte
	if _, err := os.Stdin.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// buildShellTable wires the interactive shell's command words onto the
// kernel's trap dispatcher, marshalling each argument string through
// the shell process's address space the way a real syscall's EBX
// pointer would.
func (k *kernel) buildShellTable() *shell.Table {
	t := shell.NewTable()

	dispatch := func(num uint32, ebx, ecx, edx uint32) error {
		res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: num, EBX: ebx, ECX: ecx, EDX: edx}, k.as)
		if errno := int32(res.EAX); errno < 0 {
			return fmt.Errorf("syscall %d failed: errno %d", num, errno)
		}
		return nil
	}

	listDir := func(args string) error {
		defer k.resetScratch()
		path := strings.TrimSpace(args)
		if path == "" {
			path = "."
		}
		return dispatch(trap.Ls, k.putCString(path), 0, 0)
	}
	t.Register("ls", listDir)
	t.Register("fl", listDir)

	t.Register("cat", func(args string) error {
		defer k.resetScratch()
		if strings.TrimSpace(args) == "" {
			return kerrors.New(kerrors.InvalidArgument, "shell.cat", "usage: cat <path>")
		}
		return dispatch(trap.Cat, k.putCString(args), 0, 0)
	})

	t.Register("cd", func(args string) error {
		defer k.resetScratch()
		path := strings.TrimSpace(args)
		if path == "" {
			path = "/"
		}
		return dispatch(trap.Chdir, k.putCString(path), 0, 0)
	})

	t.Register("disk", func(args string) error {
		id, err := shell.ParseDiskArg(args)
		if err != nil {
			return err
		}
		return dispatch(trap.Disk, uint32(id), 0, 0)
	})

	t.Register("write", func(args string) error {
		defer k.resetScratch()
		path, text, ok := strings.Cut(strings.TrimSpace(args), " ")
		if !ok {
			return kerrors.New(kerrors.InvalidArgument, "shell.write", "usage: write <path> <text>")
		}
		pathPtr := k.putCString(path)
		openRes := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.Open, EBX: pathPtr, ECX: OpenWrite}, k.as)
		if errno := int32(openRes.EAX); errno < 0 {
			return fmt.Errorf("open failed: errno %d", errno)
		}
		fdNum := openRes.EAX

		dataPtr := k.asNext
		k.as.MapRange(dataPtr, len(text))
		k.as.WriteBytes(dataPtr, []byte(text))
		k.asNext += uint32(len(text))

		if res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.Write, EBX: fdNum, ECX: dataPtr, EDX: uint32(len(text))}, k.as); int32(res.EAX) < 0 {
			return fmt.Errorf("write failed: errno %d", int32(res.EAX))
		}
		if res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.Close, EBX: fdNum}, k.as); int32(res.EAX) < 0 {
			return fmt.Errorf("close failed: errno %d", int32(res.EAX))
		}
		return nil
	})

	t.Register("mkdir", func(args string) error {
		path := strings.TrimSpace(args)
		if path == "" || k.vfs == nil {
			return kerrors.New(kerrors.InvalidArgument, "shell.mkdir", "usage: mkdir <path>")
		}
		return k.vfs.Mkdir(path)
	})

	t.Register("rm", func(args string) error {
		path := strings.TrimSpace(args)
		if path == "" || k.vfs == nil {
			return kerrors.New(kerrors.InvalidArgument, "shell.rm", "usage: rm <path>")
		}
		return k.vfs.Remove(path)
	})

	t.Register("ps", func(args string) error {
		for _, p := range k.procs.List() {
			fmt.Printf("  %4d %-8s %-8s fg=%v\n", p.PID, p.Name, p.State, p.Foreground)
		}
		return nil
	})

	t.Register("kill", func(args string) error {
		fields := strings.Fields(args)
		if len(fields) == 0 {
			return kerrors.New(kerrors.InvalidArgument, "shell.kill", "usage: kill <pid> [force]")
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			return kerrors.New(kerrors.InvalidArgument, "shell.kill", "pid must be numeric")
		}
		force := len(fields) > 1 && fields[1] == "force"
		result := k.procs.Kill(int32(pid), force)
		fmt.Printf("kill: %v\n", result)
		return nil
	})

	t.Register("fork", func(args string) error {
		child, err := k.procs.Fork(k.shellPID)
		if err != nil {
			return err
		}
		fmt.Printf("forked pid %d\n", child.PID)
		return nil
	})

	t.Register("spawn", func(args string) error {
		defer k.resetScratch()
		fields := strings.Fields(args)
		if len(fields) == 0 {
			return kerrors.New(kerrors.InvalidArgument, "shell.spawn", "usage: spawn <path> [args...]")
		}
		pathPtr := k.putCString(fields[0])
		argvPtr, argc := k.putArgv(fields)
		res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.Spawn, EBX: pathPtr, ECX: argvPtr, EDX: argc}, k.as)
		if errno := int32(res.EAX); errno < 0 {
			return fmt.Errorf("spawn failed: errno %d", errno)
		}
		fmt.Printf("spawned pid %d\n", res.EAX)
		return nil
	})

	t.Register("wait", func(args string) error {
		pid, err := strconv.Atoi(strings.TrimSpace(args))
		if err != nil {
			return kerrors.New(kerrors.InvalidArgument, "shell.wait", "usage: wait <pid>")
		}
		res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.Wait, EBX: uint32(pid)}, k.as)
		if res.EAX == 0xFFFFFFFF {
			fmt.Println("running")
			return nil
		}
		fmt.Printf("exited: code %d\n", int32(res.EAX))
		return nil
	})

	t.Register("guicreate", func(args string) error {
		defer k.resetScratch()
		if !k.gui.Bound() {
			if res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.GUIBind}, k.as); int32(res.EAX) < 0 {
				return fmt.Errorf("guibind failed: errno %d", int32(res.EAX))
			}
		}
		msg := gui.Message{Type: gui.MsgCreate, A: -1, B: -1, Text: strings.TrimSpace(args)}
		if err := k.guiSendAndApply(msg); err != nil {
			return err
		}
		fmt.Println("window created")
		return nil
	})

	t.Register("guiclose", func(args string) error {
		defer k.resetScratch()
		if err := k.guiSendAndApply(gui.Message{Type: gui.MsgClose}); err != nil {
			return err
		}
		fmt.Println("window closed")
		return nil
	})

	t.Register("winlist", func(args string) error {
		// drain any pending messages into the compositor before
		// listing, so CREATE/SET_TEXT/CLOSE sent by other clients are
		// reflected even if nothing else happened to call GUI_RECV yet.
		for {
			res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.GUIRecv}, k.as)
			if res.EAX == 0 {
				break
			}
		}
		for _, idx := range k.gui.ZOrder() {
			fmt.Printf("  window %d\n", idx)
		}
		return nil
	})

	t.Register("motd", func(args string) error {
		k.printMOTD()
		return nil
	})

	t.Register("clear", func(args string) error {
		clearScreen()
		return nil
	})

	t.Register("help", func(args string) error {
		fmt.Println("ls fl cd cat write mkdir rm ps kill fork spawn wait disk winlist guicreate guiclose motd clear exit")
		return nil
	})

	return t
}

// guiSendAndApply marshals msg over GUI_SEND and immediately drains it
// back out over GUI_RECV, which applies it to the compositor's window
// table. Used by shell commands that want a synchronous create/close
// instead of waiting for some other process to poll the queue.
func (k *kernel) guiSendAndApply(msg gui.Message) error {
	raw, err := gui.EncodeMessage(msg)
	if err != nil {
		return err
	}
	ptr := k.asNext
	k.as.MapRange(ptr, len(raw))
	k.as.WriteBytes(ptr, raw)
	k.asNext += uint32(len(raw))

	if res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.GUISend, EBX: ptr}, k.as); int32(res.EAX) < 0 {
		return fmt.Errorf("guisend failed: errno %d", int32(res.EAX))
	}
	res := k.traps.Dispatch(trap.Request{PID: k.shellPID, EAX: trap.GUIRecv}, k.as)
	if res.EAX == 0 {
		return kerrors.New(kerrors.Internal, "shell.gui", "message not delivered")
	}
	return nil
}
