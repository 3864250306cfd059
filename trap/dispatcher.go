package trap

import (
	"log/slog"
	"sync"
)

// Dispatcher routes syscalls by number to registered handlers. Unknown
// numbers print a diagnostic and return zero rather than faulting.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[uint32]Handler
	log      *slog.Logger
}

// NewDispatcher returns a Dispatcher with no handlers registered.
func NewDispatcher(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{handlers: make(map[uint32]Handler), log: log}
}

// Register installs h as the handler for syscall number n, replacing
// any existing registration.
func (d *Dispatcher) Register(n uint32, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[n] = h
}

// Dispatch looks up req.EAX's handler and invokes it. An unregistered
// number logs a diagnostic and returns a zero Result, matching the
// "undocumented syscall numbers print a diagnostic and return zero"
// rule instead of propagating an error to the caller.
func (d *Dispatcher) Dispatch(req Request, as *AddressSpace) Result {
	d.mu.Lock()
	h, ok := d.handlers[req.EAX]
	d.mu.Unlock()

	if !ok {
		d.log.Warn("unhandled syscall", "number", req.EAX, "pid", req.PID)
		return Result{}
	}
	res, err := h(req, as)
	if err != nil {
		d.log.Debug("syscall failed", "number", req.EAX, "pid", req.PID, "error", err)
	}
	return res
}
