package trap

import (
	"testing"

	"orionos/process"
)

func TestDispatchUnknownSyscallReturnsZero(t *testing.T) {
	d := NewDispatcher(nil)
	res := d.Dispatch(Request{EAX: 9999}, nil)
	if res.EAX != 0 || res.ECX != 0 {
		t.Errorf("res = %+v, want zero Result", res)
	}
}

func TestDispatchRoutesRegisteredHandler(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(Kprint, func(req Request, as *AddressSpace) (Result, error) {
		return Result{EAX: 42}, nil
	})
	res := d.Dispatch(Request{EAX: Kprint}, nil)
	if res.EAX != 42 {
		t.Errorf("res.EAX = %d, want 42", res.EAX)
	}
}

func TestRegisterProcessSyscallsExitAndWait(t *testing.T) {
	procs := process.NewTable()
	p, _ := procs.Create("shell", 0, false, 64)

	d := NewDispatcher(nil)
	RegisterProcessSyscalls(d, procs)

	d.Dispatch(Request{PID: p.PID, EAX: Exit, EBX: 7}, nil)
	res := d.Dispatch(Request{EAX: Wait, EBX: uint32(p.PID)}, nil)
	if res.EAX != 7 {
		t.Errorf("Wait result = %d, want 7", res.EAX)
	}

	res = d.Dispatch(Request{EAX: Wait, EBX: 999}, nil)
	if int32(res.EAX) != -2 {
		t.Errorf("Wait unknown pid = %d, want -2", int32(res.EAX))
	}
}

func TestRegisterProcessSyscallsFork(t *testing.T) {
	procs := process.NewTable()
	p, _ := procs.Create("shell", 0, false, 64)

	d := NewDispatcher(nil)
	RegisterProcessSyscalls(d, procs)

	res := d.Dispatch(Request{PID: p.PID, EAX: Fork}, nil)
	if res.EAX == 0 {
		t.Error("Fork() result = 0, want nonzero child pid")
	}
}
