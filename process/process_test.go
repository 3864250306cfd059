package process

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCreateAssignsReadyState(t *testing.T) {
	tbl := NewTable()
	p, err := tbl.Create("init", 0x1000, true, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.State != Ready || p.PID == 0 {
		t.Errorf("p = %+v", p)
	}
}

func TestCreateTableFull(t *testing.T) {
	tbl := NewTable()
	for i := 0; i < MaxProcs; i++ {
		if _, err := tbl.Create("p", 0, false, 16); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
	}
	if _, err := tbl.Create("overflow", 0, false, 16); err == nil {
		t.Fatal("expected OutOfMemory error when table is full")
	}
}

func TestForkSplitsReturnValue(t *testing.T) {
	tbl := NewTable()
	parent, _ := tbl.Create("sh", 0, false, 64)
	parent.Ctx.EAX = 0xDEAD

	child, err := tbl.Fork(parent.PID)
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if child.Ctx.EAX != 0 {
		t.Errorf("child eax = %#x, want 0", child.Ctx.EAX)
	}
	gotParent, _ := tbl.Get(parent.PID)
	if gotParent.Ctx.EAX != uint32(child.PID) {
		t.Errorf("parent eax = %d, want child pid %d", gotParent.Ctx.EAX, child.PID)
	}
}

func TestExecReplacesImageAndWakesVforkParent(t *testing.T) {
	tbl := NewTable()
	parent, _ := tbl.Create("sh", 0, false, 64)
	child, _ := tbl.Fork(parent.PID)

	tbl.mu.Lock()
	i := tbl.slotOf(parent.PID)
	tbl.procs[i].State = Blocked
	j := tbl.slotOf(child.PID)
	tbl.procs[j].VforkParent = parent.PID
	tbl.mu.Unlock()

	if err := tbl.Exec(child.PID, 0x2000, Image{Base: 0x2000, Size: 4096}, []string{"a"}, 4096); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	got, _ := tbl.Get(child.PID)
	if got.Entry != 0x2000 || got.State != Ready {
		t.Errorf("child after exec = %+v", got)
	}
	parentAfter, _ := tbl.Get(parent.PID)
	if parentAfter.State != Ready {
		t.Errorf("vfork parent state = %v, want Ready", parentAfter.State)
	}
}

func TestWaitStates(t *testing.T) {
	tbl := NewTable()
	p, _ := tbl.Create("child", 0, false, 16)

	if s, _ := tbl.Wait(p.PID); s != WaitRunning {
		t.Errorf("Wait() before exit = %v, want WaitRunning", s)
	}
	tbl.Exit(p.PID, 7)
	if s, code := tbl.Wait(p.PID); s != WaitExited || code != 7 {
		t.Errorf("Wait() after exit = %v, %d, want Exited, 7", s, code)
	}
	if s, _ := tbl.Wait(999); s != WaitNoSuch {
		t.Errorf("Wait() unknown pid = %v, want WaitNoSuch", s)
	}
}

func TestReapFreesSlot(t *testing.T) {
	tbl := NewTable()
	p, _ := tbl.Create("child", 0, false, 16)
	tbl.Exit(p.PID, 3)

	code, err := tbl.Reap(p.PID)
	if err != nil || code != 3 {
		t.Fatalf("Reap() = %d, %v, want 3, nil", code, err)
	}
	if _, ok := tbl.Get(p.PID); ok {
		t.Error("pid should be gone after reap")
	}
}

func TestKillSemantics(t *testing.T) {
	tbl := NewTable()
	kernelProc, _ := tbl.Create("reaper", 0, true, 16)
	userProc, _ := tbl.Create("shell", 0, false, 16)

	if r := tbl.Kill(kernelProc.PID, false); r != KillRequiresForce {
		t.Errorf("Kill(kernel, force=false) = %v, want KillRequiresForce", r)
	}
	if r := tbl.Kill(kernelProc.PID, true); r != KillOK {
		t.Errorf("Kill(kernel, force=true) = %v, want KillOK", r)
	}
	if r := tbl.Kill(kernelProc.PID, true); r != KillAlreadyExited {
		t.Errorf("Kill(already-exited) = %v, want KillAlreadyExited", r)
	}
	if r := tbl.Kill(userProc.PID, false); r != KillOK {
		t.Errorf("Kill(user) = %v, want KillOK", r)
	}
	if r := tbl.Kill(-1, false); r != KillBadArg {
		t.Errorf("Kill(-1) = %v, want KillBadArg", r)
	}
	if r := tbl.Kill(12345, false); r != KillNoSuch {
		t.Errorf("Kill(unknown) = %v, want KillNoSuch", r)
	}
}

func TestScheduleRoundRobin(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Create("a", 0, false, 16)
	b, _ := tbl.Create("b", 0, false, 16)

	_, pid1 := tbl.Schedule(Context{}, false)
	_, pid2 := tbl.Schedule(Context{}, false)

	if pid1 != a.PID && pid1 != b.PID {
		t.Fatalf("pid1 = %d, want a or b pid", pid1)
	}
	if pid2 == pid1 {
		t.Errorf("Schedule should round-robin to a different process, got %d twice", pid1)
	}
}

func TestScheduleKeepsCurrentWhenNoneReadyAndNotYielding(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Create("solo", 0, false, 16)
	tbl.Schedule(Context{}, false) // a becomes current

	_, pid := tbl.Schedule(Context{EAX: 99}, false)
	if pid != a.PID {
		t.Errorf("Schedule kept pid = %d, want %d", pid, a.PID)
	}
}

// TestScheduleRestoresExactContextOnReturn checks that Schedule hands
// a descheduled process back its exact saved register frame the next
// time the scheduler cycles around to it, by snapshotting the Context
// the scheduler produces against the one that was saved.
func TestScheduleRestoresExactContextOnReturn(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Create("a", 0, false, 16)
	b, _ := tbl.Create("b", 0, false, 16)
	_, _ = a, b

	tbl.Schedule(Context{}, false) // a becomes current

	saved := Context{EAX: 0x11, EBX: 0x22, EIP: 0x3000, EFlags: 0x202}
	ctx, pid := tbl.Schedule(saved, false) // a's frame saved, b scheduled
	if pid != b.PID {
		t.Fatalf("pid = %d, want b.PID %d", pid, b.PID)
	}
	if diff := cmp.Diff(Context{}, ctx); diff != "" {
		t.Errorf("b's fresh context mismatch (-want +got):\n%s", diff)
	}

	next, pid2 := tbl.Schedule(Context{}, false) // cycles back to a
	if pid2 != a.PID {
		t.Fatalf("pid2 = %d, want a.PID %d", pid2, a.PID)
	}
	if diff := cmp.Diff(saved, next); diff != "" {
		t.Errorf("a's restored context mismatch (-want +got):\n%s", diff)
	}
}

func TestSetForegroundAtMostOne(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Create("a", 0, false, 16)
	b, _ := tbl.Create("b", 0, false, 16)

	if !tbl.SetForeground(a.PID) {
		t.Fatal("first SetForeground should succeed")
	}
	if tbl.SetForeground(b.PID) {
		t.Error("second SetForeground should fail while a is still foreground and not exited")
	}
	tbl.Exit(a.PID, 0)
	if !tbl.SetForeground(b.PID) {
		t.Error("SetForeground should succeed after the prior foreground exited")
	}
}
