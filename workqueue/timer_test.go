package workqueue

import "testing"

func TestScheduleOneShotFiresOnce(t *testing.T) {
	tt := NewTimerTable(100)
	fired := 0
	id, err := tt.Schedule(0, 5, 0, func(any) { fired++ }, nil)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	if n := tt.RunDue(4); n != 0 {
		t.Fatalf("RunDue(4) fired %d tasks, want 0 (not due yet)", n)
	}
	if n := tt.RunDue(5); n != 1 {
		t.Fatalf("RunDue(5) fired %d tasks, want 1", n)
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if tt.Active(id) {
		t.Error("one-shot task should be freed after firing")
	}
	if n := tt.RunDue(100); n != 0 {
		t.Errorf("RunDue after completion fired %d, want 0", n)
	}
}

func TestSchedulePeriodicReschedules(t *testing.T) {
	tt := NewTimerTable(100)
	fired := 0
	id, _ := tt.Schedule(0, 10, 10, func(any) { fired++ }, nil)

	tt.RunDue(10)
	if !tt.Active(id) {
		t.Fatal("periodic task should remain active after firing")
	}
	tt.RunDue(19)
	if fired != 1 {
		t.Errorf("fired = %d at tick 19, want 1", fired)
	}
	tt.RunDue(20)
	if fired != 2 {
		t.Errorf("fired = %d at tick 20, want 2", fired)
	}
}

func TestCancel(t *testing.T) {
	tt := NewTimerTable(100)
	id, _ := tt.Schedule(0, 5, 0, func(any) {}, nil)
	if !tt.Cancel(id) {
		t.Fatal("Cancel() should succeed for an active task")
	}
	if tt.Cancel(id) {
		t.Error("Cancel() should fail the second time")
	}
	if n := tt.RunDue(100); n != 0 {
		t.Errorf("cancelled task should not fire, RunDue fired %d", n)
	}
}

func TestScheduleTableFull(t *testing.T) {
	tt := NewTimerTable(100)
	for i := 0; i < DefaultTimerSlots; i++ {
		if _, err := tt.Schedule(0, 1000, 0, func(any) {}, nil); err != nil {
			t.Fatalf("Schedule() #%d error = %v", i, err)
		}
	}
	if _, err := tt.Schedule(0, 1000, 0, func(any) {}, nil); err == nil {
		t.Fatal("expected Fault error when timer table is full")
	}
}

func TestRunDueOrdersByDueTickThenSlot(t *testing.T) {
	tt := NewTimerTable(100)
	var order []int
	// Scheduled out of due-tick order; expect firing in due-tick order.
	tt.Schedule(0, 20, 0, func(any) { order = append(order, 20) }, nil)
	tt.Schedule(0, 5, 0, func(any) { order = append(order, 5) }, nil)
	tt.Schedule(0, 5, 0, func(any) { order = append(order, 500) }, nil) // tie, later slot
	tt.Schedule(0, 10, 0, func(any) { order = append(order, 10) }, nil)

	tt.RunDue(20)
	want := []int{5, 500, 10, 20}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d (full: %v)", i, order[i], want[i], order)
		}
	}
}

func TestMillisToTicksRoundsUpAndClamps(t *testing.T) {
	tt := NewTimerTable(100) // 10ms per tick
	cases := []struct {
		ms   int
		want int32
	}{
		{0, 1},
		{1, 1},
		{10, 1},
		{11, 2},
		{100, 10},
		{105, 11},
	}
	for _, c := range cases {
		if got := tt.MillisToTicks(c.ms); got != c.want {
			t.Errorf("MillisToTicks(%d) = %d, want %d", c.ms, got, c.want)
		}
	}
}

func TestTickWrapSafety(t *testing.T) {
	tt := NewTimerTable(100)
	nearWrap := int32(1<<31 - 3)
	fired := 0
	tt.Schedule(nearWrap, 5, 0, func(any) { fired++ }, nil) // due wraps past int32 max

	if n := tt.RunDue(nearWrap + 4); n != 0 {
		t.Fatalf("RunDue before wrap-safe due fired %d, want 0", n)
	}
	// due = nearWrap+5 wraps to a negative int32; "now" eventually wraps
	// too. elapsed() must still treat (now - due) as a signed delta.
	wrappedNow := nearWrap + 5
	if n := tt.RunDue(wrappedNow); n != 1 {
		t.Fatalf("RunDue at wrapped due tick fired %d, want 1", n)
	}
}
