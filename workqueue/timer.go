package workqueue

import (
	"sort"
	"sync"

	kerrors "orionos/errors"
)

// DefaultTimerSlots is the fixed timer-task table size.
const DefaultTimerSlots = 32

// DefaultTickHz is the PIT's default frequency in ticks per second,
// used to convert millisecond delays into ticks.
const DefaultTickHz = 100

// TimerFn is a timer task's callback; it runs with interrupts
// conceptually enabled (i.e. it may call back into Schedule/Cancel).
type TimerFn func(ctx any)

// timerTask is one slot of the timer table.
type timerTask struct {
	id       int32
	due      int32
	interval int32 // 0 = one-shot
	fn       TimerFn
	ctx      any
	active   bool
}

// TimerTable is a fixed-size table of one-shot and periodic timer
// tasks. Tick arithmetic is wrap-safe: "elapsed" is computed via
// signed 32-bit subtraction.
type TimerTable struct {
	mu      sync.Mutex
	tasks   [DefaultTimerSlots]timerTask
	nextGen int32
	tickHz  int
}

// NewTimerTable creates a timer table running at the given tick
// frequency (ticks per second); hz <= 0 selects DefaultTickHz.
func NewTimerTable(hz int) *TimerTable {
	if hz <= 0 {
		hz = DefaultTickHz
	}
	return &TimerTable{tickHz: hz}
}

// MillisToTicks converts a millisecond delay into a tick count at the
// table's live frequency, rounding up and clamping to >= 1 tick.
func (t *TimerTable) MillisToTicks(ms int) int32 {
	if ms <= 0 {
		return 1
	}
	ticks := (ms*t.tickHz + 999) / 1000
	if ticks < 1 {
		ticks = 1
	}
	return int32(ticks)
}

// nextID issues a monotonically increasing id, skipping zero and any
// id currently held by an active slot.
func (t *TimerTable) nextID() int32 {
	for {
		t.nextGen++
		if t.nextGen == 0 {
			t.nextGen = 1
		}
		id := t.nextGen
		inUse := false
		for i := range t.tasks {
			if t.tasks[i].active && t.tasks[i].id == id {
				inUse = true
				break
			}
		}
		if !inUse {
			return id
		}
	}
}

// Schedule allocates a slot for fn, due at now+delayTicks, repeating
// every intervalTicks if intervalTicks != 0 (one-shot otherwise).
// Returns the new task id, or a Fault error if the table is full.
func (t *TimerTable) Schedule(now int32, delayTicks, intervalTicks int32, fn TimerFn, ctx any) (int32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.tasks {
		if t.tasks[i].active {
			continue
		}
		id := t.nextID()
		t.tasks[i] = timerTask{
			id:       id,
			due:      now + delayTicks,
			interval: intervalTicks,
			fn:       fn,
			ctx:      ctx,
			active:   true,
		}
		return id, nil
	}
	return 0, kerrors.New(kerrors.Fault, "timer.schedule", "timer table full")
}

// Cancel removes the task with the given id, if active. Returns false
// if no such active task exists.
func (t *TimerTable) Cancel(id int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.tasks {
		if t.tasks[i].active && t.tasks[i].id == id {
			t.tasks[i] = timerTask{}
			return true
		}
	}
	return false
}

// elapsed reports whether `now` is at or past `due`, using wrap-safe
// signed-difference arithmetic.
func elapsed(now, due int32) bool {
	return int32(now-due) >= 0
}

// RunDue fires every task whose due tick has passed, one at a time,
// in due-time order with ties broken by slot index. Each
// fired one-shot task is freed; periodic tasks are rescheduled from
// `now` (not from their stale due tick, avoiding drift pileup after a
// long pause). Returns the number of tasks fired.
func (t *TimerTable) RunDue(now int32) int {
	t.mu.Lock()
	type firing struct {
		slot int
		task timerTask
	}
	var due []firing
	for i := range t.tasks {
		if t.tasks[i].active && elapsed(now, t.tasks[i].due) {
			due = append(due, firing{slot: i, task: t.tasks[i]})
		}
	}
	sort.SliceStable(due, func(a, b int) bool {
		da, db := due[a].task.due, due[b].task.due
		if da != db {
			return int32(da-db) < 0
		}
		return due[a].slot < due[b].slot
	})
	for _, f := range due {
		if f.task.interval == 0 {
			t.tasks[f.slot] = timerTask{}
		} else {
			t.tasks[f.slot].due = now + f.task.interval
		}
	}
	t.mu.Unlock()

	for _, f := range due {
		if f.task.fn != nil {
			f.task.fn(f.task.ctx)
		}
	}
	return len(due)
}

// Active reports whether a task with the given id currently exists.
func (t *TimerTable) Active(id int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.tasks {
		if t.tasks[i].active && t.tasks[i].id == id {
			return true
		}
	}
	return false
}
