package workqueue

import "testing"

func TestEnqueueDrainFIFO(t *testing.T) {
	q := New(8)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if err := q.Enqueue(Work{Fn: func(any) { order = append(order, i) }}); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}
	if n := q.Drain(); n != 5 {
		t.Fatalf("Drain() = %d, want 5", n)
	}
	for i, v := range order {
		if v != i {
			t.Errorf("order[%d] = %d, want %d", i, v, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestEnqueueOverflowReturnsFault(t *testing.T) {
	q := New(0) // rounds up to minimum 64
	if q.Cap() != 64 {
		t.Fatalf("Cap() = %d, want 64 (minimum)", q.Cap())
	}
	for i := 0; i < q.Cap(); i++ {
		if err := q.Enqueue(Work{Fn: func(any) {}}); err != nil {
			t.Fatalf("unexpected overflow at %d: %v", i, err)
		}
	}
	if err := q.Enqueue(Work{Fn: func(any) {}}); err == nil {
		t.Fatal("expected overflow error when ring is full")
	}
}

func TestReentrantEnqueueObservedNextDrain(t *testing.T) {
	q := New(8)
	var ran []string
	q.Enqueue(Work{Fn: func(any) {
		ran = append(ran, "first")
		q.Enqueue(Work{Fn: func(any) { ran = append(ran, "reentrant") }})
	}})

	if n := q.Drain(); n != 1 {
		t.Fatalf("first Drain() = %d, want 1 (reentrant enqueue must not run yet)", n)
	}
	if len(ran) != 1 || ran[0] != "first" {
		t.Fatalf("ran = %v, want [first]", ran)
	}

	if n := q.Drain(); n != 1 {
		t.Fatalf("second Drain() = %d, want 1", n)
	}
	if len(ran) != 2 || ran[1] != "reentrant" {
		t.Fatalf("ran = %v, want [first reentrant]", ran)
	}
}

func TestRescanCoalescing(t *testing.T) {
	q := New(8)
	runs := 0
	var coalescer *RescanCoalescer
	coalescer = NewRescanCoalescer(q, func() {
		runs++
		if runs == 1 {
			// Simulate two more hotplug interrupts arriving while this
			// run is in flight.
			coalescer.RequestRescan()
			coalescer.RequestRescan()
		}
	})

	if err := coalescer.RequestRescan(); err != nil {
		t.Fatalf("RequestRescan() error = %v", err)
	}
	q.Drain()

	if runs != 2 {
		t.Errorf("runs = %d, want 2 (one initial + exactly one more for coalesced requests)", runs)
	}
	if coalescer.Pending() {
		t.Error("rescan_pending should be false after the work completes")
	}
}
