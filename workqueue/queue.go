// Package workqueue implements the bounded deferred-work ring and the
// timer-task table that IRQ handlers use to hand off slow work to a
// safe, non-interrupt context.
//
// The ring buffer shape is the same one used by io_uring-style
// submission queues: a power-of-two capacity with head/tail indices
// mutated only inside a short critical section, producers that never
// block, and a consumer that drains until empty. orionOS has no real
// IRQ-disable primitive to borrow, so the critical section here is a
// plain mutex guarding the two index fields, structurally the same
// guarantee, hosted on top of real goroutines instead of a single CPU.
package workqueue

import (
	"sync"

	kerrors "orionos/errors"
)

// DefaultCapacity is a ring capacity callers can pass to New. New does
// not apply it on its own: a capacity below 64 becomes 64.
const DefaultCapacity = 128

// Work is a deferred closure plus its opaque context. The
// infrastructure never touches Ctx; ownership stays with the producer.
type Work struct {
	Fn  func(ctx any)
	Ctx any
}

// Queue is a bounded, power-of-two-capacity FIFO ring of deferred Work.
type Queue struct {
	mu    sync.Mutex
	items []Work
	head  int // next slot to dequeue
	tail  int // next slot to enqueue
	count int
}

// New creates a Queue with the given capacity, rounded up to the next
// power of two (minimum 64).
func New(capacity int) *Queue {
	if capacity < 64 {
		capacity = 64
	}
	capacity = nextPow2(capacity)
	return &Queue{items: make([]Work, capacity)}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Enqueue appends w to the tail. It never blocks: if the ring is full
// it returns a Fault error immediately, and the caller (which may be
// running in IRQ-equivalent context) must not retry in a busy loop.
func (q *Queue) Enqueue(w Work) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.items) {
		return kerrors.New(kerrors.Fault, "workqueue.enqueue", "queue full")
	}
	q.items[q.tail] = w
	q.tail = (q.tail + 1) % len(q.items)
	q.count++
	return nil
}

// dequeue pops the head item. Returns ok=false if the queue is empty.
func (q *Queue) dequeue() (Work, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Work{}, false
	}
	w := q.items[q.head]
	q.items[q.head] = Work{}
	q.head = (q.head + 1) % len(q.items)
	q.count--
	return w, true
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap reports the ring's fixed capacity.
func (q *Queue) Cap() int {
	return len(q.items)
}

// Drain runs every closure queued at the time of the call, in FIFO
// order, with the critical section released while each closure runs.
// A closure may legally call Enqueue again; re-entrant enqueues are
// left in the ring and observed on the next Drain call.
func (q *Queue) Drain() int {
	n := 0
	for limit := q.Len(); n < limit; n++ {
		w, ok := q.dequeue()
		if !ok {
			break
		}
		if w.Fn != nil {
			w.Fn(w.Ctx)
		}
	}
	return n
}
