package taskqueue

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// cachePad is used to prevent false sharing between hot fields.
type cachePad = cpu.CacheLinePad

// emptySlot marks an incoming slot that holds no task.
const emptySlot = int32(NoTask)

// incoming is a fixed-size ring where any goroutine can stage a ready task
// without taking the queue lock.
//
// Producers claim a position with nextWrite and publish into the slot with
// a CAS from emptySlot. The consumer side only runs under the queue lock: it
// reads slots in nextRead order and swaps them back to emptySlot. An entry
// is therefore alive from a successful CAS until the drain that moves it
// into the heap.
type incoming struct {
	// nextWrite is advanced by producers.
	nextWrite atomic.Uint64
	_         cachePad

	// nextRead is advanced by the lock holder.
	nextRead atomic.Uint64
	_        cachePad

	// pending counts staged entries not yet merged into the heap. The
	// drainer may decrement before the producer increments, so the raw
	// value can dip below zero for a moment.
	pending atomic.Int64
	_       cachePad

	slots    []atomic.Int32
	capacity uint64
}

func newIncoming(capacity int) incoming {
	in := incoming{
		slots:    make([]atomic.Int32, capacity),
		capacity: uint64(capacity),
	}
	for i := range in.slots {
		in.slots[i].Store(emptySlot)
	}
	return in
}

// Insert stages ref for this queue. It is safe for concurrent producers and
// never takes the queue lock except to help drain.
//
// If the claimed slot still holds an entry from a previous lap, the buffer
// is full. Instead of spinning, the producer tries to take the queue lock
// and drain the buffer itself, then retries; if someone else holds the lock,
// that holder is draining already and the producer just yields.
func (q *Queue[T, M]) Insert(ref TaskRef) {
	q.checkRef(ref)

	slot := &q.in.slots[(q.in.nextWrite.Add(1)-1)%q.in.capacity]
	for !slot.CompareAndSwap(emptySlot, int32(ref)) {
		q.metrics.IncCASMiss()
		if q.mu.TryLock() {
			q.drainLocked()
			q.mu.Unlock()
			q.metrics.IncDrainAssist()
			continue
		}
		runtime.Gosched()
	}

	q.in.pending.Add(1)
	q.metrics.IncInserted()
}

// drainLocked moves every staged entry into the heap, stopping at the first
// empty slot. q.mu must be held.
func (q *Queue[T, M]) drainLocked() {
	var n int64
	for {
		slot := &q.in.slots[q.in.nextRead.Load()%q.in.capacity]
		if slot.Load() == emptySlot {
			break
		}
		ref := TaskRef(slot.Swap(emptySlot))
		q.in.nextRead.Add(1)
		q.in.pending.Add(-1)

		q.push(ref)
		q.debugCheckHeap()
		n++
	}
	if n > 0 {
		q.metrics.AddDrained(n)
	}
}

// Pending returns the approximate number of tasks staged in the incoming
// buffer and not yet merged into the heap.
func (q *Queue[T, M]) Pending() int {
	return int(max(q.in.pending.Load(), 0))
}

// IncomingCap returns the capacity of the incoming buffer.
func (q *Queue[T, M]) IncomingCap() int {
	return int(q.in.capacity)
}
