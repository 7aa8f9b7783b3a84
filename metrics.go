package taskqueue

import (
	"sync/atomic"
)

// MetricsPolicy defines hooks used by a Queue to report insertion,
// draining and dispatch activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking: producers
// call IncInserted and IncCASMiss outside the queue lock.
type MetricsPolicy interface {
	// IncInserted counts a task staged in the incoming buffer.
	IncInserted()

	// IncCASMiss counts a producer finding its incoming slot still occupied.
	IncCASMiss()

	// IncDrainAssist counts a producer draining the buffer itself.
	IncDrainAssist()

	// AddDrained counts tasks moved from the incoming buffer into the heap.
	AddDrained(n int64)

	// IncDispatched counts a task handed out by GetTask.
	IncDispatched()

	// IncTaskLockMiss counts a candidate skipped because its lock was taken.
	IncTaskLockMiss()

	// IncQueueLockMiss counts a non-blocking GetTask that found the queue busy.
	IncQueueLockMiss()

	// SetHeapSize reports the heap capacity after construction or growth.
	SetHeapSize(n int)
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	inserted atomic.Uint64
	casMiss  atomic.Uint64
	assists  atomic.Uint64

	_ cachePad // producers above, consumer below

	drained       atomic.Uint64
	dispatched    atomic.Uint64
	taskLockMiss  atomic.Uint64
	queueLockMiss atomic.Uint64
	heapSize      atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of AtomicMetrics.
type MetricsSnapshot struct {
	Inserted      uint64
	CASMiss       uint64
	DrainAssists  uint64
	Drained       uint64
	Dispatched    uint64
	TaskLockMiss  uint64
	QueueLockMiss uint64
	HeapSize      int64
}

func (m *AtomicMetrics) IncInserted()       { m.inserted.Add(1) }
func (m *AtomicMetrics) IncCASMiss()        { m.casMiss.Add(1) }
func (m *AtomicMetrics) IncDrainAssist()    { m.assists.Add(1) }
func (m *AtomicMetrics) AddDrained(n int64) { m.drained.Add(uint64(n)) }
func (m *AtomicMetrics) IncDispatched()     { m.dispatched.Add(1) }
func (m *AtomicMetrics) IncTaskLockMiss()   { m.taskLockMiss.Add(1) }
func (m *AtomicMetrics) IncQueueLockMiss()  { m.queueLockMiss.Add(1) }
func (m *AtomicMetrics) SetHeapSize(n int)  { m.heapSize.Store(int64(n)) }

// Snapshot returns the current counter values.
// The fields are loaded one by one, so the snapshot is not atomic as a whole.
func (m *AtomicMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Inserted:      m.inserted.Load(),
		CASMiss:       m.casMiss.Load(),
		DrainAssists:  m.assists.Load(),
		Drained:       m.drained.Load(),
		Dispatched:    m.dispatched.Load(),
		TaskLockMiss:  m.taskLockMiss.Load(),
		QueueLockMiss: m.queueLockMiss.Load(),
		HeapSize:      m.heapSize.Load(),
	}
}

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
//
// It can be used when metrics collection is disabled and
// zero overhead is desired.
type NoopMetrics struct{}

func (m *NoopMetrics) IncInserted()       {}
func (m *NoopMetrics) IncCASMiss()        {}
func (m *NoopMetrics) IncDrainAssist()    {}
func (m *NoopMetrics) AddDrained(n int64) {}
func (m *NoopMetrics) IncDispatched()     {}
func (m *NoopMetrics) IncTaskLockMiss()   {}
func (m *NoopMetrics) IncQueueLockMiss()  {}
func (m *NoopMetrics) SetHeapSize(n int)  {}
