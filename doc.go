// Package taskqueue provides a per-worker concurrent priority queue for
// task-based parallel runtimes.
//
// Design goals
//
// The package is designed around the following principles:
//
//   - Any goroutine can hand a ready task to any queue without taking
//     the queue lock
//   - A single lock per queue protects the heap; it is held only while
//     draining and selecting
//   - Never hand out a task another worker is currently running
//   - Prefer work related to what the worker just finished
//
// Architecture overview
//
// A Queue is composed of two parts:
//
//   1. Incoming buffer
//      A fixed-size ring of task references. Producers claim a position
//      with an atomic add and publish with a CAS. When a producer finds
//      its slot still occupied the buffer is full, and the producer
//      helps by draining the buffer under a non-blocking lock attempt.
//
//   2. Heap store
//      A binary max-heap of task references ordered by Weight, grown
//      geometrically and never shrunk. Only the lock holder touches it.
//
// Tasks are not owned by the queue. It stores TaskRef indices into an
// array that lives elsewhere and asks the tasks for their weight and for
// a non-blocking TryLock.
//
// Task selection
//
// GetTask drains the incoming buffer, then looks at a bounded prefix of
// the heap through a small sliding window. Candidates are ranked by an
// OverlapFunc against the previous task; locked candidates are replaced
// by the next heap entry. The result is approximately descending weight
// order with a locality bias, at a cost bounded by the window size rather
// than the heap size in the common case.
//
// Error handling
//
// Contention is not an error: a failed CAS or a locked task is retried or
// skipped. Conditions the queue cannot recover from (heap size overflow,
// and in debug builds a broken heap or an out-of-range reference) are
// logged and raised as panics wrapping one of the Err values. Build with
// -tags debug to enable the consistency checks.
//
// The runner subpackage builds a small task-graph engine on top of
// Queue; promstats exports MetricsPolicy counters to Prometheus.
package taskqueue
