package runner

import (
	"context"
	"sync/atomic"

	tq "github.com/azargarov/taskqueue"
)

// AnyQueue lets the router place a task on any queue.
const AnyQueue = -1

// TaskFunc is the work done by a task.
type TaskFunc func(ctx context.Context) error

// Task is a node of a Graph. It implements taskqueue.Task.
type Task struct {
	// Name identifies the task in logs and errors.
	Name string

	// Cost is the estimated execution cost, used to compute the weight.
	Cost float32

	// Resources lists the data the task touches. Tasks sharing resources
	// are scheduled back to back on a worker when possible.
	Resources []uint64

	// Queue is the preferred queue for the default router, taken modulo
	// the number of workers. The zero value is queue 0; AnyQueue spreads
	// tasks by reference.
	Queue int

	Fn TaskFunc

	// Retry overrides non-zero fields of the runner's retry policy.
	Retry *RetryPolicy

	weight  float32
	unlocks []tq.TaskRef
	deps    int32

	wait   atomic.Int32
	skip   atomic.Bool
	locked atomic.Bool
}

func (t *Task) Weight() float32 { return t.weight }
func (t *Task) TryLock() bool   { return t.locked.CompareAndSwap(false, true) }
func (t *Task) Unlock()         { t.locked.Store(false) }

// Unlocks returns the tasks depending on t.
func (t *Task) Unlocks() []tq.TaskRef { return t.unlocks }

// Skipped reports whether t was skipped in the last run because a
// dependency failed.
func (t *Task) Skipped() bool { return t.skip.Load() }

// ResourceOverlap scores two tasks by the Jaccard index of their resource
// sets. Resources are expected to be free of duplicates.
func ResourceOverlap(prev, next *Task) float32 {
	if len(prev.Resources) == 0 || len(next.Resources) == 0 {
		return 0
	}
	shared := 0
	for _, a := range prev.Resources {
		for _, b := range next.Resources {
			if a == b {
				shared++
				break
			}
		}
	}
	union := len(prev.Resources) + len(next.Resources) - shared
	return float32(shared) / float32(union)
}
