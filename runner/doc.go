// Package runner executes a graph of dependent tasks on a set of workers,
// each owning one taskqueue.Queue.
//
// A Graph is built with AddTask and AddUnlock and prepared once per run:
// Prepare counts dependencies and gives every task a weight equal to its
// cost plus the heaviest chain of tasks it unlocks, so queues hand out the
// critical path first. Tasks with no unresolved dependency are inserted up
// front; the rest are inserted by whichever worker releases their last
// dependency.
//
// Workers execute tasks sequentially, recover panics, retry failures with
// jittered exponential backoff, and back off while their queue is empty.
// When a task fails, tasks that depend on it are skipped but still released
// so the run always drains. Run returns every task error combined.
//
// Routing a ready task to a queue is the only balancing decision made here;
// there is no work stealing between queues.
package runner
