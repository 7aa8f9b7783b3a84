package taskqueue

// TaskRef is an index into the task array a Queue was created with.
//
// The queue never owns task storage. It only stores references, so the
// same task may transiently be referenced from more than one queue; the
// per-task lock arbitrates which consumer actually runs it.
type TaskRef int32

// NoTask is the "none" reference. It is also the empty marker used by
// the incoming buffer, so it must never be inserted.
const NoTask TaskRef = -1

// Task is the minimal contract a queue needs from an external task handle.
//
// Weight is the priority: higher weights are handed out sooner.
// TryLock must be non-blocking and exclusive; a task returned by GetTask
// is locked and the caller is responsible for calling Unlock once the task
// has finished.
type Task interface {
	Weight() float32
	TryLock() bool
	Unlock()
}

// OverlapFunc estimates how beneficial it is to run next right after prev,
// for example because they touch the same data. Higher is better.
type OverlapFunc[T Task] func(prev, next T) float32

// candidate is a selection window entry.
type candidate struct {
	ind   int
	ref   TaskRef
	score float32
}
