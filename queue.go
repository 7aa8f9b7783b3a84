package taskqueue

import (
	"sync"

	"go.uber.org/zap"
)

// Queue is a per-worker priority queue of task references.
//
// Any goroutine may Insert. GetTask drains the incoming buffer into the
// heap and hands out the best unlocked task; heap state is only touched
// with mu held. Queues are independent of each other.
type Queue[T Task, M MetricsPolicy] struct {
	in incoming

	mu     sync.Mutex
	heap   []TaskRef
	count  int
	window []candidate

	tasks   []T
	overlap OverlapFunc[T]
	growth  int

	metrics M
	log     *zap.Logger
}

// NewQueue creates a queue over the externally owned tasks array.
//
// overlap may be nil, in which case candidates are ranked by heap position
// only. tasks must not be reallocated while the queue is in use.
func NewQueue[T Task, M MetricsPolicy](tasks []T, overlap OverlapFunc[T], metrics M, opts Options) (*Queue[T, M], error) {
	opts.FillDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	q := &Queue[T, M]{
		in:      newIncoming(opts.IncomingSize),
		heap:    make([]TaskRef, opts.InitialSize),
		window:  make([]candidate, opts.SearchWindow),
		tasks:   tasks,
		overlap: overlap,
		growth:  opts.GrowthFactor,
		metrics: metrics,
		log:     opts.Logger,
	}
	q.metrics.SetHeapSize(len(q.heap))
	q.log.Debug("queue initialized",
		zap.Int("size", len(q.heap)),
		zap.Int("incoming", opts.IncomingSize),
		zap.Int("window", opts.SearchWindow),
	)
	return q, nil
}

// Clean releases the heap and the incoming buffer.
//
// The caller must make sure nobody uses the queue any more. Tasks still
// referenced by the queue are not touched.
func (q *Queue[T, M]) Clean() {
	q.mu.Lock()
	q.heap = nil
	q.count = 0
	q.window = nil
	q.in.slots = nil
	q.mu.Unlock()
}

// Len returns the number of tasks in the heap. Entries still sitting in
// the incoming buffer are not counted; see Pending.
func (q *Queue[T, M]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the allocated heap size.
func (q *Queue[T, M]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
