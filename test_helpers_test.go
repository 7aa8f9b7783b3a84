package taskqueue

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

type testTask struct {
	w      float32
	key    int
	locked atomic.Bool
}

func (t *testTask) Weight() float32 { return t.w }
func (t *testTask) TryLock() bool   { return t.locked.CompareAndSwap(false, true) }
func (t *testTask) Unlock()         { t.locked.Store(false) }

func newTasks(weights ...float32) []*testTask {
	tasks := make([]*testTask, len(weights))
	for i, w := range weights {
		tasks[i] = &testTask{w: w}
	}
	return tasks
}

func keyOverlap(prev, next *testTask) float32 {
	if prev.key == next.key {
		return 1
	}
	return 0
}

func newTestQueue(t testing.TB, tasks []*testTask, opts Options) (*Queue[*testTask, *AtomicMetrics], *AtomicMetrics) {
	t.Helper()

	m := &AtomicMetrics{}
	q, err := NewQueue(tasks, keyOverlap, m, opts)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return q, m
}

func (q *Queue[T, M]) drainForTest() {
	q.mu.Lock()
	q.drainLocked()
	q.mu.Unlock()
}

func mustHeapOrdered[T Task, M MetricsPolicy](t testing.TB, q *Queue[T, M]) {
	t.Helper()

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.verifyHeap(); err != nil {
		t.Fatalf("heap check: %v (count=%d)", err, q.count)
	}
}

// popWeights empties q with non-overlapping GetTask calls and returns the
// weights in dispatch order.
func popWeights(t testing.TB, q *Queue[*testTask, *AtomicMetrics]) []float32 {
	t.Helper()

	var got []float32
	for {
		ref, ok := q.GetTask(NoTask, true)
		if !ok {
			return got
		}
		got = append(got, q.tasks[ref].Weight())
		mustHeapOrdered(t, q)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	t.Fatal("condition not satisfied before timeout")
}
