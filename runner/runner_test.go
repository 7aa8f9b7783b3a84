package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	tq "github.com/azargarov/taskqueue"
)

var fastRetry = RetryPolicy{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}

func newTestRunner(t *testing.T, g *Graph, workers int) *Runner {
	t.Helper()

	r, err := New(g, Options{
		Workers: workers,
		Retry:   RetryPolicy{Attempts: 1},
		Queue:   tq.Options{IncomingSize: 64, InitialSize: 8},
	})
	require.NoError(t, err)
	return r
}

// layered builds width*depth tasks where every task of a layer unlocks
// every task of the next one. Each task records its completion.
func layered(width, depth int, finished *sync.Map, order *atomic.Int64) *Graph {
	g := NewGraph()
	var prev []tq.TaskRef
	for range depth {
		var cur []tq.TaskRef
		for w := range width {
			ref := tq.TaskRef(g.Len())
			g.AddTask(&Task{
				Name:      "t",
				Cost:      1,
				Resources: []uint64{uint64(w)},
				Fn: func(context.Context) error {
					finished.Store(ref, order.Add(1))
					return nil
				},
			})
			cur = append(cur, ref)
		}
		for _, p := range prev {
			for _, c := range cur {
				_ = g.AddUnlock(p, c)
			}
		}
		prev = cur
	}
	return g
}

func TestRun_RespectsDependencies(t *testing.T) {
	var finished sync.Map
	var order atomic.Int64
	const width, depth = 6, 5
	g := layered(width, depth, &finished, &order)

	r := newTestRunner(t, g, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	at := func(ref tq.TaskRef) int64 {
		v, ok := finished.Load(ref)
		require.True(t, ok, "task %d did not run", ref)
		return v.(int64)
	}
	for ref := range tq.TaskRef(g.Len()) {
		for _, dep := range g.Task(ref).Unlocks() {
			assert.Less(t, at(ref), at(dep), "task %d ran before its dependency %d", dep, ref)
		}
	}
	for i := range r.queues {
		assert.Zero(t, r.Queue(i).Len()+r.Queue(i).Pending())
	}
}

func TestRun_TwiceOnSameGraph(t *testing.T) {
	var runs atomic.Int64
	g := NewGraph()
	a := g.AddTask(&Task{Fn: func(context.Context) error { runs.Add(1); return nil }})
	b := g.AddTask(&Task{Fn: func(context.Context) error { runs.Add(1); return nil }})
	require.NoError(t, g.AddUnlock(a, b))

	r := newTestRunner(t, g, 2)
	require.NoError(t, r.Run(context.Background()))
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, int64(4), runs.Load())
}

func TestRun_EmptyGraph(t *testing.T) {
	r := newTestRunner(t, NewGraph(), 2)
	assert.NoError(t, r.Run(context.Background()))
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	boom := errors.New("boom")
	var ranChild, ranOther atomic.Bool

	g := NewGraph()
	bad := g.AddTask(&Task{Name: "bad", Fn: func(context.Context) error { return boom }})
	child := g.AddTask(&Task{Name: "child", Fn: func(context.Context) error { ranChild.Store(true); return nil }})
	grandchild := g.AddTask(&Task{Name: "grandchild", Fn: func(context.Context) error { ranChild.Store(true); return nil }})
	g.AddTask(&Task{Name: "other", Fn: func(context.Context) error { ranOther.Store(true); return nil }})
	require.NoError(t, g.AddUnlock(bad, child))
	require.NoError(t, g.AddUnlock(child, grandchild))

	var handled atomic.Int32
	r, err := New(g, Options{
		Workers:     2,
		OnTaskError: func(error) { handled.Add(1) },
	})
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, ranChild.Load(), "dependent of a failed task ran")
	assert.True(t, ranOther.Load())
	assert.True(t, g.Task(child).Skipped())
	assert.True(t, g.Task(grandchild).Skipped())
	assert.Equal(t, int32(1), handled.Load())
}

func TestRun_RetryThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	g := NewGraph()
	g.AddTask(&Task{
		Name:  "flaky",
		Retry: &fastRetry,
		Fn: func(context.Context) error {
			if attempts.Add(1) < 3 {
				return errors.New("fail")
			}
			return nil
		},
	})

	r := newTestRunner(t, g, 1)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRun_PanicRecovered(t *testing.T) {
	var after atomic.Bool
	g := NewGraph()
	g.AddTask(&Task{Name: "panics", Fn: func(context.Context) error { panic("boom") }})
	g.AddTask(&Task{Name: "after", Fn: func(context.Context) error { after.Store(true); return nil }})

	r := newTestRunner(t, g, 1)
	err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrTaskPanic)
	assert.True(t, after.Load(), "worker stopped after a panic")
}

func TestRun_ErrorsCombined(t *testing.T) {
	g := NewGraph()
	for range 3 {
		g.AddTask(&Task{Fn: func(context.Context) error { return errors.New("fail") }})
	}
	r := newTestRunner(t, g, 2)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}

func TestRun_Cancel(t *testing.T) {
	started := make(chan struct{})
	g := NewGraph()
	blocker := g.AddTask(&Task{Name: "blocker", Fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})
	never := g.AddTask(&Task{Name: "never", Fn: func(context.Context) error { return nil }})
	require.NoError(t, g.AddUnlock(blocker, never))

	r := newTestRunner(t, g, 2)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("blocker did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	for i := range r.queues {
		assert.Zero(t, r.Queue(i).Len()+r.Queue(i).Pending(), "queue %d not flushed", i)
	}
}

func TestRun_RouterAndMetrics(t *testing.T) {
	tests := []struct {
		name   string
		queue  int
		router Router
		want   [2]uint64
	}{
		{name: "custom router", queue: AnyQueue, router: func(tq.TaskRef, *Task) int { return 1 }, want: [2]uint64{0, 10}},
		{name: "preferred queue", queue: 1, want: [2]uint64{0, 10}},
		{name: "preferred queue modulo workers", queue: 2, want: [2]uint64{10, 0}},
		{name: "any queue", queue: AnyQueue, want: [2]uint64{5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			for range 10 {
				g.AddTask(&Task{Queue: tt.queue, Fn: func(context.Context) error { return nil }})
			}
			metrics := []*tq.AtomicMetrics{{}, {}}
			r, err := New(g, Options{
				Workers: 2,
				Router:  tt.router,
				Metrics: func(i int) tq.MetricsPolicy { return metrics[i] },
			})
			require.NoError(t, err)
			require.NoError(t, r.Run(context.Background()))

			for i, m := range metrics {
				assert.Equal(t, tt.want[i], m.Snapshot().Inserted, "inserted into queue %d", i)
				assert.Equal(t, tt.want[i], m.Snapshot().Dispatched, "dispatched from queue %d", i)
			}
		})
	}
}

func TestNew_InvalidQueueOptions(t *testing.T) {
	_, err := New(NewGraph(), Options{Queue: tq.Options{GrowthFactor: 1}})
	assert.ErrorIs(t, err, tq.ErrInvalidOptions)
}

func TestRun_CancelDuringRetryReportedOnce(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	var handled atomic.Int32

	g := NewGraph()
	g.AddTask(&Task{
		Name:  "flaky",
		Retry: &RetryPolicy{Attempts: 3, Initial: time.Second, Max: time.Second},
		Fn: func(context.Context) error {
			once.Do(func() { close(started) })
			return errors.New("fail")
		},
	})
	r, err := New(g, Options{Workers: 1, OnTaskError: func(error) { handled.Add(1) }})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
		assert.Len(t, multierr.Errors(err), 1)
		assert.Zero(t, handled.Load(), "cancellation reported as a task error")
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
