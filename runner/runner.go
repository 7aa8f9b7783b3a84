package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	tq "github.com/azargarov/taskqueue"
)

// ErrTaskPanic wraps a panic recovered from a task function.
var ErrTaskPanic = errors.New("runner: task panicked")

type queue = tq.Queue[*Task, tq.MetricsPolicy]

// Runner executes a Graph with one queue per worker.
//
// A Runner is not safe for concurrent Run calls.
type Runner struct {
	opts   Options
	graph  *Graph
	queues []*queue

	runID     string
	remaining atomic.Int64
	done      chan struct{}

	errMu sync.Mutex
	errs  error
}

// New creates a runner for g. Tasks must all be added before New is
// called; the graph's task slice is shared with the queues.
func New(g *Graph, opts Options) (*Runner, error) {
	opts.FillDefaults()

	r := &Runner{
		opts:   opts,
		graph:  g,
		queues: make([]*queue, opts.Workers),
	}
	for i := range r.queues {
		q, err := tq.NewQueue[*Task, tq.MetricsPolicy](g.tasks, opts.Overlap, opts.Metrics(i), opts.Queue)
		if err != nil {
			return nil, fmt.Errorf("runner: queue %d: %w", i, err)
		}
		r.queues[i] = q
	}
	return r, nil
}

// Queue returns the queue consumed by worker i.
func (r *Runner) Queue(i int) *tq.Queue[*Task, tq.MetricsPolicy] { return r.queues[i] }

// Run prepares the graph and executes it until every task has finished or
// been skipped, or ctx is done.
//
// The returned error combines the context error, if any, with every task
// error of the run.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.graph.Prepare(); err != nil {
		return err
	}

	r.runID = ulid.Make().String()
	logger := lg.FromContext(ctx).With(lg.String("run", r.runID))
	tasks := r.graph.tasks

	r.errs = nil
	r.done = make(chan struct{})
	r.remaining.Store(int64(len(tasks)))
	if len(tasks) == 0 {
		return nil
	}

	ready := 0
	for i, t := range tasks {
		if t.wait.Load() == 0 {
			r.enqueue(tq.TaskRef(i))
			ready++
		}
	}
	logger.Info("Run started",
		lg.Int("tasks", len(tasks)),
		lg.Int("ready", ready),
		lg.Int("workers", len(r.queues)),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := range r.queues {
		g.Go(func() error { return r.worker(gctx, i) })
	}
	err := g.Wait()
	if err != nil {
		r.flush()
		logger.Warn("Run canceled",
			lg.Any("remaining", r.remaining.Load()),
			lg.Any("reason", err),
		)
	} else {
		logger.Info("Run finished", lg.Int("tasks", len(tasks)))
	}

	r.errMu.Lock()
	defer r.errMu.Unlock()
	return multierr.Append(err, r.errs)
}

// enqueue inserts ref into the queue chosen by the router.
func (r *Runner) enqueue(ref tq.TaskRef) {
	n := len(r.queues)
	i := r.opts.Router(ref, r.graph.tasks[ref]) % n
	if i < 0 {
		i += n
	}
	r.queues[i].Insert(ref)
}

// flush empties all queues after an aborted run.
func (r *Runner) flush() {
	for _, q := range r.queues {
		for {
			ref, ok := q.GetTask(tq.NoTask, true)
			if !ok {
				break
			}
			r.graph.tasks[ref].Unlock()
		}
	}
}

func (r *Runner) worker(ctx context.Context, id int) error {
	if r.opts.PinWorkers {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := PinToCPU(id % runtime.NumCPU()); err != nil {
			r.reportInternalError(err)
		}
	}

	q := r.queues[id]
	prev := tq.NoTask
	idle := false
	bo := boff.New(r.opts.IdleInitial, r.opts.IdleMax, time.Now().UnixNano()+int64(id))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.remaining.Load() == 0 {
			return nil
		}

		ref, ok := q.GetTask(prev, true)
		if !ok {
			if !idle {
				bo = boff.New(r.opts.IdleInitial, r.opts.IdleMax, time.Now().UnixNano()+int64(id))
				idle = true
			}
			timer := time.NewTimer(bo.Next())
			select {
			case <-timer.C:
			case <-r.done:
				timer.Stop()
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			continue
		}

		idle = false
		r.execute(ctx, ref)
		prev = ref
	}
}

// execute runs the claimed task, releases its dependents and unlocks it.
func (r *Runner) execute(ctx context.Context, ref tq.TaskRef) {
	t := r.graph.tasks[ref]

	failed := t.skip.Load()
	if failed {
		lg.FromContext(ctx).Warn("Task skipped after failed dependency",
			lg.String("run", r.runID),
			lg.String("task", t.Name),
		)
	} else if t.Fn != nil {
		if err := r.runTask(ctx, t); err != nil {
			failed = true
			// Cancellation is returned once, by Run.
			if !errors.Is(err, ctx.Err()) {
				r.reportTaskError(fmt.Errorf("runner: task %q: %w", t.Name, err))
			}
		}
	}

	for _, dep := range t.unlocks {
		d := r.graph.tasks[dep]
		if failed {
			d.skip.Store(true)
		}
		if d.wait.Add(-1) == 0 {
			r.enqueue(dep)
		}
	}
	t.Unlock()

	if r.remaining.Add(-1) == 0 {
		close(r.done)
	}
}

// runTask calls the task function, retrying with backoff per the retry policy.
func (r *Runner) runTask(ctx context.Context, t *Task) error {
	logger := lg.FromContext(ctx).With(lg.String("run", r.runID), lg.String("task", t.Name))
	pol := r.opts.Retry.merge(t.Retry)
	bo := boff.New(pol.Initial, pol.Max, time.Now().UnixNano())

	for attempt := 1; ; attempt++ {
		err := call(ctx, t)
		if err == nil {
			return nil
		}
		if attempt >= pol.Attempts {
			logger.Error("Task failed",
				lg.Int("attempt", attempt),
				lg.Any("error", err),
			)
			return err
		}

		delay := bo.Next()
		logger.Warn("task attempt failed; backing off",
			lg.Int("attempt", attempt),
			lg.String("sleep", delay.String()),
			lg.Any("error", err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func call(ctx context.Context, t *Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, rec)
		}
	}()
	return t.Fn(ctx)
}
