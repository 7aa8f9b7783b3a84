package runner

import (
	"runtime"
	"time"

	tq "github.com/azargarov/taskqueue"
)

const (
	defaultIdleInitial = 50 * time.Microsecond
	defaultIdleMax     = 2 * time.Millisecond
)

// Router picks the queue a ready task is inserted into. The result is
// taken modulo the number of queues.
type Router func(ref tq.TaskRef, t *Task) int

// defaultRouter honors Task.Queue and spreads AnyQueue tasks by reference.
func defaultRouter(ref tq.TaskRef, t *Task) int {
	if t.Queue >= 0 {
		return t.Queue
	}
	return int(ref)
}

// Options configure a Runner.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	// Workers is the number of workers, and therefore of queues.
	Workers int

	Queue tq.Options

	Retry RetryPolicy

	// IdleInitial and IdleMax bound the backoff of a worker whose queue
	// is empty.
	IdleInitial time.Duration
	IdleMax     time.Duration

	// PinWorkers locks every worker to an OS thread bound to one CPU.
	PinWorkers bool

	Router  Router
	Overlap tq.OverlapFunc[*Task]

	// Metrics returns the metrics hook for queue i.
	Metrics func(i int) tq.MetricsPolicy

	// OnTaskError receives task failures and recovered panics.
	OnTaskError func(error)

	// OnInternalError receives failures inside the runner itself.
	OnInternalError func(error)
}

func (o *Options) FillDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	o.Queue.FillDefaults()
	o.Retry.fillDefaults()
	if o.IdleInitial <= 0 {
		o.IdleInitial = defaultIdleInitial
	}
	if o.IdleMax <= 0 {
		o.IdleMax = defaultIdleMax
	}
	if o.IdleMax < o.IdleInitial {
		o.IdleMax = o.IdleInitial
	}
	if o.Router == nil {
		o.Router = defaultRouter
	}
	if o.Overlap == nil {
		o.Overlap = ResourceOverlap
	}
	if o.Metrics == nil {
		o.Metrics = func(int) tq.MetricsPolicy { return &tq.NoopMetrics{} }
	}
}
