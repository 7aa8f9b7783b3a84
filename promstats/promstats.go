// Package promstats exports taskqueue metrics to Prometheus.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	tq "github.com/azargarov/taskqueue"
)

const namespace = "taskqueue"

// Collectors holds the metric vectors shared by all queues of a process.
// Every queue gets its own label value through ForQueue.
type Collectors struct {
	inserted      *prometheus.CounterVec
	casMiss       *prometheus.CounterVec
	drainAssists  *prometheus.CounterVec
	drained       *prometheus.CounterVec
	dispatched    *prometheus.CounterVec
	taskLockMiss  *prometheus.CounterVec
	queueLockMiss *prometheus.CounterVec
	heapSize      *prometheus.GaugeVec
}

func counter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		[]string{"queue"},
	)
}

// NewCollectors creates the vectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		inserted:      counter("inserted_total", "Tasks staged in the incoming buffer."),
		casMiss:       counter("incoming_cas_miss_total", "Producers that found their incoming slot occupied."),
		drainAssists:  counter("drain_assists_total", "Incoming buffer drains run by producers."),
		drained:       counter("drained_total", "Tasks moved from the incoming buffer into the heap."),
		dispatched:    counter("dispatched_total", "Tasks handed out to workers."),
		taskLockMiss:  counter("task_lock_miss_total", "Candidates skipped because another worker held their lock."),
		queueLockMiss: counter("queue_lock_miss_total", "Non-blocking requests that found the queue busy."),
		heapSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "heap_size",
				Help:      "Allocated heap slots.",
			},
			[]string{"queue"},
		),
	}
	for _, col := range []prometheus.Collector{
		c.inserted, c.casMiss, c.drainAssists, c.drained,
		c.dispatched, c.taskLockMiss, c.queueLockMiss, c.heapSize,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Metrics is a taskqueue.MetricsPolicy for one queue.
type Metrics struct {
	inserted      prometheus.Counter
	casMiss       prometheus.Counter
	drainAssists  prometheus.Counter
	drained       prometheus.Counter
	dispatched    prometheus.Counter
	taskLockMiss  prometheus.Counter
	queueLockMiss prometheus.Counter
	heapSize      prometheus.Gauge
}

var _ tq.MetricsPolicy = (*Metrics)(nil)

// ForQueue returns the metrics labelled with the given queue name.
func (c *Collectors) ForQueue(name string) *Metrics {
	return &Metrics{
		inserted:      c.inserted.WithLabelValues(name),
		casMiss:       c.casMiss.WithLabelValues(name),
		drainAssists:  c.drainAssists.WithLabelValues(name),
		drained:       c.drained.WithLabelValues(name),
		dispatched:    c.dispatched.WithLabelValues(name),
		taskLockMiss:  c.taskLockMiss.WithLabelValues(name),
		queueLockMiss: c.queueLockMiss.WithLabelValues(name),
		heapSize:      c.heapSize.WithLabelValues(name),
	}
}

func (m *Metrics) IncInserted()       { m.inserted.Inc() }
func (m *Metrics) IncCASMiss()        { m.casMiss.Inc() }
func (m *Metrics) IncDrainAssist()    { m.drainAssists.Inc() }
func (m *Metrics) AddDrained(n int64) { m.drained.Add(float64(n)) }
func (m *Metrics) IncDispatched()     { m.dispatched.Inc() }
func (m *Metrics) IncTaskLockMiss()   { m.taskLockMiss.Inc() }
func (m *Metrics) IncQueueLockMiss()  { m.queueLockMiss.Inc() }
func (m *Metrics) SetHeapSize(n int)  { m.heapSize.Set(float64(n)) }
