package promstats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	tq "github.com/azargarov/taskqueue"
)

type task struct{ w float32 }

func (t *task) Weight() float32 { return t.w }
func (t *task) TryLock() bool   { return true }
func (t *task) Unlock()         {}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollectors(reg)
	if err != nil {
		t.Fatalf("NewCollectors: %v", err)
	}
	c.ForQueue("0")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	found := make(map[string]bool)
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	for _, name := range []string{
		"taskqueue_inserted_total",
		"taskqueue_incoming_cas_miss_total",
		"taskqueue_drain_assists_total",
		"taskqueue_drained_total",
		"taskqueue_dispatched_total",
		"taskqueue_task_lock_miss_total",
		"taskqueue_queue_lock_miss_total",
		"taskqueue_heap_size",
	} {
		if !found[name] {
			t.Errorf("metric %q not registered", name)
		}
	}

	if _, err := NewCollectors(reg); err == nil {
		t.Fatal("registering twice succeeded; want error")
	}
}

func TestMetricsFromQueue(t *testing.T) {
	c, err := NewCollectors(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollectors: %v", err)
	}
	m := c.ForQueue("w1")

	tasks := []*task{{w: 3}, {w: 1}, {w: 2}}
	q, err := tq.NewQueue[*task](tasks, nil, m, tq.Options{InitialSize: 1})
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	for i := range tasks {
		q.Insert(tq.TaskRef(i))
	}
	for {
		if _, ok := q.GetTask(tq.NoTask, true); !ok {
			break
		}
	}

	if got := testutil.ToFloat64(c.inserted.WithLabelValues("w1")); got != 3 {
		t.Fatalf("inserted = %v; want 3", got)
	}
	if got := testutil.ToFloat64(c.drained.WithLabelValues("w1")); got != 3 {
		t.Fatalf("drained = %v; want 3", got)
	}
	if got := testutil.ToFloat64(c.dispatched.WithLabelValues("w1")); got != 3 {
		t.Fatalf("dispatched = %v; want 3", got)
	}
	if got := testutil.ToFloat64(c.heapSize.WithLabelValues("w1")); got != 4 {
		t.Fatalf("heap size = %v; want 4", got)
	}
}
