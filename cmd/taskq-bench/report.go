package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	tq "github.com/azargarov/taskqueue"
)

// tee forwards queue events to two metrics policies.
type tee [2]tq.MetricsPolicy

func (t tee) IncInserted()       { t[0].IncInserted(); t[1].IncInserted() }
func (t tee) IncCASMiss()        { t[0].IncCASMiss(); t[1].IncCASMiss() }
func (t tee) IncDrainAssist()    { t[0].IncDrainAssist(); t[1].IncDrainAssist() }
func (t tee) AddDrained(n int64) { t[0].AddDrained(n); t[1].AddDrained(n) }
func (t tee) IncDispatched()     { t[0].IncDispatched(); t[1].IncDispatched() }
func (t tee) IncTaskLockMiss()   { t[0].IncTaskLockMiss(); t[1].IncTaskLockMiss() }
func (t tee) IncQueueLockMiss()  { t[0].IncQueueLockMiss(); t[1].IncQueueLockMiss() }
func (t tee) SetHeapSize(n int)  { t[0].SetHeapSize(n); t[1].SetHeapSize(n) }

func printSummary(w io.Writer, tasks int, elapsed time.Duration, stats []*tq.AtomicMetrics) {
	rate := float64(tasks) / elapsed.Seconds()
	fmt.Fprintf(w, "%d tasks in %s (%.0f tasks/s)\n\n", tasks, elapsed.Round(time.Microsecond), rate)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "queue\tinserted\tdispatched\tcas miss\tassists\tlock miss\theap\t")
	var total tq.MetricsSnapshot
	for i, m := range stats {
		s := m.Snapshot()
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			i, s.Inserted, s.Dispatched, s.CASMiss, s.DrainAssists, s.TaskLockMiss, s.HeapSize)
		total.Inserted += s.Inserted
		total.Dispatched += s.Dispatched
		total.CASMiss += s.CASMiss
		total.DrainAssists += s.DrainAssists
		total.TaskLockMiss += s.TaskLockMiss
	}
	fmt.Fprintf(tw, "all\t%d\t%d\t%d\t%d\t%d\t\t\n",
		total.Inserted, total.Dispatched, total.CASMiss, total.DrainAssists, total.TaskLockMiss)
	_ = tw.Flush()
}
