package runner

import (
	"errors"
	"fmt"

	tq "github.com/azargarov/taskqueue"
)

var (
	// ErrCycle is returned by Prepare when the unlock edges form a cycle.
	ErrCycle = errors.New("runner: dependency cycle")

	// ErrUnknownTask is returned for references that are not in the graph.
	ErrUnknownTask = errors.New("runner: unknown task")
)

// Graph holds tasks and the "a unlocks b" edges between them.
//
// The task slice is the array every queue of a Runner refers into; do
// not add tasks while a run is in progress.
type Graph struct {
	tasks []*Task
}

func NewGraph() *Graph {
	return &Graph{}
}

// AddTask appends t and returns its reference.
func (g *Graph) AddTask(t *Task) tq.TaskRef {
	g.tasks = append(g.tasks, t)
	return tq.TaskRef(len(g.tasks) - 1)
}

// AddUnlock records that to may only run after from has finished.
func (g *Graph) AddUnlock(from, to tq.TaskRef) error {
	if !g.valid(from) || !g.valid(to) {
		return fmt.Errorf("%w: %d -> %d", ErrUnknownTask, from, to)
	}
	g.tasks[from].unlocks = append(g.tasks[from].unlocks, to)
	return nil
}

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.tasks) }

// Task returns the task behind ref.
func (g *Graph) Task(ref tq.TaskRef) *Task { return g.tasks[ref] }

func (g *Graph) valid(ref tq.TaskRef) bool {
	return ref >= 0 && int(ref) < len(g.tasks)
}

// Prepare resets per-run state, counts dependencies and computes weights.
//
// A task's weight is its cost plus the largest weight among the tasks it
// unlocks, i.e. the cost of the longest chain starting at it.
func (g *Graph) Prepare() error {
	for _, t := range g.tasks {
		t.deps = 0
		t.skip.Store(false)
		t.locked.Store(false)
	}
	for _, t := range g.tasks {
		for _, dep := range t.unlocks {
			g.tasks[dep].deps++
		}
	}

	// Kahn's algorithm; order ends up topologically sorted.
	order := make([]tq.TaskRef, 0, len(g.tasks))
	indeg := make([]int32, len(g.tasks))
	for i, t := range g.tasks {
		indeg[i] = t.deps
		if t.deps == 0 {
			order = append(order, tq.TaskRef(i))
		}
	}
	for k := 0; k < len(order); k++ {
		for _, dep := range g.tasks[order[k]].unlocks {
			indeg[dep]--
			if indeg[dep] == 0 {
				order = append(order, dep)
			}
		}
	}
	if len(order) != len(g.tasks) {
		return fmt.Errorf("%w: %d of %d tasks unreachable", ErrCycle, len(g.tasks)-len(order), len(g.tasks))
	}

	for k := len(order) - 1; k >= 0; k-- {
		t := g.tasks[order[k]]
		var heaviest float32
		for _, dep := range t.unlocks {
			heaviest = max(heaviest, g.tasks[dep].weight)
		}
		t.weight = t.Cost + heaviest
	}
	for _, t := range g.tasks {
		t.wait.Store(t.deps)
	}
	return nil
}
