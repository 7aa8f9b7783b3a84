package taskqueue

import (
	"go.uber.org/zap"
)

// The heap store is a max-heap on task weight laid out in q.heap[:q.count].
// len(q.heap) is the allocated size. All functions here assume q.mu is held.

func (q *Queue[T, M]) weight(ind int) float32 {
	return q.tasks[q.heap[ind]].Weight()
}

// bubbleUp moves the entry at ind towards the root while it is not lighter
// than its parent and returns its final position.
//
// Equal weights move up, so the heap is not stable among ties.
func (q *Queue[T, M]) bubbleUp(ind int) int {
	h := q.heap
	w := q.weight(ind)
	for ind > 0 {
		parent := (ind - 1) / 2
		if w < q.weight(parent) {
			break
		}
		h[ind], h[parent] = h[parent], h[ind]
		ind = parent
	}
	return ind
}

// siftDown moves the entry at ind towards the leaves while a child is
// strictly heavier and returns its final position.
func (q *Queue[T, M]) siftDown(ind int) int {
	h := q.heap
	w := q.weight(ind)
	for {
		child := 2*ind + 1
		if child >= q.count {
			break
		}
		if child+1 < q.count && q.weight(child+1) > q.weight(child) {
			child++
		}
		if q.weight(child) <= w {
			break
		}
		h[child], h[ind] = h[ind], h[child]
		ind = child
	}
	return ind
}

// push appends ref to the heap, growing it when full.
func (q *Queue[T, M]) push(ref TaskRef) {
	if q.count == len(q.heap) {
		q.grow()
	}
	q.heap[q.count] = ref
	q.count++
	q.bubbleUp(q.count - 1)
}

// grow multiplies the heap size by the growth factor. It never shrinks.
func (q *Queue[T, M]) grow() {
	size := len(q.heap)
	if size > maxHeapSize/q.growth {
		q.fatalf(ErrHeapOverflow, "cannot grow heap of size %d by %d", size, q.growth)
	}
	next := make([]TaskRef, size*q.growth)
	copy(next, q.heap[:q.count])
	q.heap = next
	q.metrics.SetHeapSize(len(next))
	q.log.Debug("heap grown", zap.Int("old_size", size), zap.Int("size", len(next)))
}

// removeAt drops the entry at ind and restores the heap property.
func (q *Queue[T, M]) removeAt(ind int) {
	q.count--
	if ind < q.count {
		q.heap[ind] = q.heap[q.count]
		ind = q.bubbleUp(ind)
		q.siftDown(ind)
	}
	q.heap[q.count] = NoTask
}

// verifyHeap checks the max-heap invariant on the whole heap.
func (q *Queue[T, M]) verifyHeap() error {
	for k := 1; k < q.count; k++ {
		if q.weight((k-1)/2) < q.weight(k) {
			return ErrHeapDisordered
		}
	}
	return nil
}
