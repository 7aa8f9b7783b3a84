package taskqueue

// GetTask claims and removes a task from the queue.
//
// prev is the task this worker ran last, or NoTask. Candidates are scored
// with the overlap function against prev, and only a bounded prefix of the
// heap is looked at: the window is filled with the first entries in heap
// order, then every further entry replaces the best candidate whenever that
// candidate turns out to be locked by someone else. If the whole heap is
// scanned without success, whatever is left in the window is tried
// best-first.
//
// With blocking set, GetTask waits for the queue lock. Otherwise it returns
// (NoTask, false) at once if the lock is busy. It also returns false when
// the queue is empty or every inspected candidate is locked. The returned
// task is locked; the caller must Unlock it when done.
func (q *Queue[T, M]) GetTask(prev TaskRef, blocking bool) (TaskRef, bool) {
	if blocking {
		q.mu.Lock()
	} else if !q.mu.TryLock() {
		q.metrics.IncQueueLockMiss()
		return NoTask, false
	}
	defer q.mu.Unlock()

	q.drainLocked()
	if q.count == 0 {
		return NoTask, false
	}

	win := q.window
	size := len(win)
	n := 0
	ref, ind := NoTask, -1

	for k := 0; k < q.count; k++ {
		if k < size {
			win[n] = q.candidateAt(prev, k)
			n++
			continue
		}
		best := bestCandidate(win[:n])
		if q.tasks[win[best].ref].TryLock() {
			ref, ind = win[best].ref, win[best].ind
			break
		}
		q.metrics.IncTaskLockMiss()
		win[best] = q.candidateAt(prev, k)
	}

	if ind < 0 {
		for n > 0 {
			best := bestCandidate(win[:n])
			if q.tasks[win[best].ref].TryLock() {
				ref, ind = win[best].ref, win[best].ind
				break
			}
			q.metrics.IncTaskLockMiss()
			n--
			win[best] = win[n]
		}
	}

	if ind < 0 {
		return NoTask, false
	}

	q.removeAt(ind)
	q.debugCheckHeap()
	q.metrics.IncDispatched()
	return ref, true
}

func (q *Queue[T, M]) candidateAt(prev TaskRef, ind int) candidate {
	ref := q.heap[ind]
	return candidate{ind: ind, ref: ref, score: q.score(prev, ref)}
}

func (q *Queue[T, M]) score(prev, next TaskRef) float32 {
	if prev < 0 || q.overlap == nil {
		return 0
	}
	return q.overlap(q.tasks[prev], q.tasks[next])
}

// bestCandidate returns the first window entry with the highest score.
// win must not be empty.
func bestCandidate(win []candidate) int {
	best := 0
	for i := 1; i < len(win); i++ {
		if win[i].score > win[best].score {
			best = i
		}
	}
	return best
}
