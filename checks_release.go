//go:build !debug

package taskqueue

func (q *Queue[T, M]) debugCheckHeap()      {}
func (q *Queue[T, M]) checkRef(ref TaskRef) {}
