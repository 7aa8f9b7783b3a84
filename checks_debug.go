//go:build debug

package taskqueue

import (
	"fmt"

	"go.uber.org/zap"
)

// debugCheckHeap verifies the whole heap after every mutation.
func (q *Queue[T, M]) debugCheckHeap() {
	if err := q.verifyHeap(); err != nil {
		q.fatal(err, zap.Int("count", q.count))
	}
}

// checkRef rejects references outside the task array before they reach
// the incoming buffer.
func (q *Queue[T, M]) checkRef(ref TaskRef) {
	if ref < 0 || int(ref) >= len(q.tasks) {
		q.fatal(fmt.Errorf("%w: %d not in [0, %d)", ErrTaskOutOfRange, ref, len(q.tasks)))
	}
}
