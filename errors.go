package taskqueue

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrInvalidOptions is returned by NewQueue for unusable tunables.
	ErrInvalidOptions = errors.New("taskqueue: invalid options")

	// ErrTaskOutOfRange means a reference does not index the task array.
	// Only checked in debug builds.
	ErrTaskOutOfRange = errors.New("taskqueue: task reference out of range")

	// ErrHeapDisordered means the heap invariant was found broken.
	ErrHeapDisordered = errors.New("taskqueue: heap is disordered")

	// ErrHeapOverflow means the heap cannot grow any further.
	ErrHeapOverflow = errors.New("taskqueue: heap size overflow")
)

// fatal logs err and panics with it.
//
// The scheduler cannot make progress without its heap, so there is
// nothing sensible to return to the caller.
func (q *Queue[T, M]) fatal(err error, fields ...zap.Field) {
	q.log.Error("fatal queue error", append(fields, zap.Error(err))...)
	panic(err)
}

func (q *Queue[T, M]) fatalf(sentinel error, format string, args ...any) {
	q.fatal(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}
