package taskqueue

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	// DefaultInitialSize is the number of heap slots allocated up front.
	DefaultInitialSize = 100

	// DefaultGrowthFactor multiplies the heap size every time it fills up.
	DefaultGrowthFactor = 2

	// DefaultIncomingSize is the capacity of the lock-free incoming buffer.
	// It should be large compared to the number of tasks that can become
	// ready in a burst, otherwise producers fall back to helping drain.
	DefaultIncomingSize = 10240

	// DefaultSearchWindow is how many heap entries GetTask keeps as
	// candidates when looking for an unlocked task with good overlap.
	DefaultSearchWindow = 8

	maxHeapSize = 1<<31 - 1
)

// Options configure a Queue.
//
// All zero values are replaced with defaults in FillDefaults.
type Options struct {
	InitialSize  int
	GrowthFactor int
	IncomingSize int
	SearchWindow int

	// Logger receives growth events at debug level and a final error
	// before the queue panics on a fatal condition. Nil means no logging.
	Logger *zap.Logger
}

func (o *Options) FillDefaults() {
	if o.InitialSize == 0 {
		o.InitialSize = DefaultInitialSize
	}
	if o.GrowthFactor == 0 {
		o.GrowthFactor = DefaultGrowthFactor
	}
	if o.IncomingSize == 0 {
		o.IncomingSize = DefaultIncomingSize
	}
	if o.SearchWindow == 0 {
		o.SearchWindow = DefaultSearchWindow
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Validate reports options that FillDefaults cannot repair.
func (o Options) Validate() error {
	switch {
	case o.InitialSize < 1 || o.InitialSize > maxHeapSize:
		return fmt.Errorf("%w: initial size %d", ErrInvalidOptions, o.InitialSize)
	case o.GrowthFactor < 2:
		return fmt.Errorf("%w: growth factor %d, need at least 2", ErrInvalidOptions, o.GrowthFactor)
	case o.IncomingSize < 1:
		return fmt.Errorf("%w: incoming size %d", ErrInvalidOptions, o.IncomingSize)
	case o.SearchWindow < 1:
		return fmt.Errorf("%w: search window %d", ErrInvalidOptions, o.SearchWindow)
	}
	return nil
}
