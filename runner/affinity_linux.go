//go:build linux

package runner

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PinToCPU restricts the calling OS thread to cpu. The caller should hold
// runtime.LockOSThread.
func PinToCPU(cpu int) error {
	var mask unix.CPUSet
	mask.Zero()
	if cpu >= 0 {
		mask.Set(cpu)
	}
	if mask.Count() == 0 {
		return fmt.Errorf("runner: cpu %d out of range", cpu)
	}
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("runner: pin to cpu %d: %w", cpu, err)
	}
	return nil
}
