//go:build !linux

package runner

import "fmt"

// PinToCPU is only supported on Linux.
func PinToCPU(cpu int) error {
	return fmt.Errorf("runner: pin to cpu %d: not supported on this platform", cpu)
}
