package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPinToCPU_ErrorNamesCPU(t *testing.T) {
	err := PinToCPU(-1)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "cpu -1")
	}
}
