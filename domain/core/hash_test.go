package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFitKeyDeterministic(t *testing.T) {
	a := ComputeFitKey("febrile_seizures", "melbourne", "family", "default")
	b := ComputeFitKey("febrile_seizures", "melbourne", "family", "default")
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 64)
}

func TestComputeFitKeySeparatorPreventsCollisions(t *testing.T) {
	// Adjacent parts must not be able to merge into the same digest input.
	a := ComputeFitKey("ab", "c")
	b := ComputeFitKey("a", "bc")
	assert.NotEqual(t, a, b)
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsConfigError(NewInvalidOutcomeError("x")))
	assert.True(t, IsConfigError(NewInvalidCohortError("x")))
	assert.True(t, IsConfigError(NewInvalidPriorError("x")))
	assert.True(t, IsEmptyDataset(ErrEmptyDataset))
	assert.True(t, IsNonConvergence(NewConvergenceError("flat likelihood")))
	assert.True(t, IsSamplingError(NewSamplingError("divergent chain")))
	assert.False(t, IsConfigError(ErrEmptyDataset))
	assert.False(t, IsNonConvergence(NewSamplingError("x")))
}
