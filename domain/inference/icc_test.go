package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestICCSingleBounds(t *testing.T) {
	// Zero variance means zero correlation.
	icc := ICCSingle(PointOnly(0))
	assert.Equal(t, 0.0, icc.Point)

	for _, sd := range []float64{0.1, 0.5, 1, 2.5, 10, 100} {
		icc := ICCSingle(PointOnly(sd))
		assert.GreaterOrEqual(t, icc.Point, 0.0, "sd=%v", sd)
		assert.Less(t, icc.Point, 1.0, "sd=%v", sd)
	}
}

func TestICCSingleMonotonic(t *testing.T) {
	prev := -1.0
	for _, sd := range []float64{0, 0.5, 1, 2, 4} {
		icc := ICCSingle(PointOnly(sd)).Point
		assert.Greater(t, icc, prev)
		prev = icc
	}
}

func TestICCSingleKnownValue(t *testing.T) {
	// sigma^2 = pi^2/3 gives ICC = 1/2 exactly.
	sd := math.Pi / math.Sqrt(3)
	assert.InDelta(t, 0.5, ICCSingle(PointOnly(sd)).Point, 1e-12)
}

func TestICCSingleEndpointWise(t *testing.T) {
	icc := ICCSingle(Interval{Point: 1, Lower: 0.5, Upper: 2})
	assert.Equal(t, ICCSingle(PointOnly(0.5)).Point, icc.Lower)
	assert.Equal(t, ICCSingle(PointOnly(2)).Point, icc.Upper)
	assert.Less(t, icc.Lower, icc.Point)
	assert.Greater(t, icc.Upper, icc.Point)
}

func TestICCNestedPartition(t *testing.T) {
	iccC, iccF := ICCNested(PointOnly(1), PointOnly(2))
	assert.Greater(t, iccF.Point, iccC.Point)
	// Shared denominator: both fractions plus the residual share sum to 1.
	resid := logisticResidualVariance / (1 + 4 + logisticResidualVariance)
	assert.InDelta(t, 1.0, iccC.Point+iccF.Point+resid, 1e-12)
}

func TestICCNestedZeroFamily(t *testing.T) {
	iccC, iccF := ICCNested(PointOnly(1.5), PointOnly(0))
	assert.Equal(t, 0.0, iccF.Point)
	assert.Greater(t, iccC.Point, 0.0)
}

func TestPointOnlyBoundsAreNaN(t *testing.T) {
	iv := PointOnly(0.7)
	assert.Equal(t, 0.7, iv.Point)
	assert.True(t, math.IsNaN(iv.Lower))
	assert.True(t, math.IsNaN(iv.Upper))
}
