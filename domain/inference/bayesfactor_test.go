package inference

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func halfNormalDraws(rng *rand.Rand, n int, scale float64) []float64 {
	draws := make([]float64, n)
	for i := range draws {
		draws[i] = math.Abs(scale * rng.NormFloat64())
	}
	return draws
}

func TestSavageDickeyFavorsClusteringWhenPosteriorAvoidsZero(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	// Posterior concentrated well away from zero, prior piled near it.
	post := make([]float64, 4000)
	for i := range post {
		post[i] = 2 + 0.2*rng.NormFloat64()
	}
	prior := halfNormalDraws(rng, 4000, 0.5)

	bf := SavageDickey(post, prior)
	assert.Less(t, bf.EvidenceRatio, 1.0)
	assert.Greater(t, bf.BF, 1.0)
	assert.InDelta(t, 1/bf.EvidenceRatio, bf.BF, 1e-12)
}

func TestSavageDickeyNearOneWhenPosteriorMatchesPrior(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	post := halfNormalDraws(rng, 8000, 1)
	prior := halfNormalDraws(rng, 8000, 1)

	bf := SavageDickey(post, prior)
	assert.InDelta(t, 1.0, bf.EvidenceRatio, 0.15)
}

func TestBoundaryDensityReflection(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	draws := halfNormalDraws(rng, 10000, 1)

	// Half-normal density at zero is sqrt(2/pi) ~ 0.7979; the reflected
	// estimator should land near it.
	d := boundaryDensity(draws)
	require.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Sqrt(2/math.Pi), d, 0.08)
}

func TestBoundaryDensityDegenerateInputs(t *testing.T) {
	assert.True(t, math.IsNaN(boundaryDensity(nil)))
	// Zero spread gives no usable bandwidth.
	assert.True(t, math.IsNaN(boundaryDensity([]float64{1, 1, 1, 1})))
}

func TestSilvermanBandwidthShrinksWithSampleSize(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	small := halfNormalDraws(rng, 100, 1)
	large := halfNormalDraws(rng, 10000, 1)
	assert.Greater(t, silvermanBandwidth(small), silvermanBandwidth(large))
}
