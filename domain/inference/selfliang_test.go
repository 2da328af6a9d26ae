package inference

import (
	"math"
	"testing"

	"epifam/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestSelfLiangSingleGrouping(t *testing.T) {
	// Half the plain chi-square(1) tail.
	lrt := 3.84
	p := SelfLiangPValue(lrt, model.GroupingFamily)
	naive := NaivePValue(lrt)
	assert.InDelta(t, naive/2, p, 1e-12)
	assert.Less(t, p, Alpha)
}

func TestSelfLiangNestedGrouping(t *testing.T) {
	lrt := 5.0
	p := SelfLiangPValue(lrt, model.GroupingCohortFamily)
	single := SelfLiangPValue(lrt, model.GroupingFamily)
	// The chi-square(2) half adds mass, so nested > single at the same LRT.
	assert.Greater(t, p, single)
	assert.Less(t, p, 1.0)
}

func TestNaiveVersusCorrected(t *testing.T) {
	for _, lrt := range []float64{0.01, 0.5, 1, 2.5, 3.84, 7, 15} {
		naive := NaivePValue(lrt)
		// Single grouping halves the 1-df tail, so the correction can
		// only shrink the p-value. The nested mixture adds half the
		// heavier 2-df tail and always lands above the naive value.
		assert.GreaterOrEqual(t, naive, SelfLiangPValue(lrt, model.GroupingFamily), "lrt=%v", lrt)
		assert.GreaterOrEqual(t, SelfLiangPValue(lrt, model.GroupingCohortFamily), naive, "lrt=%v", lrt)
	}
}

func TestNonPositiveLRTGivesPOne(t *testing.T) {
	for _, lrt := range []float64{0, -1e-9, -3} {
		assert.Equal(t, 1.0, SelfLiangPValue(lrt, model.GroupingFamily))
		assert.Equal(t, 1.0, SelfLiangPValue(lrt, model.GroupingCohortFamily))
		assert.Equal(t, 1.0, NaivePValue(lrt))
	}
}

func TestNaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(SelfLiangPValue(math.NaN(), model.GroupingFamily)))
	assert.True(t, math.IsNaN(NaivePValue(math.NaN())))
}

func TestLikelihoodRatio(t *testing.T) {
	assert.InDelta(t, 4.0, LikelihoodRatio(-102, -100), 1e-12)
	assert.InDelta(t, 0.0, LikelihoodRatio(-100, -100), 1e-12)
}
