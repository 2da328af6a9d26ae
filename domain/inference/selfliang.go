package inference

import (
	"math"

	"epifam/domain/model"

	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the fixed significance threshold for familial clustering.
// Design constant, not user-configurable.
const Alpha = 0.05

var (
	chiSq1 = distuv.ChiSquared{K: 1}
	chiSq2 = distuv.ChiSquared{K: 2}
)

// LikelihoodRatio computes the LRT statistic from the achieved
// log-likelihoods of the null comparator and the full model.
func LikelihoodRatio(logLikNull, logLikFull float64) float64 {
	return -2 * (logLikNull - logLikFull)
}

// SelfLiangPValue computes the boundary-corrected p-value for testing a
// variance component against zero. The null value sits on the edge of
// the parameter space, so the plain chi-square reference is wrong:
//
//   - single grouping (one component tested, none retained): the
//     reference is a 50:50 mixture of a point mass at 0 and chi-square
//     with 1 df, giving P[chisq_1 >= LRT] / 2;
//   - nested grouping (family tested, cohort retained under both
//     hypotheses): a 50:50 mixture of chi-square with 1 df and
//     chi-square with 2 df, giving P[chisq_1 >= LRT]/2 + P[chisq_2 >= LRT]/2.
//
// A non-positive LRT yields p = 1.
func SelfLiangPValue(lrt float64, grouping model.Grouping) float64 {
	if math.IsNaN(lrt) {
		return math.NaN()
	}
	if lrt <= 0 {
		return 1
	}
	switch grouping {
	case model.GroupingCohortFamily:
		return chiSq1.Survival(lrt)/2 + chiSq2.Survival(lrt)/2
	default:
		return chiSq1.Survival(lrt) / 2
	}
}

// NaivePValue is the uncorrected p-value from a plain 1-df chi-square
// reference, reported alongside the corrected value for comparison.
// Under the single grouping it is never smaller than the Self-Liang
// p-value; under the nested mixture the chi-square(2) half outweighs
// the halving and the corrected value sits above it.
func NaivePValue(lrt float64) float64 {
	if math.IsNaN(lrt) {
		return math.NaN()
	}
	if lrt <= 0 {
		return 1
	}
	return chiSq1.Survival(lrt)
}
