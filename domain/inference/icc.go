package inference

import "math"

// logisticResidualVariance is pi^2/3, the variance of the standard
// logistic distribution. It is the residual term under the logit link
// and must not be altered.
var logisticResidualVariance = math.Pi * math.Pi / 3

// Interval is a point estimate with lower and upper 95% bounds. For
// frequentist point-only results the bounds are NaN.
type Interval struct {
	Point float64 `json:"point"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PointOnly wraps a bare point estimate.
func PointOnly(p float64) Interval {
	return Interval{Point: p, Lower: math.NaN(), Upper: math.NaN()}
}

// ICCSingle converts a family-level standard-deviation estimate into an
// intra-class correlation: ICC = sigma^2 / (sigma^2 + pi^2/3).
//
// The transformation is applied endpoint-wise to the point estimate and
// each interval bound. The transformed interval is an approximation, not
// a calibrated 95% interval for the ICC itself; the convention is kept
// deliberately.
func ICCSingle(familySD Interval) Interval {
	return Interval{
		Point: iccSingle(familySD.Point),
		Lower: iccSingle(familySD.Lower),
		Upper: iccSingle(familySD.Upper),
	}
}

func iccSingle(sd float64) float64 {
	v := sd * sd
	return v / (v + logisticResidualVariance)
}

// ICCNested converts cohort- and family-level standard deviations into
// the two nested intra-class correlations:
//
//	ICC_cohort = sigma_c^2 / (sigma_c^2 + sigma_f^2 + pi^2/3)
//	ICC_family = sigma_f^2 / (sigma_f^2 + sigma_c^2 + pi^2/3)
//
// Endpoint-wise over interval bounds, pairing like bounds.
func ICCNested(cohortSD, familySD Interval) (iccCohort, iccFamily Interval) {
	iccCohort = Interval{
		Point: iccNested(cohortSD.Point, familySD.Point),
		Lower: iccNested(cohortSD.Lower, familySD.Lower),
		Upper: iccNested(cohortSD.Upper, familySD.Upper),
	}
	iccFamily = Interval{
		Point: iccNested(familySD.Point, cohortSD.Point),
		Lower: iccNested(familySD.Lower, cohortSD.Lower),
		Upper: iccNested(familySD.Upper, cohortSD.Upper),
	}
	return iccCohort, iccFamily
}

func iccNested(sdNumerator, sdOther float64) float64 {
	vn := sdNumerator * sdNumerator
	vo := sdOther * sdOther
	return vn / (vn + vo + logisticResidualVariance)
}
