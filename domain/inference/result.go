package inference

import (
	"epifam/domain/cohort"
	"epifam/domain/core"
	"epifam/domain/model"
)

// Status classifies the outcome of one grid cell.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNoData         Status = "no_data"
	StatusNonConvergence Status = "non_convergence"
	StatusFailed         Status = "failed"
)

// Variance-component level labels used across fits and ICC derivation.
const (
	LevelFamily = "family"
	LevelCohort = "cohort"
)

// Coefficient is one fixed-effect row of a fit summary. The frequentist
// path fills StdErr; the Bayesian path fills Lower/Upper credible
// bounds. Significant means p < Alpha or a credible interval excluding
// zero, respectively.
type Coefficient struct {
	Term        string  `json:"term"`
	Estimate    float64 `json:"estimate"`
	StdErr      float64 `json:"std_err"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	Significant bool    `json:"significant"`
}

// VarianceComponent is one random-intercept estimate on the
// standard-deviation scale.
type VarianceComponent struct {
	Level string   `json:"level"`
	SD    Interval `json:"sd"`
}

// FrequentistFit is the ML solver output for one model.
type FrequentistFit struct {
	Coefficients []Coefficient       `json:"coefficients"`
	Components   []VarianceComponent `json:"components"`
	LogLik       float64             `json:"log_lik"`
}

// Component returns the variance component for a level, if present.
func (f *FrequentistFit) Component(level string) (VarianceComponent, bool) {
	for _, c := range f.Components {
		if c.Level == level {
			return c, true
		}
	}
	return VarianceComponent{}, false
}

// BayesianFit is the MCMC solver output for one model, carrying the raw
// standard-deviation draws required by the Savage-Dickey calculator.
// NoData marks the sentinel returned for an empty dataset.
type BayesianFit struct {
	NoData       bool                 `json:"no_data"`
	Coefficients []Coefficient        `json:"coefficients"`
	Components   []VarianceComponent  `json:"components"`
	PosteriorSD  map[string][]float64 `json:"posterior_sd"`
	PriorSD      []float64            `json:"prior_sd"`
	Divergences  int                  `json:"divergences"`
}

// Component returns the variance component for a level, if present.
func (f *BayesianFit) Component(level string) (VarianceComponent, bool) {
	for _, c := range f.Components {
		if c.Level == level {
			return c, true
		}
	}
	return VarianceComponent{}, false
}

// FrequentistSummary is the derived likelihood-ratio test for one cell.
type FrequentistSummary struct {
	Full        *FrequentistFit `json:"full"`
	Null        *FrequentistFit `json:"null"`
	LRT         float64         `json:"lrt"`
	PValue      float64         `json:"p_value"`
	NaivePValue float64         `json:"naive_p_value"`
	Significant bool            `json:"significant"`
}

// AnalysisResult is the final aggregated record for one
// (outcome, scope, grouping, prior-variant) cell, the unit handed to
// reporting.
type AnalysisResult struct {
	RunID        core.RunID     `json:"run_id"`
	Outcome      cohort.Outcome `json:"outcome"`
	Scope        string         `json:"scope"`
	Grouping     string         `json:"grouping"`
	PriorVariant string         `json:"prior_variant"`
	Status       Status         `json:"status"`
	Error        string         `json:"error,omitempty"`

	Frequentist *FrequentistSummary `json:"frequentist,omitempty"`
	Bayesian    *BayesianFit        `json:"bayesian,omitempty"`

	ICCFamily *Interval    `json:"icc_family,omitempty"`
	ICCCohort *Interval    `json:"icc_cohort,omitempty"`
	BF        *BayesFactor `json:"bayes_factor,omitempty"`

	SampleSize  int `json:"sample_size"`
	FamilyCount int `json:"family_count"`
}

// CellLabel is a compact human-readable identity for logs.
func (r AnalysisResult) CellLabel() string {
	return string(r.Outcome) + "/" + r.Scope + "/" + r.PriorVariant
}

// DeriveEffects fills ICC and Bayes-factor fields from whichever fits
// succeeded. Bayesian interval estimates win over frequentist point
// estimates when both are available.
func (r *AnalysisResult) DeriveEffects(grouping model.Grouping) {
	if r.Bayesian != nil && !r.Bayesian.NoData {
		fam, okF := r.Bayesian.Component(LevelFamily)
		if grouping == model.GroupingCohortFamily {
			coh, okC := r.Bayesian.Component(LevelCohort)
			if okF && okC {
				iccC, iccF := ICCNested(coh.SD, fam.SD)
				r.ICCCohort, r.ICCFamily = &iccC, &iccF
			}
		} else if okF {
			icc := ICCSingle(fam.SD)
			r.ICCFamily = &icc
		}
		if post, ok := r.Bayesian.PosteriorSD[LevelFamily]; ok && len(r.Bayesian.PriorSD) > 0 {
			bf := SavageDickey(post, r.Bayesian.PriorSD)
			r.BF = &bf
		}
		return
	}
	if r.Frequentist != nil && r.Frequentist.Full != nil {
		fam, okF := r.Frequentist.Full.Component(LevelFamily)
		if grouping == model.GroupingCohortFamily {
			coh, okC := r.Frequentist.Full.Component(LevelCohort)
			if okF && okC {
				iccC, iccF := ICCNested(coh.SD, fam.SD)
				r.ICCCohort, r.ICCFamily = &iccC, &iccF
			}
		} else if okF {
			icc := ICCSingle(fam.SD)
			r.ICCFamily = &icc
		}
	}
}
