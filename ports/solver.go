package ports

import (
	"context"

	"epifam/domain/cohort"
	"epifam/domain/inference"
	"epifam/domain/model"
)

// FrequentistSolverPort is the external maximum-likelihood engine for
// nested-binomial GLMMs. Implementations return coefficient estimates,
// variance-component point estimates and the achieved log-likelihood,
// or an error wrapping core.ErrNonConvergence.
type FrequentistSolverPort interface {
	FitGLMM(ctx context.Context, ds *cohort.Dataset, spec model.Spec) (*inference.FrequentistFit, error)
}

// MCMCControls are the sampling-budget parameters passed to the
// Bayesian solver.
type MCMCControls struct {
	Chains       int     `json:"chains"`
	Warmup       int     `json:"warmup"`
	Draws        int     `json:"draws"` // retained draws per chain
	TargetAccept float64 `json:"target_accept"`
	Seed         int64   `json:"seed"`
	SamplePrior  bool    `json:"sample_prior"`
}

// DefaultControls returns the fixed sampling budget: 4 chains, 1000
// warmup plus 1000 retained draws each, prior draws requested. The
// nested (all-cohort) configuration raises the acceptance target to
// 0.95 against divergences from the added hierarchy level.
func DefaultControls(grouping model.Grouping, seed int64) MCMCControls {
	target := 0.85
	if grouping == model.GroupingCohortFamily {
		target = 0.95
	}
	return MCMCControls{
		Chains:       4,
		Warmup:       1000,
		Draws:        1000,
		TargetAccept: target,
		Seed:         seed,
		SamplePrior:  true,
	}
}

// BayesianSolverPort is the external MCMC engine for binomial-logit
// mixed models. An empty dataset yields the no-data sentinel fit, not
// an error; solver failure wraps core.ErrSampling.
type BayesianSolverPort interface {
	Sample(ctx context.Context, ds *cohort.Dataset, spec model.Spec, ctl MCMCControls) (*inference.BayesianFit, error)
}
