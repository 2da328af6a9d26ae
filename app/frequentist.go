package app

import (
	"context"
	"math"

	"epifam/domain/cohort"
	"epifam/domain/core"
	"epifam/domain/inference"
	"epifam/domain/model"
	"epifam/ports"
)

// FrequentistFitter fits the full and null-comparator models through
// the ML solver and derives the boundary-corrected likelihood-ratio
// test.
type FrequentistFitter struct {
	solver ports.FrequentistSolverPort
}

// NewFrequentistFitter creates a frequentist fitter
func NewFrequentistFitter(solver ports.FrequentistSolverPort) *FrequentistFitter {
	return &FrequentistFitter{solver: solver}
}

// Fit runs both models and assembles the test summary. A solver failure
// on either model surfaces as core.ErrNonConvergence for the cell.
func (f *FrequentistFitter) Fit(ctx context.Context, ds *cohort.Dataset, spec model.Spec) (*inference.FrequentistSummary, error) {
	full, err := f.solver.FitGLMM(ctx, ds, spec)
	if err != nil {
		return nil, err
	}
	null, err := f.solver.FitGLMM(ctx, ds, spec.NullComparator())
	if err != nil {
		return nil, err
	}
	if !finite(full.LogLik) || !finite(null.LogLik) {
		return nil, core.NewConvergenceError("non-finite log-likelihood")
	}

	lrt := inference.LikelihoodRatio(null.LogLik, full.LogLik)
	pval := inference.SelfLiangPValue(lrt, spec.Grouping)
	return &inference.FrequentistSummary{
		Full:        full,
		Null:        null,
		LRT:         lrt,
		PValue:      pval,
		NaivePValue: inference.NaivePValue(lrt),
		Significant: pval < inference.Alpha,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
