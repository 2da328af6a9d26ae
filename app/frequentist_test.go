package app

import (
	"context"
	"math"
	"testing"

	"epifam/domain/cohort"
	"epifam/domain/core"
	"epifam/domain/inference"
	"epifam/domain/model"
	"epifam/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequentistFitterAssemblesTest(t *testing.T) {
	solver := &testkit.FakeFrequentistSolver{
		LogLik: map[model.Grouping]float64{
			model.GroupingFamily: -100,
			model.GroupingNone:   -103,
		},
		SD: 0.9,
	}
	fitter := NewFrequentistFitter(solver)

	ds := smallDataset(t)
	spec, err := model.New(cohort.OutcomeFebrileSeizures, model.GroupingFamily, nil)
	require.NoError(t, err)

	sum, err := fitter.Fit(context.Background(), ds, spec)
	require.NoError(t, err)
	assert.Equal(t, 2, solver.Calls)
	assert.InDelta(t, 6.0, sum.LRT, 1e-12)
	assert.Equal(t, inference.SelfLiangPValue(6.0, model.GroupingFamily), sum.PValue)
	assert.Equal(t, inference.NaivePValue(6.0), sum.NaivePValue)
	assert.True(t, sum.Significant)
	assert.GreaterOrEqual(t, sum.NaivePValue, sum.PValue)
}

func TestFrequentistFitterZeroLRT(t *testing.T) {
	solver := &testkit.FakeFrequentistSolver{}
	fitter := NewFrequentistFitter(solver)

	ds := smallDataset(t)
	spec, err := model.New(cohort.OutcomeFebrileSeizures, model.GroupingFamily, nil)
	require.NoError(t, err)

	sum, err := fitter.Fit(context.Background(), ds, spec)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sum.PValue)
	assert.False(t, sum.Significant)
}

func TestFrequentistFitterPropagatesSolverError(t *testing.T) {
	solver := &testkit.FakeFrequentistSolver{Err: core.NewConvergenceError("stalled")}
	fitter := NewFrequentistFitter(solver)

	ds := smallDataset(t)
	spec, err := model.New(cohort.OutcomeFebrileSeizures, model.GroupingFamily, nil)
	require.NoError(t, err)

	_, err = fitter.Fit(context.Background(), ds, spec)
	assert.True(t, core.IsNonConvergence(err))
}

func TestFrequentistFitterRejectsNonFiniteLogLik(t *testing.T) {
	solver := &testkit.FakeFrequentistSolver{
		LogLik: map[model.Grouping]float64{model.GroupingFamily: math.Inf(-1)},
	}
	fitter := NewFrequentistFitter(solver)

	ds := smallDataset(t)
	spec, err := model.New(cohort.OutcomeFebrileSeizures, model.GroupingFamily, nil)
	require.NoError(t, err)

	_, err = fitter.Fit(context.Background(), ds, spec)
	assert.True(t, core.IsNonConvergence(err))
}
