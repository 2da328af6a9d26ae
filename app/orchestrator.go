package app

import (
	"context"
	"time"

	"epifam/domain/cohort"
	"epifam/domain/core"
	"epifam/domain/inference"
	"epifam/domain/model"
	"epifam/internal"

	"golang.org/x/sync/errgroup"
)

// RunRequest configures one sweep over the analysis grid. Outcomes and
// cohorts are iterated in declaration order; each per-cohort cell uses
// single (family) grouping and the all-cohort cell, when enabled, uses
// nested (cohort/family) grouping.
type RunRequest struct {
	Outcomes          []cohort.Outcome
	Cohorts           []cohort.Cohort
	IncludeAllCohorts bool
	PriorVariants     []model.PriorConfig

	Workers     int
	CellTimeout time.Duration
}

// DefaultRunRequest is the full study grid: every outcome, every
// cohort plus the pooled nested analysis, with the default and the two
// sensitivity prior variants.
func DefaultRunRequest() RunRequest {
	wide := model.DefaultVariancePrior()
	wide.Scale = 10
	narrow := model.DefaultVariancePrior()
	narrow.Scale = 1
	wideCfg, _ := model.NewPriorConfig("wide_variance", wide)
	narrowCfg, _ := model.NewPriorConfig("narrow_variance", narrow)

	return RunRequest{
		Outcomes:          cohort.Outcomes(),
		Cohorts:           cohort.Cohorts(),
		IncludeAllCohorts: true,
		PriorVariants:     []model.PriorConfig{model.DefaultPriors(), wideCfg, narrowCfg},
		Workers:           4,
		CellTimeout:       10 * time.Minute,
	}
}

// cell is one grid position, enumerated before execution so results
// land in declaration order regardless of completion order.
type cell struct {
	index    int
	outcome  cohort.Outcome
	scope    string
	filter   *cohort.Cohort
	grouping model.Grouping
	priors   model.PriorConfig
}

// Orchestrator iterates the outcome x cohort-scope x prior grid,
// dispatches to the fitters and assembles result records. Cells are
// independent; a failure in one never aborts another.
type Orchestrator struct {
	frequentist *FrequentistFitter
	bayesian    *BayesianFitter
	logger      *internal.Logger
}

// NewOrchestrator creates an orchestrator over the two fitters.
func NewOrchestrator(freq *FrequentistFitter, bayes *BayesianFitter, logger *internal.Logger) *Orchestrator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Orchestrator{frequentist: freq, bayesian: bayes, logger: logger}
}

// Run executes the grid and returns results in deterministic
// enumeration order. Configuration mistakes (unknown outcome or cohort,
// empty grid) fail immediately before any cell runs.
func (o *Orchestrator) Run(ctx context.Context, runID core.RunID, subjects []cohort.Subject, req RunRequest) ([]inference.AnalysisResult, error) {
	cells, err := enumerate(req)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers < 1 {
		workers = 1
	}
	timeout := req.CellTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	results := make([]inference.AnalysisResult, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range cells {
		c := c
		g.Go(func() error {
			cellCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			results[c.index] = o.runCell(cellCtx, runID, subjects, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// enumerate expands the request into the ordered cell list and
// validates the configuration up front.
func enumerate(req RunRequest) ([]cell, error) {
	if len(req.Outcomes) == 0 {
		return nil, core.NewInvalidOutcomeError("(none)")
	}
	for _, o := range req.Outcomes {
		if !cohort.ValidOutcome(o) {
			return nil, core.NewInvalidOutcomeError(string(o))
		}
	}
	for _, c := range req.Cohorts {
		if !cohort.ValidCohort(c) {
			return nil, core.NewInvalidCohortError(string(c))
		}
	}
	priors := req.PriorVariants
	if len(priors) == 0 {
		priors = []model.PriorConfig{model.DefaultPriors()}
	}

	var cells []cell
	for _, outcome := range req.Outcomes {
		for _, ch := range req.Cohorts {
			ch := ch
			for _, p := range priors {
				cells = append(cells, cell{
					index:    len(cells),
					outcome:  outcome,
					scope:    string(ch),
					filter:   &ch,
					grouping: model.GroupingFamily,
					priors:   p,
				})
			}
		}
		if req.IncludeAllCohorts {
			for _, p := range priors {
				cells = append(cells, cell{
					index:    len(cells),
					outcome:  outcome,
					scope:    cohort.ScopeAll,
					grouping: model.GroupingCohortFamily,
					priors:   p,
				})
			}
		}
	}
	return cells, nil
}

// runCell executes one grid position: dataset, spec, frequentist fit,
// Bayesian fit, derived effects. Frequentist runs before Bayesian.
func (o *Orchestrator) runCell(ctx context.Context, runID core.RunID, subjects []cohort.Subject, c cell) inference.AnalysisResult {
	res := inference.AnalysisResult{
		RunID:        runID,
		Outcome:      c.outcome,
		Scope:        c.scope,
		Grouping:     c.grouping.String(),
		PriorVariant: c.priors.Name,
		Status:       inference.StatusOK,
	}

	ds, err := cohort.Build(subjects, c.outcome, c.filter)
	if err != nil {
		if core.IsEmptyDataset(err) {
			// No analyzable families: reportable, not an error, and no
			// solver is invoked.
			res.Status = inference.StatusNoData
			return res
		}
		res.Status = inference.StatusFailed
		res.Error = err.Error()
		return res
	}
	res.SampleSize = len(ds.Rows)
	res.FamilyCount = ds.NumFamilies()

	spec, err := model.New(c.outcome, c.grouping, &c.priors)
	if err != nil {
		res.Status = inference.StatusFailed
		res.Error = err.Error()
		return res
	}

	freq, err := o.frequentist.Fit(ctx, ds, spec)
	if err != nil {
		if core.IsNonConvergence(err) {
			// Expected near the variance boundary: fall back to
			// Bayesian-only reporting for this cell.
			o.logger.Warn("frequentist fit did not converge for %s: %v", res.CellLabel(), err)
			res.Status = inference.StatusNonConvergence
		} else {
			o.logger.Error("frequentist fit failed for %s: %v", res.CellLabel(), err)
			res.Status = inference.StatusFailed
			res.Error = err.Error()
		}
	} else {
		res.Frequentist = freq
	}

	bayes, err := o.bayesian.Fit(ctx, ds, spec, c.scope)
	if err != nil {
		o.logger.Error("bayesian fit failed for %s: %v", res.CellLabel(), err)
		res.Status = inference.StatusFailed
		res.Error = err.Error()
	} else {
		res.Bayesian = bayes
	}

	res.DeriveEffects(c.grouping)
	return res
}
