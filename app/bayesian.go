package app

import (
	"context"
	"hash/fnv"
	"sync"

	"epifam/domain/cohort"
	"epifam/domain/inference"
	"epifam/domain/model"
	"epifam/ports"
)

// BayesianFitter runs the MCMC solver with file-based memoization. The
// cache key is derived from the fit configuration alone; a cached fit
// is authoritative unless Refresh is set for the run. Writes for a
// given key are serialized through striped locks so concurrent cells
// cannot race on one entry.
type BayesianFitter struct {
	solver  ports.BayesianSolverPort
	cache   ports.FitCachePort // nil disables memoization
	refresh bool
	seed    int64
	locks   [64]sync.Mutex
}

// NewBayesianFitter creates a Bayesian fitter. The refresh policy is
// explicit per-run configuration, never ambient state.
func NewBayesianFitter(solver ports.BayesianSolverPort, cache ports.FitCachePort, refresh bool, seed int64) *BayesianFitter {
	return &BayesianFitter{solver: solver, cache: cache, refresh: refresh, seed: seed}
}

// Fit returns the (possibly cached) Bayesian fit for the configuration.
// An empty dataset yields the no-data sentinel from the solver; it is
// cached like any other fit.
func (f *BayesianFitter) Fit(ctx context.Context, ds *cohort.Dataset, spec model.Spec, scope string) (*inference.BayesianFit, error) {
	key := spec.FitKey(scope)

	lock := &f.locks[stripe(string(key))]
	lock.Lock()
	defer lock.Unlock()

	if f.cache != nil && !f.refresh {
		if fit, ok, err := f.cache.Get(ctx, key); err == nil && ok {
			return fit, nil
		}
	}

	ctl := ports.DefaultControls(spec.Grouping, f.seed)
	fit, err := f.solver.Sample(ctx, ds, spec, ctl)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		if f.refresh {
			// Entries are write-once; clear before replacing.
			_ = f.cache.Delete(ctx, key)
		}
		// Best-effort: a failed cache write never fails the fit.
		_ = f.cache.Put(ctx, key, fit)
	}
	return fit, nil
}

func stripe(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % 64)
}
