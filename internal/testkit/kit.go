// Package testkit provides synthetic family data and fake ports for
// exercising the pipeline without real solvers or storage.
package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"epifam/domain/cohort"
	"epifam/domain/core"
	"epifam/domain/inference"
	"epifam/domain/model"
	"epifam/ports"
)

// FamilyOptions configures synthetic subject generation for one cohort.
type FamilyOptions struct {
	Cohort      cohort.Cohort
	FamilySizes []int
	Outcome     cohort.Outcome
	// Clustered makes the outcome perfectly correlated within each
	// family (a family-level coin); otherwise every subject flips
	// independently.
	Clustered bool
	Seed      int64
}

// GenerateFamilies builds a synthetic subject table. Ages vary across
// subjects so the fixed-effect design stays full rank.
func GenerateFamilies(opts FamilyOptions) []cohort.Subject {
	rng := rand.New(rand.NewSource(opts.Seed))
	epitypes := []cohort.Epitype{cohort.EpitypeFocal, cohort.EpitypeGGE, cohort.EpitypeOther}

	var subjects []cohort.Subject
	for f, size := range opts.FamilySizes {
		familyCoin := rng.Intn(2)
		for m := 0; m < size; m++ {
			y := familyCoin
			if !opts.Clustered {
				y = rng.Intn(2)
			}
			age := 20 + rng.Float64()*40
			onset := age * (0.2 + 0.6*rng.Float64())
			subjects = append(subjects, cohort.Subject{
				Cohort:       opts.Cohort,
				FamilyID:     fmt.Sprintf("fam_%02d", f+1),
				IndividualID: fmt.Sprintf("ind_%02d_%02d", f+1, m+1),
				Epitype:      epitypes[(f+m)%len(epitypes)],
				Age:          age,
				AgeOnset:     onset,
				Outcomes:     map[cohort.Outcome]int{opts.Outcome: y},
			})
		}
	}
	return subjects
}

// InMemoryFitCache is a map-backed FitCachePort.
type InMemoryFitCache struct {
	mu      sync.Mutex
	entries map[core.FitKey]*inference.BayesianFit
}

func NewInMemoryFitCache() *InMemoryFitCache {
	return &InMemoryFitCache{entries: make(map[core.FitKey]*inference.BayesianFit)}
}

func (c *InMemoryFitCache) Get(_ context.Context, key core.FitKey) (*inference.BayesianFit, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fit, ok := c.entries[key]
	return fit, ok, nil
}

func (c *InMemoryFitCache) Put(_ context.Context, key core.FitKey, fit *inference.BayesianFit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.entries[key] = fit
	}
	return nil
}

func (c *InMemoryFitCache) Delete(_ context.Context, key core.FitKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *InMemoryFitCache) Close() error { return nil }

// FakeFrequentistSolver returns canned fits keyed by grouping, or a
// fixed error, and counts invocations.
type FakeFrequentistSolver struct {
	mu    sync.Mutex
	Calls int
	Err   error
	// Log-likelihoods by grouping tag; defaults yield LRT = 0.
	LogLik map[model.Grouping]float64
	SD     float64
}

func (s *FakeFrequentistSolver) FitGLMM(_ context.Context, _ *cohort.Dataset, spec model.Spec) (*inference.FrequentistFit, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	ll := s.LogLik[spec.Grouping]
	fit := &inference.FrequentistFit{LogLik: ll}
	if spec.Grouping.HasFamily() {
		fit.Components = append(fit.Components, inference.VarianceComponent{
			Level: inference.LevelFamily, SD: inference.PointOnly(s.SD),
		})
	}
	if spec.Grouping.HasCohort() {
		fit.Components = append(fit.Components, inference.VarianceComponent{
			Level: inference.LevelCohort, SD: inference.PointOnly(s.SD / 2),
		})
	}
	return fit, nil
}

// FakeBayesianSolver returns a canned fit and counts invocations, for
// memoization and ordering tests.
type FakeBayesianSolver struct {
	mu    sync.Mutex
	Calls int
	Err   error
	SD    float64
}

func (s *FakeBayesianSolver) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

func (s *FakeBayesianSolver) Sample(_ context.Context, ds *cohort.Dataset, spec model.Spec, ctl ports.MCMCControls) (*inference.BayesianFit, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if ds == nil || len(ds.Rows) == 0 {
		return &inference.BayesianFit{NoData: true}, nil
	}

	sd := s.SD
	if sd == 0 {
		sd = 0.8
	}
	post := make([]float64, 200)
	prior := make([]float64, 200)
	rng := rand.New(rand.NewSource(ctl.Seed))
	for i := range post {
		post[i] = math.Abs(sd + 0.1*rng.NormFloat64())
		prior[i] = math.Abs(2.5 * rng.NormFloat64())
	}
	fit := &inference.BayesianFit{
		PosteriorSD: map[string][]float64{inference.LevelFamily: post},
		PriorSD:     prior,
		Components: []inference.VarianceComponent{{
			Level: inference.LevelFamily,
			SD:    inference.SummarizeDraws(post),
		}},
	}
	if spec.Grouping.HasCohort() {
		fit.PosteriorSD[inference.LevelCohort] = post
		fit.Components = append(fit.Components, inference.VarianceComponent{
			Level: inference.LevelCohort,
			SD:    inference.SummarizeDraws(post),
		})
	}
	return fit, nil
}
