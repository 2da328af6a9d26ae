// Package mcmc is the Bayesian solver: a random-walk
// Metropolis-within-Gibbs sampler for binomial-logit mixed models with
// half-Student-t variance priors. Chains run in parallel; step sizes
// adapt during warmup toward the configured acceptance target.
package mcmc

import (
	"context"
	"math"
	"math/rand"

	"epifam/domain/cohort"
	"epifam/domain/core"
	"epifam/domain/inference"
	"epifam/domain/model"
	"epifam/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler implements ports.BayesianSolverPort.
type Sampler struct{}

// NewSampler creates an MCMC solver.
func NewSampler() *Sampler {
	return &Sampler{}
}

// Sample draws from the posterior of the model described by spec. An
// empty dataset returns the no-data sentinel fit. Prior draws of the
// variance-component standard deviation are attached when requested so
// the Savage-Dickey calculator has both densities.
func (s *Sampler) Sample(ctx context.Context, ds *cohort.Dataset, spec model.Spec, ctl ports.MCMCControls) (*inference.BayesianFit, error) {
	if ds == nil || len(ds.Rows) == 0 {
		return &inference.BayesianFit{NoData: true}, nil
	}
	if ctl.Chains < 1 || ctl.Draws < 1 {
		return nil, core.NewSamplingError("invalid sampling controls")
	}

	st := newModelState(ds, spec)

	chains := make([]*chainDraws, ctl.Chains)
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < ctl.Chains; c++ {
		c := c
		g.Go(func() error {
			draws, err := runChain(gctx, st, ctl, ctl.Seed+int64(c)*7919)
			if err != nil {
				return err
			}
			chains[c] = draws
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fit := assembleFit(st, chains)
	if ctl.SamplePrior {
		fit.PriorSD = priorSDDraws(spec.Priors.VariancePrior(), ctl.Chains*ctl.Draws, ctl.Seed)
	}
	for _, draws := range fit.PosteriorSD {
		if len(inference.FiniteDraws(draws)) < len(draws) {
			return nil, core.NewSamplingError("non-finite draws in posterior sample")
		}
	}
	return fit, nil
}

// modelState is the static part of the posterior: data, design and
// priors shared across chains.
type modelState struct {
	x        [][]float64
	y        []int
	famOfRow []int
	cohOfRow []int
	nFam     int
	nCoh     int
	grouping model.Grouping
	priors   model.PriorConfig
}

func newModelState(ds *cohort.Dataset, spec model.Spec) *modelState {
	st := &modelState{
		x:        ds.FixedDesign(),
		y:        ds.Responses(),
		famOfRow: make([]int, len(ds.Rows)),
		cohOfRow: make([]int, len(ds.Rows)),
		nFam:     ds.NumFamilies(),
		nCoh:     ds.NumCohorts(),
		grouping: spec.Grouping,
		priors:   spec.Priors,
	}
	for i, r := range ds.Rows {
		st.famOfRow[i] = r.FamilyIndex
		st.cohOfRow[i] = r.CohortIndex
	}
	return st
}

// chainState is the mutable parameter vector of one chain.
type chainState struct {
	beta    []float64
	uFam    []float64
	vCoh    []float64
	logSigF float64
	logSigC float64
}

type chainDraws struct {
	beta   [][]float64 // [param][draw]
	sigFam []float64
	sigCoh []float64
}

func runChain(ctx context.Context, st *modelState, ctl ports.MCMCControls, seed int64) (*chainDraws, error) {
	rng := rand.New(rand.NewSource(seed))
	p := len(st.x[0])

	cs := &chainState{
		beta:    make([]float64, p),
		uFam:    make([]float64, st.nFam),
		logSigF: math.Log(0.5),
		logSigC: math.Log(0.5),
	}
	if st.grouping.HasCohort() {
		cs.vCoh = make([]float64, st.nCoh)
	}

	// One adaptive step size per parameter block.
	steps := map[string]*adaptiveStep{
		"beta":  newAdaptiveStep(0.2, ctl.TargetAccept),
		"u":     newAdaptiveStep(0.5, ctl.TargetAccept),
		"v":     newAdaptiveStep(0.5, ctl.TargetAccept),
		"sigma": newAdaptiveStep(0.3, ctl.TargetAccept),
	}

	out := &chainDraws{
		beta:   make([][]float64, p),
		sigFam: make([]float64, 0, ctl.Draws),
		sigCoh: make([]float64, 0, ctl.Draws),
	}
	for j := range out.beta {
		out.beta[j] = make([]float64, 0, ctl.Draws)
	}

	total := ctl.Warmup + ctl.Draws
	for iter := 0; iter < total; iter++ {
		if iter%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		warmup := iter < ctl.Warmup

		sweepBeta(st, cs, rng, steps["beta"], warmup)
		sweepFamily(st, cs, rng, steps["u"], warmup)
		if st.grouping.HasCohort() {
			sweepCohort(st, cs, rng, steps["v"], warmup)
			sweepLogSigma(st, cs, rng, steps["sigma"], warmup, true)
		}
		sweepLogSigma(st, cs, rng, steps["sigma"], warmup, false)

		if !warmup {
			for j := 0; j < p; j++ {
				out.beta[j] = append(out.beta[j], cs.beta[j])
			}
			out.sigFam = append(out.sigFam, math.Exp(cs.logSigF))
			if st.grouping.HasCohort() {
				out.sigCoh = append(out.sigCoh, math.Exp(cs.logSigC))
			}
		}
	}
	return out, nil
}

// linearPredictor evaluates eta for row i under the current state.
func linearPredictor(st *modelState, cs *chainState, i int) float64 {
	eta := 0.0
	for j, b := range cs.beta {
		eta += st.x[i][j] * b
	}
	if st.grouping.HasFamily() {
		eta += cs.uFam[st.famOfRow[i]]
	}
	if st.grouping.HasCohort() {
		eta += cs.vCoh[st.cohOfRow[i]]
	}
	return eta
}

func dataLogLik(st *modelState, cs *chainState) float64 {
	ll := 0.0
	for i := range st.y {
		eta := linearPredictor(st, cs, i)
		ll += float64(st.y[i])*eta - softplus(eta)
	}
	return ll
}

func softplus(eta float64) float64 {
	if eta > 0 {
		return eta + math.Log1p(math.Exp(-eta))
	}
	return math.Log1p(math.Exp(eta))
}

// betaLogPrior is zero under the default flat prior; a configured
// normal override contributes its log density.
func betaLogPrior(priors model.PriorConfig, beta []float64) float64 {
	if priors.Fixed == nil {
		return 0
	}
	lp := 0.0
	for _, b := range beta {
		lp += logPriorDensity(*priors.Fixed, b)
	}
	return lp
}

// halfLogPrior evaluates the variance prior on the standard-deviation
// scale; sigma is constrained positive so the half-distribution differs
// from the full one only by a constant that cancels in MH ratios.
func halfLogPrior(prior model.Prior, sigma float64) float64 {
	if sigma <= 0 {
		return math.Inf(-1)
	}
	return logPriorDensity(prior, sigma)
}

func logPriorDensity(prior model.Prior, x float64) float64 {
	switch prior.Family {
	case "normal":
		d := distuv.Normal{Mu: prior.Location, Sigma: prior.Scale}
		return math.Log(d.Prob(x))
	default: // student_t
		d := distuv.StudentsT{Mu: prior.Location, Sigma: prior.Scale, Nu: prior.Df}
		return math.Log(d.Prob(x))
	}
}

func sweepBeta(st *modelState, cs *chainState, rng *rand.Rand, step *adaptiveStep, warmup bool) {
	for j := range cs.beta {
		current := dataLogLik(st, cs) + betaLogPrior(st.priors, cs.beta)
		old := cs.beta[j]
		cs.beta[j] = old + rng.NormFloat64()*step.size
		proposed := dataLogLik(st, cs) + betaLogPrior(st.priors, cs.beta)
		if !accept(rng, proposed-current) {
			cs.beta[j] = old
		} else {
			step.accepted++
		}
		step.tick(warmup)
	}
}

// sweepFamily updates each family intercept. Only rows in the family
// enter the likelihood delta, so the update is cheap.
func sweepFamily(st *modelState, cs *chainState, rng *rand.Rand, step *adaptiveStep, warmup bool) {
	sigF := math.Exp(cs.logSigF)
	for f := range cs.uFam {
		old := cs.uFam[f]
		proposal := old + rng.NormFloat64()*step.size
		delta := gaussLogDensity(proposal, sigF) - gaussLogDensity(old, sigF)
		for i := range st.y {
			if st.famOfRow[i] != f {
				continue
			}
			etaOld := linearPredictor(st, cs, i)
			etaNew := etaOld - old + proposal
			delta += float64(st.y[i])*(etaNew-etaOld) - softplus(etaNew) + softplus(etaOld)
		}
		if accept(rng, delta) {
			cs.uFam[f] = proposal
			step.accepted++
		}
		step.tick(warmup)
	}
}

func sweepCohort(st *modelState, cs *chainState, rng *rand.Rand, step *adaptiveStep, warmup bool) {
	sigC := math.Exp(cs.logSigC)
	for c := range cs.vCoh {
		old := cs.vCoh[c]
		proposal := old + rng.NormFloat64()*step.size
		delta := gaussLogDensity(proposal, sigC) - gaussLogDensity(old, sigC)
		for i := range st.y {
			if st.cohOfRow[i] != c {
				continue
			}
			etaOld := linearPredictor(st, cs, i)
			etaNew := etaOld - old + proposal
			delta += float64(st.y[i])*(etaNew-etaOld) - softplus(etaNew) + softplus(etaOld)
		}
		if accept(rng, delta) {
			cs.vCoh[c] = proposal
			step.accepted++
		}
		step.tick(warmup)
	}
}

// sweepLogSigma updates one log standard deviation. The target includes
// the gaussian density of the intercepts, the half prior on sigma, and
// the log-scale Jacobian.
func sweepLogSigma(st *modelState, cs *chainState, rng *rand.Rand, step *adaptiveStep, warmup, cohortLevel bool) {
	prior := st.priors.VariancePrior()
	effects := cs.uFam
	current := cs.logSigF
	if cohortLevel {
		effects = cs.vCoh
		current = cs.logSigC
	}

	target := func(logSig float64) float64 {
		sig := math.Exp(logSig)
		lp := halfLogPrior(prior, sig) + logSig // Jacobian of the log transform
		for _, u := range effects {
			lp += gaussLogDensity(u, sig)
		}
		return lp
	}

	proposal := current + rng.NormFloat64()*step.size
	if accept(rng, target(proposal)-target(current)) {
		if cohortLevel {
			cs.logSigC = proposal
		} else {
			cs.logSigF = proposal
		}
		step.accepted++
	}
	step.tick(warmup)
}

func gaussLogDensity(u, sigma float64) float64 {
	return -u*u/(2*sigma*sigma) - math.Log(sigma) - 0.5*math.Log(2*math.Pi)
}

func accept(rng *rand.Rand, logRatio float64) bool {
	if math.IsNaN(logRatio) {
		return false
	}
	if logRatio >= 0 {
		return true
	}
	return math.Log(rng.Float64()) < logRatio
}

// adaptiveStep tunes a random-walk scale toward the target acceptance
// rate in windows of 50 proposals. Adaptation stops after warmup so the
// retained chain is a valid MH sample.
type adaptiveStep struct {
	size      float64
	target    float64
	accepted  int
	proposals int
}

func newAdaptiveStep(initial, target float64) *adaptiveStep {
	return &adaptiveStep{size: initial, target: target}
}

func (a *adaptiveStep) tick(warmup bool) {
	a.proposals++
	if !warmup || a.proposals%50 != 0 {
		return
	}
	rate := float64(a.accepted) / 50
	if rate > a.target {
		a.size *= 1.1
	} else {
		a.size *= 0.9
	}
	if a.size < 1e-4 {
		a.size = 1e-4
	}
	a.accepted = 0
}

// assembleFit pools chains and reduces to the fit summary.
func assembleFit(st *modelState, chains []*chainDraws) *inference.BayesianFit {
	p := len(st.x[0])
	pooledBeta := make([][]float64, p)
	var pooledFam, pooledCoh []float64
	for _, c := range chains {
		for j := 0; j < p; j++ {
			pooledBeta[j] = append(pooledBeta[j], c.beta[j]...)
		}
		pooledFam = append(pooledFam, c.sigFam...)
		pooledCoh = append(pooledCoh, c.sigCoh...)
	}

	terms := cohort.FixedTerms()
	coefs := make([]inference.Coefficient, p)
	for j := 0; j < p; j++ {
		s := inference.SummarizeDraws(pooledBeta[j])
		coefs[j] = inference.Coefficient{
			Term:        terms[j],
			Estimate:    s.Point,
			StdErr:      math.NaN(),
			Lower:       s.Lower,
			Upper:       s.Upper,
			Significant: s.Lower > 0 || s.Upper < 0,
		}
	}

	fit := &inference.BayesianFit{
		Coefficients: coefs,
		PosteriorSD:  map[string][]float64{inference.LevelFamily: pooledFam},
	}
	fit.Components = append(fit.Components, inference.VarianceComponent{
		Level: inference.LevelFamily,
		SD:    inference.SummarizeDraws(pooledFam),
	})
	if st.grouping.HasCohort() {
		fit.PosteriorSD[inference.LevelCohort] = pooledCoh
		fit.Components = append([]inference.VarianceComponent{{
			Level: inference.LevelCohort,
			SD:    inference.SummarizeDraws(pooledCoh),
		}}, fit.Components...)
	}
	return fit
}

// priorSDDraws samples the half prior on the standard deviation
// directly: the absolute value of a draw from the location-zero
// Student-t (or normal override), by inverse-CDF transform so the
// stream is reproducible from the run seed.
func priorSDDraws(prior model.Prior, n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed ^ 0x5f3759df))
	draws := make([]float64, n)
	switch prior.Family {
	case "normal":
		d := distuv.Normal{Mu: 0, Sigma: prior.Scale}
		for i := range draws {
			draws[i] = math.Abs(d.Quantile(rng.Float64()))
		}
	default:
		d := distuv.StudentsT{Mu: 0, Sigma: prior.Scale, Nu: prior.Df}
		for i := range draws {
			draws[i] = math.Abs(d.Quantile(rng.Float64()))
		}
	}
	return draws
}
