// Package glmm is the maximum-likelihood solver for binomial
// random-intercept models. The marginal likelihood is approximated by
// the Laplace method: an inner Newton iteration finds the conditional
// mode of each group's random effect, an outer Nelder-Mead search
// maximizes over the fixed effects and log standard deviations.
package glmm

import (
	"context"
	"math"

	"epifam/domain/cohort"
	"epifam/domain/core"
	"epifam/domain/inference"
	"epifam/domain/model"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// log sigma is box-constrained through a soft penalty; outside these
// bounds the likelihood surface is flat enough to stall Nelder-Mead.
const (
	logSigmaMin = -7.0
	logSigmaMax = 3.0
)

// Solver implements ports.FrequentistSolverPort.
type Solver struct {
	maxOuterEvals int
}

// NewSolver creates a Laplace ML solver with default settings.
func NewSolver() *Solver {
	return &Solver{maxOuterEvals: 4000}
}

// FitGLMM fits the model described by spec to the dataset and returns
// coefficient and variance-component estimates with the achieved
// log-likelihood. Optimization failure or a non-finite likelihood wraps
// core.ErrNonConvergence.
func (s *Solver) FitGLMM(ctx context.Context, ds *cohort.Dataset, spec model.Spec) (*inference.FrequentistFit, error) {
	if ds == nil || len(ds.Rows) == 0 {
		return nil, core.ErrEmptyDataset
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x := ds.FixedDesign()
	y := ds.Responses()

	switch spec.Grouping {
	case model.GroupingNone:
		return fitFixedOnly(x, y)
	case model.GroupingFamily:
		return s.fitSingle(ctx, x, y, rowGroups(ds, true), inference.LevelFamily)
	case model.GroupingCohortOnly:
		return s.fitSingle(ctx, x, y, rowGroups(ds, false), inference.LevelCohort)
	case model.GroupingCohortFamily:
		return s.fitNested(ctx, ds, x, y)
	}
	return nil, core.NewConvergenceError("unsupported grouping")
}

// rowGroups collects row indices per grouping level.
func rowGroups(ds *cohort.Dataset, byFamily bool) [][]int {
	n := ds.NumCohorts()
	if byFamily {
		n = ds.NumFamilies()
	}
	groups := make([][]int, n)
	for i, r := range ds.Rows {
		g := r.CohortIndex
		if byFamily {
			g = r.FamilyIndex
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// fitFixedOnly is the no-random-effect comparator: plain logistic
// regression by IRLS.
func fitFixedOnly(x [][]float64, y []int) (*inference.FrequentistFit, error) {
	beta, cov, logLik, err := irls(x, y)
	if err != nil {
		return nil, err
	}
	return &inference.FrequentistFit{
		Coefficients: coefficientTable(beta, diagSE(cov)),
		LogLik:       logLik,
	}, nil
}

func (s *Solver) fitSingle(ctx context.Context, x [][]float64, y []int, groups [][]int, level string) (*inference.FrequentistFit, error) {
	p := len(x[0])
	negLL := func(theta []float64) float64 {
		sigma, penalty := boundedSigma(theta[p])
		ll := 0.0
		etaFixed := fixedPredictor(x, theta[:p])
		for _, rows := range groups {
			ll += scalarLaplace(rows, etaFixed, y, sigma)
		}
		return -ll + penalty
	}

	theta, fval, err := s.minimize(ctx, negLL, initialTheta(x, y, 1))
	if err != nil {
		return nil, err
	}
	sigma, _ := boundedSigma(theta[p])
	return &inference.FrequentistFit{
		Coefficients: coefficientTable(theta[:p], numericSE(negLL, theta, p)),
		Components: []inference.VarianceComponent{
			{Level: level, SD: inference.PointOnly(sigma)},
		},
		LogLik: -fval,
	}, nil
}

func (s *Solver) fitNested(ctx context.Context, ds *cohort.Dataset, x [][]float64, y []int) (*inference.FrequentistFit, error) {
	p := len(x[0])
	byCohort := rowGroups(ds, false)
	famOfRow := make([]int, len(ds.Rows))
	for i, r := range ds.Rows {
		famOfRow[i] = r.FamilyIndex
	}

	negLL := func(theta []float64) float64 {
		sigmaC, penC := boundedSigma(theta[p])
		sigmaF, penF := boundedSigma(theta[p+1])
		ll := 0.0
		etaFixed := fixedPredictor(x, theta[:p])
		for _, rows := range byCohort {
			ll += blockLaplace(rows, famOfRow, etaFixed, y, sigmaC, sigmaF)
		}
		return -ll + penC + penF
	}

	theta, fval, err := s.minimize(ctx, negLL, initialTheta(x, y, 2))
	if err != nil {
		return nil, err
	}
	sigmaC, _ := boundedSigma(theta[p])
	sigmaF, _ := boundedSigma(theta[p+1])
	return &inference.FrequentistFit{
		Coefficients: coefficientTable(theta[:p], numericSE(negLL, theta, p)),
		Components: []inference.VarianceComponent{
			{Level: inference.LevelCohort, SD: inference.PointOnly(sigmaC)},
			{Level: inference.LevelFamily, SD: inference.PointOnly(sigmaF)},
		},
		LogLik: -fval,
	}, nil
}

// minimize runs the outer Nelder-Mead search and screens for
// optimization failure.
func (s *Solver) minimize(ctx context.Context, negLL func([]float64) float64, x0 []float64) ([]float64, float64, error) {
	guarded := func(theta []float64) float64 {
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		v := negLL(theta)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}
	problem := optimize.Problem{Func: guarded}
	settings := &optimize.Settings{
		FuncEvaluations: s.maxOuterEvals,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-9, Iterations: 100},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err != nil {
		return nil, 0, core.NewConvergenceError(err.Error())
	}
	if result == nil || math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, 0, core.NewConvergenceError("non-finite marginal log-likelihood")
	}
	return result.X, result.F, nil
}

// initialTheta starts the fixed effects at the pooled IRLS estimate and
// each log standard deviation at log(0.5). An IRLS failure (complete
// separation) falls back to a zero start rather than aborting.
func initialTheta(x [][]float64, y []int, nSigma int) []float64 {
	p := len(x[0])
	theta := make([]float64, p+nSigma)
	if beta, _, _, err := irls(x, y); err == nil {
		copy(theta, beta)
	}
	for k := 0; k < nSigma; k++ {
		theta[p+k] = math.Log(0.5)
	}
	return theta
}

// boundedSigma maps an unconstrained log sigma to a bounded sigma plus
// a quadratic penalty outside the box.
func boundedSigma(logSigma float64) (sigma, penalty float64) {
	clamped := logSigma
	if clamped < logSigmaMin {
		clamped = logSigmaMin
	} else if clamped > logSigmaMax {
		clamped = logSigmaMax
	}
	d := logSigma - clamped
	return math.Exp(clamped), d * d
}

func fixedPredictor(x [][]float64, beta []float64) []float64 {
	eta := make([]float64, len(x))
	for i, row := range x {
		v := 0.0
		for j, b := range beta {
			v += row[j] * b
		}
		eta[i] = v
	}
	return eta
}

// scalarLaplace is the Laplace-approximate marginal log-likelihood
// contribution of one group under a single random intercept: Newton to
// the conditional mode, then the one-dimensional Gaussian correction.
func scalarLaplace(rows []int, etaFixed []float64, y []int, sigma float64) float64 {
	sigma2 := sigma * sigma
	u := 0.0
	hNeg := 1 / sigma2
	for iter := 0; iter < 100; iter++ {
		grad := -u / sigma2
		hNeg = 1 / sigma2
		for _, i := range rows {
			p := sigmoid(etaFixed[i] + u)
			grad += float64(y[i]) - p
			hNeg += p * (1 - p)
		}
		step := grad / hNeg
		u += step
		if math.Abs(step) < 1e-10 {
			break
		}
	}

	h := -u*u/(2*sigma2) - 0.5*math.Log(2*math.Pi*sigma2)
	for _, i := range rows {
		h += bernoulliLogLik(y[i], etaFixed[i]+u)
	}
	return h + 0.5*math.Log(2*math.Pi) - 0.5*math.Log(hNeg)
}

// blockLaplace handles one cohort under the nested grouping: the block
// is the cohort intercept plus every family intercept inside it, with
// a multivariate Newton iteration and a Cholesky log-determinant
// correction.
func blockLaplace(rows []int, famOfRow []int, etaFixed []float64, y []int, sigmaC, sigmaF float64) float64 {
	// Localize family indices within the cohort block.
	local := make(map[int]int)
	for _, i := range rows {
		if _, ok := local[famOfRow[i]]; !ok {
			local[famOfRow[i]] = len(local)
		}
	}
	m := len(local)
	dim := m + 1 // slot 0 is the cohort intercept
	sigC2, sigF2 := sigmaC*sigmaC, sigmaF*sigmaF

	z := make([]float64, dim)
	hess := mat.NewSymDense(dim, nil)
	grad := make([]float64, dim)
	var chol mat.Cholesky

	for iter := 0; iter < 100; iter++ {
		grad[0] = -z[0] / sigC2
		for f := 1; f < dim; f++ {
			grad[f] = -z[f] / sigF2
		}
		hess.Zero()
		hess.SetSym(0, 0, 1/sigC2)
		for f := 1; f < dim; f++ {
			hess.SetSym(f, f, 1/sigF2)
		}
		for _, i := range rows {
			f := local[famOfRow[i]] + 1
			p := sigmoid(etaFixed[i] + z[0] + z[f])
			w := p * (1 - p)
			r := float64(y[i]) - p
			grad[0] += r
			grad[f] += r
			hess.SetSym(0, 0, hess.At(0, 0)+w)
			hess.SetSym(0, f, hess.At(0, f)+w)
			hess.SetSym(f, f, hess.At(f, f)+w)
		}

		if !chol.Factorize(hess) {
			return math.Inf(-1)
		}
		step := mat.NewVecDense(dim, nil)
		if err := chol.SolveVecTo(step, mat.NewVecDense(dim, grad)); err != nil {
			return math.Inf(-1)
		}
		maxStep := 0.0
		for k := 0; k < dim; k++ {
			z[k] += step.AtVec(k)
			if s := math.Abs(step.AtVec(k)); s > maxStep {
				maxStep = s
			}
		}
		if maxStep < 1e-10 {
			break
		}
	}

	h := -z[0]*z[0]/(2*sigC2) - 0.5*math.Log(2*math.Pi*sigC2)
	for f := 1; f < dim; f++ {
		h += -z[f]*z[f]/(2*sigF2) - 0.5*math.Log(2*math.Pi*sigF2)
	}
	for _, i := range rows {
		f := local[famOfRow[i]] + 1
		h += bernoulliLogLik(y[i], etaFixed[i]+z[0]+z[f])
	}
	return h + 0.5*float64(dim)*math.Log(2*math.Pi) - 0.5*chol.LogDet()
}

// numericSE estimates fixed-effect standard errors from a central
// difference Hessian of the negative marginal log-likelihood, holding
// the variance parameters at their estimates.
func numericSE(negLL func([]float64) float64, theta []float64, p int) []float64 {
	hess := mat.NewSymDense(p, nil)
	step := make([]float64, p)
	for j := 0; j < p; j++ {
		step[j] = 1e-4 * (1 + math.Abs(theta[j]))
	}
	perturb := func(a, b int, sa, sb float64) float64 {
		t := append([]float64(nil), theta...)
		t[a] += sa * step[a]
		t[b] += sb * step[b]
		return negLL(t)
	}
	f0 := negLL(theta)
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			var d2 float64
			if a == b {
				d2 = (perturb(a, a, 1, 0) - 2*f0 + perturb(a, a, -1, 0)) / (step[a] * step[a])
			} else {
				d2 = (perturb(a, b, 1, 1) - perturb(a, b, 1, -1) - perturb(a, b, -1, 1) + perturb(a, b, -1, -1)) /
					(4 * step[a] * step[b])
			}
			hess.SetSym(a, b, d2)
		}
	}

	se := make([]float64, p)
	var chol mat.Cholesky
	if !chol.Factorize(hess) {
		for j := range se {
			se[j] = math.NaN()
		}
		return se
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		for j := range se {
			se[j] = math.NaN()
		}
		return se
	}
	for j := 0; j < p; j++ {
		se[j] = math.Sqrt(inv.At(j, j))
	}
	return se
}

func diagSE(cov *mat.SymDense) []float64 {
	p := cov.SymmetricDim()
	se := make([]float64, p)
	for j := 0; j < p; j++ {
		se[j] = math.Sqrt(cov.At(j, j))
	}
	return se
}

// coefficientTable assembles the fixed-effect summary with Wald z-test
// significance flags.
func coefficientTable(beta, se []float64) []inference.Coefficient {
	norm := distuv.UnitNormal
	terms := cohort.FixedTerms()
	out := make([]inference.Coefficient, len(beta))
	for j := range beta {
		z := math.Abs(beta[j] / se[j])
		pval := 2 * norm.Survival(z)
		out[j] = inference.Coefficient{
			Term:        terms[j],
			Estimate:    beta[j],
			StdErr:      se[j],
			Lower:       beta[j] - 1.96*se[j],
			Upper:       beta[j] + 1.96*se[j],
			Significant: pval < inference.Alpha,
		}
	}
	return out
}
