package glmm

import (
	"math"

	"epifam/domain/core"

	"gonum.org/v1/gonum/mat"
)

// sigmoid is the inverse logit link.
func sigmoid(eta float64) float64 {
	return 1 / (1 + math.Exp(-eta))
}

// softplus computes log(1+exp(eta)) without overflow.
func softplus(eta float64) float64 {
	if eta > 0 {
		return eta + math.Log1p(math.Exp(-eta))
	}
	return math.Log1p(math.Exp(eta))
}

// bernoulliLogLik is the log-likelihood contribution of one observation
// at linear predictor eta.
func bernoulliLogLik(y int, eta float64) float64 {
	return float64(y)*eta - softplus(eta)
}

// irls fits a plain logistic regression by iteratively reweighted least
// squares. Returns the coefficient vector, the inverse Fisher
// information (coefficient covariance) and the achieved log-likelihood.
func irls(x [][]float64, y []int) (beta []float64, cov *mat.SymDense, logLik float64, err error) {
	n := len(x)
	if n == 0 {
		return nil, nil, math.NaN(), core.ErrEmptyDataset
	}
	p := len(x[0])
	beta = make([]float64, p)

	xm := mat.NewDense(n, p, nil)
	for i, row := range x {
		xm.SetRow(i, row)
	}

	info := mat.NewSymDense(p, nil)
	for iter := 0; iter < 100; iter++ {
		// Weighted normal equations: (X'WX) delta = X'(y - mu).
		score := make([]float64, p)
		for a := 0; a < p; a++ {
			for b := a; b < p; b++ {
				info.SetSym(a, b, 0)
			}
		}
		for i := 0; i < n; i++ {
			eta := 0.0
			for j := 0; j < p; j++ {
				eta += x[i][j] * beta[j]
			}
			mu := sigmoid(eta)
			w := mu * (1 - mu)
			resid := float64(y[i]) - mu
			for a := 0; a < p; a++ {
				score[a] += x[i][a] * resid
				for b := a; b < p; b++ {
					info.SetSym(a, b, info.At(a, b)+w*x[i][a]*x[i][b])
				}
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(info) {
			return nil, nil, math.NaN(), core.NewConvergenceError("singular information matrix in IRLS")
		}
		delta := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(delta, mat.NewVecDense(p, score)); err != nil {
			return nil, nil, math.NaN(), core.NewConvergenceError("IRLS solve failed")
		}

		maxStep := 0.0
		for j := 0; j < p; j++ {
			beta[j] += delta.AtVec(j)
			if s := math.Abs(delta.AtVec(j)); s > maxStep {
				maxStep = s
			}
		}
		if maxStep < 1e-8 {
			break
		}
		// Complete-separation guard: coefficients running away.
		if maxStep > 1e6 {
			return nil, nil, math.NaN(), core.NewConvergenceError("IRLS diverged")
		}
	}

	logLik = 0
	for i := 0; i < n; i++ {
		eta := 0.0
		for j := 0; j < p; j++ {
			eta += x[i][j] * beta[j]
		}
		logLik += bernoulliLogLik(y[i], eta)
	}

	cov = mat.NewSymDense(p, nil)
	var chol mat.Cholesky
	if chol.Factorize(info) {
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err == nil {
			cov.CopySym(&inv)
		} else {
			fillNaNSym(cov)
		}
	} else {
		fillNaNSym(cov)
	}
	return beta, cov, logLik, nil
}

func fillNaNSym(s *mat.SymDense) {
	n := s.SymmetricDim()
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			s.SetSym(a, b, math.NaN())
		}
	}
}
