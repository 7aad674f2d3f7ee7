package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type CGResult struct {
	Iterations int
	Residual   float64 // ||b - Ax|| / ||b|| at exit
	Converged  bool
}

// ConjugateGradient solves A x = b for symmetric positive (semi)definite A
// using a Jacobi (diagonal) preconditioner, starting from the contents of x.
// When removeMean is true the system is treated as a pure Neumann problem:
// the mean of b is projected out before iterating and the mean of x is
// removed at exit.
func ConjugateGradient(A CSR, b, x []float64, tol float64, maxIter int, removeMean bool) (res CGResult) {
	var (
		n     = len(b)
		r     = make([]float64, n)
		z     = make([]float64, n)
		d     = make([]float64, n)
		Ad    = make([]float64, n)
		rhs   = b
		dinv  = A.Diagonal()
		bNorm float64
	)
	if removeMean {
		rhs = make([]float64, n)
		copy(rhs, b)
		subtractMean(rhs)
	}
	for i, v := range dinv {
		if v != 0 {
			dinv[i] = 1. / v
		} else {
			dinv[i] = 1.
		}
	}
	if bNorm = floats.Norm(rhs, 2); bNorm == 0 {
		for i := range x {
			x[i] = 0
		}
		res.Converged = true
		return
	}
	A.MulVec(Ad, x)
	floats.SubTo(r, rhs, Ad)
	floats.MulTo(z, dinv, r)
	copy(d, z)
	rz := floats.Dot(r, z)
	for res.Iterations = 0; res.Iterations < maxIter; res.Iterations++ {
		if res.Residual = floats.Norm(r, 2) / bNorm; res.Residual < tol {
			res.Converged = true
			break
		}
		A.MulVec(Ad, d)
		dAd := floats.Dot(d, Ad)
		if dAd <= 0 || math.IsNaN(dAd) {
			break
		}
		alpha := rz / dAd
		floats.AddScaled(x, alpha, d)
		floats.AddScaled(r, -alpha, Ad)
		floats.MulTo(z, dinv, r)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		// d = z + beta d
		floats.Scale(beta, d)
		floats.Add(d, z)
	}
	if !res.Converged {
		res.Residual = floats.Norm(r, 2) / bNorm
		res.Converged = res.Residual < tol
	}
	if removeMean {
		subtractMean(x)
	}
	return
}

func subtractMean(x []float64) {
	if len(x) == 0 {
		return
	}
	mean := floats.Sum(x) / float64(len(x))
	floats.AddConst(-mean, x)
}
