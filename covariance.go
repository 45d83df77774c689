package vaecluster

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// shapeSlack is the tolerance multiplier applied to ShapeRatio before the
// eigenvalue constraint is considered violated, so a fit that already sits
// exactly on the ratio is not reworked.
const shapeSlack = 1.01

// CovarianceModel is a fitted Gaussian cluster model.
type CovarianceModel struct {
	Mean []float64
	Cov  *mat.SymDense
}

// FitModel fits a CovarianceModel to the point rows indexed by members.
// The mean is the arithmetic mean of the set. The covariance blends the
// empirical covariance (weight (n-1)/n) with a diagonal prior built from the
// mean squared uncertainty of the set (weight 1/n); a singleton degenerates
// to the prior alone. The result is shape-regularized so its eigenvalue
// anisotropy respects cfg.ShapeRatio.
func FitModel(points, uncertainty [][]float64, members []int, cfg Config) CovarianceModel {
	n := len(members)
	d := len(points[members[0]])

	mean := make([]float64, d)
	prior := make([]float64, d)
	for _, idx := range members {
		for j, v := range points[idx] {
			mean[j] += v
		}
		for j, s := range uncertainty[idx] {
			prior[j] += s * s
		}
	}
	for j := 0; j < d; j++ {
		mean[j] /= float64(n)
		prior[j] /= float64(n)
	}

	cov := mat.NewSymDense(d, nil)
	if n > 1 {
		x := mat.NewDense(n, d, nil)
		for i, idx := range members {
			x.SetRow(i, points[idx])
		}
		stat.CovarianceMatrix(cov, x, nil)
		empirical := float64(n-1) / float64(n)
		for i := 0; i < d; i++ {
			for j := 0; j <= i; j++ {
				cov.SetSym(i, j, cov.At(i, j)*empirical)
			}
		}
	}
	for j := 0; j < d; j++ {
		cov.SetSym(j, j, cov.At(j, j)+prior[j]/float64(n))
	}

	regularizeShape(cov, cfg.ShapeRatio, cfg.ChangeShape)
	return CovarianceModel{Mean: mean, Cov: cov}
}

// regularizeShape bounds the eigenvalue anisotropy of cov in place. ratio is
// the maximum allowed axis-length ratio of the ellipsoid, so eigenvalues
// (variances) are compared against its square. Each pass raises the smallest
// eigenvalue to maxEig/ratio², strictly reducing the max/min ratio, so the
// loop terminates. With changeShape the eigenvalues are additionally rescaled
// so the sum of their square roots matches its pre-adjustment value, keeping
// the ellipsoid from inflating as its smallest axis is widened.
func regularizeShape(cov *mat.SymDense, ratio float64, changeShape bool) {
	d := cov.SymmetricDim()
	slack := ratio * shapeSlack
	for {
		var es mat.EigenSym
		if !es.Factorize(cov, true) {
			return
		}
		ev := es.Values(nil) // ascending
		if ev[0]*slack*slack >= ev[d-1] {
			return
		}

		if changeShape {
			pre := sumSqrt(ev)
			ev[0] = ev[d-1] / (ratio * ratio)
			if post := sumSqrt(ev); post > 0 {
				scale := pre / post
				scale *= scale
				for i := range ev {
					ev[i] *= scale
				}
			}
		} else {
			ev[0] = ev[d-1] / (ratio * ratio)
		}

		var vecs mat.Dense
		es.VectorsTo(&vecs)
		reconstructSym(cov, &vecs, ev)
	}
}

func sumSqrt(ev []float64) float64 {
	var sum float64
	for _, v := range ev {
		sum += math.Sqrt(math.Max(v, 0))
	}
	return sum
}

// reconstructSym overwrites cov with V·diag(ev)·Vᵀ, symmetrizing to absorb
// floating-point asymmetry from the multiplications.
func reconstructSym(cov *mat.SymDense, vecs *mat.Dense, ev []float64) {
	d := len(ev)
	var scaled, full mat.Dense
	scaled.Mul(vecs, mat.NewDiagDense(d, ev))
	full.Mul(&scaled, vecs.T())
	for i := 0; i < d; i++ {
		for j := 0; j <= i; j++ {
			cov.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}
}
