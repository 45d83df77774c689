package vaecluster

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ScoreStatus reports how a set log-likelihood was computed.
type ScoreStatus int

const (
	// ScoreOK means the fitted model was well-conditioned and every point
	// contributed to the score.
	ScoreOK ScoreStatus = iota

	// ScorePartial means the fitted covariance was singular. The returned
	// score is the sum accumulated before the failure; since the inverse is
	// factored once per model, that sum is zero. Candidate merges scored this
	// way stay in the greedy search and are simply disfavored.
	ScorePartial
)

// DensityStatus reports how a point density evaluation was computed.
type DensityStatus int

const (
	// DensityOK means the full fitted covariance was used.
	DensityOK DensityStatus = iota

	// DensityFallbackDiagonal means the full covariance was singular and the
	// evaluation was retried with only its diagonal.
	DensityFallbackDiagonal

	// DensityZero means even the diagonal was degenerate; densities under
	// this model evaluate to zero.
	DensityZero
)

// ScoreSet fits a Gaussian model to the member rows and returns the summed
// log-density of those same rows under the fitted model, along with a status
// tag describing whether the degenerate-covariance fallback fired.
func ScoreSet(points, uncertainty [][]float64, members []int, cfg Config) (float64, ScoreStatus) {
	model := FitModel(points, uncertainty, members, cfg)
	normal, ok := distmv.NewNormal(model.Mean, model.Cov, nil)
	if !ok {
		return 0, ScorePartial
	}
	var sum float64
	for _, idx := range members {
		sum += normal.LogProb(points[idx])
	}
	return sum, ScoreOK
}

// PointDensity evaluates the Gaussian density of x under the model, retrying
// with the covariance diagonal when the full matrix is singular.
func PointDensity(model CovarianceModel, x []float64) (float64, DensityStatus) {
	e := newDensityEvaluator(model)
	return e.density(x), e.status
}

// densityEvaluator evaluates point densities under one cluster model. The
// Cholesky factorization happens once at construction; a singular full
// covariance falls back to its diagonal, and a singular diagonal yields an
// evaluator whose densities are all zero.
type densityEvaluator struct {
	normal *distmv.Normal
	status DensityStatus
}

func newDensityEvaluator(model CovarianceModel) densityEvaluator {
	if normal, ok := distmv.NewNormal(model.Mean, model.Cov, nil); ok {
		return densityEvaluator{normal: normal, status: DensityOK}
	}
	d := model.Cov.SymmetricDim()
	diag := mat.NewSymDense(d, nil)
	for j := 0; j < d; j++ {
		diag.SetSym(j, j, model.Cov.At(j, j))
	}
	if normal, ok := distmv.NewNormal(model.Mean, diag, nil); ok {
		return densityEvaluator{normal: normal, status: DensityFallbackDiagonal}
	}
	return densityEvaluator{status: DensityZero}
}

func (e densityEvaluator) density(x []float64) float64 {
	if e.normal == nil {
		return 0
	}
	return math.Exp(e.normal.LogProb(x))
}
