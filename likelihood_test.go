package vaecluster

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestScoreSetSinglePointClosedForm(t *testing.T) {
	// A singleton fits mean = the point and covariance = identity (unit
	// uncertainty prior), so the score is the log-density at the mode:
	// -d/2·log(2π) with d=2.
	points := [][]float64{{1, 2}}
	uncertainty := [][]float64{{1, 1}}

	score, status := ScoreSet(points, uncertainty, []int{0}, DefaultConfig())
	if status != ScoreOK {
		t.Fatalf("status = %v, want ScoreOK", status)
	}
	want := -math.Log(2 * math.Pi)
	if math.Abs(score-want) > 1e-12 {
		t.Errorf("score = %g, want %g", score, want)
	}
}

func TestScoreSetSingularCovarianceReturnsPartial(t *testing.T) {
	// Identical points with zero uncertainty produce an all-zero covariance
	// the shape constraint cannot repair; the scorer must fall back to the
	// accumulated partial sum instead of failing.
	points := [][]float64{{1, 1}, {1, 1}}
	uncertainty := [][]float64{{0, 0}, {0, 0}}

	score, status := ScoreSet(points, uncertainty, []int{0, 1}, DefaultConfig())
	if status != ScorePartial {
		t.Fatalf("status = %v, want ScorePartial", status)
	}
	if score != 0 {
		t.Errorf("partial score = %g, want 0", score)
	}
}

func TestScoreSetPrefersTightSets(t *testing.T) {
	points := [][]float64{{0, 0}, {0.1, 0}, {8, 8}}
	uncertainty := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	cfg := DefaultConfig()

	tight, status := ScoreSet(points, uncertainty, []int{0, 1}, cfg)
	if status != ScoreOK {
		t.Fatalf("tight status = %v, want ScoreOK", status)
	}
	spread, status := ScoreSet(points, uncertainty, []int{0, 2}, cfg)
	if status != ScoreOK {
		t.Fatalf("spread status = %v, want ScoreOK", status)
	}
	if tight <= spread {
		t.Errorf("tight pair scored %g, spread pair %g; want tight > spread", tight, spread)
	}
}

func TestPointDensityDiagonalFallback(t *testing.T) {
	// Rank-deficient full covariance with a healthy diagonal: density must
	// be evaluated under diag(Σ) and tagged as the fallback path.
	cov := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	model := CovarianceModel{Mean: []float64{0, 0}, Cov: cov}

	density, status := PointDensity(model, []float64{0, 0})
	if status != DensityFallbackDiagonal {
		t.Fatalf("status = %v, want DensityFallbackDiagonal", status)
	}
	want := 1 / (2 * math.Pi) // N(0; 0, I) in 2D
	if math.Abs(density-want) > 1e-12 {
		t.Errorf("density = %g, want %g", density, want)
	}
}

func TestPointDensityDegenerateDiagonal(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{0, 0, 0, 0})
	model := CovarianceModel{Mean: []float64{0, 0}, Cov: cov}

	density, status := PointDensity(model, []float64{1, 1})
	if status != DensityZero {
		t.Fatalf("status = %v, want DensityZero", status)
	}
	if density != 0 {
		t.Errorf("density = %g, want 0", density)
	}
}
