package vaecluster

import (
	"fmt"
	"runtime"
)

// Config controls clustering behavior.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// ShapeRatio is the maximum allowed ratio between the longest and
	// shortest axis of a fitted cluster ellipsoid. It bounds how anisotropic
	// a covariance can become when fit on a small cluster. Must be > 0.
	// Default: 3.
	ShapeRatio float64

	// ChangeShape additionally rescales all eigenvalues during shape
	// regularization so the sum of the ellipsoid's axis lengths is held
	// constant, preventing the ellipsoid from inflating as its smallest axis
	// is widened. Default: false.
	ChangeShape bool

	// PremergeCount is the number of cheap distance-based merges performed
	// before likelihood-driven agglomeration. 0 skips the premerge pass
	// entirely; -1 selects the default ⌊3n/4⌋. Values are capped at n-1.
	// Must be >= -1 and < n. Default: -1.
	PremergeCount int

	// Proportional divides each candidate merge's log-likelihood by the size
	// of the merged set, penalizing the absorption of small clusters into
	// one giant one. Default: false.
	Proportional bool

	// TargetClusters is the number of flat clusters to cut and refine after
	// the hierarchy is built. 0 returns the hierarchy only, with all-zero
	// labels. Must be in [0, n]. Default: 0.
	TargetClusters int

	// Sweeps is the number of hard reassignment passes run after the
	// dendrogram cut. 0 means the default of 1; this is deliberately not an
	// EM loop run to convergence. Default: 1.
	Sweeps int

	// Workers controls the number of goroutines for parallelizable stages
	// (first-iteration pairwise scores, per-cluster fits, density rows).
	// 0 means use runtime.NumCPU(). Default: 0 (auto).
	Workers int

	// PremergeMetric is the centroid distance used by the premerge pass.
	// Default: EuclideanMetric.
	PremergeMetric DistanceMetric

	// Reconstruction is an optional artifact from the embedding step. It is
	// stored on the Result untouched and plays no part in clustering.
	Reconstruction [][]float64
}

// Result bundles the outputs of a clustering run. It is not mutated by any
// method; re-cutting at a different cluster count returns a fresh Assignment
// and leaves the tree untouched.
type Result struct {
	// Points and Uncertainty are the inputs the hierarchy was built from.
	Points      [][]float64
	Uncertainty [][]float64

	// Reconstruction is the pass-through artifact from Config, if any.
	Reconstruction [][]float64

	// Tree is the completed merge tree over all n points.
	Tree *LinkageTree

	// LinkageTable holds the n-1 merge rows in scipy linkage format:
	// [left, right, loglik, size]. Premerge rows carry a placeholder 0 score.
	LinkageTable [][4]float64

	// LogLikelihoodTrace is the total partition log-likelihood per
	// agglomeration step, from the starting partition down to one cluster
	// (length n - premerge count).
	LogLikelihoodTrace []float64

	// Assignment is the flat clustering at Config.TargetClusters, or a
	// zero-labeled placeholder when no cut was requested.
	Assignment Assignment

	cfg Config
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		ShapeRatio:     3,
		PremergeCount:  -1,
		Sweeps:         1,
		PremergeMetric: EuclideanMetric{},
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.ShapeRatio == 0 {
		cfg.ShapeRatio = 3
	}
	if cfg.Sweeps == 0 {
		cfg.Sweeps = 1
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.PremergeMetric == nil {
		cfg.PremergeMetric = EuclideanMetric{}
	}
}

// validateConfig checks cfg against the input size and returns a descriptive
// error if a field is out of range. It runs before any computation starts.
func validateConfig(cfg *Config, n int) error {
	if cfg.ShapeRatio <= 0 {
		return fmt.Errorf("vaecluster: ShapeRatio must be > 0, got %f", cfg.ShapeRatio)
	}
	if cfg.TargetClusters < 0 || cfg.TargetClusters > n {
		return fmt.Errorf("vaecluster: TargetClusters must be in [0, %d], got %d", n, cfg.TargetClusters)
	}
	if cfg.PremergeCount < -1 || cfg.PremergeCount >= n {
		return fmt.Errorf("vaecluster: PremergeCount must be in [-1, %d], got %d", n-1, cfg.PremergeCount)
	}
	if cfg.Sweeps < 0 {
		return fmt.Errorf("vaecluster: Sweeps must be >= 0, got %d", cfg.Sweeps)
	}
	return nil
}

// Cluster builds the merge hierarchy for the given points and, when
// cfg.TargetClusters > 0, cuts and refines it into a flat assignment. Each
// points row is one d-dimensional coordinate; uncertainty rows are matching
// per-dimension standard deviations and default to all ones when their shape
// does not match points. Returns an error if the config is invalid or points
// is empty or ragged.
func Cluster(points, uncertainty [][]float64, cfg Config) (*Result, error) {
	n := len(points)
	if n == 0 {
		return nil, fmt.Errorf("vaecluster: points must not be empty")
	}
	dims := len(points[0])
	if dims == 0 {
		return nil, fmt.Errorf("vaecluster: points must have at least one dimension")
	}
	for i, row := range points {
		if len(row) != dims {
			return nil, fmt.Errorf("vaecluster: points row %d has %d dims, want %d", i, len(row), dims)
		}
	}

	applyDefaults(&cfg)
	if err := validateConfig(&cfg, n); err != nil {
		return nil, err
	}

	uncertainty = normalizeUncertainty(points, uncertainty, n, dims)

	premerges := cfg.PremergeCount
	if premerges == -1 {
		premerges = 3 * n / 4
	}
	if premerges > n-1 {
		premerges = n - 1
	}

	tree := NewLinkageTree(n)
	PreMerge(tree, points, premerges, cfg.PremergeMetric)
	trace := Agglomerate(tree, points, uncertainty, cfg)

	result := &Result{
		Points:             points,
		Uncertainty:        uncertainty,
		Reconstruction:     cfg.Reconstruction,
		Tree:               tree,
		LinkageTable:       tree.Table(),
		LogLikelihoodTrace: trace,
		cfg:                cfg,
	}

	if cfg.TargetClusters > 0 {
		result.Assignment = Refine(tree, points, uncertainty, cfg.TargetClusters, cfg.Sweeps, cfg)
	} else {
		result.Assignment = Assignment{
			Labels:    make([]int, n),
			Densities: make([]float64, n),
		}
	}
	return result, nil
}

// Cut re-cuts the hierarchy at k clusters with the given number of
// reassignment sweeps (0 means the default of 1) and returns a fresh
// Assignment. The tree is never mutated, so Cut may be called any number of
// times with different k.
func (r *Result) Cut(k, sweeps int) (Assignment, error) {
	n := len(r.Points)
	if k < 1 || k > n {
		return Assignment{}, fmt.Errorf("vaecluster: cluster count must be in [1, %d], got %d", n, k)
	}
	if sweeps < 0 {
		return Assignment{}, fmt.Errorf("vaecluster: sweeps must be >= 0, got %d", sweeps)
	}
	if sweeps == 0 {
		sweeps = 1
	}
	return Refine(r.Tree, r.Points, r.Uncertainty, k, sweeps, r.cfg), nil
}

// normalizeUncertainty returns uncertainty unchanged when its shape matches
// points, and an all-ones matrix otherwise.
func normalizeUncertainty(points, uncertainty [][]float64, n, dims int) [][]float64 {
	ok := len(uncertainty) == n
	if ok {
		for _, row := range uncertainty {
			if len(row) != dims {
				ok = false
				break
			}
		}
	}
	if ok {
		return uncertainty
	}
	ones := make([][]float64, n)
	for i := range ones {
		row := make([]float64, dims)
		for j := range row {
			row[j] = 1
		}
		ones[i] = row
	}
	return ones
}
