package vaecluster

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// scorePairsParallel computes merge scores for the given slot pairs, fanning
// out across up to workers goroutines. Each result is written to the output
// index of its pair, so the returned slice is identical to the sequential
// path regardless of scheduling. Falls back to a plain loop when workers <= 1
// or only one pair is requested.
func scorePairsParallel(pairs [][2]int, score func(i, j int) float64, workers int) []float64 {
	out := make([]float64, len(pairs))
	if workers <= 1 || len(pairs) <= 1 {
		for idx, p := range pairs {
			out[idx] = score(p[0], p[1])
		}
		return out
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for idx, p := range pairs {
		g.Go(func() error {
			out[idx] = score(p[0], p[1])
			return nil
		})
	}
	_ = g.Wait() // score never errors
	return out
}

// fitClusterEvaluators fits a density evaluator per cluster, in parallel
// across up to cfg.Workers goroutines. Clusters do not overlap, so fits are
// independent; an empty cluster yields an evaluator whose densities are all
// zero.
func fitClusterEvaluators(points, uncertainty [][]float64, labels []int, k int, cfg Config) []densityEvaluator {
	memberLists := clusterMembers(labels, k)
	evals := make([]densityEvaluator, k)

	fit := func(c int) {
		if len(memberLists[c]) == 0 {
			evals[c] = densityEvaluator{status: DensityZero}
			return
		}
		evals[c] = newDensityEvaluator(FitModel(points, uncertainty, memberLists[c], cfg))
	}

	if cfg.Workers <= 1 || k <= 1 {
		for c := 0; c < k; c++ {
			fit(c)
		}
		return evals
	}

	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)
	for c := 0; c < k; c++ {
		g.Go(func() error {
			fit(c)
			return nil
		})
	}
	_ = g.Wait()
	return evals
}

// computeDensityMatrix evaluates every point's density under every cluster
// model, returning an n×k matrix.
func computeDensityMatrix(points [][]float64, evals []densityEvaluator) [][]float64 {
	density := make([][]float64, len(points))
	for i, x := range points {
		row := make([]float64, len(evals))
		for c, e := range evals {
			row[c] = e.density(x)
		}
		density[i] = row
	}
	return density
}

// computeDensityMatrixParallel is computeDensityMatrix split across
// contiguous row ranges, one per worker. Rows do not overlap, so no
// synchronization is needed for writes, and the result is identical to the
// sequential path. Falls back to computeDensityMatrix when workers <= 1.
func computeDensityMatrixParallel(points [][]float64, evals []densityEvaluator, workers int) [][]float64 {
	n := len(points)
	if workers <= 1 || n <= 1 {
		return computeDensityMatrix(points, evals)
	}

	density := make([][]float64, n)

	var wg sync.WaitGroup
	rowsPerWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > n {
			end = n
		}
		if start >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				row := make([]float64, len(evals))
				for c, e := range evals {
					row[c] = e.density(points[i])
				}
				density[i] = row
			}
		}(start, end)
	}

	wg.Wait()
	return density
}
