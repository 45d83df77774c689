package vaecluster

// emptyClusterRetries bounds the empty-cluster repair loop. Moving a point
// into an empty cluster can empty the cluster it came from, so repair is not
// guaranteed to settle; past this bound the refiner gives up and reports
// non-convergence instead of looping.
const emptyClusterRetries = 50

// Assignment is the flat clustering produced by cutting and refining the
// hierarchy at a fixed cluster count.
type Assignment struct {
	// Labels holds a 1-indexed cluster id per point. All zeros when no cut
	// was requested (TargetClusters == 0).
	Labels []int

	// ClusterLogLikelihoods is the total log-likelihood of each cluster's
	// members under that cluster's fitted model, indexed by label-1. All
	// zeros when the refiner did not converge.
	ClusterLogLikelihoods []float64

	// Densities is each point's Gaussian density under its assigned
	// cluster's model (diagonal-covariance fallback on singular fits).
	Densities []float64

	// NumClusters is the number of clusters produced.
	NumClusters int

	// Converged is false when empty-cluster repair exhausted its retry
	// bound; Labels then holds the pre-refinement dendrogram cut and the
	// likelihoods are the zero sentinel.
	Converged bool
}

// Refine cuts the hierarchy at k clusters and runs hard reassignment sweeps:
// fit a Gaussian per cluster, evaluate every point under every cluster
// model, and move each point to the cluster where it is densest. Clusters
// emptied by a sweep are repaired by relabeling the point with the highest
// recorded density for the empty cluster's index. The tree is only read.
func Refine(tree *LinkageTree, points, uncertainty [][]float64, k, sweeps int, cfg Config) Assignment {
	n := len(points)
	initial := CutTree(tree, k)
	labels := make([]int, n)
	copy(labels, initial)

	for s := 0; s < sweeps; s++ {
		evals := fitClusterEvaluators(points, uncertainty, labels, k, cfg)
		density := computeDensityMatrixParallel(points, evals, cfg.Workers)

		for i := range labels {
			best := 0
			for c := 1; c < k; c++ {
				// Strict comparison keeps the lowest cluster id on ties.
				if density[i][c] > density[i][best] {
					best = c
				}
			}
			labels[i] = best + 1
		}

		if !repairEmptyClusters(labels, density, k) {
			return Assignment{
				Labels:                initial,
				ClusterLogLikelihoods: make([]float64, k),
				Densities:             make([]float64, n),
				NumClusters:           k,
				Converged:             false,
			}
		}
	}

	// Finalize: refit on the final membership, then report per-cluster total
	// log-likelihood and per-point density under the assigned cluster.
	memberLists := clusterMembers(labels, k)
	evals := fitClusterEvaluators(points, uncertainty, labels, k, cfg)

	clusterLL := make([]float64, k)
	for c := 0; c < k; c++ {
		if len(memberLists[c]) == 0 {
			continue
		}
		ll, _ := ScoreSet(points, uncertainty, memberLists[c], cfg)
		clusterLL[c] = ll
	}

	densities := make([]float64, n)
	for i, label := range labels {
		densities[i] = evals[label-1].density(points[i])
	}

	return Assignment{
		Labels:                labels,
		ClusterLogLikelihoods: clusterLL,
		Densities:             densities,
		NumClusters:           k,
		Converged:             true,
	}
}

// clusterMembers buckets point indices by their 1-indexed label.
func clusterMembers(labels []int, k int) [][]int {
	lists := make([][]int, k)
	for i, label := range labels {
		if label >= 1 && label <= k {
			lists[label-1] = append(lists[label-1], i)
		}
	}
	return lists
}

// repairEmptyClusters forcibly relabels the point with the highest recorded
// density for an empty cluster's index into that cluster, repeating until no
// cluster is empty, bounded by emptyClusterRetries. Reports whether every
// cluster ended up non-empty.
func repairEmptyClusters(labels []int, density [][]float64, k int) bool {
	for attempt := 0; attempt < emptyClusterRetries; attempt++ {
		empty := firstEmptyCluster(labels, k)
		if empty == 0 {
			return true
		}
		best := 0
		for i := range labels {
			if density[i][empty-1] > density[best][empty-1] {
				best = i
			}
		}
		labels[best] = empty
	}
	return firstEmptyCluster(labels, k) == 0
}

// firstEmptyCluster returns the lowest 1-indexed label with no members, or 0
// when all k clusters are populated.
func firstEmptyCluster(labels []int, k int) int {
	seen := make([]bool, k+1)
	for _, label := range labels {
		if label >= 1 && label <= k {
			seen[label] = true
		}
	}
	for c := 1; c <= k; c++ {
		if !seen[c] {
			return c
		}
	}
	return 0
}
