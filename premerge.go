package vaecluster

import "math"

// PreMerge performs k deterministic distance-based merges on the tree to
// shrink the active node count before the likelihood-driven phase. Each
// iteration joins the two closest top-level nodes by centroid distance,
// records the merge with a placeholder score, and retires the absorbed nodes
// by setting every distance involving them to an infinite sentinel. Ties are
// broken by the lowest (i, j) pair. The likelihood criterion is ignored
// entirely here; early-merge optimality is traded for speed.
func PreMerge(tree *LinkageTree, points [][]float64, k int, metric DistanceMetric) {
	n := tree.NumPoints()
	if k <= 0 || n < 2 {
		return
	}

	total := n + k
	inf := math.Inf(1)

	centroids := make([][]float64, total)
	sizes := make([]int, total)
	absorbed := make([]bool, total)
	for i := 0; i < n; i++ {
		c := make([]float64, len(points[i]))
		copy(c, points[i])
		centroids[i] = c
		sizes[i] = 1
	}

	// Upper-triangle distance table over slots, +Inf for unavailable pairs.
	dist := make([]float64, total*total)
	for i := range dist {
		dist[i] = inf
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist[i*total+j] = metric.Distance(points[i], points[j])
		}
	}

	for m := 0; m < k; m++ {
		limit := n + m
		best := inf
		bi, bj := -1, -1
		for i := 0; i < limit; i++ {
			row := i * total
			for j := i + 1; j < limit; j++ {
				if d := dist[row+j]; d < best {
					best, bi, bj = d, i, j
				}
			}
		}

		size := sizes[bi] + sizes[bj]
		slot := tree.RecordMerge(bi, bj, 0, size)
		tree.DeactivateSubtree(bi)
		tree.DeactivateSubtree(bj)

		merged := make([]float64, len(centroids[bi]))
		wi := float64(sizes[bi]) / float64(size)
		wj := float64(sizes[bj]) / float64(size)
		for t := range merged {
			merged[t] = wi*centroids[bi][t] + wj*centroids[bj][t]
		}
		centroids[slot] = merged
		sizes[slot] = size

		absorbed[bi] = true
		absorbed[bj] = true
		for t := 0; t < limit; t++ {
			dist[pairIndex(t, bi, total)] = inf
			dist[pairIndex(t, bj, total)] = inf
		}
		for t := 0; t < slot; t++ {
			if absorbed[t] {
				continue
			}
			dist[t*total+slot] = metric.Distance(centroids[t], merged)
		}
	}
}

// pairIndex maps an unordered slot pair onto the upper-triangle layout.
func pairIndex(a, b, total int) int {
	if a > b {
		a, b = b, a
	}
	return a*total + b
}
