package vaecluster

import "math"

// invalidScore is the floor for the merge-score argmax; any computed pair
// score compares greater than it.
const invalidScore = -math.MaxFloat64

// pairKey builds a canonical cache key for an unordered slot pair.
func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Agglomerate drives likelihood-maximizing merges on the tree until a single
// top-level node remains, completing the hierarchy. It returns the total
// log-likelihood trace of the partition: one entry for the starting partition
// followed by one entry per merge, ordered from most clusters to fewest
// (length n - premergeCount for a premerged tree).
//
// Scores are cached per stable slot-id pair, so after the first iteration
// only pairs involving the newest node are computed; carried-over entries are
// reused exactly. The first iteration's full pairwise sweep fans out across
// cfg.Workers goroutines and joins before selection, with results identical
// to the sequential path.
func Agglomerate(tree *LinkageTree, points, uncertainty [][]float64, cfg Config) []float64 {
	actives := tree.ActiveTopLevel()

	members := make(map[int][]int, 2*len(actives))
	nodeLL := make(map[int]float64, 2*len(actives))
	memb := func(slot int) []int {
		m, ok := members[slot]
		if !ok {
			m = tree.Members(slot)
			members[slot] = m
		}
		return m
	}

	var total float64
	for _, s := range actives {
		ll, _ := ScoreSet(points, uncertainty, memb(s), cfg)
		nodeLL[s] = ll
		total += ll
	}

	trace := make([]float64, 0, len(actives))
	trace = append(trace, total)

	cache := make(map[[2]int]float64, len(actives)*len(actives)/2)
	// Member sets for every active slot are materialized before any scoring
	// (initial loop above, merge step below), so concurrent scorePair calls
	// only ever read the members map.
	scorePair := func(i, j int) float64 {
		union := unionSorted(memb(i), memb(j))
		ll, _ := ScoreSet(points, uncertainty, union, cfg)
		denom := 1.0
		if cfg.Proportional {
			denom = float64(len(memb(i)) + len(memb(j)))
		}
		return ll / denom
	}

	first := true
	for len(actives) > 1 {
		// Fill in any pair not carried over from the previous iteration.
		var missing [][2]int
		for a := 0; a < len(actives); a++ {
			for b := a + 1; b < len(actives); b++ {
				key := pairKey(actives[a], actives[b])
				if _, ok := cache[key]; !ok {
					missing = append(missing, key)
				}
			}
		}
		workers := 1
		if first {
			workers = cfg.Workers
			first = false
		}
		for idx, s := range scorePairsParallel(missing, scorePair, workers) {
			cache[missing[idx]] = s
		}

		// Argmax over active pairs in row-major order; ties keep the lowest
		// pair, so the result is independent of goroutine scheduling.
		best := invalidScore
		bi, bj := -1, -1
		for a := 0; a < len(actives); a++ {
			for b := a + 1; b < len(actives); b++ {
				if s := cache[pairKey(actives[a], actives[b])]; s > best {
					best, bi, bj = s, actives[a], actives[b]
				}
			}
		}

		union := unionSorted(memb(bi), memb(bj))
		ll, _ := ScoreSet(points, uncertainty, union, cfg)
		slot := tree.RecordMerge(bi, bj, ll, len(union))
		tree.DeactivateSubtree(bi)
		tree.DeactivateSubtree(bj)
		members[slot] = union
		nodeLL[slot] = ll

		total += ll - nodeLL[bi] - nodeLL[bj]
		trace = append(trace, total)

		for key := range cache {
			if key[0] == bi || key[1] == bi || key[0] == bj || key[1] == bj {
				delete(cache, key)
			}
		}

		actives = tree.ActiveTopLevel()
	}
	return trace
}

// unionSorted merges two sorted disjoint index slices into one sorted slice.
func unionSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
