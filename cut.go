package vaecluster

import "sort"

// CutTree cuts the completed hierarchy into k flat groups and returns
// 1-indexed labels, one per point. Standard dendrogram-cut semantics: only
// the first n-k merge records are applied, leaving exactly k top-level
// groups. Groups are numbered 1..k by ascending root slot id, so repeated
// cuts are reproducible. The tree is only read, never mutated.
func CutTree(tree *LinkageTree, k int) []int {
	n := tree.NumPoints()
	labels := make([]int, n)
	if k >= n {
		for i := range labels {
			labels[i] = i + 1
		}
		return labels
	}

	uf := newCutUnionFind(tree.NumRecords())
	for slot := n; slot < n+(n-k); slot++ {
		r := tree.Record(slot)
		uf.parent[uf.find(r.Left)] = slot
		uf.parent[uf.find(r.Right)] = slot
	}

	rootLabel := make(map[int]int, k)
	roots := make([]int, 0, k)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if _, ok := rootLabel[root]; !ok {
			rootLabel[root] = 0
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)
	for idx, root := range roots {
		rootLabel[root] = idx + 1
	}

	for i := 0; i < n; i++ {
		labels[i] = rootLabel[uf.find(i)]
	}
	return labels
}

// cutUnionFind resolves leaves to their cut-level roots. Merge records are
// applied by pointing both children's roots at the merge slot, so a leaf's
// root after all unions is the highest applied merge above it.
type cutUnionFind struct {
	parent []int
}

func newCutUnionFind(size int) *cutUnionFind {
	parent := make([]int, size)
	for i := range parent {
		parent[i] = i
	}
	return &cutUnionFind{parent: parent}
}

func (uf *cutUnionFind) find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x])
	}
	return uf.parent[x]
}
