package vaecluster

import "sort"

// LinkageRecord is one slot of the merge tree. Leaf slots 0..n-1 have
// Left == Right == slot index and Size 1. Internal slots n..2n-2 are written
// in merge-creation order; their Score is the log-likelihood of the merged
// point set (0 for premerge placeholders).
type LinkageRecord struct {
	Left  int
	Right int
	Score float64
	Size  int

	active bool
}

// LinkageTree is a binary merge tree over n points with exactly 2n-1 slots,
// addressable by slot id. The first n slots are the leaves; merges fill the
// remaining slots in creation order. The active flags are scratch state for
// deriving the current top-level nodes and carry no meaning between calls to
// ActiveTopLevel.
type LinkageTree struct {
	n       int
	records []LinkageRecord
	next    int
}

// NewLinkageTree creates a tree for n points with all leaves active and no
// merges recorded.
func NewLinkageTree(n int) *LinkageTree {
	total := 2*n - 1
	if total < 1 {
		total = 1
	}
	records := make([]LinkageRecord, total)
	for i := 0; i < n; i++ {
		records[i] = LinkageRecord{Left: i, Right: i, Size: 1, active: true}
	}
	return &LinkageTree{n: n, records: records, next: n}
}

// NumPoints returns the number of leaves.
func (t *LinkageTree) NumPoints() int { return t.n }

// NumRecords returns the number of slots written so far (leaves included).
func (t *LinkageTree) NumRecords() int { return t.next }

// Record returns the record at the given slot.
func (t *LinkageTree) Record(slot int) LinkageRecord { return t.records[slot] }

// RecordMerge writes the next internal record and returns its slot id.
func (t *LinkageTree) RecordMerge(left, right int, score float64, size int) int {
	slot := t.next
	t.records[slot] = LinkageRecord{Left: left, Right: right, Score: score, Size: size, active: true}
	t.next++
	return slot
}

// Members resolves a slot to the leaf indices below it, in ascending order.
// Traversal uses an explicit stack; recursion depth would otherwise be
// bounded only by n. The stack walk covers all three structural cases (both
// children leaves, one child a leaf, neither a leaf) uniformly: a popped leaf
// is collected, a popped internal slot pushes its children.
func (t *LinkageTree) Members(slot int) []int {
	if slot < t.n {
		return []int{slot}
	}
	members := make([]int, 0, t.records[slot].Size)
	stack := []int{slot}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s < t.n {
			members = append(members, s)
			continue
		}
		r := t.records[s]
		stack = append(stack, r.Left, r.Right)
	}
	sort.Ints(members)
	return members
}

// DeactivateSubtree clears the active flag on slot and every slot below it,
// so an absorbed branch is never reconsidered as a top-level node. Iterative
// for the same recursion-depth reason as Members.
func (t *LinkageTree) DeactivateSubtree(slot int) {
	stack := []int{slot}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.records[s].active = false
		if s >= t.n {
			r := t.records[s]
			stack = append(stack, r.Left, r.Right)
		}
	}
}

// ResetActive marks every slot with creation index below upto active again.
func (t *LinkageTree) ResetActive(upto int) {
	for i := 0; i < upto && i < t.next; i++ {
		t.records[i].active = true
	}
}

// ActiveTopLevel derives the current list of top-level (unabsorbed) nodes by
// rescanning the tree rather than maintaining an always-current set: all
// created slots are reactivated, then slots are visited from newest to
// oldest; a slot still active when visited is a top-level node, and its
// descendant branches are deactivated so they are not reported again. The
// returned slot ids are sorted ascending.
func (t *LinkageTree) ActiveTopLevel() []int {
	t.ResetActive(t.next)
	var tops []int
	for s := t.next - 1; s >= 0; s-- {
		if !t.records[s].active {
			continue
		}
		tops = append(tops, s)
		if s >= t.n {
			r := t.records[s]
			t.DeactivateSubtree(r.Left)
			t.DeactivateSubtree(r.Right)
		}
	}
	sort.Ints(tops)
	return tops
}

// Table returns the internal merge rows in scipy linkage format: one
// [left, right, score, size] row per merge, in creation order. A fully
// agglomerated tree over n points yields n-1 rows.
func (t *LinkageTree) Table() [][4]float64 {
	rows := make([][4]float64, 0, t.next-t.n)
	for s := t.n; s < t.next; s++ {
		r := t.records[s]
		rows = append(rows, [4]float64{float64(r.Left), float64(r.Right), r.Score, float64(r.Size)})
	}
	return rows
}
