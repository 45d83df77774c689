package vaecluster

import (
	"reflect"
	"testing"
)

// labelPurity reports whether labels split the points exactly along the
// generator assignment in want (up to label naming).
func labelPurity(labels, want []int) bool {
	mapping := map[int]int{}
	for i, w := range want {
		got := labels[i]
		if prev, ok := mapping[w]; ok {
			if prev != got {
				return false
			}
			continue
		}
		for _, assigned := range mapping {
			if assigned == got {
				return false
			}
		}
		mapping[w] = got
	}
	return true
}

func TestRefineTwoBlobs(t *testing.T) {
	points, want := twoBlobs(12, 5)
	uncertainty := onesLike(points)
	cfg := DefaultConfig()

	tree := NewLinkageTree(len(points))
	PreMerge(tree, points, 3*len(points)/4, EuclideanMetric{})
	Agglomerate(tree, points, uncertainty, cfg)

	assignment := Refine(tree, points, uncertainty, 2, 1, cfg)

	if !assignment.Converged {
		t.Fatalf("refiner did not converge on well-separated blobs")
	}
	if assignment.NumClusters != 2 {
		t.Fatalf("NumClusters = %d, want 2", assignment.NumClusters)
	}
	if !labelPurity(assignment.Labels, want) {
		t.Errorf("labels %v do not match generator assignment %v", assignment.Labels, want)
	}
	for i, d := range assignment.Densities {
		if d <= 0 {
			t.Errorf("density[%d] = %g, want > 0", i, d)
		}
	}
	for c, ll := range assignment.ClusterLogLikelihoods {
		if ll == 0 {
			t.Errorf("cluster %d total log-likelihood is the zero sentinel on a converged run", c+1)
		}
	}
}

func TestRefineIdempotentOnSeparableData(t *testing.T) {
	points, _ := twoBlobs(12, 9)
	uncertainty := onesLike(points)
	cfg := DefaultConfig()

	tree := NewLinkageTree(len(points))
	PreMerge(tree, points, 3*len(points)/4, EuclideanMetric{})
	Agglomerate(tree, points, uncertainty, cfg)

	once := Refine(tree, points, uncertainty, 2, 1, cfg)
	twice := Refine(tree, points, uncertainty, 2, 2, cfg)

	if !once.Converged || !twice.Converged {
		t.Fatalf("refiner did not converge (once=%v twice=%v)", once.Converged, twice.Converged)
	}
	if !reflect.DeepEqual(once.Labels, twice.Labels) {
		t.Errorf("second sweep moved labels on converged data: %v vs %v", once.Labels, twice.Labels)
	}
}

func TestRepairEmptyClusters(t *testing.T) {
	labels := []int{1, 1, 1}
	density := [][]float64{
		{0.9, 0.1},
		{0.8, 0.2},
		{0.3, 0.7},
	}

	if !repairEmptyClusters(labels, density, 2) {
		t.Fatalf("repair reported failure on a repairable labeling")
	}
	if want := []int{1, 1, 2}; !reflect.DeepEqual(labels, want) {
		t.Errorf("labels after repair = %v, want %v", labels, want)
	}
}

func TestRepairEmptyClustersNonConvergence(t *testing.T) {
	// Point 0 has the highest density for both missing clusters, so every
	// repair steals it back and forth and empties the other cluster again.
	// The loop must give up within its retry bound.
	labels := []int{1, 1}
	density := [][]float64{
		{0.5, 0.9, 0.9},
		{0.5, 0.1, 0.1},
	}

	if repairEmptyClusters(labels, density, 3) {
		t.Errorf("repair reported success on an unsatisfiable labeling")
	}
}

func TestRefineEmptyClusterRepairProperty(t *testing.T) {
	// Near-identical points with an adversarial K close to n: reassignment
	// collapses everything onto one model, forcing repair. The refiner must
	// either fill every cluster or return the non-convergence sentinel.
	points := [][]float64{
		{0, 0}, {0.001, 0}, {0, 0.001}, {0.001, 0.001}, {0.0005, 0.0005},
	}
	uncertainty := onesLike(points)
	cfg := DefaultConfig()
	n := len(points)
	k := n - 1

	tree := NewLinkageTree(n)
	Agglomerate(tree, points, uncertainty, cfg)
	initial := CutTree(tree, k)

	assignment := Refine(tree, points, uncertainty, k, 1, cfg)

	if assignment.Converged {
		if empty := firstEmptyCluster(assignment.Labels, k); empty != 0 {
			t.Errorf("converged assignment leaves cluster %d empty", empty)
		}
		return
	}
	if !reflect.DeepEqual(assignment.Labels, initial) {
		t.Errorf("sentinel labels %v differ from the pre-refinement cut %v", assignment.Labels, initial)
	}
	for c, ll := range assignment.ClusterLogLikelihoods {
		if ll != 0 {
			t.Errorf("cluster %d likelihood = %g, want 0 sentinel", c+1, ll)
		}
	}
}

func TestRefineParallelMatchesSequential(t *testing.T) {
	points, _ := twoBlobs(10, 21)
	uncertainty := onesLike(points)

	run := func(workers int) Assignment {
		cfg := DefaultConfig()
		cfg.Workers = workers
		tree := NewLinkageTree(len(points))
		PreMerge(tree, points, 3*len(points)/4, EuclideanMetric{})
		Agglomerate(tree, points, uncertainty, cfg)
		return Refine(tree, points, uncertainty, 2, 1, cfg)
	}

	seq := run(1)
	par := run(8)
	if !reflect.DeepEqual(seq, par) {
		t.Errorf("parallel refinement differs from sequential:\nseq %+v\npar %+v", seq, par)
	}
}
