// Package vaecluster implements likelihood-driven agglomerative clustering
// for low-dimensional points that carry a per-dimension uncertainty estimate,
// such as the latent coordinates and standard deviations produced by a
// variational autoencoder.
//
// The engine builds a binary merge tree in two phases. A cheap premerge pass
// repeatedly joins the two closest cluster centroids to shrink the problem,
// then the main loop greedily merges whichever pair of remaining nodes
// maximizes the (optionally size-normalized) Gaussian log-likelihood of the
// merged point set. Cluster covariances blend the empirical covariance with a
// diagonal prior built from the supplied uncertainties, and an eigenvalue
// shape constraint keeps small clusters from collapsing onto degenerate
// ellipsoids.
//
// Basic usage:
//
//	cfg := vaecluster.DefaultConfig()
//	cfg.TargetClusters = 3
//	result, err := vaecluster.Cluster(points, uncertainty, cfg)
//	// result.LinkageTable has n-1 rows of [left, right, loglik, size]
//	// result.Assignment.Labels[i] is the 1-indexed cluster for point i
//
// The hierarchy can be re-cut at a different cluster count without rerunning
// the agglomeration:
//
//	assignment, err := result.Cut(5, 1)
//
// Cutting performs a dendrogram cut followed by a small number of hard
// reassignment sweeps that move each point to the cluster under whose fitted
// Gaussian it is densest, with repair of clusters that are left empty.
package vaecluster
