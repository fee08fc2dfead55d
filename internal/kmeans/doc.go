// Package kmeans implements Lloyd's k-means over fixed-dimension feature
// vectors.
//
// An Engine owns a labelled point set and k centroids. Clustering runs on
// demand: Cluster assigns every point to its nearest centroid (ties go to
// the lowest centroid index), moves each centroid to the mean of its
// members, and repeats until no point changes cluster or the iteration cap
// is reached. A centroid that loses all of its members keeps its previous
// position and is reported as an empty cluster.
//
// Labels are carried for inspection only and never take part in distance
// computation. Restarting from several seeds and keeping the lowest WCSS is
// left to callers (see internal/tiering).
package kmeans
