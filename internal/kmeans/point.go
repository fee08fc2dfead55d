package kmeans

import (
	"gonum.org/v1/gonum/floats"
)

// Point is a feature vector. All points handed to one Engine share the same
// dimensionality.
type Point []float64

// Dim returns the number of features in p.
func (p Point) Dim() int { return len(p) }

// Clone returns a copy of p that shares no storage with it.
func (p Point) Clone() Point {
	if p == nil {
		return nil
	}
	out := make(Point, len(p))
	copy(out, p)
	return out
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return floats.Distance(p, q, 2)
}

// Mean returns the component-wise mean of pts. It returns nil for an empty
// slice.
func Mean(pts []Point) Point {
	if len(pts) == 0 {
		return nil
	}
	sum := make(Point, len(pts[0]))
	for _, p := range pts {
		floats.Add(sum, p)
	}
	floats.Scale(1/float64(len(pts)), sum)
	return sum
}

// Member is a point together with its display label.
type Member struct {
	Label string
	Point Point
}

// Cluster is one centroid and the points currently assigned to it.
type Cluster struct {
	Index    int
	Centroid Point
	Members  []Member
}

// Empty reports whether the cluster lost all of its members.
func (c Cluster) Empty() bool { return len(c.Members) == 0 }

// Labels returns the member labels in input order.
func (c Cluster) Labels() []string {
	out := make([]string, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Label
	}
	return out
}
