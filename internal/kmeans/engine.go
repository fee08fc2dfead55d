package kmeans

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/banshee-data/nflvrs/internal/monitoring"
)

// DefaultMaxIterations bounds Cluster when Config.MaxIterations is zero.
const DefaultMaxIterations = 100

// ErrInvalidConfiguration is returned by New when the point set, labels or k
// cannot be clustered. No clustering work is done in that case.
var ErrInvalidConfiguration = errors.New("invalid k-means configuration")

// Config tunes an Engine. The zero value is usable.
type Config struct {
	// MaxIterations caps the assign/update passes per Cluster call.
	// Zero means DefaultMaxIterations.
	MaxIterations int

	// Rand picks the initial centroids. Nil means a time-seeded source,
	// so pass NewRand(seed) when results must be reproducible.
	Rand *rand.Rand

	// InitialCentroids, when set, replaces random seeding. It must hold
	// exactly k points of the engine's dimensionality.
	InitialCentroids []Point
}

// NewRand returns a deterministic random source for Config.Rand.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Result is a snapshot of one Cluster call.
type Result struct {
	// Clusters is indexed by centroid; empty clusters are kept.
	Clusters []Cluster
	// WCSS is the within-cluster sum of squares of the final assignment.
	WCSS float64
	// Iterations counts assignment passes, including the final pass that
	// detected convergence.
	Iterations int
	// Converged is false when the iteration cap stopped the run.
	Converged bool
	// History holds the WCSS after each pass, oldest first.
	History []float64
}

// Degenerate returns the indices of clusters with no members.
func (r *Result) Degenerate() []int {
	var out []int
	for _, c := range r.Clusters {
		if c.Empty() {
			out = append(out, c.Index)
		}
	}
	return out
}

// Engine partitions a labelled point set into k clusters.
// An Engine is not safe for concurrent use.
type Engine struct {
	points  []Point
	labels  []string
	k       int
	dim     int
	maxIter int
	rng     *rand.Rand
	seed    []Point

	centroids  []Point
	assign     []int
	history    []float64
	iterations int
	converged  bool
}

// New validates the inputs and returns an engine with uninitialised
// centroids. Points and labels are copied.
func New(points []Point, labels []string, k int, cfg Config) (*Engine, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidConfiguration)
	}
	if len(labels) != len(points) {
		return nil, fmt.Errorf("%w: %d labels for %d points", ErrInvalidConfiguration, len(labels), len(points))
	}
	if k < 1 || k > len(points) {
		return nil, fmt.Errorf("%w: k=%d must be between 1 and %d", ErrInvalidConfiguration, k, len(points))
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("%w: max iterations %d is negative", ErrInvalidConfiguration, cfg.MaxIterations)
	}

	dim := points[0].Dim()
	if dim == 0 {
		return nil, fmt.Errorf("%w: points have no features", ErrInvalidConfiguration)
	}
	owned := make([]Point, len(points))
	for i, p := range points {
		if err := checkPoint(p, dim); err != nil {
			return nil, fmt.Errorf("%w: point %d (%s): %v", ErrInvalidConfiguration, i, labels[i], err)
		}
		owned[i] = p.Clone()
	}

	var seed []Point
	if cfg.InitialCentroids != nil {
		if len(cfg.InitialCentroids) != k {
			return nil, fmt.Errorf("%w: %d initial centroids for k=%d", ErrInvalidConfiguration, len(cfg.InitialCentroids), k)
		}
		seed = make([]Point, k)
		for i, c := range cfg.InitialCentroids {
			if err := checkPoint(c, dim); err != nil {
				return nil, fmt.Errorf("%w: initial centroid %d: %v", ErrInvalidConfiguration, i, err)
			}
			seed[i] = c.Clone()
		}
	}

	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = DefaultMaxIterations
	}
	rng := cfg.Rand
	if rng == nil {
		rng = NewRand(uint64(time.Now().UnixNano()))
	}

	assign := make([]int, len(owned))
	for i := range assign {
		assign[i] = -1
	}

	return &Engine{
		points:  owned,
		labels:  append([]string(nil), labels...),
		k:       k,
		dim:     dim,
		maxIter: maxIter,
		rng:     rng,
		seed:    seed,
		assign:  assign,
	}, nil
}

func checkPoint(p Point, dim int) error {
	if p.Dim() != dim {
		return fmt.Errorf("dimension %d, want %d", p.Dim(), dim)
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite feature %v", v)
		}
	}
	return nil
}

// K returns the number of clusters.
func (e *Engine) K() int { return e.k }

// Len returns the number of points.
func (e *Engine) Len() int { return len(e.points) }

// InitCentroids seeds the centroids, either from Config.InitialCentroids or
// from k distinct input points chosen at random, and clears any previous
// assignment.
func (e *Engine) InitCentroids() {
	e.centroids = make([]Point, e.k)
	if e.seed != nil {
		for i, c := range e.seed {
			e.centroids[i] = c.Clone()
		}
	} else {
		perm := e.rng.Perm(len(e.points))
		for i := 0; i < e.k; i++ {
			e.centroids[i] = e.points[perm[i]].Clone()
		}
	}
	for i := range e.assign {
		e.assign[i] = -1
	}
	e.history = nil
	e.iterations = 0
	e.converged = false
}

// Reset drops the centroids so the next Cluster call re-seeds.
func (e *Engine) Reset() {
	e.centroids = nil
}

// Cluster runs Lloyd's algorithm to convergence or the iteration cap and
// returns the resulting snapshot. Calling it again on a converged engine
// performs a single assignment pass and changes nothing.
func (e *Engine) Cluster() *Result {
	if e.centroids == nil {
		e.InitCentroids()
	}
	e.history = e.history[:0]
	e.iterations = 0
	e.converged = false

	for e.iterations < e.maxIter {
		changed := e.assignPoints()
		e.iterations++
		if !changed {
			e.converged = true
			e.history = append(e.history, e.WCSS())
			break
		}
		e.updateCentroids()
		wcss := e.WCSS()
		e.history = append(e.history, wcss)
		monitoring.Debugf("kmeans: k=%d iteration=%d wcss=%.6f", e.k, e.iterations, wcss)
	}
	if !e.converged {
		monitoring.Logf("kmeans: k=%d stopped at iteration cap %d without converging", e.k, e.maxIter)
	}
	return e.Result()
}

// assignPoints moves every point to its nearest centroid and reports
// whether any membership changed.
func (e *Engine) assignPoints() bool {
	changed := false
	for i, p := range e.points {
		best := 0
		bestDist := p.Distance(e.centroids[0])
		for j := 1; j < e.k; j++ {
			if d := p.Distance(e.centroids[j]); d < bestDist {
				best, bestDist = j, d
			}
		}
		if e.assign[i] != best {
			e.assign[i] = best
			changed = true
		}
	}
	return changed
}

// updateCentroids moves each centroid to the mean of its members. Empty
// clusters keep their previous centroid.
func (e *Engine) updateCentroids() {
	members := make([][]Point, e.k)
	for i, c := range e.assign {
		members[c] = append(members[c], e.points[i])
	}
	for j, pts := range members {
		if len(pts) == 0 {
			monitoring.Debugf("kmeans: cluster %d is empty at iteration %d, keeping centroid %v", j, e.iterations, e.centroids[j])
			continue
		}
		e.centroids[j] = Mean(pts)
	}
}

// WCSS returns the within-cluster sum of squared distances for the current
// assignment and centroids. It is zero before the first Cluster call.
func (e *Engine) WCSS() float64 {
	if e.centroids == nil {
		return 0
	}
	var sum float64
	for i, c := range e.assign {
		if c < 0 {
			continue
		}
		d := e.points[i].Distance(e.centroids[c])
		sum += d * d
	}
	return sum
}

// Clusters returns the current cluster membership indexed by centroid.
// Members appear in input order.
func (e *Engine) Clusters() []Cluster {
	out := make([]Cluster, e.k)
	for j := range out {
		out[j].Index = j
		if e.centroids != nil {
			out[j].Centroid = e.centroids[j].Clone()
		}
	}
	for i, c := range e.assign {
		if c < 0 {
			continue
		}
		out[c].Members = append(out[c].Members, Member{Label: e.labels[i], Point: e.points[i].Clone()})
	}
	return out
}

// Centroids returns a copy of the current centroids, or nil before seeding.
func (e *Engine) Centroids() []Point {
	if e.centroids == nil {
		return nil
	}
	out := make([]Point, len(e.centroids))
	for i, c := range e.centroids {
		out[i] = c.Clone()
	}
	return out
}

// Assignments returns the cluster index of every point in input order;
// -1 marks a point that has not been assigned yet.
func (e *Engine) Assignments() []int {
	return append([]int(nil), e.assign...)
}

// Result snapshots the engine's current state.
func (e *Engine) Result() *Result {
	return &Result{
		Clusters:   e.Clusters(),
		WCSS:       e.WCSS(),
		Iterations: e.iterations,
		Converged:  e.converged,
		History:    append([]float64(nil), e.history...),
	}
}
