// Package tiering groups quarterbacks into performance tiers by clustering
// their mean completion percentage over expected (CPOE) and qb_epa.
package tiering

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/nflvrs/internal/kmeans"
	"github.com/banshee-data/nflvrs/internal/monitoring"
	"github.com/banshee-data/nflvrs/internal/pbp"
)

// DefaultMinThrows is the pass-attempt floor used when none is configured.
const DefaultMinThrows = 400

// ErrNoFeatures is returned when no passer qualifies for clustering.
var ErrNoFeatures = errors.New("no passers qualify for tiering")

// Feature is one passer's clustering input.
type Feature struct {
	Passer string
	Team   string
	Plays  int
	CPOE   float64
	EPA    float64
}

// Point returns the feature vector (CPOE, EPA).
func (f Feature) Point() kmeans.Point { return kmeans.Point{f.CPOE, f.EPA} }

// Features builds one feature per passer with at least minThrows plays.
// Passers whose mean CPOE or EPA is undefined are dropped.
func Features(plays pbp.Plays, minThrows int) []Feature {
	var out []Feature
	for _, s := range plays.MinPassAttempts(minThrows).PasserEPACPOE() {
		if math.IsNaN(s.CPOE) || math.IsNaN(s.EPA) {
			monitoring.Debugf("tiering: dropping %s, undefined mean (cpoe=%v epa=%v)", s.Passer, s.CPOE, s.EPA)
			continue
		}
		out = append(out, Feature{Passer: s.Passer, Team: s.Team, Plays: s.Plays, CPOE: s.CPOE, EPA: s.EPA})
	}
	return out
}

// Points splits features into engine inputs.
func Points(features []Feature) ([]kmeans.Point, []string) {
	points := make([]kmeans.Point, len(features))
	labels := make([]string, len(features))
	for i, f := range features {
		points[i] = f.Point()
		labels[i] = f.Passer
	}
	return points, labels
}

// Options configures Rank and Elbow.
type Options struct {
	K             int
	MaxIterations int
	// Seed makes restarts reproducible. Restart i uses Seed+i.
	Seed uint64
	// Restarts is the number of independently seeded runs; the lowest WCSS
	// wins. Values below 1 mean a single run.
	Restarts int
}

// Member is a passer placed in a tier.
type Member struct {
	Feature
	// Distance is the Euclidean distance to the tier centroid.
	Distance float64
}

// Tier is one cluster, ranked by centroid EPA. Rank 1 is the best tier.
type Tier struct {
	Rank    int
	CPOE    float64
	EPA     float64
	Members []Member
	Cluster int
	// Empty tiers keep their last centroid and have no members.
	Empty bool
}

// Result is the outcome of Rank.
type Result struct {
	K          int
	Tiers      []Tier
	WCSS       float64
	Iterations int
	Converged  bool
	History    []float64
	Restart    int
}

// Best runs the engine opts.Restarts times and returns the lowest-WCSS
// result with the index of the winning restart.
func Best(points []kmeans.Point, labels []string, opts Options) (*kmeans.Result, int, error) {
	restarts := opts.Restarts
	if restarts < 1 {
		restarts = 1
	}
	var best *kmeans.Result
	bestRun := 0
	for i := 0; i < restarts; i++ {
		eng, err := kmeans.New(points, labels, opts.K, kmeans.Config{
			MaxIterations: opts.MaxIterations,
			Rand:          kmeans.NewRand(opts.Seed + uint64(i)),
		})
		if err != nil {
			return nil, 0, err
		}
		res := eng.Cluster()
		if best == nil || res.WCSS < best.WCSS {
			best, bestRun = res, i
		}
	}
	return best, bestRun, nil
}

// Rank clusters features into opts.K tiers.
func Rank(features []Feature, opts Options) (*Result, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	points, labels := Points(features)
	res, run, err := Best(points, labels, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to tier %d passers: %w", len(features), err)
	}

	byName := make(map[string]Feature, len(features))
	for _, f := range features {
		byName[f.Passer] = f
	}

	tiers := make([]Tier, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		t := Tier{Cluster: c.Index, CPOE: c.Centroid[0], EPA: c.Centroid[1], Empty: c.Empty()}
		for _, m := range c.Members {
			t.Members = append(t.Members, Member{Feature: byName[m.Label], Distance: m.Point.Distance(c.Centroid)})
		}
		sort.Slice(t.Members, func(i, j int) bool { return t.Members[i].EPA > t.Members[j].EPA })
		tiers = append(tiers, t)
	}
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].EPA > tiers[j].EPA })
	for i := range tiers {
		tiers[i].Rank = i + 1
	}

	monitoring.Logf("tiering: %d passers into %d tiers, wcss=%.4f after %d iterations (restart %d)",
		len(features), opts.K, res.WCSS, res.Iterations, run)
	return &Result{
		K:          opts.K,
		Tiers:      tiers,
		WCSS:       res.WCSS,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		History:    res.History,
		Restart:    run,
	}, nil
}

// TierOf returns the rank of passer, or 0 when the passer was not tiered.
func (r *Result) TierOf(passer string) int {
	for _, t := range r.Tiers {
		for _, m := range t.Members {
			if m.Passer == passer {
				return t.Rank
			}
		}
	}
	return 0
}

// ElbowPoint is the best WCSS found for one k.
type ElbowPoint struct {
	K    int
	WCSS float64
}

// Elbow computes the best WCSS for k = 1..min(maxK, len(features)) using
// opts for everything but K.
func Elbow(features []Feature, maxK int, opts Options) ([]ElbowPoint, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	if maxK > len(features) {
		maxK = len(features)
	}
	points, labels := Points(features)
	out := make([]ElbowPoint, 0, maxK)
	for k := 1; k <= maxK; k++ {
		o := opts
		o.K = k
		res, _, err := Best(points, labels, o)
		if err != nil {
			return nil, fmt.Errorf("elbow k=%d: %w", k, err)
		}
		out = append(out, ElbowPoint{K: k, WCSS: res.WCSS})
	}
	return out, nil
}
