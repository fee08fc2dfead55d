package pbp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Plays is an immutable snapshot of play rows. Methods never modify the
// receiver.
type Plays []Play

// Len returns the number of plays.
func (ps Plays) Len() int { return len(ps) }

func (ps Plays) where(keep func(Play) bool) Plays {
	out := make(Plays, 0, len(ps))
	for _, p := range ps {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// IsolatePlayers keeps plays where any named player is the passer, rusher
// or receiver.
func (ps Plays) IsolatePlayers(names ...string) Plays {
	set := nameSet(names)
	return ps.where(func(p Play) bool {
		return set[p.Passer] || set[p.Rusher] || set[p.Receiver]
	})
}

// IsolatePassers keeps plays thrown by the named passers.
func (ps Plays) IsolatePassers(names ...string) Plays {
	set := nameSet(names)
	return ps.where(func(p Play) bool { return set[p.Passer] })
}

// IsolateRushers keeps plays carried by the named rushers.
func (ps Plays) IsolateRushers(names ...string) Plays {
	set := nameSet(names)
	return ps.where(func(p Play) bool { return set[p.Rusher] })
}

// IsolateReceivers keeps plays targeting the named receivers.
func (ps Plays) IsolateReceivers(names ...string) Plays {
	set := nameSet(names)
	return ps.where(func(p Play) bool { return set[p.Receiver] })
}

// MinPassAttempts keeps plays whose passer appears on at least n plays in
// the snapshot. Plays without a passer are dropped.
func (ps Plays) MinPassAttempts(n int) Plays {
	counts := ps.counts(func(p Play) string { return p.Passer })
	return ps.where(func(p Play) bool {
		return p.Passer != "" && counts[p.Passer] >= n
	})
}

// counts tallies plays per non-empty key.
func (ps Plays) counts(key func(Play) string) map[string]int {
	out := make(map[string]int)
	for _, p := range ps {
		if k := key(p); k != "" {
			out[k]++
		}
	}
	return out
}

// DemeanQBEPA returns a copy with the snapshot's mean qb_epa subtracted
// from every defined qb_epa value.
func (ps Plays) DemeanQBEPA() Plays {
	mean := nanMean(ps, func(p Play) float64 { return p.QBEPA })
	out := make(Plays, len(ps))
	copy(out, ps)
	if math.IsNaN(mean) {
		return out
	}
	for i := range out {
		if !math.IsNaN(out[i].QBEPA) {
			out[i].QBEPA -= mean
		}
	}
	return out
}

// Seasons returns the distinct seasons present, ascending.
func (ps Plays) Seasons() []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range ps {
		if !seen[p.Season] {
			seen[p.Season] = true
			out = append(out, p.Season)
		}
	}
	sort.Ints(out)
	return out
}

// Passers returns the distinct passer names, sorted.
func (ps Plays) Passers() []string {
	counts := ps.counts(func(p Play) string { return p.Passer })
	out := make([]string, 0, len(counts))
	for name := range counts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// nanMean averages the defined values of field, returning NaN when none are
// defined.
func nanMean(ps Plays, field func(Play) float64) float64 {
	vals := make([]float64, 0, len(ps))
	for _, p := range ps {
		if v := field(p); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
