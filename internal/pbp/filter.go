package pbp

// FilterOptions selects plays by player role and volume. Zero-valued fields
// are inactive.
type FilterOptions struct {
	Passers   []string
	Rushers   []string
	Receivers []string

	// Volume thresholds are counted over the snapshot being filtered.
	MinPassAttempts int
	MinCompletions  int
	MinRushAttempts int
	MinTargets      int
	MinReceptions   int

	// All requires every active criterion to hold; otherwise any one is
	// enough.
	All bool
}

// Filter applies opts. With no active criteria it returns a copy of the
// whole snapshot.
func (ps Plays) Filter(opts FilterOptions) Plays {
	var criteria []func(Play) bool

	if len(opts.Passers) > 0 {
		set := nameSet(opts.Passers)
		criteria = append(criteria, func(p Play) bool { return set[p.Passer] })
	}
	if len(opts.Rushers) > 0 {
		set := nameSet(opts.Rushers)
		criteria = append(criteria, func(p Play) bool { return set[p.Rusher] })
	}
	if len(opts.Receivers) > 0 {
		set := nameSet(opts.Receivers)
		criteria = append(criteria, func(p Play) bool { return set[p.Receiver] })
	}
	passer := func(p Play) string { return p.Passer }
	rusher := func(p Play) string { return p.Rusher }
	receiver := func(p Play) string { return p.Receiver }
	completed := func(who func(Play) string) func(Play) string {
		return func(p Play) string {
			if !p.CompletePass {
				return ""
			}
			return who(p)
		}
	}

	if opts.MinPassAttempts > 0 {
		criteria = append(criteria, atLeast(opts.MinPassAttempts, ps.counts(passer), passer))
	}
	if opts.MinCompletions > 0 {
		criteria = append(criteria, atLeast(opts.MinCompletions, ps.counts(completed(passer)), passer))
	}
	if opts.MinRushAttempts > 0 {
		criteria = append(criteria, atLeast(opts.MinRushAttempts, ps.counts(rusher), rusher))
	}
	if opts.MinTargets > 0 {
		criteria = append(criteria, atLeast(opts.MinTargets, ps.counts(receiver), receiver))
	}
	if opts.MinReceptions > 0 {
		criteria = append(criteria, atLeast(opts.MinReceptions, ps.counts(completed(receiver)), receiver))
	}

	if len(criteria) == 0 {
		return ps.where(func(Play) bool { return true })
	}
	return ps.where(func(p Play) bool {
		for _, c := range criteria {
			if c(p) != opts.All {
				return !opts.All
			}
		}
		return opts.All
	})
}

// atLeast holds when the player selected by who has at least n plays in
// tally.
func atLeast(n int, tally map[string]int, who func(Play) string) func(Play) bool {
	return func(p Play) bool {
		name := who(p)
		return name != "" && tally[name] >= n
	}
}
