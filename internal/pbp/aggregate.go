package pbp

import (
	"sort"
)

// GameEPA is a passer's mean qb_epa in one game.
type GameEPA struct {
	Passer string
	GameID string
	Team   string
	Season int
	// GameNum numbers the passer's games from 1 in game id order across
	// the whole snapshot.
	GameNum int
	EPA     float64
	Plays   int
}

// SeasonEPACPOE is a passer's mean qb_epa and cpoe in one season.
type SeasonEPACPOE struct {
	Passer string
	Team   string
	Season int
	EPA    float64
	CPOE   float64
	Plays  int
}

// PasserEPACPOE is a passer's mean qb_epa and cpoe across the snapshot.
type PasserEPACPOE struct {
	Passer string
	Team   string
	EPA    float64
	CPOE   float64
	Plays  int
}

func qbEPA(p Play) float64 { return p.QBEPA }
func cpoe(p Play) float64  { return p.CPOE }

// groupBy buckets plays with a passer by key, preserving play order inside
// each bucket.
func (ps Plays) groupBy(key func(Play) string) (map[string]Plays, []string) {
	groups := make(map[string]Plays)
	var keys []string
	for _, p := range ps {
		if p.Passer == "" {
			continue
		}
		k := key(p)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], p)
	}
	return groups, keys
}

// latestTeam returns the posteam of the play with the greatest game id.
func latestTeam(ps Plays) string {
	var team, game string
	for _, p := range ps {
		if p.Posteam != "" && p.GameID >= game {
			team, game = p.Posteam, p.GameID
		}
	}
	return team
}

// GameEPA averages qb_epa per (game, passer). Results are ordered by passer
// then game number.
func (ps Plays) GameEPA() []GameEPA {
	type key struct{ passer, game string }
	groups := make(map[key]Plays)
	for _, p := range ps {
		if p.Passer == "" {
			continue
		}
		k := key{p.Passer, p.GameID}
		groups[k] = append(groups[k], p)
	}

	out := make([]GameEPA, 0, len(groups))
	for k, plays := range groups {
		season := plays[0].Season
		if season == 0 {
			season = SeasonFromGameID(k.game)
		}
		out = append(out, GameEPA{
			Passer: k.passer,
			GameID: k.game,
			Team:   latestTeam(plays),
			Season: season,
			EPA:    nanMean(plays, qbEPA),
			Plays:  len(plays),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Passer != out[j].Passer {
			return out[i].Passer < out[j].Passer
		}
		return out[i].GameID < out[j].GameID
	})
	for i := range out {
		if i > 0 && out[i].Passer == out[i-1].Passer {
			out[i].GameNum = out[i-1].GameNum + 1
		} else {
			out[i].GameNum = 1
		}
	}
	return out
}

// SeasonEPACPOE averages qb_epa and cpoe per (season, passer). Results are
// ordered by passer then season.
func (ps Plays) SeasonEPACPOE() []SeasonEPACPOE {
	type key struct {
		passer string
		season int
	}
	groups := make(map[key]Plays)
	for _, p := range ps {
		if p.Passer == "" {
			continue
		}
		k := key{p.Passer, p.Season}
		groups[k] = append(groups[k], p)
	}

	out := make([]SeasonEPACPOE, 0, len(groups))
	for k, plays := range groups {
		out = append(out, SeasonEPACPOE{
			Passer: k.passer,
			Team:   latestTeam(plays),
			Season: k.season,
			EPA:    nanMean(plays, qbEPA),
			CPOE:   nanMean(plays, cpoe),
			Plays:  len(plays),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Passer != out[j].Passer {
			return out[i].Passer < out[j].Passer
		}
		return out[i].Season < out[j].Season
	})
	return out
}

// PasserEPACPOE averages qb_epa and cpoe per passer over every play in the
// snapshot. Team is the passer's most recent team. Results are ordered by
// passer.
func (ps Plays) PasserEPACPOE() []PasserEPACPOE {
	groups, names := ps.groupBy(func(p Play) string { return p.Passer })
	sort.Strings(names)

	out := make([]PasserEPACPOE, 0, len(names))
	for _, name := range names {
		plays := groups[name]
		out = append(out, PasserEPACPOE{
			Passer: name,
			Team:   latestTeam(plays),
			EPA:    nanMean(plays, qbEPA),
			CPOE:   nanMean(plays, cpoe),
			Plays:  len(plays),
		})
	}
	return out
}
