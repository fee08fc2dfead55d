package tiering

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nflvrs/internal/kmeans"
	"github.com/banshee-data/nflvrs/internal/pbp"
)

// league builds a snapshot where each fixture passer throws passes plays
// per game over games games.
func league(t *testing.T, games, passes int) pbp.Plays {
	t.Helper()
	qbs := []struct {
		name, team string
		epa, cpoe  float64
	}{
		{"P.Mahomes", "KC", 0.32, 5.5},
		{"J.Allen", "BUF", 0.27, 4.5},
		{"T.Brady", "TB", 0.18, 2.5},
		{"J.Herbert", "LAC", 0.15, 2.0},
		{"D.Carr", "LV", 0.04, 0.2},
		{"M.Jones", "NE", 0.01, -0.6},
		{"J.Fields", "CHI", -0.10, -4.0},
		{"Z.Wilson", "NYJ", -0.16, -5.2},
	}
	var plays pbp.Plays
	id := int64(1)
	for g := 1; g <= games; g++ {
		for _, qb := range qbs {
			for i := 0; i < passes; i++ {
				// Alternate above and below the passer's level so means are exact.
				sign := float64(1 - 2*(i%2))
				plays = append(plays, pbp.Play{
					PlayID: id, GameID: "2021_0" + string(rune('0'+g)) + "_" + qb.team, Season: 2021,
					Posteam: qb.team, Pass: true, Passer: qb.name,
					QBEPA: qb.epa + sign*0.05, EPA: qb.epa, CPOE: qb.cpoe + sign*0.5,
				})
				id++
			}
			plays = append(plays, pbp.Play{
				PlayID: id, GameID: "2021_0" + string(rune('0'+g)) + "_" + qb.team, Season: 2021,
				Posteam: qb.team, Rush: true, Rusher: qb.team + ".RB", QBEPA: 0.01, CPOE: math.NaN(),
			})
			id++
		}
	}
	return plays
}

func TestFeatures(t *testing.T) {
	plays := league(t, 4, 6)

	features := Features(plays, 20)
	require.Len(t, features, 8)
	assert.Equal(t, "D.Carr", features[0].Passer, "features are ordered by passer")

	for _, f := range features {
		if f.Passer == "P.Mahomes" {
			assert.Equal(t, "KC", f.Team)
			assert.Equal(t, 24, f.Plays)
			assert.InDelta(t, 5.5, f.CPOE, 1e-9)
			assert.InDelta(t, 0.32, f.EPA, 1e-9)
			assert.Equal(t, kmeans.Point{f.CPOE, f.EPA}, f.Point())
		}
		assert.NotContains(t, f.Passer, ".RB", "rushers are not passers")
	}

	assert.Empty(t, Features(plays, 25), "nobody reaches the floor")
}

func TestFeatures_DropsUndefinedMeans(t *testing.T) {
	plays := pbp.Plays{
		{GameID: "2021_01_KC_CLE", Passer: "A", QBEPA: 0.1, CPOE: 1},
		{GameID: "2021_01_KC_CLE", Passer: "B", QBEPA: 0.2, CPOE: math.NaN()},
		{GameID: "2021_01_KC_CLE", Passer: "C", QBEPA: math.NaN(), CPOE: 2},
	}
	features := Features(plays, 1)
	require.Len(t, features, 1)
	assert.Equal(t, "A", features[0].Passer)
}

func TestRank(t *testing.T) {
	features := Features(league(t, 4, 6), 20)
	res, err := Rank(features, Options{K: 4, Seed: 7, Restarts: 50})
	require.NoError(t, err)

	require.Len(t, res.Tiers, 4)
	assert.True(t, res.Converged)
	assert.Equal(t, 4, res.K)

	want := map[string]int{
		"P.Mahomes": 1, "J.Allen": 1,
		"T.Brady": 2, "J.Herbert": 2,
		"D.Carr": 3, "M.Jones": 3,
		"J.Fields": 4, "Z.Wilson": 4,
	}
	for name, rank := range want {
		assert.Equal(t, rank, res.TierOf(name), name)
	}
	assert.Equal(t, 0, res.TierOf("nobody"))

	for i, tier := range res.Tiers {
		assert.Equal(t, i+1, tier.Rank)
		if i > 0 {
			assert.Greater(t, res.Tiers[i-1].EPA, tier.EPA, "tiers ranked by centroid EPA")
		}
		assert.False(t, tier.Empty)
	}

	top := res.Tiers[0]
	assert.Equal(t, "P.Mahomes", top.Members[0].Passer, "members ordered by EPA")
	assert.InDelta(t, 5.0, top.CPOE, 1e-9)
	assert.InDelta(t, 0.5, top.Members[0].Distance, 1e-3)
}

func TestRank_Deterministic(t *testing.T) {
	features := Features(league(t, 2, 4), 1)
	opts := Options{K: 3, Seed: 42, Restarts: 5}

	a, err := Rank(features, opts)
	require.NoError(t, err)
	b, err := Rank(features, opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRank_Errors(t *testing.T) {
	_, err := Rank(nil, Options{K: 2})
	assert.True(t, errors.Is(err, ErrNoFeatures))

	features := Features(league(t, 1, 2), 1)
	_, err = Rank(features, Options{K: len(features) + 1})
	assert.True(t, errors.Is(err, kmeans.ErrInvalidConfiguration))
}

func TestElbow(t *testing.T) {
	features := Features(league(t, 2, 4), 1)
	points, _ := Points(features)

	elbow, err := Elbow(features, 20, Options{Seed: 1, Restarts: 10})
	require.NoError(t, err)
	require.Len(t, elbow, len(features), "k is capped at the number of passers")

	for i, p := range elbow {
		assert.Equal(t, i+1, p.K)
	}

	// k=1 is the total sum of squared deviations from the mean.
	mean := kmeans.Mean(points)
	var total float64
	for _, p := range points {
		d := p.Distance(mean)
		total += d * d
	}
	assert.InDelta(t, total, elbow[0].WCSS, 1e-9)
	assert.InDelta(t, 0, elbow[len(elbow)-1].WCSS, 1e-12)
	assert.Less(t, elbow[3].WCSS, elbow[0].WCSS)

	_, err = Elbow(nil, 3, Options{})
	assert.True(t, errors.Is(err, ErrNoFeatures))
}
