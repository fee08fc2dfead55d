package pbp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var nan = math.NaN()

// fixture is a small hand-built snapshot over two seasons.
func fixture() Plays {
	return Plays{
		{PlayID: 1, GameID: "2021_01_KC_CLE", Season: 2021, Posteam: "KC", Pass: true, CompletePass: true,
			Passer: "P.Mahomes", Receiver: "T.Kelce", QBEPA: 0.5, EPA: 0.5, CPOE: 10},
		{PlayID: 2, GameID: "2021_01_KC_CLE", Season: 2021, Posteam: "KC", Pass: true,
			Passer: "P.Mahomes", Receiver: "T.Hill", QBEPA: -0.1, EPA: -0.1, CPOE: -20},
		{PlayID: 3, GameID: "2021_01_KC_CLE", Season: 2021, Posteam: "KC", Rush: true,
			Rusher: "C.Edwards-Helaire", QBEPA: 0.2, EPA: 0.2, CPOE: nan},
		{PlayID: 4, GameID: "2021_02_KC_BAL", Season: 2021, Posteam: "KC", Pass: true, CompletePass: true,
			Passer: "P.Mahomes", Receiver: "T.Kelce", QBEPA: 0.3, EPA: 0.3, CPOE: 5},
		{PlayID: 5, GameID: "2021_01_LV_DEN", Season: 2021, Posteam: "LV", Pass: true, CompletePass: true,
			Passer: "D.Carr", Receiver: "D.Waller", QBEPA: 0.1, EPA: 0.1, CPOE: nan},
		{PlayID: 6, GameID: "2021_01_LV_DEN", Season: 2021, Posteam: "LV", Rush: true,
			Rusher: "J.Jacobs", QBEPA: -0.2, EPA: -0.2, CPOE: nan},
		{PlayID: 7, GameID: "2020_17_KC_LAC", Season: 2020, Posteam: "KC", Pass: true, CompletePass: true,
			Passer: "P.Mahomes", Receiver: "T.Kelce", QBEPA: 0.4, EPA: 0.4, CPOE: 2},
	}
}

func ids(ps Plays) []int64 {
	out := []int64{}
	for _, p := range ps {
		out = append(out, p.PlayID)
	}
	return out
}

var approx = cmp.Options{cmpopts.EquateApprox(0, 1e-9), cmpopts.EquateNaNs()}

func TestIsolate(t *testing.T) {
	ps := fixture()
	tests := []struct {
		name string
		got  Plays
		want []int64
	}{
		{"players", ps.IsolatePlayers("T.Kelce", "J.Jacobs"), []int64{1, 4, 6, 7}},
		{"passers", ps.IsolatePassers("D.Carr"), []int64{5}},
		{"rushers", ps.IsolateRushers("C.Edwards-Helaire", "J.Jacobs"), []int64{3, 6}},
		{"receivers", ps.IsolateReceivers("T.Hill"), []int64{2}},
		{"unknown", ps.IsolatePassers("nobody"), []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(tt.got)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	ps := fixture()
	tests := []struct {
		name string
		opts FilterOptions
		want []int64
	}{
		{"no criteria", FilterOptions{}, []int64{1, 2, 3, 4, 5, 6, 7}},
		{"passer list", FilterOptions{Passers: []string{"D.Carr"}}, []int64{5}},
		{"min pass attempts", FilterOptions{MinPassAttempts: 2}, []int64{1, 2, 4, 7}},
		{"min completions", FilterOptions{MinCompletions: 3}, []int64{1, 2, 4, 7}},
		{"min completions too high", FilterOptions{MinCompletions: 4}, []int64{}},
		{"min rush attempts", FilterOptions{MinRushAttempts: 1}, []int64{3, 6}},
		{"min targets", FilterOptions{MinTargets: 3}, []int64{1, 4, 7}},
		{"min receptions", FilterOptions{MinReceptions: 1}, []int64{1, 4, 5, 7}},
		{"any of", FilterOptions{Passers: []string{"D.Carr"}, Rushers: []string{"J.Jacobs"}}, []int64{5, 6}},
		{"all of", FilterOptions{Passers: []string{"P.Mahomes"}, Receivers: []string{"T.Kelce"}, All: true}, []int64{1, 4, 7}},
		{"all of disjoint", FilterOptions{Passers: []string{"D.Carr"}, MinPassAttempts: 2, All: true}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(ps.Filter(tt.opts))); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_ReturnsNewSnapshot(t *testing.T) {
	ps := fixture()
	out := ps.Filter(FilterOptions{})
	out[0].Passer = "changed"
	if ps[0].Passer != "P.Mahomes" {
		t.Error("Filter result aliases the receiver")
	}
}

func TestMinPassAttempts(t *testing.T) {
	got := fixture().MinPassAttempts(1)
	if diff := cmp.Diff([]int64{1, 2, 4, 5, 7}, ids(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDemeanQBEPA(t *testing.T) {
	ps := fixture()
	out := ps.DemeanQBEPA()

	mean := (0.5 - 0.1 + 0.2 + 0.3 + 0.1 - 0.2 + 0.4) / 7
	if diff := cmp.Diff(0.5-mean, out[0].QBEPA, approx); diff != "" {
		t.Errorf("demeaned qb_epa mismatch:\n%s", diff)
	}
	if ps[0].QBEPA != 0.5 {
		t.Error("DemeanQBEPA modified the receiver")
	}
	var sum float64
	for _, p := range out {
		sum += p.QBEPA
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("demeaned sum = %v, want 0", sum)
	}
}

func TestSeasonsAndPassers(t *testing.T) {
	ps := fixture()
	if diff := cmp.Diff([]int{2020, 2021}, ps.Seasons()); diff != "" {
		t.Errorf("Seasons mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"D.Carr", "P.Mahomes"}, ps.Passers()); diff != "" {
		t.Errorf("Passers mismatch (-want +got):\n%s", diff)
	}
}

func TestGameEPA(t *testing.T) {
	want := []GameEPA{
		{Passer: "D.Carr", GameID: "2021_01_LV_DEN", Team: "LV", Season: 2021, GameNum: 1, EPA: 0.1, Plays: 1},
		{Passer: "P.Mahomes", GameID: "2020_17_KC_LAC", Team: "KC", Season: 2020, GameNum: 1, EPA: 0.4, Plays: 1},
		{Passer: "P.Mahomes", GameID: "2021_01_KC_CLE", Team: "KC", Season: 2021, GameNum: 2, EPA: 0.2, Plays: 2},
		{Passer: "P.Mahomes", GameID: "2021_02_KC_BAL", Team: "KC", Season: 2021, GameNum: 3, EPA: 0.3, Plays: 1},
	}
	if diff := cmp.Diff(want, fixture().GameEPA(), approx); diff != "" {
		t.Errorf("GameEPA mismatch (-want +got):\n%s", diff)
	}
}

func TestSeasonEPACPOE(t *testing.T) {
	want := []SeasonEPACPOE{
		{Passer: "D.Carr", Team: "LV", Season: 2021, EPA: 0.1, CPOE: nan, Plays: 1},
		{Passer: "P.Mahomes", Team: "KC", Season: 2020, EPA: 0.4, CPOE: 2, Plays: 1},
		{Passer: "P.Mahomes", Team: "KC", Season: 2021, EPA: 0.7 / 3, CPOE: -5.0 / 3, Plays: 3},
	}
	if diff := cmp.Diff(want, fixture().SeasonEPACPOE(), approx); diff != "" {
		t.Errorf("SeasonEPACPOE mismatch (-want +got):\n%s", diff)
	}
}

func TestPasserEPACPOE(t *testing.T) {
	want := []PasserEPACPOE{
		{Passer: "D.Carr", Team: "LV", EPA: 0.1, CPOE: nan, Plays: 1},
		{Passer: "P.Mahomes", Team: "KC", EPA: 0.275, CPOE: -0.75, Plays: 4},
	}
	if diff := cmp.Diff(want, fixture().PasserEPACPOE(), approx); diff != "" {
		t.Errorf("PasserEPACPOE mismatch (-want +got):\n%s", diff)
	}
}

func TestTeamColor(t *testing.T) {
	if got := TeamColor("KC"); got != "#CA2430" {
		t.Errorf("TeamColor(KC) = %q", got)
	}
	if got := TeamColor("XYZ"); got != DefaultTeamColor {
		t.Errorf("TeamColor(XYZ) = %q, want default", got)
	}
}
