package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/nflvrs/internal/tiering"
	"github.com/banshee-data/nflvrs/internal/timeutil"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := EmptyAnalysisConfig()
	clock := timeutil.NewMockClock(time.Date(2022, 10, 2, 12, 0, 0, 0, time.UTC))

	if got := c.GetFirstSeason(clock); got != 2022 {
		t.Errorf("GetFirstSeason = %d, want 2022", got)
	}
	if got := c.GetLastSeason(clock); got != 2022 {
		t.Errorf("GetLastSeason = %d, want 2022", got)
	}
	if c.GetDataDir() != DefaultDataDir || c.GetDBPath() != DefaultDBPath {
		t.Errorf("paths = %q %q", c.GetDataDir(), c.GetDBPath())
	}
	if c.GetMinThrows() != 400 || c.GetClusters() != 5 || c.GetMaxIterations() != 100 {
		t.Errorf("tiering defaults = %d %d %d", c.GetMinThrows(), c.GetClusters(), c.GetMaxIterations())
	}
	if _, ok := c.GetSeed(); ok {
		t.Error("seed should be unset")
	}
	if c.GetRestarts() != DefaultRestarts || c.GetElbowMaxK() != DefaultElbowMaxK {
		t.Error("restart/elbow defaults wrong")
	}
	if !c.GetShowLeague() || c.GetTrendlineDegree() != 2 || c.GetTheme() != "dark" {
		t.Error("chart defaults wrong")
	}
	if c.GetListen() != ":8080" || c.GetOutputDir() != "charts" || c.GetConcurrency() != 4 {
		t.Error("serving defaults wrong")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestLoadAnalysisConfig(t *testing.T) {
	path := writeConfig(t, "cfg.json", `{
		"first_season": 2017,
		"last_season": 2021,
		"clusters": 4,
		"seed": 9,
		"players": ["T.Brady"],
		"show_league": false
	}`)

	c, err := LoadAnalysisConfig(path)
	if err != nil {
		t.Fatalf("LoadAnalysisConfig: %v", err)
	}
	clock := timeutil.RealClock{}
	if c.GetFirstSeason(clock) != 2017 || c.GetLastSeason(clock) != 2021 {
		t.Errorf("seasons = %d-%d", c.GetFirstSeason(clock), c.GetLastSeason(clock))
	}
	if c.GetClusters() != 4 {
		t.Errorf("clusters = %d", c.GetClusters())
	}
	if seed, ok := c.GetSeed(); !ok || seed != 9 {
		t.Errorf("seed = %d %v", seed, ok)
	}
	if c.GetShowLeague() {
		t.Error("show_league should be false")
	}
	if len(c.Players) != 1 || c.Players[0] != "T.Brady" {
		t.Errorf("players = %v", c.Players)
	}
	// Unset fields keep defaults.
	if c.GetMinThrows() != DefaultMinThrows {
		t.Errorf("min_throws = %d", c.GetMinThrows())
	}
}

func TestLoadAnalysisConfig_ExampleFile(t *testing.T) {
	c, err := LoadAnalysisConfig("../../config/nflvrs.example.json")
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if c.GetFirstSeason(timeutil.RealClock{}) != 2017 {
		t.Errorf("first_season = %d", c.GetFirstSeason(timeutil.RealClock{}))
	}
}

func TestLoadAnalysisConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"extension", "cfg.yaml", `{}`, ".json extension"},
		{"syntax", "cfg.json", `{`, "failed to parse"},
		{"unknown field", "cfg.json", `{"clusterz": 3}`, "failed to parse"},
		{"reversed seasons", "cfg.json", `{"first_season": 2021, "last_season": 2020}`, "before first_season"},
		{"early season", "cfg.json", `{"first_season": 1990}`, "1999"},
		{"zero clusters", "cfg.json", `{"clusters": 0}`, "clusters"},
		{"negative throws", "cfg.json", `{"min_throws": -1}`, "min_throws"},
		{"degree", "cfg.json", `{"trendline_degree": 9}`, "trendline_degree"},
		{"restarts", "cfg.json", `{"restarts": 0}`, "restarts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAnalysisConfig(writeConfig(t, tt.file, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadAnalysisConfig_TooLarge(t *testing.T) {
	body := `{"players": ["` + strings.Repeat("x", 1024*1024) + `"]}`
	if _, err := LoadAnalysisConfig(writeConfig(t, "big.json", body)); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("err = %v, want too large", err)
	}
}

func TestSetters(t *testing.T) {
	c := EmptyAnalysisConfig()
	c.SetFirstSeason(2019)
	c.SetLastSeason(2020)
	c.SetClusters(3)
	c.SetSeed(5)
	c.SetTheme("light")
	c.SetShowLeague(false)

	clock := timeutil.RealClock{}
	if c.GetFirstSeason(clock) != 2019 || c.GetLastSeason(clock) != 2020 || c.GetClusters() != 3 {
		t.Error("setters did not apply")
	}
	if seed, ok := c.GetSeed(); !ok || seed != 5 {
		t.Error("seed setter did not apply")
	}
	if c.GetTheme() != "light" || c.GetShowLeague() {
		t.Error("chart setters did not apply")
	}
}

func TestTieringOptions(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC))

	c := EmptyAnalysisConfig()
	c.SetClusters(4)
	c.SetRestarts(20)
	c.SetSeed(2022)
	got := c.TieringOptions(clock)
	want := tiering.Options{K: 4, MaxIterations: DefaultMaxIterations, Seed: 2022, Restarts: 20}
	if got != want {
		t.Errorf("TieringOptions() = %+v, want %+v", got, want)
	}

	unseeded := EmptyAnalysisConfig().TieringOptions(clock)
	if unseeded.Seed != uint64(clock.Now().UnixNano()) {
		t.Errorf("unseeded Seed = %d, want clock nanos", unseeded.Seed)
	}
	if unseeded.K != DefaultClusters || unseeded.Restarts != DefaultRestarts {
		t.Errorf("unseeded defaults = %+v", unseeded)
	}
}

func TestPlayers(t *testing.T) {
	c := EmptyAnalysisConfig()
	in := []string{"J.Allen", "P.Mahomes"}
	c.SetPlayers(in)
	in[0] = "changed"

	got := c.GetPlayers()
	if len(got) != 2 || got[0] != "J.Allen" {
		t.Fatalf("GetPlayers() = %v", got)
	}
	got[1] = "changed"
	if c.Players[1] != "P.Mahomes" {
		t.Error("GetPlayers must return a copy")
	}
}
