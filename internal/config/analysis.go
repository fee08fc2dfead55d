package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/nflvrs/internal/tiering"
	"github.com/banshee-data/nflvrs/internal/timeutil"
)

// DefaultConfigPath is where the CLI looks for a config file when -config
// is not given.
const DefaultConfigPath = "config/nflvrs.json"

// Defaults for unset fields.
const (
	DefaultDataDir         = "data"
	DefaultDBPath          = "nflvrs.db"
	DefaultMinThrows       = 400
	DefaultClusters        = 5
	DefaultMaxIterations   = 100
	DefaultRestarts        = 10
	DefaultElbowMaxK       = 10
	DefaultTrendlineDegree = 2
	DefaultTheme           = "dark"
	DefaultListen          = ":8080"
	DefaultOutputDir       = "charts"
	DefaultConcurrency     = 4
)

// AnalysisConfig holds every tunable of the analysis pipeline. Fields are
// pointers so that a partial JSON file only overrides what it names; the
// Get* methods supply defaults for the rest.
type AnalysisConfig struct {
	// Data locations
	DataDir *string `json:"data_dir,omitempty"`
	DBPath  *string `json:"db_path,omitempty"`

	// Season range, inclusive. Both default to the current year.
	FirstSeason *int `json:"first_season,omitempty"`
	LastSeason  *int `json:"last_season,omitempty"`

	// Tiering
	MinThrows     *int    `json:"min_throws,omitempty"`
	Clusters      *int    `json:"clusters,omitempty"`
	MaxIterations *int    `json:"max_iterations,omitempty"`
	Seed          *uint64 `json:"seed,omitempty"`
	Restarts      *int    `json:"restarts,omitempty"`
	ElbowMaxK     *int    `json:"elbow_max_k,omitempty"`

	// Charts
	Players         []string `json:"players,omitempty"`
	ShowLeague      *bool    `json:"show_league,omitempty"`
	TrendlineDegree *int     `json:"trendline_degree,omitempty"`
	Theme           *string  `json:"theme,omitempty"`
	OutputDir       *string  `json:"output_dir,omitempty"`

	// Serving and fetching
	Listen      *string `json:"listen,omitempty"`
	Concurrency *int    `json:"fetch_concurrency,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrUint64(v uint64) *uint64 { return &v }

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads a config from a JSON file. The file must have a
// .json extension and be at most 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *AnalysisConfig) Validate() error {
	if c.FirstSeason != nil && *c.FirstSeason < 1999 {
		return fmt.Errorf("first_season must be 1999 or later, got %d", *c.FirstSeason)
	}
	if c.FirstSeason != nil && c.LastSeason != nil && *c.LastSeason < *c.FirstSeason {
		return fmt.Errorf("last_season %d is before first_season %d", *c.LastSeason, *c.FirstSeason)
	}
	if c.MinThrows != nil && *c.MinThrows < 0 {
		return fmt.Errorf("min_throws must be non-negative, got %d", *c.MinThrows)
	}
	if c.Clusters != nil && *c.Clusters < 1 {
		return fmt.Errorf("clusters must be at least 1, got %d", *c.Clusters)
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}
	if c.Restarts != nil && *c.Restarts < 1 {
		return fmt.Errorf("restarts must be at least 1, got %d", *c.Restarts)
	}
	if c.ElbowMaxK != nil && *c.ElbowMaxK < 1 {
		return fmt.Errorf("elbow_max_k must be at least 1, got %d", *c.ElbowMaxK)
	}
	if c.TrendlineDegree != nil && (*c.TrendlineDegree < 0 || *c.TrendlineDegree > 5) {
		return fmt.Errorf("trendline_degree must be between 0 and 5, got %d", *c.TrendlineDegree)
	}
	if c.Concurrency != nil && *c.Concurrency < 1 {
		return fmt.Errorf("fetch_concurrency must be at least 1, got %d", *c.Concurrency)
	}
	return nil
}

// GetDataDir returns data_dir or the default.
func (c *AnalysisConfig) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return DefaultDataDir
	}
	return *c.DataDir
}

// GetDBPath returns db_path or the default.
func (c *AnalysisConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetFirstSeason returns first_season, defaulting to clock's year.
func (c *AnalysisConfig) GetFirstSeason(clock timeutil.Clock) int {
	if c.FirstSeason == nil {
		return timeutil.CurrentYear(clock)
	}
	return *c.FirstSeason
}

// GetLastSeason returns last_season, defaulting to clock's year.
func (c *AnalysisConfig) GetLastSeason(clock timeutil.Clock) int {
	if c.LastSeason == nil {
		return timeutil.CurrentYear(clock)
	}
	return *c.LastSeason
}

// GetMinThrows returns min_throws or the default.
func (c *AnalysisConfig) GetMinThrows() int {
	if c.MinThrows == nil {
		return DefaultMinThrows
	}
	return *c.MinThrows
}

// GetClusters returns clusters or the default.
func (c *AnalysisConfig) GetClusters() int {
	if c.Clusters == nil {
		return DefaultClusters
	}
	return *c.Clusters
}

// GetMaxIterations returns max_iterations or the default.
func (c *AnalysisConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return DefaultMaxIterations
	}
	return *c.MaxIterations
}

// GetSeed returns seed and whether it was set.
func (c *AnalysisConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetRestarts returns restarts or the default.
func (c *AnalysisConfig) GetRestarts() int {
	if c.Restarts == nil {
		return DefaultRestarts
	}
	return *c.Restarts
}

// GetElbowMaxK returns elbow_max_k or the default.
func (c *AnalysisConfig) GetElbowMaxK() int {
	if c.ElbowMaxK == nil {
		return DefaultElbowMaxK
	}
	return *c.ElbowMaxK
}

// GetPlayers returns a copy of the highlighted passers.
func (c *AnalysisConfig) GetPlayers() []string {
	return append([]string(nil), c.Players...)
}

// TieringOptions collects the clustering settings. Without a configured
// seed each call draws one from clock, so runs differ.
func (c *AnalysisConfig) TieringOptions(clock timeutil.Clock) tiering.Options {
	seed, ok := c.GetSeed()
	if !ok {
		seed = uint64(clock.Now().UnixNano())
	}
	return tiering.Options{
		K:             c.GetClusters(),
		MaxIterations: c.GetMaxIterations(),
		Seed:          seed,
		Restarts:      c.GetRestarts(),
	}
}

// GetShowLeague returns show_league, default true.
func (c *AnalysisConfig) GetShowLeague() bool {
	if c.ShowLeague == nil {
		return true
	}
	return *c.ShowLeague
}

// GetTrendlineDegree returns trendline_degree or the default.
func (c *AnalysisConfig) GetTrendlineDegree() int {
	if c.TrendlineDegree == nil {
		return DefaultTrendlineDegree
	}
	return *c.TrendlineDegree
}

// GetTheme returns theme or the default.
func (c *AnalysisConfig) GetTheme() string {
	if c.Theme == nil || *c.Theme == "" {
		return DefaultTheme
	}
	return *c.Theme
}

// GetOutputDir returns output_dir or the default.
func (c *AnalysisConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return DefaultOutputDir
	}
	return *c.OutputDir
}

// GetListen returns listen or the default.
func (c *AnalysisConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetConcurrency returns fetch_concurrency or the default.
func (c *AnalysisConfig) GetConcurrency() int {
	if c.Concurrency == nil {
		return DefaultConcurrency
	}
	return *c.Concurrency
}

// Setters apply CLI flag overrides.
func (c *AnalysisConfig) SetDataDir(v string)      { c.DataDir = ptrString(v) }
func (c *AnalysisConfig) SetDBPath(v string)       { c.DBPath = ptrString(v) }
func (c *AnalysisConfig) SetFirstSeason(v int)     { c.FirstSeason = ptrInt(v) }
func (c *AnalysisConfig) SetLastSeason(v int)      { c.LastSeason = ptrInt(v) }
func (c *AnalysisConfig) SetMinThrows(v int)       { c.MinThrows = ptrInt(v) }
func (c *AnalysisConfig) SetClusters(v int)        { c.Clusters = ptrInt(v) }
func (c *AnalysisConfig) SetMaxIterations(v int)   { c.MaxIterations = ptrInt(v) }
func (c *AnalysisConfig) SetSeed(v uint64)         { c.Seed = ptrUint64(v) }
func (c *AnalysisConfig) SetRestarts(v int)        { c.Restarts = ptrInt(v) }
func (c *AnalysisConfig) SetElbowMaxK(v int)       { c.ElbowMaxK = ptrInt(v) }
func (c *AnalysisConfig) SetShowLeague(v bool)     { c.ShowLeague = ptrBool(v) }
func (c *AnalysisConfig) SetTrendlineDegree(v int) { c.TrendlineDegree = ptrInt(v) }
func (c *AnalysisConfig) SetTheme(v string)        { c.Theme = ptrString(v) }
func (c *AnalysisConfig) SetOutputDir(v string)    { c.OutputDir = ptrString(v) }
func (c *AnalysisConfig) SetListen(v string)       { c.Listen = ptrString(v) }
func (c *AnalysisConfig) SetConcurrency(v int)     { c.Concurrency = ptrInt(v) }
func (c *AnalysisConfig) SetPlayers(v []string)    { c.Players = append([]string(nil), v...) }
