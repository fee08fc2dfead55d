package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/nflvrs/internal/api"
	"github.com/banshee-data/nflvrs/internal/chart"
	"github.com/banshee-data/nflvrs/internal/config"
	"github.com/banshee-data/nflvrs/internal/db"
	"github.com/banshee-data/nflvrs/internal/fetch"
	"github.com/banshee-data/nflvrs/internal/monitoring"
	"github.com/banshee-data/nflvrs/internal/pbp"
	"github.com/banshee-data/nflvrs/internal/tiering"
	"github.com/banshee-data/nflvrs/internal/version"
)

// options holds the raw flag values. Only flags the user actually set are
// copied onto the config, so config file values survive.
type options struct {
	configPath  string
	dataDir     string
	dbPath      string
	first       int
	last        int
	source      string
	minThrows   int
	k           int
	seed        uint64
	restarts    int
	maxIter     int
	maxK        int
	players     string
	league      bool
	degree      int
	theme       string
	out         string
	listen      string
	concurrency int
	baseURL     string
	overwrite   bool
	subplots    bool
	cols        int
	demean      bool
	admin       bool
	verbose     bool
}

func (c *cli) newFlagSet(name string) (*flag.FlagSet, *options) {
	o := &options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	fs.StringVar(&o.configPath, "config", "", "JSON analysis config file")
	fs.StringVar(&o.dataDir, "data-dir", config.DefaultDataDir, "Directory holding season extracts")
	fs.StringVar(&o.dbPath, "db", config.DefaultDBPath, "sqlite database path")
	fs.IntVar(&o.first, "first", 0, "First season (inclusive)")
	fs.IntVar(&o.last, "last", 0, "Last season (inclusive)")
	fs.StringVar(&o.source, "source", "csv", "Where to read plays from: csv or db")
	fs.IntVar(&o.minThrows, "min-throws", config.DefaultMinThrows, "Minimum pass attempts for a passer to be included")
	fs.IntVar(&o.k, "k", config.DefaultClusters, "Number of tiers")
	fs.Uint64Var(&o.seed, "seed", 0, "Random seed for centroid initialisation")
	fs.IntVar(&o.restarts, "restarts", config.DefaultRestarts, "Independently seeded k-means runs")
	fs.IntVar(&o.maxIter, "max-iter", config.DefaultMaxIterations, "Iteration cap per k-means run")
	fs.IntVar(&o.maxK, "max-k", config.DefaultElbowMaxK, "Largest k for the elbow method")
	fs.StringVar(&o.players, "players", "", "Comma-separated passers to highlight")
	fs.BoolVar(&o.league, "league", true, "Draw the rest of the league in grey")
	fs.IntVar(&o.degree, "degree", config.DefaultTrendlineDegree, "Trendline polynomial degree")
	fs.StringVar(&o.theme, "theme", config.DefaultTheme, "go-echarts theme for HTML output")
	fs.StringVar(&o.out, "out", "", "Chart output file (.png or .html)")
	fs.StringVar(&o.listen, "listen", config.DefaultListen, "Listen address")
	fs.IntVar(&o.concurrency, "concurrency", config.DefaultConcurrency, "Parallel downloads")
	fs.StringVar(&o.baseURL, "base-url", fetch.DefaultBaseURL, "Extract download location")
	fs.BoolVar(&o.overwrite, "overwrite", false, "Re-download seasons that already exist")
	fs.BoolVar(&o.subplots, "subplots", false, "One panel per highlighted passer")
	fs.IntVar(&o.cols, "cols", 2, "Subplot columns")
	fs.BoolVar(&o.demean, "demean", false, "Subtract the league mean from qb_epa")
	fs.BoolVar(&o.admin, "admin", false, "Mount database admin routes under /debug/")
	fs.BoolVar(&o.verbose, "verbose", false, "Log per-iteration detail")
	return fs, o
}

// parse parses args and builds the effective config: defaults, then the
// config file, then explicitly set flags.
func (c *cli) parse(fs *flag.FlagSet, o *options, args []string) (*config.AnalysisConfig, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	monitoring.SetVerbose(o.verbose)

	cfg := config.EmptyAnalysisConfig()
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadAnalysisConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.SetDataDir(o.dataDir)
		case "db":
			cfg.SetDBPath(o.dbPath)
		case "first":
			cfg.SetFirstSeason(o.first)
		case "last":
			cfg.SetLastSeason(o.last)
		case "min-throws":
			cfg.SetMinThrows(o.minThrows)
		case "k":
			cfg.SetClusters(o.k)
		case "seed":
			cfg.SetSeed(o.seed)
		case "restarts":
			cfg.SetRestarts(o.restarts)
		case "max-iter":
			cfg.SetMaxIterations(o.maxIter)
		case "max-k":
			cfg.SetElbowMaxK(o.maxK)
		case "players":
			cfg.SetPlayers(splitList(o.players))
		case "league":
			cfg.SetShowLeague(o.league)
		case "degree":
			cfg.SetTrendlineDegree(o.degree)
		case "theme":
			cfg.SetTheme(o.theme)
		case "listen":
			cfg.SetListen(o.listen)
		case "concurrency":
			cfg.SetConcurrency(o.concurrency)
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *cli) seasons(cfg *config.AnalysisConfig) (int, int) {
	return cfg.GetFirstSeason(c.clock), cfg.GetLastSeason(c.clock)
}

// loadPlays reads the configured season range from extracts or the
// database.
func (c *cli) loadPlays(ctx context.Context, o *options, cfg *config.AnalysisConfig) (pbp.Plays, error) {
	first, last := c.seasons(cfg)
	switch o.source {
	case "csv":
		return pbp.LoadSeasons(c.fs, cfg.GetDataDir(), first, last)
	case "db":
		database, err := db.NewDB(cfg.GetDBPath())
		if err != nil {
			return nil, err
		}
		defer database.Close()
		return database.Plays(ctx, first, last)
	default:
		return nil, fmt.Errorf("unknown source %q, want csv or db", o.source)
	}
}

// writeChart renders to path, picking HTML for a .html extension and PNG
// otherwise.
func (c *cli) writeChart(path string, png func(io.Writer) error, html func() chart.Renderer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	render := png
	if strings.EqualFold(filepath.Ext(path), ".html") {
		render = func(w io.Writer) error { return html().Render(w) }
	}

	w, err := c.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "wrote %s\n", path)
	return nil
}

func (c *cli) handleFetch(ctx context.Context, args []string) error {
	fs, o := c.newFlagSet("fetch")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	first, last := c.seasons(cfg)
	if first > last {
		return fmt.Errorf("%w: %d-%d", pbp.ErrNoSeasons, first, last)
	}
	var seasons []int
	for s := first; s <= last; s++ {
		seasons = append(seasons, s)
	}

	f := &fetch.Fetcher{
		Client:      c.client,
		FS:          c.fs,
		Dir:         cfg.GetDataDir(),
		BaseURL:     o.baseURL,
		Concurrency: cfg.GetConcurrency(),
		Overwrite:   o.overwrite,
		Clock:       c.clock,
	}
	results, err := f.Fetch(ctx, seasons)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Skipped {
			fmt.Fprintf(c.stdout, "%d\t%s\tskipped (exists)\n", r.Season, r.Path)
			continue
		}
		fmt.Fprintf(c.stdout, "%d\t%s\t%d bytes in %d attempt(s)\n", r.Season, r.Path, r.Bytes, r.Attempts)
	}
	return nil
}

func (c *cli) handleUpload(ctx context.Context, args []string) error {
	fs, o := c.newFlagSet("upload")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	if o.source != "csv" {
		return errors.New("upload reads extracts; -source must be csv")
	}
	plays, err := c.loadPlays(ctx, o, cfg)
	if err != nil {
		return err
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer database.Close()

	first, last := c.seasons(cfg)
	id, err := database.UploadPlays(ctx, plays, fmt.Sprintf("%s %d-%d", cfg.GetDataDir(), first, last))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "import %s: %d plays into %s\n", id, len(plays), database.Path())
	return nil
}

func (c *cli) handleMigrate(args []string) error {
	fs, o := c.newFlagSet("migrate")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	return db.RunMigrateCommand(c.stdout, fs.Args(), cfg.GetDBPath())
}

func (c *cli) handleTiers(ctx context.Context, args []string) error {
	fs, o := c.newFlagSet("tiers")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	plays, err := c.loadPlays(ctx, o, cfg)
	if err != nil {
		return err
	}
	res, err := tiering.Rank(tiering.Features(plays, cfg.GetMinThrows()), cfg.TieringOptions(c.clock))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "k=%d\twcss=%.4f\titerations=%d\tconverged=%v\n", res.K, res.WCSS, res.Iterations, res.Converged)
	fmt.Fprintln(tw, "TIER\tPASSER\tTEAM\tPLAYS\tCPOE\tEPA")
	for _, t := range res.Tiers {
		if t.Empty {
			fmt.Fprintf(tw, "%d\t(empty)\t\t\t%.2f\t%.3f\n", t.Rank, t.CPOE, t.EPA)
			continue
		}
		for _, m := range t.Members {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t%.3f\n", t.Rank, m.Passer, m.Team, m.Plays, m.CPOE, m.EPA)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if o.out == "" {
		return nil
	}
	return c.writeChart(o.out,
		func(w io.Writer) error { return chart.TierScatter(w, res, 0, 0) },
		func() chart.Renderer { return chart.TierScatterHTML(res, chart.HTMLOptions{Theme: cfg.GetTheme()}) })
}

func (c *cli) handleElbow(ctx context.Context, args []string) error {
	fs, o := c.newFlagSet("elbow")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	plays, err := c.loadPlays(ctx, o, cfg)
	if err != nil {
		return err
	}
	points, err := tiering.Elbow(tiering.Features(plays, cfg.GetMinThrows()), cfg.GetElbowMaxK(), cfg.TieringOptions(c.clock))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "K\tWCSS")
	for _, p := range points {
		fmt.Fprintf(tw, "%d\t%.4f\n", p.K, p.WCSS)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if o.out == "" {
		return nil
	}
	return c.writeChart(o.out,
		func(w io.Writer) error { return chart.Elbow(w, points, 0, 0) },
		func() chart.Renderer { return chart.ElbowHTML(points, chart.HTMLOptions{Theme: cfg.GetTheme()}) })
}

// chartPlays keeps the highlighted passers plus everyone over the
// min-throws floor.
func chartPlays(plays pbp.Plays, cfg *config.AnalysisConfig) pbp.Plays {
	return plays.Filter(pbp.FilterOptions{
		Passers:         cfg.GetPlayers(),
		MinPassAttempts: cfg.GetMinThrows(),
	})
}

func (c *cli) handleEPAPerGame(ctx context.Context, args []string) error {
	fs, o := c.newFlagSet("epa-per-game")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	plays, err := c.loadPlays(ctx, o, cfg)
	if err != nil {
		return err
	}
	if o.demean {
		plays = plays.DemeanQBEPA()
	}
	games := chartPlays(plays, cfg).GameEPA()

	out := o.out
	if out == "" {
		out = filepath.Join(cfg.GetOutputDir(), "epa_per_game.png")
	}
	players := cfg.GetPlayers()
	return c.writeChart(out,
		func(w io.Writer) error {
			return chart.EPAPerGame(w, games, chart.EPAPerGameOptions{
				Players:    players,
				ShowLeague: cfg.GetShowLeague(),
				Degree:     cfg.GetTrendlineDegree(),
				Subplots:   o.subplots,
				Cols:       o.cols,
			})
		},
		func() chart.Renderer {
			return chart.EPAPerGameHTML(games, players, cfg.GetShowLeague(), cfg.GetTrendlineDegree(), chart.HTMLOptions{Theme: cfg.GetTheme()})
		})
}

func (c *cli) handleEPAVsCPOE(ctx context.Context, args []string) error {
	fs, o := c.newFlagSet("epa-vs-cpoe")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	plays, err := c.loadPlays(ctx, o, cfg)
	if err != nil {
		return err
	}
	seasons := chartPlays(plays, cfg).SeasonEPACPOE()

	out := o.out
	if out == "" {
		out = filepath.Join(cfg.GetOutputDir(), "epa_vs_cpoe.png")
	}
	players := cfg.GetPlayers()
	return c.writeChart(out,
		func(w io.Writer) error {
			return chart.EPAVsCPOE(w, seasons, chart.EPAVsCPOEOptions{Players: players, ShowLeague: cfg.GetShowLeague()})
		},
		func() chart.Renderer {
			return chart.EPAVsCPOEHTML(seasons, players, cfg.GetShowLeague(), chart.HTMLOptions{Theme: cfg.GetTheme()})
		})
}

func (c *cli) handleServe(ctx context.Context, args []string) error {
	fs, o := c.newFlagSet("serve")
	cfg, err := c.parse(fs, o, args)
	if err != nil {
		return err
	}
	plays, err := c.loadPlays(ctx, o, cfg)
	if err != nil {
		return err
	}

	var database *db.DB
	if o.admin {
		database, err = db.NewDB(cfg.GetDBPath())
		if err != nil {
			return err
		}
		defer database.Close()
	}
	return api.NewServer(plays, cfg, database, c.clock).ListenAndServe(ctx, cfg.GetListen())
}

func (c *cli) handleVersion() error {
	_, err := fmt.Fprintln(c.stdout, version.String())
	return err
}
