package chart

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/nflvrs/internal/pbp"
	"github.com/banshee-data/nflvrs/internal/tiering"
)

const (
	// AssetsHost serves the echarts JavaScript.
	AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
	// DarkBackground matches the dashboard page colour.
	DarkBackground = "#232b2b"
	// DefaultTheme is the echarts theme used when none is configured.
	DefaultTheme = "dark"
	leagueRGBA   = "rgba(128,128,128,0.6)"
)

// HTMLOptions are shared by the interactive charts.
type HTMLOptions struct {
	Theme  string
	Width  string
	Height string
}

func (o HTMLOptions) initialization(title string) opts.Initialization {
	in := opts.Initialization{
		PageTitle:  title,
		Theme:      o.Theme,
		Width:      o.Width,
		Height:     o.Height,
		AssetsHost: AssetsHost,
	}
	if in.Theme == "" {
		in.Theme = DefaultTheme
	}
	if in.Theme == DefaultTheme {
		in.BackgroundColor = DarkBackground
	}
	if in.Width == "" {
		in.Width = "900px"
	}
	if in.Height == "" {
		in.Height = "600px"
	}
	return in
}

func newScatter(o HTMLOptions, title, subtitle, xName, yName string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(o.initialization(title)),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName, NameLocation: "middle", NameGap: 40}),
	)
	return scatter
}

// TierScatterHTML builds an interactive tier scatter.
func TierScatterHTML(res *tiering.Result, o HTMLOptions) *charts.Scatter {
	scatter := newScatter(o, "Quarterback tiers",
		fmt.Sprintf("k=%d WCSS=%.3f iterations=%d", res.K, res.WCSS, res.Iterations), "CPOE", "Average EPA")
	for _, t := range res.Tiers {
		data := make([]opts.ScatterData, 0, len(t.Members))
		for _, m := range t.Members {
			data = append(data, opts.ScatterData{Name: m.Passer, Value: []interface{}{m.CPOE, m.EPA}})
		}
		scatter.AddSeries(fmt.Sprintf("Tier %d", t.Rank), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: TierColor(t.Rank)}),
		)
	}
	centroids := make([]opts.ScatterData, 0, len(res.Tiers))
	for _, t := range res.Tiers {
		centroids = append(centroids, opts.ScatterData{
			Name:   fmt.Sprintf("Tier %d centroid", t.Rank),
			Value:  []interface{}{t.CPOE, t.EPA},
			Symbol: "diamond",
		})
	}
	scatter.AddSeries("centroids", centroids,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 18}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ffffff"}),
	)
	return scatter
}

// ElbowHTML builds an interactive WCSS-by-k line.
func ElbowHTML(points []tiering.ElbowPoint, o HTMLOptions) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.initialization("Elbow method")),
		charts.WithTitleOpts(opts.Title{Title: "Elbow method", Subtitle: "WCSS by number of tiers"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "k"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "WCSS"}),
	)
	ks := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		ks[i] = fmt.Sprint(p.K)
		data[i] = opts.LineData{Value: p.WCSS}
	}
	line.SetXAxis(ks).AddSeries("WCSS", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return line
}

// EPAPerGameHTML builds an interactive per-game EPA scatter. Highlighted
// players get team colours and, when degree is at least 1, a fitted
// trendline.
func EPAPerGameHTML(games []pbp.GameEPA, players []string, showLeague bool, degree int, o HTMLOptions) *charts.Scatter {
	scatter := newScatter(o, "Average EPA per game", "", "Game Number", "Average EPA")
	groups, names := byPasser(games, func(g pbp.GameEPA) string { return g.Passer })
	highlighted := make(map[string]bool, len(players))
	for _, n := range players {
		highlighted[n] = true
	}

	if showLeague {
		var league []opts.ScatterData
		for _, n := range names {
			if highlighted[n] {
				continue
			}
			for _, g := range groups[n] {
				if !math.IsNaN(g.EPA) {
					league = append(league, opts.ScatterData{Name: n, Value: []interface{}{g.GameNum, g.EPA}})
				}
			}
		}
		scatter.AddSeries("League", league,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: leagueRGBA}),
		)
	}

	sorted := append([]string(nil), players...)
	sort.Strings(sorted)
	for _, n := range sorted {
		rows := groups[n]
		if len(rows) == 0 {
			continue
		}
		colour := pbp.TeamColor(rows[len(rows)-1].Team)
		var data []opts.ScatterData
		var xs, ys []float64
		for _, g := range rows {
			if math.IsNaN(g.EPA) {
				continue
			}
			data = append(data, opts.ScatterData{Name: g.GameID, Value: []interface{}{g.GameNum, g.EPA}})
			xs = append(xs, float64(g.GameNum))
			ys = append(ys, g.EPA)
		}
		scatter.AddSeries(n, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 9}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colour}),
		)
		if degree < 1 {
			continue
		}
		fit, err := PolyFit(xs, ys, degree)
		if err != nil {
			continue
		}
		trend := make([]opts.LineData, len(xs))
		for i, x := range xs {
			trend[i] = opts.LineData{Value: []interface{}{x, fit.Eval(x)}}
		}
		line := charts.NewLine()
		line.AddSeries(n+" trend", trend,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colour}),
		)
		scatter.Overlap(line)
	}
	return scatter
}

// EPAVsCPOEHTML builds an interactive per-season EPA against CPOE scatter.
func EPAVsCPOEHTML(seasons []pbp.SeasonEPACPOE, players []string, showLeague bool, o HTMLOptions) *charts.Scatter {
	scatter := newScatter(o, "Average EPA vs CPOE", "one point per passer season", "CPOE", "Average EPA")
	groups, names := byPasser(seasons, func(s pbp.SeasonEPACPOE) string { return s.Passer })
	highlighted := make(map[string]bool, len(players))
	for _, n := range players {
		highlighted[n] = true
	}

	point := func(s pbp.SeasonEPACPOE) (opts.ScatterData, bool) {
		if math.IsNaN(s.CPOE) || math.IsNaN(s.EPA) {
			return opts.ScatterData{}, false
		}
		return opts.ScatterData{Name: fmt.Sprintf("%s %d", s.Passer, s.Season), Value: []interface{}{s.CPOE, s.EPA}}, true
	}

	if showLeague {
		var league []opts.ScatterData
		for _, n := range names {
			if highlighted[n] {
				continue
			}
			for _, s := range groups[n] {
				if d, ok := point(s); ok {
					league = append(league, d)
				}
			}
		}
		scatter.AddSeries("League", league,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: leagueRGBA}),
		)
	}
	for _, n := range names {
		if !highlighted[n] {
			continue
		}
		var data []opts.ScatterData
		for _, s := range groups[n] {
			if d, ok := point(s); ok {
				data = append(data, d)
			}
		}
		rows := groups[n]
		scatter.AddSeries(n, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: pbp.TeamColor(rows[len(rows)-1].Team)}),
		)
	}
	return scatter
}

// Renderer is any go-echarts chart or page.
type Renderer interface {
	Render(w io.Writer) error
}

// DashboardData feeds Dashboard. Nil or empty parts are left out.
type DashboardData struct {
	Tiers      *tiering.Result
	Elbow      []tiering.ElbowPoint
	Games      []pbp.GameEPA
	Seasons    []pbp.SeasonEPACPOE
	Players    []string
	ShowLeague bool
	Degree     int
	Options    HTMLOptions
}

// Dashboard composes every available chart into one page.
func Dashboard(d DashboardData) *components.Page {
	page := components.NewPage()
	page.PageTitle = "nflvrs"
	page.SetAssetsHost(AssetsHost)
	page.SetLayout(components.PageFlexLayout)

	if d.Tiers != nil && len(d.Tiers.Tiers) > 0 {
		page.AddCharts(TierScatterHTML(d.Tiers, d.Options))
	}
	if len(d.Elbow) > 0 {
		page.AddCharts(ElbowHTML(d.Elbow, d.Options))
	}
	if len(d.Games) > 0 {
		page.AddCharts(EPAPerGameHTML(d.Games, d.Players, d.ShowLeague, d.Degree, d.Options))
	}
	if len(d.Seasons) > 0 {
		page.AddCharts(EPAVsCPOEHTML(d.Seasons, d.Players, d.ShowLeague, d.Options))
	}
	return page
}
