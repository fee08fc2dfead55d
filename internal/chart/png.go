package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/nflvrs/internal/monitoring"
	"github.com/banshee-data/nflvrs/internal/pbp"
	"github.com/banshee-data/nflvrs/internal/tiering"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// EPAPerGameOptions configures EPAPerGame.
type EPAPerGameOptions struct {
	// Players are highlighted in team colours with a trendline.
	Players []string
	// ShowLeague draws every other passer in translucent grey.
	ShowLeague bool
	// Degree of the trendline polynomial. Values below 1 disable it.
	Degree int
	// Subplots draws one panel per player in a grid of Cols columns.
	Subplots bool
	Cols     int
	Width    vg.Length
	Height   vg.Length
}

// byPasser groups rows by passer, keeping input order inside a group.
func byPasser[T any](rows []T, passer func(T) string) (map[string][]T, []string) {
	groups := make(map[string][]T)
	for _, r := range rows {
		groups[passer(r)] = append(groups[passer(r)], r)
	}
	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return groups, names
}

func gameXYs(games []pbp.GameEPA) plotter.XYs {
	xys := make(plotter.XYs, 0, len(games))
	for _, g := range games {
		if math.IsNaN(g.EPA) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(g.GameNum), Y: g.EPA})
	}
	return xys
}

func newEPAPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Game Number"
	p.Y.Label.Text = "Average EPA"
	p.X.Tick.Marker = plot.TickerFunc(integerTicks)
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

// addPlayer draws one highlighted passer and, when degree allows, the
// polynomial trendline through their games.
func addPlayer(p *plot.Plot, name string, games []pbp.GameEPA, degree int) error {
	xys := gameXYs(games)
	if len(xys) == 0 {
		return nil
	}
	c := teamColor(games[len(games)-1].Team)
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)
	p.Legend.Add(name, s)

	if degree < 1 {
		return nil
	}
	xs := make([]float64, len(xys))
	ys := make([]float64, len(xys))
	for i, xy := range xys {
		xs[i], ys[i] = xy.X, xy.Y
	}
	fit, err := PolyFit(xs, ys, degree)
	if err != nil {
		monitoring.Debugf("chart: no trendline for %s: %v", name, err)
		return nil
	}
	f := plotter.NewFunction(fit.Eval)
	f.XMin, f.XMax = xs[0], xs[len(xs)-1]
	f.Samples = 100
	f.Color = c
	f.Width = vg.Points(1.5)
	p.Add(f)
	return nil
}

func addLeague(p *plot.Plot, games []pbp.GameEPA) error {
	xys := gameXYs(games)
	if len(xys) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = leagueColor
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)
	return nil
}

// EPAPerGame plots mean qb_epa per game against each passer's game number
// as a PNG.
func EPAPerGame(w io.Writer, games []pbp.GameEPA, o EPAPerGameOptions) error {
	if len(games) == 0 {
		return ErrNoData
	}
	groups, names := byPasser(games, func(g pbp.GameEPA) string { return g.Passer })
	highlighted := make(map[string]bool, len(o.Players))
	for _, n := range o.Players {
		highlighted[n] = true
	}

	if o.Subplots {
		return epaSubplots(w, groups, o)
	}

	p := newEPAPlot("Average EPA per game")
	if o.ShowLeague {
		for _, n := range names {
			if highlighted[n] {
				continue
			}
			if err := addLeague(p, groups[n]); err != nil {
				return err
			}
		}
	}
	for _, n := range names {
		if !highlighted[n] {
			continue
		}
		if err := addPlayer(p, n, groups[n], o.Degree); err != nil {
			return err
		}
	}
	return writePNG(w, p, o.Width, o.Height)
}

// epaSubplots draws one panel per requested player, sharing the y range.
func epaSubplots(w io.Writer, groups map[string][]pbp.GameEPA, o EPAPerGameOptions) error {
	var players []string
	for _, n := range o.Players {
		if len(groups[n]) > 0 {
			players = append(players, n)
		}
	}
	sort.Strings(players)
	if len(players) == 0 {
		return fmt.Errorf("%w: none of %v threw a pass", ErrNoData, o.Players)
	}

	cols := o.Cols
	if cols <= 0 {
		cols = 2
	}
	if cols > len(players) {
		cols = len(players)
	}
	rows := (len(players) + cols - 1) / cols

	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
		for c := range plots[r] {
			i := r*cols + c
			if i >= len(players) {
				blank := plot.New()
				blank.HideAxes()
				plots[r][c] = blank
				continue
			}
			p := newEPAPlot(players[i] + " Average EPA per game")
			p.Y.Min, p.Y.Max = -1.25, 1.25
			if c > 0 {
				p.Y.Label.Text = ""
			}
			if r < rows-1 {
				p.X.Label.Text = ""
			}
			if err := addPlayer(p, players[i], groups[players[i]], o.Degree); err != nil {
				return err
			}
			plots[r][c] = p
		}
	}

	width, height := size(o.Width, o.Height)
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EPAVsCPOEOptions configures EPAVsCPOE.
type EPAVsCPOEOptions struct {
	Players    []string
	ShowLeague bool
	Width      vg.Length
	Height     vg.Length
}

// EPAVsCPOE plots each passer-season's mean qb_epa against mean cpoe. Points
// of highlighted players are labelled with the season.
func EPAVsCPOE(w io.Writer, seasons []pbp.SeasonEPACPOE, o EPAVsCPOEOptions) error {
	if len(seasons) == 0 {
		return ErrNoData
	}
	groups, names := byPasser(seasons, func(s pbp.SeasonEPACPOE) string { return s.Passer })
	highlighted := make(map[string]bool, len(o.Players))
	for _, n := range o.Players {
		highlighted[n] = true
	}

	p := plot.New()
	p.Title.Text = "Average EPA vs CPOE per season"
	p.X.Label.Text = "CPOE"
	p.Y.Label.Text = "Average EPA"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for _, n := range names {
		var xys plotter.XYs
		var labels []string
		for _, s := range groups[n] {
			if math.IsNaN(s.CPOE) || math.IsNaN(s.EPA) {
				continue
			}
			xys = append(xys, plotter.XY{X: s.CPOE, Y: s.EPA})
			labels = append(labels, strconv.Itoa(s.Season))
		}
		if len(xys) == 0 || (!highlighted[n] && !o.ShowLeague) {
			continue
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		if !highlighted[n] {
			sc.GlyphStyle.Color = leagueColor
			sc.GlyphStyle.Radius = vg.Points(2)
			p.Add(sc)
			continue
		}
		sc.GlyphStyle.Color = teamColor(groups[n][len(groups[n])-1].Team)
		sc.GlyphStyle.Radius = vg.Points(4)
		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return err
		}
		p.Add(sc, lbl)
		p.Legend.Add(n, sc)
	}
	return writePNG(w, p, o.Width, o.Height)
}

// TierScatter plots passers coloured by tier with each tier's centroid
// marked by a cross.
func TierScatter(w io.Writer, res *tiering.Result, width, height vg.Length) error {
	if res == nil || len(res.Tiers) == 0 {
		return ErrNoData
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Quarterback tiers (k=%d, WCSS %.3f)", res.K, res.WCSS)
	p.X.Label.Text = "CPOE"
	p.Y.Label.Text = "Average EPA"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for _, t := range res.Tiers {
		c := hexColor(TierColor(t.Rank))
		centroid, err := plotter.NewScatter(plotter.XYs{{X: t.CPOE, Y: t.EPA}})
		if err != nil {
			return err
		}
		centroid.GlyphStyle.Shape = draw.CrossGlyph{}
		centroid.GlyphStyle.Radius = vg.Points(6)
		centroid.GlyphStyle.Color = c
		p.Add(centroid)
		if t.Empty {
			continue
		}

		xys := make(plotter.XYs, len(t.Members))
		labels := make([]string, len(t.Members))
		for i, m := range t.Members {
			xys[i] = plotter.XY{X: m.CPOE, Y: m.EPA}
			labels[i] = m.Passer
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Color = c
		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return err
		}
		p.Add(sc, lbl)
		p.Legend.Add(fmt.Sprintf("Tier %d (%d)", t.Rank, len(t.Members)), sc)
	}
	return writePNG(w, p, width, height)
}

// Elbow plots WCSS against k.
func Elbow(w io.Writer, points []tiering.ElbowPoint, width, height vg.Length) error {
	if len(points) == 0 {
		return ErrNoData
	}
	xys := make(plotter.XYs, len(points))
	for i, e := range points {
		xys[i] = plotter.XY{X: float64(e.K), Y: e.WCSS}
	}
	p := plot.New()
	p.Title.Text = "Elbow method"
	p.X.Label.Text = "k"
	p.Y.Label.Text = "WCSS"
	p.X.Tick.Marker = plot.TickerFunc(integerTicks)
	p.Add(plotter.NewGrid())

	line, pts, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	pts.Shape = draw.CircleGlyph{}
	p.Add(line, pts)
	return writePNG(w, p, width, height)
}

func writePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	width, height = size(width, height)
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
