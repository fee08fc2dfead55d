package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/banshee-data/nflvrs/internal/chart"
	"github.com/banshee-data/nflvrs/internal/httputil"
	"github.com/banshee-data/nflvrs/internal/monitoring"
)

func (s *Server) htmlOptions() chart.HTMLOptions {
	return chart.HTMLOptions{Theme: s.cfg.GetTheme()}
}

// writeRendered buffers render so a failure can still produce an error
// status.
func writeRendered(w http.ResponseWriter, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		monitoring.Logf("api: failed to write response: %v", err)
	}
}

// writeChart renders the html variant when format=html and the png one
// otherwise.
func writeChart(w http.ResponseWriter, r *http.Request, png func(io.Writer) error, html func() chart.Renderer) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "png":
		writeRendered(w, "image/png", png)
	case "html":
		writeRendered(w, "text/html; charset=utf-8", func(w io.Writer) error { return html().Render(w) })
	default:
		httputil.BadRequest(w, "invalid format "+format)
	}
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.MethodNotAllowed(w)
		return
	}
	req, err := s.parseTiering(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	data := chart.DashboardData{
		Games:      s.plays.GameEPA(),
		Seasons:    s.plays.SeasonEPACPOE(),
		Players:    s.cfg.GetPlayers(),
		ShowLeague: s.cfg.GetShowLeague(),
		Degree:     s.cfg.GetTrendlineDegree(),
		Options:    s.htmlOptions(),
	}
	// A snapshot too small to tier still gets the per-game charts.
	if data.Tiers, err = s.rank(req); err != nil {
		monitoring.Logf("api: dashboard without tiers: %v", err)
	}
	if data.Elbow, err = s.elbow(req); err != nil {
		monitoring.Logf("api: dashboard without elbow: %v", err)
	}
	writeRendered(w, "text/html; charset=utf-8", chart.Dashboard(data).Render)
}

func (s *Server) epaPerGameChart(w http.ResponseWriter, r *http.Request) {
	league, err := boolParam(r, "league", s.cfg.GetShowLeague())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	degree, err := intParam(r, "degree", s.cfg.GetTrendlineDegree())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	subplots, err := boolParam(r, "subplots", false)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	players := playersParam(r, s.cfg.GetPlayers())
	games := s.plays.GameEPA()

	writeChart(w, r,
		func(w io.Writer) error {
			return chart.EPAPerGame(w, games, chart.EPAPerGameOptions{
				Players: players, ShowLeague: league, Degree: degree, Subplots: subplots,
			})
		},
		func() chart.Renderer {
			return chart.EPAPerGameHTML(games, players, league, degree, s.htmlOptions())
		})
}

func (s *Server) epaVsCPOEChart(w http.ResponseWriter, r *http.Request) {
	league, err := boolParam(r, "league", s.cfg.GetShowLeague())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	players := playersParam(r, s.cfg.GetPlayers())
	seasons := s.plays.SeasonEPACPOE()

	writeChart(w, r,
		func(w io.Writer) error {
			return chart.EPAVsCPOE(w, seasons, chart.EPAVsCPOEOptions{Players: players, ShowLeague: league})
		},
		func() chart.Renderer {
			return chart.EPAVsCPOEHTML(seasons, players, league, s.htmlOptions())
		})
}

func (s *Server) tiersChart(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseTiering(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	res, err := s.rank(req)
	if err != nil {
		writeTieringError(w, err)
		return
	}
	writeChart(w, r,
		func(w io.Writer) error { return chart.TierScatter(w, res, 0, 0) },
		func() chart.Renderer { return chart.TierScatterHTML(res, s.htmlOptions()) })
}

func (s *Server) elbowChart(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseTiering(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	points, err := s.elbow(req)
	if err != nil {
		writeTieringError(w, err)
		return
	}
	writeChart(w, r,
		func(w io.Writer) error { return chart.Elbow(w, points, 0, 0) },
		func() chart.Renderer { return chart.ElbowHTML(points, s.htmlOptions()) })
}
