// Package api serves the tiering dashboard and its JSON and chart endpoints
// over a loaded play-by-play snapshot.
package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/banshee-data/nflvrs/internal/chart"
	"github.com/banshee-data/nflvrs/internal/config"
	"github.com/banshee-data/nflvrs/internal/db"
	"github.com/banshee-data/nflvrs/internal/httputil"
	"github.com/banshee-data/nflvrs/internal/kmeans"
	"github.com/banshee-data/nflvrs/internal/monitoring"
	"github.com/banshee-data/nflvrs/internal/pbp"
	"github.com/banshee-data/nflvrs/internal/tiering"
	"github.com/banshee-data/nflvrs/internal/timeutil"
)

// Server answers dashboard requests. The play snapshot is read-only, so a
// Server is safe for concurrent use.
type Server struct {
	plays pbp.Plays
	cfg   *config.AnalysisConfig
	db    *db.DB
	opts  tiering.Options
}

// NewServer returns a server over plays. database may be nil, in which case
// the import listing and admin routes are not mounted. The tiering seed is
// fixed here so every request sees the same tiers.
func NewServer(plays pbp.Plays, cfg *config.AnalysisConfig, database *db.DB, clock timeutil.Clock) *Server {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		plays: plays,
		cfg:   cfg,
		db:    database,
		opts:  cfg.TieringOptions(clock),
	}
}

// ServeMux returns a mux with every route mounted.
func (s *Server) ServeMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.dashboard)
	mux.HandleFunc("/api/tiers", s.getOnly(s.listTiers))
	mux.HandleFunc("/api/elbow", s.getOnly(s.listElbow))
	mux.HandleFunc("/api/passers", s.getOnly(s.listPassers))
	mux.HandleFunc("/charts/epa-per-game", s.getOnly(s.epaPerGameChart))
	mux.HandleFunc("/charts/epa-vs-cpoe", s.getOnly(s.epaVsCPOEChart))
	mux.HandleFunc("/charts/tiers", s.getOnly(s.tiersChart))
	mux.HandleFunc("/charts/elbow", s.getOnly(s.elbowChart))
	if s.db != nil {
		mux.HandleFunc("/api/imports", s.getOnly(s.listImports))
		if err := s.db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// with a short grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux, err := s.ServeMux()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("api: listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("api: shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("api: HTTP server shutdown error: %v", err)
		return server.Close()
	}
	return nil
}

func (s *Server) getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httputil.MethodNotAllowed(w)
			return
		}
		h(w, r)
	}
}

// tieringRequest holds the tiering inputs after query overrides.
type tieringRequest struct {
	minThrows int
	maxK      int
	opts      tiering.Options
}

func (s *Server) parseTiering(r *http.Request) (tieringRequest, error) {
	req := tieringRequest{opts: s.opts}
	var err error
	if req.minThrows, err = intParam(r, "min_throws", s.cfg.GetMinThrows()); err != nil {
		return req, err
	}
	if req.maxK, err = intParam(r, "max_k", s.cfg.GetElbowMaxK()); err != nil {
		return req, err
	}
	if req.opts.K, err = intParam(r, "k", s.opts.K); err != nil {
		return req, err
	}
	if req.opts.Restarts, err = intParam(r, "restarts", s.opts.Restarts); err != nil {
		return req, err
	}
	if req.opts.Seed, err = uintParam(r, "seed", s.opts.Seed); err != nil {
		return req, err
	}
	return req, nil
}

// writeTieringError maps clustering failures to HTTP statuses.
func writeTieringError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tiering.ErrNoFeatures):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, kmeans.ErrInvalidConfiguration):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) rank(req tieringRequest) (*tiering.Result, error) {
	return tiering.Rank(tiering.Features(s.plays, req.minThrows), req.opts)
}

func (s *Server) elbow(req tieringRequest) ([]tiering.ElbowPoint, error) {
	return tiering.Elbow(tiering.Features(s.plays, req.minThrows), req.maxK, req.opts)
}

// finite maps NaN to nil so it encodes as JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type memberJSON struct {
	Passer   string  `json:"passer"`
	Team     string  `json:"team"`
	Plays    int     `json:"plays"`
	CPOE     float64 `json:"cpoe"`
	EPA      float64 `json:"epa"`
	Distance float64 `json:"distance"`
}

type tierJSON struct {
	Rank    int          `json:"rank"`
	CPOE    float64      `json:"cpoe"`
	EPA     float64      `json:"epa"`
	Empty   bool         `json:"empty"`
	Color   string       `json:"color"`
	Members []memberJSON `json:"members"`
}

type tiersResponse struct {
	K          int        `json:"k"`
	MinThrows  int        `json:"min_throws"`
	WCSS       float64    `json:"wcss"`
	Iterations int        `json:"iterations"`
	Converged  bool       `json:"converged"`
	Restart    int        `json:"restart"`
	Seed       uint64     `json:"seed"`
	Tiers      []tierJSON `json:"tiers"`
}

func (s *Server) listTiers(w http.ResponseWriter, r *http.Request) {
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

	resp := tiersResponse{
		K:          res.K,
		MinThrows:  req.minThrows,
		WCSS:       res.WCSS,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Restart:    res.Restart,
		Seed:       req.opts.Seed,
		Tiers:      make([]tierJSON, 0, len(res.Tiers)),
	}
	for _, t := range res.Tiers {
		tj := tierJSON{Rank: t.Rank, CPOE: t.CPOE, EPA: t.EPA, Empty: t.Empty, Color: chart.TierColor(t.Rank), Members: []memberJSON{}}
		for _, m := range t.Members {
			tj.Members = append(tj.Members, memberJSON{
				Passer: m.Passer, Team: m.Team, Plays: m.Plays,
				CPOE: m.CPOE, EPA: m.EPA, Distance: m.Distance,
			})
		}
		resp.Tiers = append(resp.Tiers, tj)
	}
	httputil.WriteJSONOK(w, resp)
}

type elbowJSON struct {
	K    int     `json:"k"`
	WCSS float64 `json:"wcss"`
}

func (s *Server) listElbow(w http.ResponseWriter, r *http.Request) {
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
	out := make([]elbowJSON, len(points))
	for i, p := range points {
		out[i] = elbowJSON{K: p.K, WCSS: p.WCSS}
	}
	httputil.WriteJSONOK(w, out)
}

type passerJSON struct {
	Passer      string   `json:"passer"`
	Team        string   `json:"team,omitempty"`
	Plays       int      `json:"plays"`
	Completions *int     `json:"completions,omitempty"`
	EPA         *float64 `json:"epa"`
	CPOE        *float64 `json:"cpoe"`
}

// listPassers reports per-passer means from the snapshot, or from the
// database when source=db.
func (s *Server) listPassers(w http.ResponseWriter, r *http.Request) {
	minThrows, err := intParam(r, "min_throws", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	out := []passerJSON{}
	switch source := r.URL.Query().Get("source"); source {
	case "", "plays":
		for _, p := range s.plays.MinPassAttempts(minThrows).PasserEPACPOE() {
			out = append(out, passerJSON{Passer: p.Passer, Team: p.Team, Plays: p.Plays, EPA: finite(p.EPA), CPOE: finite(p.CPOE)})
		}
	case "db":
		if s.db == nil {
			httputil.NotFound(w, "no database configured")
			return
		}
		summaries, err := s.db.PasserSummaries(r.Context(), minThrows)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		for _, p := range summaries {
			completions := p.Completions
			out = append(out, passerJSON{Passer: p.Passer, Plays: p.Attempts, Completions: &completions, EPA: finite(p.EPA), CPOE: finite(p.CPOE)})
		}
	default:
		httputil.BadRequest(w, "invalid source "+source)
		return
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) listImports(w http.ResponseWriter, r *http.Request) {
	imports, err := s.db.Imports(r.Context())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if imports == nil {
		imports = []db.Import{}
	}
	httputil.WriteJSONOK(w, imports)
}
