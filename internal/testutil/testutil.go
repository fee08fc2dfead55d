// Package testutil provides shared test helpers and play-by-play fixtures.
//
// Fixtures are built from PBPRow values and rendered as the CSV (optionally
// gzip-compressed) extracts the season loader reads, so tests exercise the
// real decode path.
package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// PBPHeader is the column order written by CSV.
var PBPHeader = []string{
	"play_id", "game_id", "season", "week", "posteam", "defteam", "down",
	"pass", "rush", "complete_pass", "passer", "rusher", "receiver",
	"qb_epa", "epa", "cpoe",
}

// PBPRow is one play in a fixture. NaN numerics are written as "NA", the
// way nflfastR extracts encode missing values.
type PBPRow struct {
	PlayID       int
	GameID       string
	Season       int
	Week         int
	Posteam      string
	Defteam      string
	Down         int
	Pass         bool
	Rush         bool
	CompletePass bool
	Passer       string
	Rusher       string
	Receiver     string
	QBEPA        float64
	EPA          float64
	CPOE         float64
}

func (r PBPRow) record() []string {
	return []string{
		strconv.Itoa(r.PlayID), r.GameID, strconv.Itoa(r.Season), strconv.Itoa(r.Week),
		r.Posteam, r.Defteam, formatDown(r.Down),
		formatBool(r.Pass), formatBool(r.Rush), formatBool(r.CompletePass),
		na(r.Passer), na(r.Rusher), na(r.Receiver),
		formatFloat(r.QBEPA), formatFloat(r.EPA), formatFloat(r.CPOE),
	}
}

func formatDown(d int) string {
	if d == 0 {
		return "NA"
	}
	return strconv.Itoa(d)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func na(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}

// CSV renders rows as a play-by-play CSV extract with a header line.
func CSV(rows []PBPRow) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(PBPHeader)
	for _, r := range rows {
		_ = w.Write(r.record())
	}
	w.Flush()
	return buf.Bytes()
}

// GzipCSV renders rows as a gzip-compressed CSV extract.
func GzipCSV(rows []PBPRow) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write(CSV(rows))
	_ = zw.Close()
	return buf.Bytes()
}

// QB describes a fixture passer's level.
type QB struct {
	Name string
	Team string
	EPA  float64
	CPOE float64
}

// LeagueQBs spans clearly separated performance levels so clustering
// fixtures have an obvious structure.
var LeagueQBs = []QB{
	{"P.Mahomes", "KC", 0.32, 5.5},
	{"J.Allen", "BUF", 0.27, 4.5},
	{"T.Brady", "TB", 0.18, 2.5},
	{"J.Herbert", "LAC", 0.15, 2.0},
	{"D.Carr", "LV", 0.04, 0.2},
	{"M.Jones", "NE", 0.01, -0.6},
	{"J.Fields", "CHI", -0.10, -4.0},
	{"Z.Wilson", "NYJ", -0.16, -5.2},
}

// League builds a deterministic multi-season fixture. Every passer plays
// games weeks per season with passes dropbacks each, plus one rush play
// per game credited to "<TEAM>.RB".
func League(seasons []int, games, passes int) []PBPRow {
	var rows []PBPRow
	id := 1
	for _, season := range seasons {
		for week := 1; week <= games; week++ {
			for qi, qb := range LeagueQBs {
				opp := LeagueQBs[(qi+week)%len(LeagueQBs)].Team
				if opp == qb.Team {
					opp = "BYE"
				}
				gameID := fmt.Sprintf("%d_%02d_%s_%s", season, week, qb.Team, opp)
				for i := 0; i < passes; i++ {
					jitter := float64((id*7)%11-5) / 100
					complete := (id+qi)%3 != 0
					rows = append(rows, PBPRow{
						PlayID: id, GameID: gameID, Season: season, Week: week,
						Posteam: qb.Team, Defteam: opp, Down: 1 + i%4,
						Pass: true, CompletePass: complete,
						Passer: qb.Name, Receiver: qb.Team + ".WR",
						QBEPA: qb.EPA + jitter, EPA: qb.EPA + jitter,
						CPOE: qb.CPOE + jitter*10,
					})
					id++
				}
				rows = append(rows, PBPRow{
					PlayID: id, GameID: gameID, Season: season, Week: week,
					Posteam: qb.Team, Defteam: opp, Down: 1,
					Rush: true, Rusher: qb.Team + ".RB",
					QBEPA: 0.01, EPA: 0.01, CPOE: math.NaN(),
				})
				id++
			}
		}
	}
	return rows
}
