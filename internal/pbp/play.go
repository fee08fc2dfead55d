package pbp

import (
	"math"
	"strconv"
	"strings"
)

// Play is one row of a play-by-play extract.
type Play struct {
	GameID       string
	PlayID       int64
	Season       int
	Week         int
	Posteam      string
	Defteam      string
	Down         int // 0 when the play has no down (kickoffs, PATs)
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

// Involves reports whether name is the play's passer, rusher or receiver.
func (p Play) Involves(name string) bool {
	return name != "" && (p.Passer == name || p.Rusher == name || p.Receiver == name)
}

// SeasonFromGameID extracts the leading year of a game id such as
// "2021_01_KC_CLE". It returns 0 when the id has no numeric prefix.
func SeasonFromGameID(gameID string) int {
	prefix, _, _ := strings.Cut(gameID, "_")
	year, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return year
}

func isMissing(s string) bool {
	return s == "" || s == "NA" || s == "NaN"
}

func parseFloat(s string) float64 {
	if isMissing(s) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseInt(s string) int {
	if isMissing(s) {
		return 0
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	// Some extracts write integral columns as "1.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

func parseFlag(s string) bool {
	return parseInt(s) != 0
}

func parseName(s string) string {
	if isMissing(s) {
		return ""
	}
	return s
}
