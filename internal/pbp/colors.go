package pbp

// DefaultTeamColor is used for teams missing from TeamColors.
const DefaultTeamColor = "#808080"

// TeamColors maps team abbreviations to their primary colour.
var TeamColors = map[string]string{
	"ARI": "#97233F", "ATL": "#A71930", "BAL": "#241773", "BUF": "#00338D",
	"CAR": "#0085CA", "CHI": "#00143F", "CIN": "#FB4F14", "CLE": "#FB4F14",
	"DAL": "#B0B7BC", "DEN": "#002244", "DET": "#046EB4", "GB": "#24423C",
	"HOU": "#C9243F", "IND": "#003D79", "JAX": "#136677", "KC": "#CA2430",
	"LA": "#002147", "LAC": "#2072BA", "LV": "#C4C9CC", "MIA": "#0091A0",
	"MIN": "#4F2E84", "NE": "#0A2342", "NO": "#A08A58", "NYG": "#192E6C",
	"NYJ": "#203731", "PHI": "#014A53", "PIT": "#FFC20E", "SEA": "#7AC142",
	"SF": "#C9243F", "TB": "#D40909", "TEN": "#4095D1", "WAS": "#FFC20F",
}

// TeamColor returns the hex colour for team, or DefaultTeamColor.
func TeamColor(team string) string {
	if c, ok := TeamColors[team]; ok {
		return c
	}
	return DefaultTeamColor
}
