package chart

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nflvrs/internal/pbp"
)

const (
	defaultWidth  = 10 * vg.Inch
	defaultHeight = 6 * vg.Inch
)

var (
	leagueColor = color.NRGBA{R: 128, G: 128, B: 128, A: 153}
	// tierPalette colours tiers from best to worst.
	tierPalette = []string{"#1a9850", "#91cf60", "#fee08b", "#fc8d59", "#d73027", "#762a83", "#2166ac", "#8c510a"}
)

// hexColor parses "#RRGGBB". Malformed input yields mid grey.
func hexColor(s string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func teamColor(team string) color.Color {
	return hexColor(pbp.TeamColor(team))
}

// TierColor returns the hex colour used for a 1-based tier rank.
func TierColor(rank int) string {
	if rank < 1 {
		return pbp.DefaultTeamColor
	}
	return tierPalette[(rank-1)%len(tierPalette)]
}

// integerTicks labels whole numbers only, thinning them so at most about
// ten are labelled.
func integerTicks(min, max float64) []plot.Tick {
	lo, hi := math.Ceil(min), math.Floor(max)
	if hi < lo {
		return nil
	}
	step := math.Max(1, math.Ceil((hi-lo+1)/10))
	var ticks []plot.Tick
	for v := lo; v <= hi; v++ {
		t := plot.Tick{Value: v}
		if math.Mod(v-lo, step) == 0 {
			t.Label = strconv.Itoa(int(v))
		}
		ticks = append(ticks, t)
	}
	return ticks
}

func size(w, h vg.Length) (vg.Length, vg.Length) {
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}
