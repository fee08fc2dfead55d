// Package chart renders play-by-play aggregates and quarterback tiers.
//
// PNG output uses gonum/plot; the interactive dashboard uses go-echarts.
// Every renderer writes to a caller-owned io.Writer and never keeps a
// reference to its inputs.
package chart
