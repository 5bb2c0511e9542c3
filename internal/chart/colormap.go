package chart

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// viridisStops samples the viridis colormap at evenly spaced positions.
var viridisStops = []drawing.Color{
	drawing.ColorFromHex("440154"),
	drawing.ColorFromHex("472c7a"),
	drawing.ColorFromHex("3b518b"),
	drawing.ColorFromHex("2c718e"),
	drawing.ColorFromHex("21908d"),
	drawing.ColorFromHex("27ad81"),
	drawing.ColorFromHex("5cc863"),
	drawing.ColorFromHex("aadc32"),
	drawing.ColorFromHex("fde725"),
}

// ColorScale maps values in [Min, Max] onto reversed viridis: low values are
// yellow, high values are purple.
type ColorScale struct {
	Min float64
	Max float64
}

// Normalize maps v into [0, 1]. A degenerate scale maps everything to 0.
func (c ColorScale) Normalize(v float64) float64 {
	span := c.Max - c.Min
	if span <= 0 || math.IsNaN(span) {
		return 0
	}
	t := (v - c.Min) / span
	return math.Max(0, math.Min(1, t))
}

// Color returns the reversed-viridis color for v.
func (c ColorScale) Color(v float64) drawing.Color {
	return viridis(1 - c.Normalize(v))
}

func viridis(t float64) drawing.Color {
	if t <= 0 {
		return viridisStops[0]
	}
	last := len(viridisStops) - 1
	if t >= 1 {
		return viridisStops[last]
	}

	pos := t * float64(last)
	i := int(pos)
	frac := pos - float64(i)
	a, b := viridisStops[i], viridisStops[i+1]

	return drawing.Color{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 255,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
