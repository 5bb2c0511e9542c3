// Package chart rasterizes an hourly wind series into a PNG: color-mapped speed
// bars with gust whiskers, a shared color bar and a wind direction table.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/i474232898/windapp/internal/weather"
)

var (
	// ErrEmptySeries is returned when there is nothing to plot.
	ErrEmptySeries = errors.New("chart: series is empty")

	// ErrNoData is returned when every speed or every gust value is null.
	ErrNoData = errors.New("chart: series has no wind values")

	// ErrNoTimestamps is returned when no point carries a parsed timestamp.
	ErrNoTimestamps = errors.New("chart: series has no valid timestamps")
)

const (
	width  = 1600
	height = 420
	dpi    = 100

	// the chart region takes 3.7 parts of 4.2, the table the rest
	tableHeight = height * 0.5 / 4.2

	padTop    = 16
	padLeft   = 100
	padRight  = 150
	padBottom = int(tableHeight) + 8

	gustHeadroom = 3.0
	barWidth     = 1728 * time.Second // 0.02 day
	xPadding     = 30 * time.Minute
	tickRotation = 35.0

	rowLabel = "Wind Dir (°)"
)

var (
	gridColor  = drawing.ColorFromHex("d3d3d3")
	plotColor  = drawing.ColorFromHex("f5f5f5")
	textColor  = drawing.ColorBlack
	tableLines = drawing.ColorFromHex("000000")
)

// YAxisMax returns the upper y limit: the highest gust plus headroom.
func YAxisMax(series weather.Series) (float64, error) {
	_, maxGust, err := valueRange(series)
	if err != nil {
		return 0, err
	}
	return maxGust + gustHeadroom, nil
}

// valueRange returns min(speed) and max(gust) over non-null values.
func valueRange(series weather.Series) (minSpeed, maxGust float64, err error) {
	if series.Len() == 0 {
		return 0, 0, ErrEmptySeries
	}

	minSpeed, maxGust = math.Inf(1), math.Inf(-1)
	for _, v := range series.WindSpeed {
		if v != nil {
			minSpeed = math.Min(minSpeed, *v)
		}
	}
	for _, v := range series.WindGust {
		if v != nil {
			maxGust = math.Max(maxGust, *v)
		}
	}
	if math.IsInf(minSpeed, 0) || math.IsInf(maxGust, 0) {
		return 0, 0, ErrNoData
	}
	return minSpeed, maxGust, nil
}

// Render draws series and publishes it at outPath. The image is written to a
// temporary file in the same directory and renamed over outPath, so readers see
// either the previous image or the new one.
func Render(series weather.Series, outPath string) error {
	var buf bytes.Buffer
	if err := RenderTo(series, &buf); err != nil {
		return err
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp chart file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write chart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close chart: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod chart: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("failed to publish chart: %w", err)
	}
	return nil
}

// RenderTo writes the PNG for series to w.
func RenderTo(series weather.Series, w io.Writer) error {
	graph, err := chartFor(series)
	if err != nil {
		return err
	}
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// chartFor lays out the figure for series. Points with an unparsed timestamp
// are left out of the x window and get no bar.
func chartFor(series weather.Series) (gochart.Chart, error) {
	minSpeed, maxGust, err := valueRange(series)
	if err != nil {
		return gochart.Chart{}, err
	}
	from, to, err := timeWindow(series)
	if err != nil {
		return gochart.Chart{}, err
	}

	scale := ColorScale{Min: minSpeed, Max: maxGust}
	yMax := maxGust + gustHeadroom

	return gochart.Chart{
		Width:  width,
		Height: height,
		DPI:    dpi,
		Background: gochart.Style{
			FillColor: drawing.ColorTransparent,
			Padding: gochart.Box{
				Top:    padTop,
				Left:   padLeft,
				Right:  padRight,
				Bottom: padBottom,
			},
		},
		Canvas: gochart.Style{
			FillColor: plotColor,
		},
		// go-chart takes the x range from explicit ticks, so the ticks span the
		// padded window.
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: toX(from), Max: toX(to)},
			Ticks: axisTicks(from, to),
			TickStyle: gochart.Style{
				FontSize:            8,
				FontColor:           textColor,
				TextRotationDegrees: tickRotation,
			},
		},
		// The secondary axis is drawn on the left; the primary one stays hidden.
		YAxis: gochart.YAxis{
			Style: gochart.Style{Hidden: true},
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax},
		},
		YAxisSecondary: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []gochart.Series{gustBars{series: series, scale: scale}},
		Elements: []gochart.Renderable{
			yAxisLabel("Knots"),
			colorBar(scale, "Wind Speed"),
			directionTable(series),
		},
	}, nil
}

// timeWindow returns the x window over the valid timestamps, padded on both sides.
func timeWindow(series weather.Series) (from, to time.Time, err error) {
	found := false
	for _, ts := range series.Times {
		if !ts.Valid {
			continue
		}
		if !found || ts.Time.Before(from) {
			from = ts.Time
		}
		if !found || ts.Time.After(to) {
			to = ts.Time
		}
		found = true
	}
	if !found {
		return time.Time{}, time.Time{}, ErrNoTimestamps
	}
	return from.Add(-xPadding), to.Add(xPadding), nil
}

func toX(t time.Time) float64 {
	return float64(t.Unix())
}

// axisTicks returns the hourly ticks in [from, to] bracketed by unlabelled ticks
// at the window edges.
func axisTicks(from, to time.Time) []gochart.Tick {
	ticks := hourTicks(from, to)
	if len(ticks) == 0 || ticks[0].Value > toX(from) {
		ticks = append([]gochart.Tick{{Value: toX(from)}}, ticks...)
	}
	if ticks[len(ticks)-1].Value < toX(to) {
		ticks = append(ticks, gochart.Tick{Value: toX(to)})
	}
	return ticks
}

// hourTicks returns one tick per whole hour in [from, to], labelled "Mon 15".
func hourTicks(from, to time.Time) []gochart.Tick {
	start := from.Truncate(time.Hour)
	if start.Before(from) {
		start = start.Add(time.Hour)
	}

	var ticks []gochart.Tick
	for t := start; !t.After(to); t = t.Add(time.Hour) {
		ticks = append(ticks, gochart.Tick{Value: toX(t), Label: t.Format("Mon 15")})
	}
	return ticks
}

// gustBars draws one bar per hour (height = speed, fill keyed by speed) and a
// whisker from the bar top up to the gust (color keyed by gust).
type gustBars struct {
	series weather.Series
	scale  ColorScale
}

func (g gustBars) GetName() string             { return "wind" }
func (g gustBars) GetYAxis() gochart.YAxisType { return gochart.YAxisSecondary }
func (g gustBars) GetStyle() gochart.Style     { return gochart.Style{} }
func (g gustBars) Validate() error             { return nil }

func (g gustBars) Render(r gochart.Renderer, canvasBox gochart.Box, xrange, yrange gochart.Range, _ gochart.Style) {
	drawGrid(r, canvasBox, xrange, yrange)

	half := barWidth.Seconds() / 2
	for _, i := range g.plotted() {
		speed := g.series.WindSpeed[i]
		x := toX(g.series.Times[i].Time)
		left := canvasBox.Left + xrange.Translate(x-half)
		right := canvasBox.Left + xrange.Translate(x+half)
		if right <= left {
			right = left + 1
		}
		top := canvasBox.Bottom - yrange.Translate(*speed)
		bottom := canvasBox.Bottom

		r.SetFillColor(g.scale.Color(*speed))
		r.SetStrokeWidth(0)
		r.MoveTo(left, bottom)
		r.LineTo(left, top)
		r.LineTo(right, top)
		r.LineTo(right, bottom)
		r.Close()
		r.Fill()

		gust := g.series.WindGust[i]
		if gust == nil {
			continue
		}
		center := canvasBox.Left + xrange.Translate(x)
		whiskerTop := canvasBox.Bottom - yrange.Translate(*speed+math.Abs(*gust-*speed))

		r.SetStrokeColor(g.scale.Color(*gust))
		r.SetStrokeWidth(1.5)
		r.MoveTo(center, top)
		r.LineTo(center, whiskerTop)
		r.Stroke()
	}
}

// plotted returns the indices that get a bar: a valid timestamp and a speed.
func (g gustBars) plotted() []int {
	var idx []int
	for i, ts := range g.series.Times {
		if ts.Valid && g.series.WindSpeed[i] != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

func drawGrid(r gochart.Renderer, canvasBox gochart.Box, xrange, yrange gochart.Range) {
	r.SetStrokeColor(gridColor)
	r.SetStrokeWidth(1)

	for y := math.Ceil(yrange.GetMin()); y <= yrange.GetMax(); y += gridStep(yrange.GetMax() - yrange.GetMin()) {
		py := canvasBox.Bottom - yrange.Translate(y)
		r.MoveTo(canvasBox.Left, py)
		r.LineTo(canvasBox.Right, py)
		r.Stroke()
	}

	start := math.Ceil(xrange.GetMin()/3600) * 3600
	for x := start; x <= xrange.GetMax(); x += 3600 {
		px := canvasBox.Left + xrange.Translate(x)
		r.MoveTo(px, canvasBox.Top)
		r.LineTo(px, canvasBox.Bottom)
		r.Stroke()
	}
}

func gridStep(span float64) float64 {
	switch {
	case span <= 10:
		return 1
	case span <= 25:
		return 2.5
	case span <= 50:
		return 5
	default:
		return 10
	}
}

func yAxisLabel(label string) gochart.Renderable {
	return func(r gochart.Renderer, canvasBox gochart.Box, defaults gochart.Style) {
		r.SetFont(defaults.GetFont())
		r.SetFontColor(textColor)
		r.SetFontSize(10)

		tb := r.MeasureText(label)
		x := canvasBox.Left - 48
		y := canvasBox.Top + (canvasBox.Height()+tb.Width())/2

		r.SetTextRotation(-math.Pi / 2)
		r.Text(label, x, y)
		r.ClearTextRotation()
	}
}

// colorBar draws the shared reversed-viridis scale to the right of the plot.
func colorBar(scale ColorScale, label string) gochart.Renderable {
	return func(r gochart.Renderer, canvasBox gochart.Box, defaults gochart.Style) {
		left := canvasBox.Right + 24
		right := left + 18
		top, bottom := canvasBox.Top, canvasBox.Bottom
		span := bottom - top
		if span <= 0 {
			return
		}

		for py := top; py < bottom; py++ {
			v := scale.Max - (scale.Max-scale.Min)*float64(py-top)/float64(span)
			r.SetFillColor(scale.Color(v))
			r.SetStrokeWidth(0)
			r.MoveTo(left, py)
			r.LineTo(right, py)
			r.LineTo(right, py+1)
			r.LineTo(left, py+1)
			r.Close()
			r.Fill()
		}

		r.SetStrokeColor(textColor)
		r.SetStrokeWidth(1)
		r.MoveTo(left, top)
		r.LineTo(right, top)
		r.LineTo(right, bottom)
		r.LineTo(left, bottom)
		r.Close()
		r.Stroke()

		r.SetFont(defaults.GetFont())
		r.SetFontColor(textColor)
		r.SetFontSize(8)
		for _, frac := range []float64{0, 0.5, 1} {
			v := scale.Min + (scale.Max-scale.Min)*frac
			py := bottom - int(float64(span)*frac)
			text := fmt.Sprintf("%.1f", v)
			tb := r.MeasureText(text)
			r.Text(text, right+4, py+tb.Height()/2)
		}

		r.SetFontSize(10)
		tb := r.MeasureText(label)
		r.SetTextRotation(-math.Pi / 2)
		r.Text(label, right+44, top+(span+tb.Width())/2)
		r.ClearTextRotation()
	}
}

// directionTable draws a single headerless row with one cell per hour below the plot.
func directionTable(series weather.Series) gochart.Renderable {
	return func(r gochart.Renderer, canvasBox gochart.Box, defaults gochart.Style) {
		n := series.Len()
		if n == 0 {
			return
		}

		top := height - int(tableHeight)
		bottom := height - 2
		left, right := canvasBox.Left, canvasBox.Right
		cell := float64(right-left) / float64(n)

		r.SetFont(defaults.GetFont())
		r.SetFontColor(textColor)
		r.SetStrokeColor(tableLines)
		r.SetStrokeWidth(0.5)

		r.SetFontSize(9)
		lb := r.MeasureText(rowLabel)
		r.Text(rowLabel, left-lb.Width()-6, (top+bottom+lb.Height())/2)

		r.MoveTo(left, top)
		r.LineTo(right, top)
		r.LineTo(right, bottom)
		r.LineTo(left, bottom)
		r.Close()
		r.Stroke()

		r.SetFontSize(6)
		for i, dir := range series.WindDirection {
			x0 := left + int(math.Round(float64(i)*cell))
			if i > 0 {
				r.MoveTo(x0, top)
				r.LineTo(x0, bottom)
				r.Stroke()
			}

			text := "-"
			if dir != nil {
				text = fmt.Sprintf("%.0f", *dir)
			}
			tb := r.MeasureText(text)
			cx := x0 + int(cell/2) - tb.Width()/2
			r.Text(text, cx, (top+bottom+tb.Height())/2)
		}
	}
}
