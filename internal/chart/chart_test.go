package chart

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/i474232898/windapp/internal/weather"
)

func f(v float64) *float64 { return &v }

func singlePoint() weather.Series {
	return weather.Series{
		Times:         []weather.Timestamp{{Time: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Valid: true}},
		Temperature:   []*float64{f(4)},
		WindDirection: []*float64{f(180)},
		WindSpeed:     []*float64{f(10)},
		WindGust:      []*float64{f(15)},
	}
}

func fiveDays() weather.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var s weather.Series
	for i := 0; i < weather.DefaultHorizonHours; i++ {
		s.Times = append(s.Times, weather.Timestamp{Time: base.Add(time.Duration(i) * time.Hour), Valid: true})
		s.Temperature = append(s.Temperature, f(2))
		s.WindDirection = append(s.WindDirection, f(float64(i*7%360)))
		s.WindSpeed = append(s.WindSpeed, f(float64(5+i%15)))
		s.WindGust = append(s.WindGust, f(float64(9+i%18)))
	}
	return s
}

func TestYAxisMax(t *testing.T) {
	is := is.New(t)

	yMax, err := YAxisMax(singlePoint())
	is.NoErr(err)
	is.Equal(yMax, 18.0)
}

func TestRenderSinglePoint(t *testing.T) {
	is := is.New(t)
	out := filepath.Join(t.TempDir(), "static", "figure.png")

	is.NoErr(Render(singlePoint(), out))

	info, err := os.Stat(out)
	is.NoErr(err)
	is.True(info.Size() > 0)

	file, err := os.Open(out)
	is.NoErr(err)
	defer file.Close()
	img, err := png.Decode(file)
	is.NoErr(err)
	is.Equal(img.Bounds().Dx(), width)
	is.Equal(img.Bounds().Dy(), height)
}

func TestRenderOverwrites(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "figure.png")

	is.NoErr(Render(fiveDays(), out))
	is.NoErr(Render(singlePoint(), out))

	var want bytes.Buffer
	is.NoErr(RenderTo(singlePoint(), &want))

	got, err := os.ReadFile(out)
	is.NoErr(err)
	is.Equal(len(got), want.Len()) // second render replaced the first, nothing appended

	entries, err := os.ReadDir(dir)
	is.NoErr(err)
	is.Equal(len(entries), 1) // no temp files left behind
}

func TestRenderEmptySeries(t *testing.T) {
	is := is.New(t)

	err := Render(weather.Series{}, filepath.Join(t.TempDir(), "figure.png"))
	is.True(errors.Is(err, ErrEmptySeries))
}

func TestRenderAllNullValues(t *testing.T) {
	is := is.New(t)
	s := singlePoint()
	s.WindGust = []*float64{nil}

	var buf bytes.Buffer
	is.True(errors.Is(RenderTo(s, &buf), ErrNoData))
}

func TestRenderSkipsNullBars(t *testing.T) {
	is := is.New(t)
	s := fiveDays()
	s.WindSpeed[3] = nil
	s.WindGust[4] = nil
	s.WindDirection[5] = nil

	var buf bytes.Buffer
	is.NoErr(RenderTo(s, &buf))
	is.True(buf.Len() > 0)
}

func TestChartRanges(t *testing.T) {
	is := is.New(t)
	s := fiveDays()

	graph, err := chartFor(s)
	is.NoErr(err)

	from := float64(s.Times[0].Time.Add(-30 * time.Minute).Unix())
	to := float64(s.Times[len(s.Times)-1].Time.Add(30 * time.Minute).Unix())
	is.Equal(graph.XAxis.Range.GetMin(), from)
	is.Equal(graph.XAxis.Range.GetMax(), to)

	ticks := graph.XAxis.Ticks
	is.Equal(len(ticks), weather.DefaultHorizonHours+2) // one per hour plus the two edges
	is.Equal(ticks[0].Value, from)
	is.Equal(ticks[0].Label, "")
	is.Equal(ticks[1].Label, "Mon 00")
	is.Equal(ticks[len(ticks)-1].Value, to)

	yMax, err := YAxisMax(s)
	is.NoErr(err)
	is.Equal(yMax, 29.0)
	is.Equal(graph.YAxisSecondary.Range.GetMin(), 0.0)
	is.Equal(graph.YAxisSecondary.Range.GetMax(), yMax)
	is.True(graph.YAxis.Style.Hidden) // values are read off the left axis
	is.Equal(graph.Series[0].GetYAxis(), gochart.YAxisSecondary)
}

func TestChartSinglePointWindow(t *testing.T) {
	is := is.New(t)

	graph, err := chartFor(singlePoint())
	is.NoErr(err)

	ticks := graph.XAxis.Ticks
	is.Equal(len(ticks), 3)
	is.Equal(ticks[1].Label, "Mon 12")
	is.Equal(ticks[2].Value-ticks[0].Value, float64(time.Hour/time.Second))
}

func TestChartIgnoresInvalidTimestamps(t *testing.T) {
	is := is.New(t)
	s := fiveDays()
	s.Times[0] = weather.Timestamp{Time: time.Unix(0, 0).UTC(), Valid: false}

	graph, err := chartFor(s)
	is.NoErr(err)
	is.Equal(graph.XAxis.Range.GetMin(), float64(s.Times[1].Time.Add(-30*time.Minute).Unix()))
	is.Equal(len(graph.XAxis.Ticks), weather.DefaultHorizonHours+1)

	bars := graph.Series[0].(gustBars)
	plotted := bars.plotted()
	is.Equal(len(plotted), weather.DefaultHorizonHours-1)
	is.Equal(plotted[0], 1)

	var buf bytes.Buffer
	is.NoErr(RenderTo(s, &buf))
	is.True(buf.Len() > 0)
}

func TestRenderNoValidTimestamps(t *testing.T) {
	is := is.New(t)
	s := singlePoint()
	s.Times[0].Valid = false

	var buf bytes.Buffer
	is.True(errors.Is(RenderTo(s, &buf), ErrNoTimestamps))
}

func TestPlottedSkipsNullSpeed(t *testing.T) {
	is := is.New(t)
	s := fiveDays()
	s.WindSpeed[3] = nil

	plotted := gustBars{series: s}.plotted()
	is.Equal(len(plotted), weather.DefaultHorizonHours-1)
	is.Equal(plotted[3], 4)
}

func TestHourTicks(t *testing.T) {
	is := is.New(t)
	from := time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC) // Monday
	to := time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC)

	ticks := hourTicks(from, to)
	is.Equal(len(ticks), 3)
	is.Equal(ticks[0].Label, "Mon 12")
	is.Equal(ticks[2].Label, "Mon 14")
}

func TestColorScale(t *testing.T) {
	is := is.New(t)
	scale := ColorScale{Min: 5, Max: 25}

	is.Equal(scale.Normalize(5), 0.0)
	is.Equal(scale.Normalize(25), 1.0)
	is.Equal(scale.Normalize(100), 1.0)
	is.Equal(scale.Color(5), viridisStops[len(viridisStops)-1]) // reversed: low is yellow
	is.Equal(scale.Color(25), viridisStops[0])

	is.Equal(ColorScale{Min: 3, Max: 3}.Normalize(3), 0.0)
}
