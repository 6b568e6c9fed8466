package report

import (
	"bytes"
	"errors"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/02loveslollipop/ward-monitor/internal/series"
)

const (
	chartWidth  = 960
	chartHeight = 360
)

var (
	lineStyle = chart.Style{
		StrokeColor: chart.ColorBlue,
		StrokeWidth: 2,
		DotColor:    chart.ColorBlue,
		DotWidth:    2,
	}
	// missing minutes are drawn as grey dots along the bottom of the plot
	missingStyle = chart.Style{
		StrokeColor: drawing.ColorTransparent,
		DotColor:    chart.ColorAlternateGray,
		DotWidth:    3,
	}
)

// RenderChart draws s as a PNG line chart. Null slots break the line and
// show up as markers at the bottom of the y range.
func RenderChart(w io.Writer, s SensorSeries) error {
	if len(s.Slots) == 0 {
		return errors.New("report: empty series")
	}
	yMin, yMax := valueRange(s.Slots)

	var segments []chart.Series
	var xs []time.Time
	var ys []float64
	flush := func() {
		if len(xs) == 0 {
			return
		}
		segments = append(segments, chart.TimeSeries{
			Name:    s.Sensor.Name,
			Style:   lineStyle,
			XValues: xs,
			YValues: ys,
		})
		xs, ys = nil, nil
	}

	var missingX []time.Time
	var missingY []float64
	for _, slot := range s.Slots {
		if slot.Missing() {
			flush()
			missingX = append(missingX, slot.Timestamp)
			missingY = append(missingY, yMin)
			continue
		}
		xs = append(xs, slot.Timestamp)
		ys = append(ys, slot.Value.Float64)
	}
	flush()
	if len(missingX) > 0 {
		segments = append(segments, chart.TimeSeries{
			Name:    "no data",
			Style:   missingStyle,
			XValues: missingX,
			YValues: missingY,
		})
	}

	first := s.Slots[0].Timestamp
	last := s.Slots[len(s.Slots)-1].Timestamp
	if !last.After(first) {
		last = first.Add(time.Minute)
	}

	graph := chart.Chart{
		Title:  s.Sensor.Name,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeMinuteValueFormatter,
			Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)},
		},
		YAxis: chart.YAxis{
			Name:  s.Sensor.Unit,
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: segments,
	}
	return graph.Render(chart.PNG, w)
}

// ChartPNG is RenderChart into a byte slice.
func ChartPNG(s SensorSeries) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderChart(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// valueRange returns a padded y range covering every populated slot.
func valueRange(slots []series.Slot) (float64, float64) {
	var lo, hi float64
	seen := false
	for _, s := range slots {
		if s.Missing() {
			continue
		}
		v := s.Value.Float64
		if !seen || v < lo {
			lo = v
		}
		if !seen || v > hi {
			hi = v
		}
		seen = true
	}
	if !seen {
		return 0, 1
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}
