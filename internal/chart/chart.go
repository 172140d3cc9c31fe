// Package chart maps named series onto 2-D pixel-space line geometry.
// Output is a plain vector description (polylines, gridlines, tick labels,
// legend) with no rendering-engine dependency; callers serialise it into
// SVG or hand the data to a raster renderer. All construction is pure and
// deterministic: identical inputs yield identical coordinates, and the
// legend preserves definition order.
package chart

import (
	"math"
	"strconv"
	"time"
)

// Mode selects how consecutive observations are joined.
type Mode int

const (
	// Continuous joins observations with straight segments.
	Continuous Mode = iota
	// Step holds the previous value until each new observation, producing a
	// staircase. Suited to rates that move by discrete policy decisions.
	Step
)

// Def describes one plotted series: where the data lives and how to draw it.
type Def struct {
	Label  string
	Color  string
	Series string
	Column string
	Mode   Mode
}

// Series carries a definition together with its extracted observations.
// Dates are ascending and Values holds only non-null cells.
type Series struct {
	Def    Def
	Dates  []time.Time
	Values []float64
}

// Point is a pixel-space coordinate.
type Point struct {
	X float64
	Y float64
}

// Path is one polyline to stroke.
type Path struct {
	Label  string
	Color  string
	Points []Point
}

// GridLine is a horizontal guide at a value level.
type GridLine struct {
	Y     float64
	Label string
}

// XTick is a labelled position on the X axis.
type XTick struct {
	X     float64
	Label string
}

// LegendEntry pairs a label with its stroke color.
type LegendEntry struct {
	Label string
	Color string
}

// Chart is the complete vector description of one plot.
type Chart struct {
	Title     string
	Width     int
	Height    int
	PlotLeft  float64
	PlotTop   float64
	PlotW     float64
	PlotH     float64
	Paths     []Path
	GridLines []GridLine
	XTicks    []XTick
	Legend    []LegendEntry
}

const (
	chartWidth  = 640
	chartHeight = 280
	padLeft     = 48
	padRight    = 16
	padTop      = 18
	padBottom   = 30

	// Continuous series longer than this are thinned by a fixed stride to
	// bound output size. Not a statistically faithful resampling.
	maxPathPoints = 240

	xTickCount = 5
)

func newFrame(title string) *Chart {
	return &Chart{
		Title:    title,
		Width:    chartWidth,
		Height:   chartHeight,
		PlotLeft: padLeft,
		PlotTop:  padTop,
		PlotW:    chartWidth - padLeft - padRight,
		PlotH:    chartHeight - padTop - padBottom,
	}
}

// valueBounds returns the unpadded min/max over every series value.
func valueBounds(series []Series) (float64, float64, bool) {
	found := false
	min, max := 0.0, 0.0
	for _, s := range series {
		for _, v := range s.Values {
			if !found {
				min, max = v, v
				found = true
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max, found
}

func dateBounds(series []Series) (time.Time, time.Time, bool) {
	found := false
	var min, max time.Time
	for _, s := range series {
		for _, d := range s.Dates {
			if !found {
				min, max = d, d
				found = true
				continue
			}
			if d.Before(min) {
				min = d
			}
			if d.After(max) {
				max = d
			}
		}
	}
	return min, max, found
}

// gridSpacing picks the tick interval from the unpadded value range.
func gridSpacing(valueRange float64) float64 {
	switch {
	case valueRange < 1:
		return 0.1
	case valueRange > 4:
		return 1.0
	default:
		return 0.5
	}
}

// MultiSeries lays out one or more date-keyed series in a shared linear
// coordinate system. The date and value ranges are the union over all
// series, with 5% vertical padding added symmetrically. Returns nil when
// the scale is undefined: no data, a single distinct date, or a flat value
// range.
func MultiSeries(title string, series []Series, now time.Time) *Chart {
	dateMin, dateMax, ok := dateBounds(series)
	if !ok || !dateMax.After(dateMin) {
		return nil
	}
	rawMin, rawMax, ok := valueBounds(series)
	if !ok || rawMax == rawMin {
		return nil
	}

	valueRange := rawMax - rawMin
	valueMin := rawMin - 0.05*valueRange
	valueMax := rawMax + 0.05*valueRange

	c := newFrame(title)
	xSpan := dateMax.Sub(dateMin).Seconds()
	ySpan := valueMax - valueMin

	xAt := func(d time.Time) float64 {
		return c.PlotLeft + d.Sub(dateMin).Seconds()/xSpan*c.PlotW
	}
	yAt := func(v float64) float64 {
		return c.PlotTop + c.PlotH - (v-valueMin)/ySpan*c.PlotH
	}

	c.addValueGrid(valueMin, valueMax, gridSpacing(valueRange), yAt)
	c.addDateTicks(dateMin, dateMax, xAt)

	for _, s := range series {
		if len(s.Dates) == 0 {
			continue
		}
		var path Path
		switch s.Def.Mode {
		case Step:
			path = stepPath(s, xAt, yAt, now, dateMax)
		default:
			path = continuousPath(s, xAt, yAt)
		}
		c.Paths = append(c.Paths, path)
		c.Legend = append(c.Legend, LegendEntry{Label: s.Def.Label, Color: s.Def.Color})
	}

	if len(c.Paths) == 0 {
		return nil
	}
	return c
}

func continuousPath(s Series, xAt func(time.Time) float64, yAt func(float64) float64) Path {
	dates, values := s.Dates, s.Values
	if len(dates) > maxPathPoints {
		stride := len(dates) / maxPathPoints
		thinnedDates := make([]time.Time, 0, maxPathPoints+1)
		thinnedValues := make([]float64, 0, maxPathPoints+1)
		for i := 0; i < len(dates); i += stride {
			thinnedDates = append(thinnedDates, dates[i])
			thinnedValues = append(thinnedValues, values[i])
		}
		last := len(dates) - 1
		if thinnedDates[len(thinnedDates)-1] != dates[last] {
			thinnedDates = append(thinnedDates, dates[last])
			thinnedValues = append(thinnedValues, values[last])
		}
		dates, values = thinnedDates, thinnedValues
	}

	points := make([]Point, 0, len(dates))
	for i := range dates {
		points = append(points, Point{X: xAt(dates[i]), Y: yAt(values[i])})
	}
	return Path{Label: s.Def.Label, Color: s.Def.Color, Points: points}
}

// stepPath emits a staircase: a horizontal segment at the previous value up
// to each new date, then a vertical drop or rise to the new value. The final
// value extends horizontally to now (or the chart's max date if earlier) so
// the current regime is visibly ongoing.
func stepPath(s Series, xAt func(time.Time) float64, yAt func(float64) float64, now, dateMax time.Time) Path {
	points := make([]Point, 0, 2*len(s.Dates))
	points = append(points, Point{X: xAt(s.Dates[0]), Y: yAt(s.Values[0])})
	for i := 1; i < len(s.Dates); i++ {
		x := xAt(s.Dates[i])
		points = append(points,
			Point{X: x, Y: yAt(s.Values[i-1])},
			Point{X: x, Y: yAt(s.Values[i])},
		)
	}

	end := now
	if end.After(dateMax) {
		end = dateMax
	}
	if end.After(s.Dates[len(s.Dates)-1]) {
		points = append(points, Point{X: xAt(end), Y: yAt(s.Values[len(s.Values)-1])})
	}
	return Path{Label: s.Def.Label, Color: s.Def.Color, Points: points}
}

func (c *Chart) addValueGrid(valueMin, valueMax, spacing float64, yAt func(float64) float64) {
	start := math.Ceil(valueMin/spacing) * spacing
	for v := start; v <= valueMax+1e-9; v += spacing {
		c.GridLines = append(c.GridLines, GridLine{Y: yAt(v), Label: trimFloat(v, 1)})
	}
}

func (c *Chart) addDateTicks(dateMin, dateMax time.Time, xAt func(time.Time) float64) {
	span := dateMax.Sub(dateMin)
	for i := 0; i <= xTickCount; i++ {
		d := dateMin.Add(time.Duration(int64(span) / xTickCount * int64(i)))
		c.XTicks = append(c.XTicks, XTick{X: xAt(d), Label: d.Format("Jan 02")})
	}
}

// trimFloat formats with fixed decimals; grid labels stay short and stable.
func trimFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
