package chart

import "math"

// CurvePoint is one maturity on a yield curve snapshot.
type CurvePoint struct {
	Label  string
	Months int
	Value  float64
}

// minCurvePoints is the fewest populated maturities worth plotting.
const minCurvePoints = 3

// CurveSnapshot lays out a single-date yield curve. The X axis is
// log(maturity)-linear rather than maturity-linear, reflecting the
// non-uniform real-world tenor spacing (1 month to 30 years). Returns nil
// when fewer than minCurvePoints maturities have data or the value range is
// flat.
func CurveSnapshot(title, color string, points []CurvePoint) *Chart {
	if len(points) < minCurvePoints {
		return nil
	}

	logMin := math.Log(float64(points[0].Months))
	logMax := math.Log(float64(points[len(points)-1].Months))
	if logMax == logMin {
		return nil
	}

	valueMin, valueMax := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		valueMin = math.Min(valueMin, p.Value)
		valueMax = math.Max(valueMax, p.Value)
	}
	if valueMax == valueMin {
		return nil
	}

	valueRange := valueMax - valueMin
	paddedMin := valueMin - 0.05*valueRange
	paddedMax := valueMax + 0.05*valueRange

	c := newFrame(title)
	ySpan := paddedMax - paddedMin

	xAt := func(months int) float64 {
		return c.PlotLeft + (math.Log(float64(months))-logMin)/(logMax-logMin)*c.PlotW
	}
	yAt := func(v float64) float64 {
		return c.PlotTop + c.PlotH - (v-paddedMin)/ySpan*c.PlotH
	}

	c.addValueGrid(paddedMin, paddedMax, gridSpacing(valueRange), yAt)

	path := Path{Label: title, Color: color, Points: make([]Point, 0, len(points))}
	for _, p := range points {
		x := xAt(p.Months)
		path.Points = append(path.Points, Point{X: x, Y: yAt(p.Value)})
		c.XTicks = append(c.XTicks, XTick{X: x, Label: p.Label})
	}
	c.Paths = append(c.Paths, path)
	c.Legend = append(c.Legend, LegendEntry{Label: title, Color: color})

	return c
}
