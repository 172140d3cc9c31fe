package chart

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return ts
}

func lineSeries(label string, mode Mode, points map[string]float64) Series {
	dates := make([]time.Time, 0, len(points))
	for d := range points {
		dates = append(dates, day(d))
	}
	for i := 0; i < len(dates); i++ {
		for j := i + 1; j < len(dates); j++ {
			if dates[j].Before(dates[i]) {
				dates[i], dates[j] = dates[j], dates[i]
			}
		}
	}
	s := Series{Def: Def{Label: label, Color: "#38bdf8", Mode: mode}}
	for _, d := range dates {
		s.Dates = append(s.Dates, d)
		s.Values = append(s.Values, points[d.Format("2006-01-02")])
	}
	return s
}

func coordString(c *Chart) string {
	var b strings.Builder
	for _, path := range c.Paths {
		for _, p := range path.Points {
			fmt.Fprintf(&b, "%.3f,%.3f ", p.X, p.Y)
		}
		b.WriteString("|")
	}
	return b.String()
}

func TestMultiSeriesUndefinedScale(t *testing.T) {
	now := day("2026-08-30")

	require.Nil(t, MultiSeries("empty", nil, now))

	single := []Series{lineSeries("one", Continuous, map[string]float64{"2026-08-01": 4.0})}
	require.Nil(t, MultiSeries("single date", single, now), "a single distinct date has no x scale")

	flat := []Series{lineSeries("flat", Continuous, map[string]float64{
		"2026-08-01": 4.0,
		"2026-08-10": 4.0,
	})}
	require.Nil(t, MultiSeries("flat", flat, now), "all-equal values have no y scale")
}

func TestMultiSeriesAffineMapping(t *testing.T) {
	series := []Series{lineSeries("sofr", Continuous, map[string]float64{
		"2026-08-01": 4.0,
		"2026-08-11": 5.0,
	})}
	c := MultiSeries("SOFR", series, day("2026-08-30"))
	require.NotNil(t, c)
	require.Len(t, c.Paths, 1)

	points := c.Paths[0].Points
	require.Len(t, points, 2)

	// X endpoints span the plot exactly.
	require.InDelta(t, c.PlotLeft, points[0].X, 1e-9)
	require.InDelta(t, c.PlotLeft+c.PlotW, points[1].X, 1e-9)

	// 5% symmetric padding: the min value sits 5% above the plot bottom and
	// the max 5% below the top.
	require.InDelta(t, c.PlotTop+c.PlotH-0.05/1.1*c.PlotH, points[0].Y, 1e-6)
	require.InDelta(t, c.PlotTop+0.05/1.1*c.PlotH, points[1].Y, 1e-6)
}

func TestGridSpacingBuckets(t *testing.T) {
	require.Equal(t, 0.1, gridSpacing(0.5))
	require.Equal(t, 0.5, gridSpacing(2.0))
	require.Equal(t, 1.0, gridSpacing(6.0))
}

func TestStepSeriesStaircase(t *testing.T) {
	series := []Series{lineSeries("base rate", Step, map[string]float64{
		"2026-01-01": 5.0,
		"2026-03-01": 5.25,
	})}
	now := day("2026-03-01")
	c := MultiSeries("Base Rate", series, now)
	require.NotNil(t, c)

	points := c.Paths[0].Points
	require.Len(t, points, 3)

	// Horizontal segment at y(5.0) from x(Jan 1) to x(Mar 1)...
	require.InDelta(t, points[0].Y, points[1].Y, 1e-9)
	require.Greater(t, points[1].X, points[0].X)
	// ...then a vertical segment to y(5.25). Never a diagonal.
	require.InDelta(t, points[1].X, points[2].X, 1e-9)
	require.Less(t, points[2].Y, points[1].Y)
}

func TestStepSeriesExtendsToNow(t *testing.T) {
	series := []Series{
		lineSeries("base rate", Step, map[string]float64{
			"2026-01-01": 5.0,
			"2026-03-01": 5.25,
		}),
		lineSeries("sofr", Continuous, map[string]float64{
			"2026-01-01": 4.2,
			"2026-04-01": 4.3,
		}),
	}
	c := MultiSeries("Rates", series, day("2026-08-30"))
	require.NotNil(t, c)

	step := c.Paths[0].Points
	last := step[len(step)-1]
	prev := step[len(step)-2]

	// Final regime extended horizontally to the chart's max date (now is
	// later than any observation).
	require.InDelta(t, prev.Y, last.Y, 1e-9)
	require.InDelta(t, c.PlotLeft+c.PlotW, last.X, 1e-9)
}

func TestContinuousDownsampling(t *testing.T) {
	s := Series{Def: Def{Label: "dense", Color: "#888"}}
	start := day("2020-01-01")
	for i := 0; i < 1000; i++ {
		s.Dates = append(s.Dates, start.AddDate(0, 0, i))
		s.Values = append(s.Values, 4.0+float64(i%10)/10)
	}
	c := MultiSeries("dense", []Series{s}, day("2026-08-30"))
	require.NotNil(t, c)

	points := c.Paths[0].Points
	stride := 1000 / maxPathPoints
	require.LessOrEqual(t, len(points), 1000/stride+1)
	// Last observation always survives thinning.
	require.InDelta(t, c.PlotLeft+c.PlotW, points[len(points)-1].X, 1e-9)
}

func TestChartDeterminism(t *testing.T) {
	build := func() *Chart {
		return MultiSeries("HIBOR", []Series{
			lineSeries("1 Month", Continuous, map[string]float64{
				"2026-08-01": 3.1,
				"2026-08-10": 3.4,
				"2026-08-20": 3.2,
			}),
			lineSeries("3 Months", Continuous, map[string]float64{
				"2026-08-01": 3.5,
				"2026-08-20": 3.6,
			}),
		}, day("2026-08-30"))
	}

	first := build()
	second := build()
	require.NotNil(t, first)
	require.Equal(t, coordString(first), coordString(second))

	// Legend order is the series-definition order, not map order.
	require.Equal(t, "1 Month", first.Legend[0].Label)
	require.Equal(t, "3 Months", first.Legend[1].Label)
}

func TestCurveSnapshot(t *testing.T) {
	points := []CurvePoint{
		{Label: "3 Mo", Months: 3, Value: 4.4},
		{Label: "2 Yr", Months: 24, Value: 4.0},
		{Label: "10 Yr", Months: 120, Value: 4.3},
		{Label: "30 Yr", Months: 360, Value: 4.6},
	}
	c := CurveSnapshot("Treasury Curve", "#f59e0b", points)
	require.NotNil(t, c)

	path := c.Paths[0].Points
	require.Len(t, path, 4)
	require.InDelta(t, c.PlotLeft, path[0].X, 1e-9)
	require.InDelta(t, c.PlotLeft+c.PlotW, path[3].X, 1e-9)

	// Log spacing: the 2y→10y pixel gap must roughly match 3m→2y, unlike a
	// linear axis where 2y→10y would be far wider.
	gapA := path[1].X - path[0].X
	gapB := path[2].X - path[1].X
	require.InDelta(t, gapA, gapB, gapA*0.3)

	require.Len(t, c.XTicks, 4)
}

func TestCurveSnapshotTooFewPoints(t *testing.T) {
	points := []CurvePoint{
		{Label: "3 Mo", Months: 3, Value: 4.4},
		{Label: "10 Yr", Months: 120, Value: 4.3},
	}
	require.Nil(t, CurveSnapshot("Treasury Curve", "#f59e0b", points))
}
