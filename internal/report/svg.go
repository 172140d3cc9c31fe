package report

import (
	"fmt"
	"html/template"
	"strings"

	"rate-monitor/internal/chart"
)

// RenderSVG serialises a chart description into an inline SVG fragment.
// Geometry is taken verbatim from the chart: this function only paints.
func RenderSVG(c *chart.Chart) template.HTML {
	if c == nil {
		return ""
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, `<svg width="%d" height="%d" viewBox="0 0 %d %d" style="background:#0f172a;border-radius:6px">`,
		c.Width, c.Height, c.Width, c.Height)

	if c.Title != "" {
		fmt.Fprintf(b, `<text x="%d" y="13" fill="#94a3b8" font-size="12" font-weight="600">%s</text>`,
			8, template.HTMLEscapeString(c.Title))
	}

	for _, g := range c.GridLines {
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#1e293b" stroke-width="1"/>`,
			c.PlotLeft, g.Y, c.PlotLeft+c.PlotW, g.Y)
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" fill="#64748b" font-size="10" text-anchor="end">%s</text>`,
			c.PlotLeft-4, g.Y+3, template.HTMLEscapeString(g.Label))
	}

	for _, tick := range c.XTicks {
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" fill="#64748b" font-size="10" text-anchor="middle">%s</text>`,
			tick.X, c.PlotTop+c.PlotH+14, template.HTMLEscapeString(tick.Label))
	}

	for _, p := range c.Paths {
		if len(p.Points) == 0 {
			continue
		}
		pts := make([]string, 0, len(p.Points))
		for _, pt := range p.Points {
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", pt.X, pt.Y))
		}
		fmt.Fprintf(b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="1.5"/>`,
			strings.Join(pts, " "), template.HTMLEscapeString(p.Color))
	}

	x := c.PlotLeft
	for _, entry := range c.Legend {
		fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="10" height="3" fill="%s"/>`,
			x, c.PlotTop+c.PlotH+22, template.HTMLEscapeString(entry.Color))
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" fill="#94a3b8" font-size="10">%s</text>`,
			x+14, c.PlotTop+c.PlotH+26, template.HTMLEscapeString(entry.Label))
		x += 14 + float64(7*len(entry.Label)) + 12
	}

	b.WriteString("</svg>")
	return template.HTML(b.String())
}

// sparklineSVG draws a compact inline trend line, green when the last value
// is at or above the first, red otherwise.
func sparklineSVG(values []float64, width, height int) template.HTML {
	if len(values) < 2 {
		return ""
	}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	rng := maxV - minV
	if rng == 0 {
		rng = 1
	}

	n := len(values)
	pts := make([]string, 0, n)
	var lastX, lastY float64
	for i, v := range values {
		x := float64(i) / float64(n-1) * float64(width)
		y := float64(height) - (v-minV)/rng*float64(height-2) - 1
		pts = append(pts, fmt.Sprintf("%.1f,%.1f", x, y))
		lastX, lastY = x, y
	}

	color := "#22c55e"
	if values[n-1] < values[0] {
		color = "#ef4444"
	}

	return template.HTML(fmt.Sprintf(
		`<svg width="%d" height="%d" viewBox="0 0 %d %d" style="vertical-align:middle;display:inline-block">`+
			`<polyline points="%s" fill="none" stroke="%s" stroke-width="1.5"/>`+
			`<circle cx="%.1f" cy="%.1f" r="2" fill="%s"/></svg>`,
		width, height, width, height, strings.Join(pts, " "), color, lastX, lastY, color))
}
