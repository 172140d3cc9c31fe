// Package report renders the collected series into a self-contained HTML
// document with inline SVG charts.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rate-monitor/internal/chart"
	"rate-monitor/internal/fetcher"
	"rate-monitor/internal/health"
	"rate-monitor/internal/metrics"
	"rate-monitor/internal/storage"
)

// Options tune the report windows and alert thresholds. DailySeries lists
// the date-keyed series subject to staleness reporting; the caller derives
// it from the configured fetchers so the report and the collection loop
// watch the same set.
type Options struct {
	ShortWindowDays  int
	LongWindowDays   int
	HistoryDays      int
	SummaryDays      int
	StalenessDays    int
	FailureThreshold int
	DailySeries      []string
}

// MeetingSource supplies market-implied FOMC meeting probabilities.
type MeetingSource interface {
	Probabilities(ctx context.Context) ([]fetcher.Meeting, error)
}

// ForwardSource supplies the latest HKD forward curve.
type ForwardSource interface {
	Latest(ctx context.Context) ([]fetcher.ForwardRate, error)
}

// RateRow is one line in a rate table.
type RateRow struct {
	Name        string
	Value       template.HTML
	ShortChange template.HTML
	LongChange  template.HTML
	Sparkline   template.HTML
}

// PromoRow is one month of eSaver promotion terms.
type PromoRow struct {
	Month    string
	MinHKD   template.HTML
	MinUSD   template.HTML
	HKDRate  template.HTML
	USDRate  template.HTML
	MaxTotal template.HTML
}

// MeetingRow is one FOMC meeting in the forecast table, with a rendered
// cell per rate range.
type MeetingRow struct {
	Label string
	Cells []template.HTML
}

// ForwardRow is one tenor of the HKD forward curve table.
type ForwardRow struct {
	Tenor string
	Bid   template.HTML
	Offer template.HTML
}

// SummaryRow is one line of the trailing statistics table.
type SummaryRow struct {
	Name  string
	Min   string
	Mean  string
	Max   string
	Count int
}

type pageData struct {
	ReportDate     string
	ReportTime     string
	ShortWindow    int
	LongWindow     int
	SummaryWindow  int
	Alerts         []string
	HKDRates       []RateRow
	USDRates       []RateRow
	TreasuryYields []RateRow
	Promotions     []PromoRow
	Charts         []template.HTML
	Summaries      []SummaryRow
	FedWatchRanges []string
	FedWatch       []MeetingRow
	Forwards       []ForwardRow
}

// Builder assembles the HTML report from the store and derived metrics.
type Builder struct {
	store    *storage.Store
	engine   *metrics.Engine
	tracker  *health.Tracker
	meetings MeetingSource
	forwards ForwardSource
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger
	tmpl     *template.Template
}

// NewBuilder wires the report generator.
func NewBuilder(store *storage.Store, engine *metrics.Engine, tracker *health.Tracker, opts Options, logger zerolog.Logger) *Builder {
	return &Builder{
		store:   store,
		engine:  engine,
		tracker: tracker,
		opts:    opts,
		now:     time.Now,
		logger:  logger.With().Str("component", "report").Logger(),
		tmpl:    template.Must(template.New("report").Parse(reportTemplate)),
	}
}

// WithClock overrides the wall clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithForecasts attaches the live forecast sources. Both are optional; the
// forecast section degrades when a source is missing or fails.
func (b *Builder) WithForecasts(meetings MeetingSource, forwards ForwardSource) *Builder {
	b.meetings = meetings
	b.forwards = forwards
	return b
}

// Build renders the full report.
func (b *Builder) Build(ctx context.Context) ([]byte, error) {
	now := b.now().UTC()
	ranges, meetings, forwards := b.forecasts(ctx)

	data := pageData{
		ReportDate:     now.Format(storage.DateLayout),
		ReportTime:     now.Format("15:04"),
		ShortWindow:    b.opts.ShortWindowDays,
		LongWindow:     b.opts.LongWindowDays,
		SummaryWindow:  b.opts.SummaryDays,
		Alerts:         b.alertLines(),
		HKDRates:       b.hkdRates(),
		USDRates:       b.usdRates(),
		TreasuryYields: b.treasuryRows(),
		Promotions:     b.promoRows(),
		Charts:         b.charts(now),
		Summaries:      b.summaries(),
		FedWatchRanges: ranges,
		FedWatch:       meetings,
		Forwards:       forwards,
	}

	buf := &bytes.Buffer{}
	if err := b.tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	b.logger.Info().Int("bytes", buf.Len()).Msg("report rendered")
	return buf.Bytes(), nil
}

func (b *Builder) alertLines() []string {
	lines := make([]string, 0)
	for _, alert := range b.tracker.Alerts(b.opts.FailureThreshold) {
		lines = append(lines, fmt.Sprintf("%s: %d consecutive fetch failures", alert.Source, alert.ConsecutiveFailures))
	}
	for _, sl := range b.engine.Staleness(b.opts.DailySeries, b.opts.StalenessDays) {
		if sl.GapDays == metrics.NoDataGap {
			lines = append(lines, fmt.Sprintf("%s: %s", sl.Series, metrics.NoDataLabel))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: no update for %d days (last %s)", sl.Series, sl.GapDays, sl.LastDate))
	}
	return lines
}

func (b *Builder) hkdRates() []RateRow {
	table := b.store.Load("hibor_daily")
	rows := make([]RateRow, 0, len(fetcher.HIBORTenors))
	for _, tenor := range fetcher.HIBORTenors {
		row, ok := b.rateRow(table, "hibor_daily", tenor, "HIBOR "+tenor)
		if ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func (b *Builder) usdRates() []RateRow {
	rows := make([]RateRow, 0, 3)

	fed := b.store.Load("fed_rates")
	if key, ok := fed.LastKey(); ok {
		if last, found := fed.RowAt(key); found {
			lower, okL := last.Get("target_lower")
			upper, okU := last.Get("target_upper")
			if okL && okU {
				rows = append(rows, RateRow{
					Name:        "Fed Funds Target Range",
					Value:       template.HTML(fmt.Sprintf("%s%% - %s%%", lower.StringFixed(2), upper.StringFixed(2))),
					ShortChange: changeBadge(decimal.Decimal{}, false),
					LongChange:  changeBadge(decimal.Decimal{}, false),
				})
			}
		}
	}
	if row, ok := b.rateRow(fed, "fed_rates", "rate", "Fed Funds Effective"); ok {
		rows = append(rows, row)
	}
	if row, ok := b.rateRow(b.store.Load("sofr"), "sofr", "rate", "SOFR"); ok {
		rows = append(rows, row)
	}
	return rows
}

func (b *Builder) treasuryRows() []RateRow {
	table := b.store.Load("treasury_yields")
	key, ok := table.LastKey()
	if !ok {
		return nil
	}
	last, _ := table.RowAt(key)

	rows := make([]RateRow, 0, len(fetcher.TreasuryMaturities))
	for _, maturity := range fetcher.TreasuryMaturities {
		value, ok := last.Get(maturity)
		if !ok {
			continue
		}
		short, shortOK := b.engine.ChangeOverWindow("treasury_yields", maturity, b.opts.ShortWindowDays)
		rows = append(rows, RateRow{
			Name:        maturity,
			Value:       rateValue(value),
			ShortChange: changeBadge(short, shortOK),
		})
	}
	return rows
}

func (b *Builder) promoRows() []PromoRow {
	table := b.store.Load("esaver_history")
	if table.Empty() {
		return nil
	}

	rows := make([]PromoRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		rows = append(rows, PromoRow{
			Month:    row.Key,
			MinHKD:   amountValue(row, "min_hkd"),
			MinUSD:   amountValue(row, "min_usd"),
			HKDRate:  cellValue(row, "hkd_esaver_rate"),
			USDRate:  cellValue(row, "usd_esaver_rate"),
			MaxTotal: cellValue(row, "max_total_rate"),
		})
	}
	return rows
}

// forecasts pulls the live forecast data. Either source failing only costs
// its own table; the meeting probabilities in particular sit behind an
// endpoint that intermittently refuses automated access.
func (b *Builder) forecasts(ctx context.Context) ([]string, []MeetingRow, []ForwardRow) {
	var ranges []string
	var meetings []MeetingRow
	if b.meetings != nil {
		ms, err := b.meetings.Probabilities(ctx)
		if err != nil {
			b.logger.Warn().Err(err).Msg("fedwatch probabilities unavailable")
		} else {
			ranges, meetings = meetingRows(ms)
		}
	}

	var forwards []ForwardRow
	if b.forwards != nil {
		rates, err := b.forwards.Latest(ctx)
		if err != nil {
			b.logger.Warn().Err(err).Msg("hkd forward rates unavailable")
		} else {
			forwards = forwardRows(rates)
		}
	}
	return ranges, meetings, forwards
}

// meetingRows renders the meetings against the sorted union of their rate
// ranges, one cell per range, with a probability bar sized at 0.6px per
// percentage point.
func meetingRows(meetings []fetcher.Meeting) ([]string, []MeetingRow) {
	seen := make(map[string]bool)
	ranges := make([]string, 0)
	for _, m := range meetings {
		for r := range m.Probabilities {
			if !seen[r] {
				seen[r] = true
				ranges = append(ranges, r)
			}
		}
	}
	sort.Strings(ranges)

	rows := make([]MeetingRow, 0, len(meetings))
	for _, m := range meetings {
		row := MeetingRow{Label: m.Label, Cells: make([]template.HTML, 0, len(ranges))}
		for _, r := range ranges {
			prob, ok := m.Probabilities[r]
			if !ok {
				row.Cells = append(row.Cells, `<span style="color:#94a3b8">&mdash;</span>`)
				continue
			}
			row.Cells = append(row.Cells, template.HTML(fmt.Sprintf(
				`<span class="prob-bar" style="width:%.0fpx"></span> %.1f%%`, prob*0.6, prob)))
		}
		rows = append(rows, row)
	}
	return ranges, rows
}

func forwardRows(rates []fetcher.ForwardRate) []ForwardRow {
	rows := make([]ForwardRow, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, ForwardRow{Tenor: r.Tenor, Bid: forwardSide(r.Bid), Offer: forwardSide(r.Offer)})
	}
	return rows
}

func forwardSide(v *float64) template.HTML {
	if v == nil {
		return `<span style="color:#94a3b8">N/A</span>`
	}
	return template.HTML(fmt.Sprintf("%.4f", *v))
}

var chartPalette = []string{"#38bdf8", "#22c55e", "#f59e0b", "#ef4444", "#a78bfa", "#f472b6"}

func (b *Builder) charts(now time.Time) []template.HTML {
	out := make([]template.HTML, 0, 4)

	hiborDefs := make([]chart.Def, 0, len(fetcher.HIBORTenors))
	for i, tenor := range fetcher.HIBORTenors {
		hiborDefs = append(hiborDefs, chart.Def{
			Label:  tenor,
			Color:  chartPalette[i%len(chartPalette)],
			Series: "hibor_daily",
			Column: tenor,
			Mode:   chart.Continuous,
		})
	}
	if c := chart.MultiSeries("HIBOR", b.extract(hiborDefs, now), now); c != nil {
		out = append(out, RenderSVG(c))
	}

	fedDefs := []chart.Def{
		{Label: "Effective", Color: chartPalette[0], Series: "fed_rates", Column: "rate", Mode: chart.Continuous},
		{Label: "Target Upper", Color: chartPalette[3], Series: "fed_rates", Column: "target_upper", Mode: chart.Step},
		{Label: "Target Lower", Color: chartPalette[1], Series: "fed_rates", Column: "target_lower", Mode: chart.Step},
	}
	if c := chart.MultiSeries("Fed Funds", b.extract(fedDefs, now), now); c != nil {
		out = append(out, RenderSVG(c))
	}

	sofrDefs := []chart.Def{{Label: "SOFR", Color: chartPalette[0], Series: "sofr", Column: "rate", Mode: chart.Continuous}}
	if c := chart.MultiSeries("SOFR", b.extract(sofrDefs, now), now); c != nil {
		out = append(out, RenderSVG(c))
	}

	if c := chart.CurveSnapshot("US Treasury Yield Curve", chartPalette[2], b.curvePoints()); c != nil {
		out = append(out, RenderSVG(c))
	}

	return out
}

// extract pulls dated observations of each definition out of the store,
// limited to the configured history window.
func (b *Builder) extract(defs []chart.Def, now time.Time) []chart.Series {
	cutoff := now.AddDate(0, 0, -b.opts.HistoryDays)

	series := make([]chart.Series, 0, len(defs))
	for _, def := range defs {
		table := b.store.Load(def.Series)
		s := chart.Series{Def: def}
		for _, row := range table.Rows {
			value, ok := row.Get(def.Column)
			if !ok {
				continue
			}
			date, err := time.Parse(storage.DateLayout, row.Key)
			if err != nil || date.Before(cutoff) {
				continue
			}
			s.Dates = append(s.Dates, date)
			s.Values = append(s.Values, value.InexactFloat64())
		}
		series = append(series, s)
	}
	return series
}

func (b *Builder) curvePoints() []chart.CurvePoint {
	table := b.store.Load("treasury_yields")
	key, ok := table.LastKey()
	if !ok {
		return nil
	}
	last, _ := table.RowAt(key)

	points := make([]chart.CurvePoint, 0, len(fetcher.TreasuryMaturities))
	for _, maturity := range fetcher.TreasuryMaturities {
		value, ok := last.Get(maturity)
		if !ok {
			continue
		}
		points = append(points, chart.CurvePoint{
			Label:  maturity,
			Months: fetcher.TreasuryMaturityMonths[maturity],
			Value:  value.InexactFloat64(),
		})
	}
	return points
}

func (b *Builder) summaries() []SummaryRow {
	targets := []struct {
		name   string
		series string
		column string
	}{
		{"HIBOR 1 Month", "hibor_daily", "1 Month"},
		{"Fed Funds Effective", "fed_rates", "rate"},
		{"SOFR", "sofr", "rate"},
	}

	rows := make([]SummaryRow, 0, len(targets))
	for _, t := range targets {
		summary, ok := b.engine.Summarize(t.series, t.column, b.opts.SummaryDays)
		if !ok {
			continue
		}
		rows = append(rows, SummaryRow{
			Name:  t.name,
			Min:   fmt.Sprintf("%.4f%%", summary.Min),
			Mean:  fmt.Sprintf("%.4f%%", summary.Mean),
			Max:   fmt.Sprintf("%.4f%%", summary.Max),
			Count: summary.Count,
		})
	}
	return rows
}

// rateRow builds one table line: latest value, change badges, sparkline.
func (b *Builder) rateRow(table *storage.Table, series, column, name string) (RateRow, bool) {
	key, ok := table.LastKey()
	if !ok {
		return RateRow{}, false
	}
	last, _ := table.RowAt(key)
	value, ok := last.Get(column)
	if !ok {
		return RateRow{}, false
	}

	short, shortOK := b.engine.ChangeOverWindow(series, column, b.opts.ShortWindowDays)
	long, longOK := b.engine.ChangeOverWindow(series, column, b.opts.LongWindowDays)

	return RateRow{
		Name:        name,
		Value:       rateValue(value),
		ShortChange: changeBadge(short, shortOK),
		LongChange:  changeBadge(long, longOK),
		Sparkline:   sparklineSVG(b.trailingValues(table, column), 80, 20),
	}, true
}

func (b *Builder) trailingValues(table *storage.Table, column string) []float64 {
	cutoff := b.now().AddDate(0, 0, -b.opts.LongWindowDays)
	values := make([]float64, 0, len(table.Rows))
	for _, row := range table.Rows {
		date, err := time.Parse(storage.DateLayout, row.Key)
		if err != nil || date.Before(cutoff) {
			continue
		}
		if value, ok := row.Get(column); ok {
			values = append(values, value.InexactFloat64())
		}
	}
	return values
}

func rateValue(v decimal.Decimal) template.HTML {
	return template.HTML(template.HTMLEscapeString(v.StringFixed(4)) + "%")
}

func cellValue(row storage.Row, column string) template.HTML {
	value, ok := row.Get(column)
	if !ok {
		return `<span style="color:#94a3b8">N/A</span>`
	}
	return rateValue(value)
}

func amountValue(row storage.Row, column string) template.HTML {
	value, ok := row.Get(column)
	if !ok {
		return `<span style="color:#94a3b8">N/A</span>`
	}
	return template.HTML(template.HTMLEscapeString(value.StringFixed(0)))
}

// changeBadge renders a signed change with a colored arrow. Rises are red:
// for a rate tracker, higher funding cost is the unfavourable direction.
func changeBadge(change decimal.Decimal, ok bool) template.HTML {
	if !ok {
		return `<span style="color:#94a3b8">&mdash;</span>`
	}

	color, arrow := "#94a3b8", "&#9644;"
	switch change.Sign() {
	case 1:
		color, arrow = "#ef4444", "&#9650;"
	case -1:
		color, arrow = "#22c55e", "&#9660;"
	}

	sign := ""
	if change.Sign() >= 0 {
		sign = "+"
	}
	return template.HTML(fmt.Sprintf(
		`<span style="color:%s;font-weight:600">%s %s%s%%</span>`,
		color, arrow, sign, change.StringFixed(3)))
}
