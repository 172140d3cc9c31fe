// Package metrics derives time-windowed changes, staleness reports, and
// summary statistics from stored series.
package metrics

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rate-monitor/internal/storage"
)

// NoDataGap is the sentinel gap reported for series with no usable rows.
const NoDataGap = -1

// NoDataLabel labels the staleness sentinel.
const NoDataLabel = "no data"

// StaleSeries describes one series whose freshness breached the threshold.
type StaleSeries struct {
	Series   string
	LastDate string
	GapDays  int
}

// Summary holds descriptive statistics for a column over a trailing window.
type Summary struct {
	Min   float64
	Max   float64
	Mean  float64
	Count int
}

// Engine computes derived metrics over a series store. The clock is
// injectable for tests.
type Engine struct {
	store  *storage.Store
	now    func() time.Time
	logger zerolog.Logger
}

// NewEngine wires a store into a metrics engine.
func NewEngine(store *storage.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		now:    time.Now,
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// WithClock overrides the engine's notion of now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ChangeOverWindow returns latest − value at the cutoff, where the cutoff
// value is the last observation on or before now−windowDays. A series
// shorter than the window falls back to its earliest observation, so the
// window clamps to available history instead of going absent. Absent (false)
// only when the column has fewer than two non-null observations.
func (e *Engine) ChangeOverWindow(series, column string, windowDays int) (decimal.Decimal, bool) {
	table := e.store.Load(series)
	if table.Empty() || !table.HasColumn(column) {
		return decimal.Decimal{}, false
	}

	type obs struct {
		date  time.Time
		value decimal.Decimal
	}
	populated := make([]obs, 0, len(table.Rows))
	for _, row := range table.Rows {
		value, ok := row.Get(column)
		if !ok {
			continue
		}
		date, err := time.Parse(storage.DateLayout, row.Key)
		if err != nil {
			continue
		}
		populated = append(populated, obs{date: date, value: value})
	}
	if len(populated) < 2 {
		return decimal.Decimal{}, false
	}

	latest := populated[len(populated)-1]
	cutoff := e.now().AddDate(0, 0, -windowDays)

	past := populated[0]
	for _, o := range populated {
		if o.date.After(cutoff) {
			break
		}
		past = o
	}

	return latest.value.Sub(past.value), true
}

// Staleness reports, for each named series, the gap in days between now and
// the most recent date. Series with zero rows or no date column carry the
// "no data" sentinel and are always included: total absence of data is
// always alert-worthy. Others are included only when gap > thresholdDays.
func (e *Engine) Staleness(names []string, thresholdDays int) []StaleSeries {
	today := e.now().Truncate(24 * time.Hour)

	stale := make([]StaleSeries, 0)
	for _, name := range names {
		table := e.store.Load(name)

		last, ok := table.LastDate()
		if table.Empty() || !ok {
			stale = append(stale, StaleSeries{Series: name, LastDate: NoDataLabel, GapDays: NoDataGap})
			continue
		}

		gap := int(today.Sub(last).Hours() / 24)
		if gap > thresholdDays {
			stale = append(stale, StaleSeries{Series: name, LastDate: last.Format(storage.DateLayout), GapDays: gap})
		}
	}
	return stale
}

// Summarize computes min/max/mean of a column over the trailing window.
// Returns false when no observation falls inside the window.
func (e *Engine) Summarize(series, column string, windowDays int) (Summary, bool) {
	table := e.store.Load(series)
	if table.Empty() || !table.HasColumn(column) {
		return Summary{}, false
	}

	cutoff := e.now().AddDate(0, 0, -windowDays)
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
	if len(values) == 0 {
		return Summary{}, false
	}

	min, err := stats.Min(values)
	if err != nil {
		return Summary{}, false
	}
	max, err := stats.Max(values)
	if err != nil {
		return Summary{}, false
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return Summary{}, false
	}

	return Summary{Min: min, Max: max, Mean: mean, Count: len(values)}, true
}
