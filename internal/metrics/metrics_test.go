package metrics

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rate-monitor/internal/storage"
)

func fixedClock(date string) func() time.Time {
	ts, err := time.Parse(storage.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func seedSeries(t *testing.T, store *storage.Store, name string, points map[string]float64) {
	t.Helper()
	for date, value := range points {
		require.NoError(t, store.Append(name, storage.NewRow(date).SetFloat("rate", value)))
	}
}

func newEngine(t *testing.T, today string) (*Engine, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	engine := NewEngine(store, zerolog.Nop()).WithClock(fixedClock(today))
	return engine, store
}

func TestChangeOverWindow(t *testing.T) {
	engine, store := newEngine(t, "2026-08-30")
	seedSeries(t, store, "sofr", map[string]float64{
		"2026-08-01": 4.10,
		"2026-08-20": 4.20,
		"2026-08-29": 4.35,
	})

	change, ok := engine.ChangeOverWindow("sofr", "rate", 7)
	require.True(t, ok)
	require.True(t, change.Equal(decimal.NewFromFloat(0.15)), "latest - value at cutoff, got %s", change)
}

func TestChangeOverWindowClampsToEarliest(t *testing.T) {
	// Only 3 observations spanning 10 days: a 30-day window must fall back
	// to the earliest value, not report absent.
	engine, store := newEngine(t, "2026-08-30")
	seedSeries(t, store, "sofr", map[string]float64{
		"2026-08-20": 4.10,
		"2026-08-25": 4.25,
		"2026-08-30": 4.40,
	})

	change, ok := engine.ChangeOverWindow("sofr", "rate", 30)
	require.True(t, ok)
	require.True(t, change.Equal(decimal.NewFromFloat(0.30)))
}

func TestChangeOverWindowAbsentCases(t *testing.T) {
	engine, store := newEngine(t, "2026-08-30")

	_, ok := engine.ChangeOverWindow("missing_series", "rate", 7)
	require.False(t, ok)

	seedSeries(t, store, "sofr", map[string]float64{"2026-08-29": 4.3})
	_, ok = engine.ChangeOverWindow("sofr", "rate", 7)
	require.False(t, ok, "a single observation cannot produce a change")

	_, ok = engine.ChangeOverWindow("sofr", "unknown_column", 7)
	require.False(t, ok)
}

func TestChangeOverWindowSkipsNullCells(t *testing.T) {
	engine, store := newEngine(t, "2026-08-30")
	require.NoError(t, store.Append("hibor_daily", storage.NewRow("2026-08-20").SetFloat("1 Month", 3.0).SetFloat("3 Months", 3.5)))
	require.NoError(t, store.Append("hibor_daily", storage.NewRow("2026-08-29").SetFloat("1 Month", 3.2)))

	_, ok := engine.ChangeOverWindow("hibor_daily", "3 Months", 7)
	require.False(t, ok, "only one non-null observation for the column")

	change, ok := engine.ChangeOverWindow("hibor_daily", "1 Month", 30)
	require.True(t, ok)
	require.True(t, change.Equal(decimal.NewFromFloat(0.2)))
}

func TestStalenessSentinelAlwaysIncluded(t *testing.T) {
	engine, _ := newEngine(t, "2026-08-30")

	stale := engine.Staleness([]string{"empty_series"}, 1000)
	require.Len(t, stale, 1)
	require.Equal(t, NoDataLabel, stale[0].LastDate)
	require.Equal(t, NoDataGap, stale[0].GapDays)
}

func TestStalenessThreshold(t *testing.T) {
	engine, store := newEngine(t, "2026-08-30")
	seedSeries(t, store, "fresh", map[string]float64{"2026-08-29": 4.3})
	seedSeries(t, store, "stale", map[string]float64{"2026-08-20": 4.3})

	result := engine.Staleness([]string{"fresh", "stale"}, 3)
	require.Len(t, result, 1)
	require.Equal(t, "stale", result[0].Series)
	require.Equal(t, "2026-08-20", result[0].LastDate)
	require.Equal(t, 10, result[0].GapDays)
}

func TestSummarize(t *testing.T) {
	engine, store := newEngine(t, "2026-08-30")
	seedSeries(t, store, "sofr", map[string]float64{
		"2026-07-01": 9.99, // outside window
		"2026-08-20": 4.1,
		"2026-08-25": 4.2,
		"2026-08-29": 4.3,
	})

	summary, ok := engine.Summarize("sofr", "rate", 30)
	require.True(t, ok)
	require.Equal(t, 3, summary.Count)
	require.InDelta(t, 4.1, summary.Min, 1e-9)
	require.InDelta(t, 4.3, summary.Max, 1e-9)
	require.InDelta(t, 4.2, summary.Mean, 1e-9)
}
