package health

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fetch_health.json")
	return NewTracker(path, zerolog.Nop())
}

func TestRecordResultCountsFailures(t *testing.T) {
	tracker := newTestTracker(t)

	require.Equal(t, 1, tracker.RecordResult("hibor", false))
	require.Equal(t, 2, tracker.RecordResult("hibor", false))
	require.Equal(t, 3, tracker.RecordResult("hibor", false))

	state := tracker.Load()
	require.NotNil(t, state["hibor"].LastFailure)
	require.Nil(t, state["hibor"].LastSuccess)
}

func TestSuccessResetsCounter(t *testing.T) {
	tracker := newTestTracker(t)

	for i := 0; i < 3; i++ {
		tracker.RecordResult("sofr", false)
	}
	require.Equal(t, []Alert{{Source: "sofr", ConsecutiveFailures: 3}}, tracker.Alerts(3))

	require.Equal(t, 0, tracker.RecordResult("sofr", true))
	require.Empty(t, tracker.Alerts(3))

	state := tracker.Load()
	require.NotNil(t, state["sofr"].LastSuccess)
	require.NotNil(t, state["sofr"].LastFailure, "failure stamp survives the reset")
}

func TestAlertsThresholdAndOrder(t *testing.T) {
	tracker := newTestTracker(t)

	tracker.RecordResult("zeta", false)
	tracker.RecordResult("zeta", false)
	tracker.RecordResult("alpha", false)
	tracker.RecordResult("alpha", false)
	tracker.RecordResult("ok", true)

	require.Equal(t, []Alert{{Source: "alpha", ConsecutiveFailures: 2}, {Source: "zeta", ConsecutiveFailures: 2}}, tracker.Alerts(2))
	require.Empty(t, tracker.Alerts(3))
}

func TestStateSurvivesAcrossTrackers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch_health.json")

	first := NewTracker(path, zerolog.Nop())
	first.RecordResult("fred", false)

	second := NewTracker(path, zerolog.Nop())
	require.Equal(t, 2, second.RecordResult("fred", false))
}

func TestCorruptStateDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch_health.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	tracker := NewTracker(path, zerolog.Nop())
	require.Empty(t, tracker.Alerts(1))
	require.Equal(t, 1, tracker.RecordResult("fred", false))
}

func TestClockStamps(t *testing.T) {
	tracker := newTestTracker(t)
	fixed := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	tracker.WithClock(func() time.Time { return fixed })

	tracker.RecordResult("treasury", true)
	state := tracker.Load()
	require.True(t, state["treasury"].LastSuccess.Equal(fixed))
}
