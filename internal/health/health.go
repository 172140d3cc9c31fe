// Package health tracks per-source fetch outcomes across runs so persistent
// failures can be alerted on.
package health

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Record holds the bookkeeping for one data source.
type Record struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success"`
	LastFailure         *time.Time `json:"last_failure"`
}

// State maps source names to their records.
type State map[string]Record

// Tracker persists fetch health as one small keyed JSON file. Each record
// of a result is a read-modify-write of the whole file; correctness assumes
// a single collection process at a time.
type Tracker struct {
	path   string
	now    func() time.Time
	logger zerolog.Logger
}

// NewTracker wires a state file path into a Tracker.
func NewTracker(path string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		path:   path,
		now:    time.Now,
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// WithClock overrides the tracker's notion of now.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Load reads the persisted state. Missing or malformed state degrades to an
// empty map with a logged warning.
func (t *Tracker) Load() State {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn().Err(err).Msg("failed to read health state, starting empty")
		}
		return State{}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		t.logger.Warn().Err(err).Msg("failed to parse health state, starting empty")
		return State{}
	}
	return state
}

func (t *Tracker) save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health state: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("write health state: %w", err)
	}
	return nil
}

// RecordResult records one fetch attempt's outcome and returns the
// post-update consecutive failure count. Success resets the counter and
// stamps last_success; failure increments it and stamps last_failure.
func (t *Tracker) RecordResult(source string, success bool) int {
	state := t.Load()
	record := state[source]

	stamp := t.now()
	if success {
		record.ConsecutiveFailures = 0
		record.LastSuccess = &stamp
	} else {
		record.ConsecutiveFailures++
		record.LastFailure = &stamp
	}
	state[source] = record

	if err := t.save(state); err != nil {
		t.logger.Error().Err(err).Str("source", source).Msg("failed to persist health state")
	}
	return record.ConsecutiveFailures
}

// Alert names a source whose consecutive failure count reached the threshold.
type Alert struct {
	Source              string
	ConsecutiveFailures int
}

// Alerts returns the sources whose consecutive failure count has reached the
// threshold, sorted by name for stable output.
func (t *Tracker) Alerts(threshold int) []Alert {
	state := t.Load()

	alerts := make([]Alert, 0)
	for source, record := range state {
		if record.ConsecutiveFailures >= threshold {
			alerts = append(alerts, Alert{Source: source, ConsecutiveFailures: record.ConsecutiveFailures})
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Source < alerts[j].Source })
	return alerts
}
