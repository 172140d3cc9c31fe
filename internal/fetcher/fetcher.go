// Package fetcher pulls daily rate observations from external sources.
// Every source is unreliable: fetchers return a typed error instead of
// partial junk, and the caller records the outcome with the health tracker
// rather than aborting the run.
package fetcher

import (
	"context"
	"fmt"
	"strings"

	"rate-monitor/internal/storage"
)

// Fetcher retrieves the current observations of one source.
type Fetcher interface {
	// Name identifies the source for health bookkeeping.
	Name() string
	// SeriesName is the destination series in the store.
	SeriesName() string
	// KeyColumn is the series key: a date for daily observations, a promo
	// month for promotion records.
	KeyColumn() string
	// Fetch returns zero or more observation rows. An empty result with a
	// nil error is a valid "nothing new today".
	Fetch(ctx context.Context) ([]storage.Row, error)
}

// Result is the typed outcome of one fetch attempt, fed to the health
// tracker and the store.
type Result struct {
	Source     string
	SeriesName string
	KeyColumn  string
	Rows       []storage.Row
	Err        error
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Run executes a fetcher and wraps its outcome.
func Run(ctx context.Context, f Fetcher) Result {
	rows, err := f.Fetch(ctx)
	return Result{
		Source:     f.Name(),
		SeriesName: f.SeriesName(),
		KeyColumn:  f.KeyColumn(),
		Rows:       rows,
		Err:        err,
	}
}

// DailySeriesNames returns the destination series of the date-keyed
// fetchers. Promotion records are excluded: they arrive monthly and are
// reconciled by upsert, not judged on freshness.
func DailySeriesNames(fs []Fetcher) []string {
	names := make([]string, 0, len(fs))
	for _, f := range fs {
		if f.KeyColumn() == storage.DateColumn {
			names = append(names, f.SeriesName())
		}
	}
	return names
}

func httpError(source string, status int, payload []byte) error {
	body := strings.TrimSpace(string(payload))
	if len(body) > 200 {
		body = body[:200]
	}
	if body != "" {
		return fmt.Errorf("%s api error (%d): %s", source, status, body)
	}
	return fmt.Errorf("%s api error (%d)", source, status)
}
