package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/storage"
)

// FRED series identifiers for the fed funds family.
const (
	fredFedFundsEffective = "DFF"
	fredFedTargetUpper    = "DFEDTARU"
	fredFedTargetLower    = "DFEDTARL"
)

// FREDOptions parameterise the FRED fetcher.
type FREDOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// FRED fetches Federal Reserve rates from the FRED observations API.
type FRED struct {
	opts   FREDOptions
	logger zerolog.Logger
	client *http.Client
}

// NewFRED constructs a FRED fetcher.
func NewFRED(opts FREDOptions, logger zerolog.Logger) *FRED {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.stlouisfed.org/fred/series/observations"
	}

	return &FRED{
		opts:   opts,
		logger: logger.With().Str("component", "fred_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

func (f *FRED) Name() string       { return "fed_funds" }
func (f *FRED) SeriesName() string { return "fed_rates" }
func (f *FRED) KeyColumn() string  { return storage.DateColumn }

// Fetch combines the latest effective rate and target range into one row
// keyed by the effective rate's date. Target fetch failures degrade to nulls
// rather than failing the whole source.
func (f *FRED) Fetch(ctx context.Context) ([]storage.Row, error) {
	effective, err := f.latest(ctx, fredFedFundsEffective)
	if err != nil {
		return nil, err
	}

	row := storage.NewRow(effective.Date).SetFloat("rate", effective.Value)

	if upper, err := f.latest(ctx, fredFedTargetUpper); err == nil {
		row = row.SetFloat("target_upper", upper.Value)
	} else {
		f.logger.Warn().Err(err).Msg("target upper unavailable")
	}
	if lower, err := f.latest(ctx, fredFedTargetLower); err == nil {
		row = row.SetFloat("target_lower", lower.Value)
	} else {
		f.logger.Warn().Err(err).Msg("target lower unavailable")
	}

	return []storage.Row{row}, nil
}

// History returns the effective-rate observations of the trailing window as
// date-keyed rows, chronological order, for backfill.
func (f *FRED) History(ctx context.Context, days int) ([]storage.Row, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	observations, err := f.observations(ctx, fredFedFundsEffective, &start, &end)
	if err != nil {
		return nil, err
	}

	rows := make([]storage.Row, 0, len(observations))
	for i := len(observations) - 1; i >= 0; i-- {
		rows = append(rows, storage.NewRow(observations[i].Date).SetFloat("rate", observations[i].Value))
	}
	return rows, nil
}

type fredObservation struct {
	Date  string
	Value float64
}

func (f *FRED) latest(ctx context.Context, seriesID string) (fredObservation, error) {
	observations, err := f.observations(ctx, seriesID, nil, nil)
	if err != nil {
		return fredObservation{}, err
	}
	if len(observations) == 0 {
		return fredObservation{}, fmt.Errorf("fred series %s returned no observations", seriesID)
	}
	return observations[0], nil
}

// observations queries one series, newest first, with missing-value markers
// ("." cells) filtered out.
func (f *FRED) observations(ctx context.Context, seriesID string, start, end *time.Time) ([]fredObservation, error) {
	if f.opts.APIKey == "" {
		return nil, errors.New("fred api key not configured")
	}

	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("api_key", f.opts.APIKey)
	query.Set("file_type", "json")
	query.Set("sort_order", "desc")
	if start != nil {
		query.Set("observation_start", start.Format(storage.DateLayout))
	}
	if end != nil {
		query.Set("observation_end", end.Format(storage.DateLayout))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpError("fred", resp.StatusCode, payload)
	}

	var body struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("parse fred response: %w", err)
	}

	observations := make([]fredObservation, 0, len(body.Observations))
	for _, o := range body.Observations {
		if o.Value == "." || o.Value == "" {
			continue
		}
		value, convErr := strconv.ParseFloat(o.Value, 64)
		if convErr != nil {
			continue
		}
		observations = append(observations, fredObservation{Date: o.Date, Value: value})
	}
	return observations, nil
}

var _ Fetcher = (*FRED)(nil)
