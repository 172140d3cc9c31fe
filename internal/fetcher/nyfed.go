package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/storage"
)

// SOFROptions parameterise the NY Fed SOFR fetcher.
type SOFROptions struct {
	BaseURL string
	Timeout time.Duration
}

// SOFR fetches the Secured Overnight Financing Rate from the NY Fed markets
// API.
type SOFR struct {
	opts   SOFROptions
	logger zerolog.Logger
	client *http.Client
}

// NewSOFR constructs a SOFR fetcher.
func NewSOFR(opts SOFROptions, logger zerolog.Logger) *SOFR {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://markets.newyorkfed.org/api/rates/secured/sofr"
	}

	return &SOFR{
		opts:   opts,
		logger: logger.With().Str("component", "sofr_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

func (s *SOFR) Name() string       { return "sofr" }
func (s *SOFR) SeriesName() string { return "sofr" }
func (s *SOFR) KeyColumn() string  { return storage.DateColumn }

// Fetch returns the latest published SOFR print.
func (s *SOFR) Fetch(ctx context.Context) ([]storage.Row, error) {
	rows, err := s.query(ctx, s.opts.BaseURL+"/last/1.json")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[:1], nil
}

// History returns SOFR prints for the trailing window, for backfill.
func (s *SOFR) History(ctx context.Context, days int) ([]storage.Row, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	query := url.Values{}
	query.Set("startDate", start.Format(storage.DateLayout))
	query.Set("endDate", end.Format(storage.DateLayout))

	return s.query(ctx, s.opts.BaseURL+"/search.json?"+query.Encode())
}

func (s *SOFR) query(ctx context.Context, endpoint string) ([]storage.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpError("nyfed", resp.StatusCode, payload)
	}

	var body struct {
		RefRates []struct {
			EffectiveDate    string   `json:"effectiveDate"`
			PercentRate      float64  `json:"percentRate"`
			VolumeInBillions *float64 `json:"volumeInBillions"`
		} `json:"refRates"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("parse nyfed response: %w", err)
	}

	rows := make([]storage.Row, 0, len(body.RefRates))
	for _, r := range body.RefRates {
		if r.EffectiveDate == "" {
			continue
		}
		row := storage.NewRow(r.EffectiveDate).SetFloat("rate", r.PercentRate)
		if r.VolumeInBillions != nil {
			row = row.SetFloat("volume", *r.VolumeInBillions)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var _ Fetcher = (*SOFR)(nil)
