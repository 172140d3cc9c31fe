package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ForwardRate is one tenor of the HKD forward curve: the bid and offer
// implied interest rates derived from FX forward points. Either side may be
// absent.
type ForwardRate struct {
	Date  string
	Tenor string
	Bid   *float64
	Offer *float64
}

// ForwardsOptions parameterise the HKMA forward rate source.
type ForwardsOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Forwards pulls HKD forward rates from the HKMA open API. Like FedWatch,
// this source feeds the report forecast section directly and is not
// persisted.
type Forwards struct {
	opts   ForwardsOptions
	logger zerolog.Logger
	client *http.Client
}

// NewForwards constructs the HKMA forward rate source.
func NewForwards(opts ForwardsOptions, logger zerolog.Logger) *Forwards {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.hkma.gov.hk/public/market-data-and-statistics/monthly-statistical-bulletin/er-ir/hkd-fer-daily"
	}

	return &Forwards{
		opts:   opts,
		logger: logger.With().Str("component", "forwards_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Latest returns the forward curve of the most recent published day. The API
// has shipped the date under both "end_of_day" and "end_of_date".
func (f *Forwards) Latest(ctx context.Context) ([]ForwardRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

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
		return nil, httpError("hkma", resp.StatusCode, payload)
	}

	var body struct {
		Result struct {
			Records []struct {
				EndOfDay  string   `json:"end_of_day"`
				EndOfDate string   `json:"end_of_date"`
				Tenor     string   `json:"tenor"`
				Bid       *float64 `json:"bid"`
				Offer     *float64 `json:"offer"`
			} `json:"records"`
		} `json:"result"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("parse hkma response: %w", err)
	}
	if len(body.Result.Records) == 0 {
		return nil, nil
	}

	latest := ""
	for _, rec := range body.Result.Records {
		date := rec.EndOfDay
		if date == "" {
			date = rec.EndOfDate
		}
		if date > latest {
			latest = date
		}
	}

	rates := make([]ForwardRate, 0, len(body.Result.Records))
	for _, rec := range body.Result.Records {
		date := rec.EndOfDay
		if date == "" {
			date = rec.EndOfDate
		}
		if date != latest || rec.Tenor == "" {
			continue
		}
		rates = append(rates, ForwardRate{Date: date, Tenor: rec.Tenor, Bid: rec.Bid, Offer: rec.Offer})
	}

	f.logger.Debug().Str("date", latest).Int("tenors", len(rates)).Msg("hkd forward rates fetched")
	return rates, nil
}
