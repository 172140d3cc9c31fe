package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/storage"
)

// HIBORTenors maps HKAB response keys to stored column names. The four key
// tenors only; the registry grows if more are ever added.
var HIBORTenors = []string{"Overnight", "1 Month", "3 Months", "12 Months"}

// HIBOROptions parameterise the HKAB HIBOR fetcher.
type HIBOROptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// HIBOR fetches daily HIBOR fixings from the HKAB API, the authoritative
// publisher with same-day data for all tenors.
type HIBOR struct {
	opts   HIBOROptions
	logger zerolog.Logger
	client *http.Client
	now    func() time.Time
}

// NewHIBOR constructs a HIBOR fetcher.
func NewHIBOR(opts HIBOROptions, logger zerolog.Logger) *HIBOR {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.hkab.org.hk/api/hibor"
	}

	return &HIBOR{
		opts:   opts,
		logger: logger.With().Str("component", "hibor_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// WithClock overrides the fetcher's notion of today.
func (h *HIBOR) WithClock(now func() time.Time) *HIBOR {
	h.now = now
	return h
}

func (h *HIBOR) Name() string       { return "hibor" }
func (h *HIBOR) SeriesName() string { return "hibor_daily" }
func (h *HIBOR) KeyColumn() string  { return storage.DateColumn }

// Fetch returns the most recent fixing, walking back up to four days when
// the requested day is a holiday.
func (h *HIBOR) Fetch(ctx context.Context) ([]storage.Row, error) {
	day := h.now()
	for offset := 0; offset < 5; offset++ {
		row, holiday, err := h.FetchDay(ctx, day.AddDate(0, 0, -offset))
		if err != nil {
			return nil, err
		}
		if holiday {
			continue
		}
		return []storage.Row{row}, nil
	}
	h.logger.Warn().Msg("hkab returned holiday for all recent days")
	return nil, nil
}

// FetchDay queries one calendar day. The holiday flag reports a valid
// no-fixing day, distinct from an error.
func (h *HIBOR) FetchDay(ctx context.Context, day time.Time) (storage.Row, bool, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(day.Year()))
	query.Set("month", strconv.Itoa(int(day.Month())))
	query.Set("day", strconv.Itoa(day.Day()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return storage.Row{}, false, err
	}
	if ua := strings.TrimSpace(h.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return storage.Row{}, false, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return storage.Row{}, false, err
	}
	if resp.StatusCode != http.StatusOK {
		return storage.Row{}, false, httpError("hkab", resp.StatusCode, payload)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return storage.Row{}, false, fmt.Errorf("parse hkab response: %w", err)
	}

	if holiday, ok := body["isHoliday"]; ok && string(holiday) == "true" {
		return storage.Row{}, true, nil
	}

	row := storage.NewRow(day.Format(storage.DateLayout))
	if y, m, d, ok := fixingDate(body); ok {
		row.Key = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	}

	for _, tenor := range HIBORTenors {
		raw, ok := body[tenor]
		if !ok {
			continue
		}
		if value, ok := looseNumber(raw); ok {
			row = row.SetFloat(tenor, value)
		}
	}

	if len(row.Cells) == 0 {
		return storage.Row{}, false, fmt.Errorf("hkab response carried no tenor values")
	}
	return row, false, nil
}

func fixingDate(body map[string]json.RawMessage) (int, int, int, bool) {
	year, okY := looseNumber(body["year"])
	month, okM := looseNumber(body["month"])
	day, okD := looseNumber(body["day"])
	if !okY || !okM || !okD {
		return 0, 0, 0, false
	}
	return int(year), int(month), int(day), true
}

// looseNumber accepts both JSON numbers and numeric strings; the HKAB API
// is not consistent about which it emits.
func looseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, convErr := strconv.ParseFloat(strings.TrimSpace(s), 64); convErr == nil {
			return f, true
		}
	}
	return 0, false
}

var _ Fetcher = (*HIBOR)(nil)
