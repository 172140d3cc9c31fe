package fetcher

import (
	"context"
	"encoding/csv"
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

// TreasuryMaturities lists the yield-curve tenors in maturity order, as the
// Treasury publishes them.
var TreasuryMaturities = []string{
	"1 Mo", "2 Mo", "3 Mo", "6 Mo", "1 Yr", "2 Yr",
	"3 Yr", "5 Yr", "7 Yr", "10 Yr", "20 Yr", "30 Yr",
}

// TreasuryMaturityMonths maps tenor labels to maturity in months, for the
// log-scale curve chart.
var TreasuryMaturityMonths = map[string]int{
	"1 Mo": 1, "2 Mo": 2, "3 Mo": 3, "6 Mo": 6,
	"1 Yr": 12, "2 Yr": 24, "3 Yr": 36, "5 Yr": 60,
	"7 Yr": 84, "10 Yr": 120, "20 Yr": 240, "30 Yr": 360,
}

const treasuryDateLayout = "01/02/2006"

// TreasuryOptions parameterise the Treasury yield fetcher.
type TreasuryOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Treasury downloads the daily yield-curve CSV published by the US Treasury.
type Treasury struct {
	opts   TreasuryOptions
	logger zerolog.Logger
	client *http.Client
	now    func() time.Time
}

// NewTreasury constructs a Treasury fetcher.
func NewTreasury(opts TreasuryOptions, logger zerolog.Logger) *Treasury {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://home.treasury.gov/resource-center/data-chart-center/interest-rates/daily-treasury-rates.csv"
	}

	return &Treasury{
		opts:   opts,
		logger: logger.With().Str("component", "treasury_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// WithClock overrides the fetcher's notion of the current year.
func (t *Treasury) WithClock(now func() time.Time) *Treasury {
	t.now = now
	return t
}

func (t *Treasury) Name() string       { return "treasury" }
func (t *Treasury) SeriesName() string { return "treasury_yields" }
func (t *Treasury) KeyColumn() string  { return storage.DateColumn }

// Fetch returns the most recent curve snapshot of the current year's file.
func (t *Treasury) Fetch(ctx context.Context) ([]storage.Row, error) {
	rows, err := t.Year(ctx, t.now().Year())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[0]
	for _, row := range rows[1:] {
		if row.Key > latest.Key {
			latest = row
		}
	}
	return []storage.Row{latest}, nil
}

// Year downloads the full yield-curve history of one calendar year, for
// backfill.
func (t *Treasury) Year(ctx context.Context, year int) ([]storage.Row, error) {
	query := url.Values{}
	query.Set("data", "daily_treasury_yield_curve")
	query.Set("field_tdr_date_value", strconv.Itoa(year))
	query.Set("type", "daily_treasury_yield_curve")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(t.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, httpError("treasury", resp.StatusCode, payload)
	}

	return parseTreasuryCSV(resp.Body)
}

// parseTreasuryCSV decodes the Treasury feed: a Date column in MM/DD/YYYY
// followed by one column per maturity. Unparseable yield cells load as null.
func parseTreasuryCSV(r io.Reader) ([]storage.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse treasury csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	dateIdx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "Date") {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("treasury csv has no Date column")
	}

	wanted := make(map[string]int, len(TreasuryMaturities))
	for i, name := range header {
		label := strings.TrimSpace(name)
		if _, ok := TreasuryMaturityMonths[label]; ok {
			wanted[label] = i
		}
	}

	rows := make([]storage.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if dateIdx >= len(record) {
			continue
		}
		date, parseErr := time.Parse(treasuryDateLayout, strings.TrimSpace(record[dateIdx]))
		if parseErr != nil {
			continue
		}

		row := storage.NewRow(date.Format(storage.DateLayout))
		for label, idx := range wanted {
			if idx >= len(record) {
				continue
			}
			if value, convErr := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64); convErr == nil {
				row = row.SetFloat(label, value)
			}
		}
		if len(row.Cells) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

var _ Fetcher = (*Treasury)(nil)
