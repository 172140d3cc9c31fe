package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"rate-monitor/internal/storage"
)

// ESaverOptions parameterise the promotion fetcher. URLTemplate must contain
// a %s placeholder for the YYYYMM month token.
type ESaverOptions struct {
	URLTemplate string
	Timeout     time.Duration
	UserAgent   string
}

// ESaver fetches the monthly e$aver deposit promotion terms. The bank
// republishes the T&C document each month under a month-stamped URL; the
// current month is tried first, then the previous one. The resulting row is
// keyed by promo month and merged with UpsertByKey so later fetches of the
// same month refine rather than replace earlier captures.
type ESaver struct {
	opts   ESaverOptions
	logger zerolog.Logger
	client *http.Client
	now    func() time.Time
}

// NewESaver constructs the promotion fetcher.
func NewESaver(opts ESaverOptions, logger zerolog.Logger) *ESaver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ESaver{
		opts:   opts,
		logger: logger.With().Str("component", "esaver_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// WithClock overrides the fetcher's notion of the current month.
func (e *ESaver) WithClock(now func() time.Time) *ESaver {
	e.now = now
	return e
}

func (e *ESaver) Name() string       { return "esaver" }
func (e *ESaver) SeriesName() string { return "esaver_history" }
func (e *ESaver) KeyColumn() string  { return storage.PromoMonthColumn }

var (
	promoMonthRe = regexp.MustCompile(`(?i)Promotion\s+for\s+Selected\s+Individual\s+Customers\s*\((January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\)`)
	minFundsRe   = regexp.MustCompile(`HK\$(\d[\d,]*)\s+and\s*/?\s*or\s+US\$(\d[\d,]*)`)
	hkdRateRe    = regexp.MustCompile(`HK\$\d[\d,]*\s*(?:to|-)\s*HK\$\d[\d,]*\s*\n?\s*\+?(\d+\.?\d*)\s*%`)
	usdRateRe    = regexp.MustCompile(`US\$\d[\d,]*\s*(?:to|-)\s*US\$\d[\d,]*\s*\n?\s*\+?(\d+\.?\d*)\s*%`)
	upToRe       = regexp.MustCompile(`(?i)Up\s+to\s+(\d+\.?\d*)\s*%`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// Fetch downloads and parses the current promotion terms. A month with no
// published document is not an error for that URL alone; only exhausting
// all candidates fails the source.
func (e *ESaver) Fetch(ctx context.Context) ([]storage.Row, error) {
	if e.opts.URLTemplate == "" {
		return nil, fmt.Errorf("esaver url template not configured")
	}

	now := e.now()
	candidates := []string{
		now.Format("200601"),
		now.AddDate(0, -1, 0).Format("200601"),
	}

	var lastErr error
	for _, token := range candidates {
		endpoint := fmt.Sprintf(e.opts.URLTemplate, token)
		body, err := e.download(ctx, endpoint)
		if err != nil {
			lastErr = err
			e.logger.Debug().Err(err).Str("url", endpoint).Msg("promotion document unavailable")
			continue
		}
		text, err := extractText(body)
		if err != nil {
			lastErr = fmt.Errorf("extract promotion text: %w", err)
			e.logger.Debug().Err(err).Str("url", endpoint).Msg("promotion document unreadable")
			continue
		}
		row, ok := parsePromotion(text)
		if ok {
			return []storage.Row{row}, nil
		}
		lastErr = fmt.Errorf("promotion document had no recognisable terms")
	}
	return nil, fmt.Errorf("fetch esaver promotion: %w", lastErr)
}

func (e *ESaver) download(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpError("esaver", resp.StatusCode, payload)
	}
	return payload, nil
}

var pdfMagic = []byte("%PDF")

// extractText recovers the plain text of the downloaded document. The T&C
// ships as a PDF whose text sits inside compressed content streams, so the
// bytes must be decoded before the regexes can see anything. Payloads that
// are not PDFs pass through unchanged.
func extractText(payload []byte) (text string, err error) {
	if !bytes.HasPrefix(payload, pdfMagic) {
		return string(payload), nil
	}

	// the pdf package panics on malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// parsePromotion extracts the numeric promotion terms from the document
// text. Fields the document does not state load as nulls and survive from
// earlier captures through the upsert path.
func parsePromotion(text string) (storage.Row, bool) {
	m := promoMonthRe.FindStringSubmatch(text)
	if m == nil {
		return storage.Row{}, false
	}
	month := monthNumbers[strings.ToLower(m[1])]
	row := storage.NewRow(fmt.Sprintf("%s-%02d", m[2], month))

	if m := minFundsRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			row = row.SetFloat("min_hkd", v)
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64); err == nil {
			row = row.SetFloat("min_usd", v)
		}
	}
	if m := hkdRateRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			row = row.SetFloat("hkd_esaver_rate", v)
		}
	}
	if m := usdRateRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			row = row.SetFloat("usd_esaver_rate", v)
		}
	}

	// The highest "Up to X%" figure in the document is the best total rate.
	best := 0.0
	for _, m := range upToRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > best {
			best = v
		}
	}
	if best > 0 {
		row = row.SetFloat("max_total_rate", best)
	}

	return row, true
}

var _ Fetcher = (*ESaver)(nil)
