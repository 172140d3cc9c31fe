package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Meeting carries the market-implied rate probabilities of one FOMC meeting.
// Probability keys are target-range labels such as "4.25-4.50", values are
// percentages.
type Meeting struct {
	Label         string
	Probabilities map[string]float64
}

// FedWatchOptions parameterise the FedWatch probability source.
type FedWatchOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// FedWatch pulls implied FOMC meeting probabilities from the endpoint behind
// the CME FedWatch tool. The tool computes them from Fed Funds futures; the
// endpoint is undocumented and its payload shape has been seen both as a
// list of meeting objects and as a map keyed by meeting. This source feeds
// the report forecast section directly and is not persisted.
type FedWatch struct {
	opts   FedWatchOptions
	logger zerolog.Logger
	client *http.Client
}

// NewFedWatch constructs the probability source.
func NewFedWatch(opts FedWatchOptions, logger zerolog.Logger) *FedWatch {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.URL == "" {
		opts.URL = "https://www.cmegroup.com/services/fed-funds-implied/"
	}

	return &FedWatch{
		opts:   opts,
		logger: logger.With().Str("component", "fedwatch_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Probabilities fetches and normalises the current meeting probabilities.
func (f *FedWatch) Probabilities(ctx context.Context) ([]Meeting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", "https://www.cmegroup.com/")
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
		return nil, httpError("fedwatch", resp.StatusCode, payload)
	}

	meetings, err := parseMeetings(payload)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Int("meetings", len(meetings)).Msg("fedwatch probabilities fetched")
	return meetings, nil
}

// parseMeetings accepts both payload shapes. List form: objects carrying a
// meeting label plus probability fields. Map form: meeting label mapped to a
// range-to-probability object.
func parseMeetings(payload []byte) ([]Meeting, error) {
	var root any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("parse fedwatch response: %w", err)
	}

	switch body := root.(type) {
	case []any:
		meetings := make([]Meeting, 0, len(body))
		for _, item := range body {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			m := Meeting{Probabilities: map[string]float64{}}
			if label, ok := stringField(fields, "meetingDate"); ok {
				m.Label = label
			} else if label, ok := stringField(fields, "meeting"); ok {
				m.Label = label
			}
			for key, raw := range fields {
				if !strings.Contains(strings.ToLower(key), "prob") && !strings.Contains(key, "-") {
					continue
				}
				if v, ok := probValue(raw); ok {
					m.Probabilities[key] = v
				}
			}
			if len(m.Probabilities) > 0 {
				meetings = append(meetings, m)
			}
		}
		return meetings, nil

	case map[string]any:
		labels := make([]string, 0, len(body))
		for label := range body {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		meetings := make([]Meeting, 0, len(body))
		for _, label := range labels {
			fields, ok := body[label].(map[string]any)
			if !ok {
				continue
			}
			m := Meeting{Label: label, Probabilities: map[string]float64{}}
			for rateRange, raw := range fields {
				if v, ok := probValue(raw); ok {
					m.Probabilities[rateRange] = v
				}
			}
			if len(m.Probabilities) > 0 {
				meetings = append(meetings, m)
			}
		}
		return meetings, nil
	}

	return nil, fmt.Errorf("fedwatch payload has unexpected shape")
}

func stringField(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	return s, ok && s != ""
}

func probValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		return parsed, err == nil
	}
	return 0, false
}
