package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sofrPayload(entries ...string) string {
	return fmt.Sprintf(`{"refRates":[%s]}`, strings.Join(entries, ","))
}

func TestSOFRFetchLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/last/1.json") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, sofrPayload(
			`{"effectiveDate":"2025-06-10","percentRate":4.31,"volumeInBillions":2100}`,
		))
	}))
	defer srv.Close()

	sofr := NewSOFR(SOFROptions{BaseURL: srv.URL}, noopLogger())
	rows, err := sofr.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].Key != "2025-06-10" {
		t.Fatalf("row keyed by effective date, got %s", rows[0].Key)
	}
	if rate, ok := rows[0].Get("rate"); !ok || rate.InexactFloat64() != 4.31 {
		t.Fatalf("rate = %v (%v)", rate, ok)
	}
	if volume, ok := rows[0].Get("volume"); !ok || volume.InexactFloat64() != 2100 {
		t.Fatalf("volume = %v (%v)", volume, ok)
	}
}

func TestSOFRFetchEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sofrPayload())
	}))
	defer srv.Close()

	sofr := NewSOFR(SOFROptions{BaseURL: srv.URL}, noopLogger())
	rows, err := sofr.Fetch(context.Background())
	if err != nil {
		t.Fatalf("empty feed is not an error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestSOFRHistoryRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/search.json") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("startDate") == "" || r.URL.Query().Get("endDate") == "" {
			t.Fatalf("history must bound the range: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, sofrPayload(
			`{"effectiveDate":"2025-06-09","percentRate":4.30}`,
			`{"effectiveDate":"2025-06-10","percentRate":4.31}`,
			`{"effectiveDate":"","percentRate":9.99}`,
		))
	}))
	defer srv.Close()

	sofr := NewSOFR(SOFROptions{BaseURL: srv.URL}, noopLogger())
	rows, err := sofr.History(context.Background(), 7)
	if err != nil {
		t.Fatalf("history should succeed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("dateless entries must be dropped, got %d rows", len(rows))
	}
}

func TestSOFRHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "maintenance")
	}))
	defer srv.Close()

	sofr := NewSOFR(SOFROptions{BaseURL: srv.URL}, noopLogger())
	if _, err := sofr.Fetch(context.Background()); err == nil {
		t.Fatal("HTTP 503 should be an error")
	}
}
