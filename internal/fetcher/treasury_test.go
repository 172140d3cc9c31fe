package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const treasuryCSVBody = `Date,"1 Mo","3 Mo","1 Yr","10 Yr","30 Yr"
08/28/2026,4.40,4.35,4.10,4.25,4.55
08/27/2026,4.41,4.36,4.11,4.24,4.54
bad-date,1,2,3,4,5
`

func TestTreasuryYearParsesCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("field_tdr_date_value") != "2026" {
			t.Errorf("year parameter missing: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, treasuryCSVBody)
	}))
	defer srv.Close()

	tr := NewTreasury(TreasuryOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	rows, err := tr.Year(context.Background(), 2026)
	if err != nil {
		t.Fatalf("year fetch should succeed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("malformed dates must be skipped, got %d rows", len(rows))
	}
	if rows[0].Key != "2026-08-28" {
		t.Fatalf("dates must convert to ISO, got %s", rows[0].Key)
	}
	tenYear, ok := rows[0].Get("10 Yr")
	if !ok || tenYear.InexactFloat64() != 4.25 {
		t.Fatalf("10 Yr yield: got %v (%v)", tenYear, ok)
	}
}

func TestTreasuryFetchPicksLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, treasuryCSVBody)
	}))
	defer srv.Close()

	tr := NewTreasury(TreasuryOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger()).
		WithClock(fixedDay("2026-08-30"))

	rows, err := tr.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(rows) != 1 || rows[0].Key != "2026-08-28" {
		t.Fatalf("expected only the latest snapshot, got %+v", rows)
	}
}

func TestTreasuryCSVWithoutDateColumn(t *testing.T) {
	_, err := parseTreasuryCSV(strings.NewReader("Coupon,Yield\n1,2\n"))
	if err == nil {
		t.Fatal("missing Date column should error")
	}
}
