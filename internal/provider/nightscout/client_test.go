package nightscout

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ecology747-sudo/gluvib/internal/model"
)

func at(day, hour int) int64 {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.Local).UnixMilli()
}

func TestDailyGlucoseAggregatesEntries(t *testing.T) {
	t.Parallel()

	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/entries/sgv.json" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `[
  {"_id": "a", "sgv": 100, "date": %d, "type": "sgv", "direction": "Flat"},
  {"_id": "b", "sgv": 140, "date": %d, "type": "sgv", "direction": "SingleUp"},
  {"_id": "c", "sgv": 90, "date": %d, "type": "sgv"},
  {"_id": "d", "sgv": 0, "date": %d, "type": "sgv"},
  {"_id": "e", "sgv": 300, "date": %d, "type": "mbg"}
]`, at(10, 8), at(10, 14), at(9, 7), at(9, 8), at(9, 9))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL + "/", Token: "reader-abc", HTTPClient: ts.Client()}
	mean, cv, err := c.DailyGlucose(context.Background(), model.Day{Year: 2026, Month: 3, Day: 9}, model.Day{Year: 2026, Month: 3, Day: 10})
	if err != nil {
		t.Fatalf("daily glucose: %v", err)
	}

	if !strings.Contains(gotQuery, "token=reader-abc") {
		t.Fatalf("expected token in query, got %q", gotQuery)
	}
	if !strings.Contains(gotQuery, "count=576") {
		t.Fatalf("expected two days of readings requested, got %q", gotQuery)
	}

	if mean.Len() != 2 {
		t.Fatalf("expected 2 daily means, got %+v", mean.Samples)
	}
	if v, _ := mean.Lookup(model.Day{Year: 2026, Month: 3, Day: 9}); v != 90 {
		t.Fatalf("expected mean 90 on 2026-03-09, got %v", v)
	}
	if v, _ := mean.Lookup(model.Day{Year: 2026, Month: 3, Day: 10}); v != 120 {
		t.Fatalf("expected mean 120 on 2026-03-10, got %v", v)
	}

	if cv.Len() != 1 {
		t.Fatalf("expected CV only for the day with several readings, got %+v", cv.Samples)
	}
	if v, _ := cv.Lookup(model.Day{Year: 2026, Month: 3, Day: 10}); v != 167 {
		t.Fatalf("expected CV 16.7%% stored as 167, got %v", v)
	}
}

func TestEntriesReportsHTTPStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local)
	_, err := c.Entries(context.Background(), from, from.Add(24*time.Hour))
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestEntriesRequiresBaseURL(t *testing.T) {
	t.Parallel()

	c := &Client{}
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local)
	if _, err := c.Entries(context.Background(), from, from.Add(time.Hour)); err == nil {
		t.Fatalf("expected error without base URL")
	}
}
