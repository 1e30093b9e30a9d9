package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var start = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func alternating(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i%2)
	}
	return out
}

func TestCollect_DataUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *MockFetcher)
	}{
		{"fetch error", func(m *MockFetcher) { m.Err = errors.New("timeout") }},
		{"empty response", func(m *MockFetcher) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockFetcher{}
			tt.setup(m)
			c := NewCollector(m, Options{Window: 20, RSIWindow: 14})
			_, err := c.Collect(context.Background(), "AAPL")
			if !errors.Is(err, ErrDataUnavailable) {
				t.Fatalf("expected ErrDataUnavailable, got %v", err)
			}
			if c.History("AAPL").Len() != 0 {
				t.Error("history changed on failed fetch")
			}
		})
	}
}

func TestCollect_OverlappingFetches(t *testing.T) {
	m := &MockFetcher{}
	all := GenerateBars(start, time.Minute, alternating(40)...)
	c := NewCollector(m, Options{Limit: 20, Window: 20, RSIWindow: 14, Margin: 10})

	m.SetBars("AAPL", all[:20])
	obs, err := c.Collect(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if obs.Added != 20 || obs.Snapshot.Ready {
		t.Fatalf("first fetch: added=%d ready=%v", obs.Added, obs.Snapshot.Ready)
	}

	m.SetBars("AAPL", all[:22])
	obs, err = c.Collect(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if obs.Added != 2 {
		t.Errorf("second fetch added %d, want 2", obs.Added)
	}
	if !obs.Snapshot.Ready {
		t.Error("expected ready snapshot after 22 bars")
	}
	if !obs.Last.Time.Equal(all[21].Time) {
		t.Errorf("last bar %v, want %v", obs.Last.Time, all[21].Time)
	}

	// same data again: nothing new, same snapshot
	again, err := c.Collect(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if again.Added != 0 || again.Snapshot != obs.Snapshot {
		t.Errorf("repeat fetch changed state: %+v", again)
	}
	if m.Calls != 3 {
		t.Errorf("calls = %d, want 3", m.Calls)
	}
}

func TestMockFetcher_RangeAndLimit(t *testing.T) {
	m := &MockFetcher{}
	m.SetBars("X", GenerateBars(start, 24*time.Hour, 1, 2, 3, 4, 5))
	bars, err := m.FetchBars(context.Background(), BarRequest{Symbol: "X", Start: start.Add(24 * time.Hour), End: start.Add(3 * 24 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 || bars[0].Close != 2 || bars[2].Close != 4 {
		t.Errorf("range filter: %+v", bars)
	}
	bars, _ = m.FetchBars(context.Background(), BarRequest{Symbol: "X", Limit: 2})
	if len(bars) != 2 || bars[0].Close != 4 {
		t.Errorf("limit filter: %+v", bars)
	}
}

const yahooBody = `{"chart":{"result":[{"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"open":[185.1,null,182.0],"high":[186.0,null,183.1],"low":[184.0,null,180.9],
"close":[185.6,null,181.9],"volume":[1000,null,1200]}]}}],"error":null}}`

func TestYahooFetcher_FetchBars(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL + "/chart/"
	bars, err := f.FetchBars(context.Background(), BarRequest{
		Symbol: "AAPL", Interval: IntervalDay,
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/chart/AAPL" || !strings.Contains(gotQuery, "period1=") || !strings.Contains(gotQuery, "interval=1d") {
		t.Errorf("unexpected request %s?%s", gotPath, gotQuery)
	}
	if len(bars) != 2 {
		t.Fatalf("expected null bar skipped, got %d bars", len(bars))
	}
	if bars[0].Open != 185.1 || bars[1].Close != 181.9 || !bars[0].Time.Before(bars[1].Time) {
		t.Errorf("unexpected bars: %+v", bars)
	}
}

func TestParseYahooChart_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"api error", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"no timestamps", `{"chart":{"result":[{"indicators":{"quote":[{}]}}]}}`},
	}
	for _, tt := range tests {
		if _, err := parseYahooChart([]byte(tt.body)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestAlpacaFetcher_FetchBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"forbidden"}`))
			return
		}
		if r.URL.Path != "/v2/stocks/AAPL/bars" || r.URL.Query().Get("timeframe") != "1Min" || r.URL.Query().Get("limit") != "20" {
			t.Errorf("unexpected request %s", r.URL)
		}
		// newest first, as requested with sort=desc
		w.Write([]byte(`{"bars":[
			{"t":"2024-03-01T14:31:00Z","o":101,"h":102,"l":100,"c":101.5,"v":300},
			{"t":"2024-03-01T14:30:00Z","o":100,"h":101,"l":99,"c":100.5,"v":200}
		],"symbol":"AAPL","next_page_token":null}`))
	}))
	defer srv.Close()

	f := NewAlpacaFetcher(srv.URL, "key", "secret", "")
	bars, err := f.FetchBars(context.Background(), BarRequest{Symbol: "AAPL", Interval: IntervalMinute, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 || bars[0].Close != 100.5 || bars[1].Close != 101.5 {
		t.Fatalf("expected ascending bars, got %+v", bars)
	}

	f.SecretKey = "wrong"
	if _, err := f.FetchBars(context.Background(), BarRequest{Symbol: "AAPL", Interval: IntervalMinute, Limit: 20}); err == nil {
		t.Error("expected error on forbidden response")
	}
}
