package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"BandTrader/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market data v2 REST API.
type AlpacaFetcher struct {
	BaseURL   string
	KeyID     string
	SecretKey string
	Feed      string
	Client    *http.Client
}

// NewAlpacaFetcher creates a new fetcher with optional proxy support.
func NewAlpacaFetcher(baseURL, keyID, secretKey, proxyURL string) *AlpacaFetcher {
	if baseURL == "" {
		baseURL = "https://data.alpaca.markets"
	}
	return &AlpacaFetcher{
		BaseURL:   baseURL,
		KeyID:     keyID,
		SecretKey: secretKey,
		Feed:      "iex",
		Client:    newHTTPClient(proxyURL),
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func alpacaTimeframe(interval string) string {
	switch interval {
	case IntervalDay, "1d":
		return "1Day"
	default:
		return "1Min"
	}
}

// FetchBars returns the most recent req.Limit bars in chronological order.
func (f *AlpacaFetcher) FetchBars(ctx context.Context, req BarRequest) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("timeframe", alpacaTimeframe(req.Interval))
	q.Set("sort", "desc")
	if f.Feed != "" {
		q.Set("feed", f.Feed)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if !req.Start.IsZero() {
		q.Set("start", req.Start.UTC().Format(time.RFC3339))
	}
	if !req.End.IsZero() {
		q.Set("end", req.End.UTC().Format(time.RFC3339))
	}
	endpoint := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", f.BaseURL, url.PathEscape(req.Symbol), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("APCA-API-KEY-ID", f.KeyID)
	httpReq.Header.Set("APCA-API-SECRET-KEY", f.SecretKey)

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	return parseAlpacaBars(body)
}

func parseAlpacaBars(body []byte) ([]model.Bar, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode bars: invalid json")
	}
	raw := gjson.GetBytes(body, "bars").Array()
	bars := make([]model.Bar, 0, len(raw))
	for _, b := range raw {
		ts, err := time.Parse(time.RFC3339, b.Get("t").String())
		if err != nil {
			return nil, fmt.Errorf("decode bar time %q: %w", b.Get("t").String(), err)
		}
		bars = append(bars, model.Bar{
			Time:   ts.UTC(),
			Open:   b.Get("o").Float(),
			High:   b.Get("h").Float(),
			Low:    b.Get("l").Float(),
			Close:  b.Get("c").Float(),
			Volume: b.Get("v").Float(),
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
