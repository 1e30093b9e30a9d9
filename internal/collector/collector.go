package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BandTrader/internal/calculator"
	"BandTrader/internal/history"
	"BandTrader/internal/model"
)

// ErrDataUnavailable means the bar source failed or returned nothing.
var ErrDataUnavailable = errors.New("data unavailable")

// MockFetcher returns controllable fixed data for development and testing.
// Bars are served per symbol; Err, when set, is returned for every call.
type MockFetcher struct {
	mu    sync.Mutex
	Bars  map[string][]model.Bar
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, req BarRequest) ([]model.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.Bars[req.Symbol]
	if !req.Start.IsZero() || !req.End.IsZero() {
		var ranged []model.Bar
		for _, b := range bars {
			if !req.Start.IsZero() && b.Time.Before(req.Start) {
				continue
			}
			if !req.End.IsZero() && b.Time.After(req.End) {
				continue
			}
			ranged = append(ranged, b)
		}
		bars = ranged
	}
	if req.Limit > 0 && len(bars) > req.Limit {
		bars = bars[len(bars)-req.Limit:]
	}
	out := make([]model.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

// SetBars replaces the bars served for symbol.
func (m *MockFetcher) SetBars(symbol string, bars []model.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Bars == nil {
		m.Bars = make(map[string][]model.Bar)
	}
	m.Bars[symbol] = bars
}

// GenerateBars builds one bar per close, step apart, starting at start.
// Open, high and low equal the close.
func GenerateBars(start time.Time, step time.Duration, closes ...float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}

// Options configures how a Collector fetches and retains bars.
type Options struct {
	Interval  string
	Limit     int
	Window    int
	RSIWindow int
	Margin    int
}

// Observation is the result of one collection for an instrument.
type Observation struct {
	Symbol   string
	Last     model.Bar
	Added    int
	Snapshot model.IndicatorSnapshot
}

type series struct {
	history *history.PriceHistory
	calc    *calculator.Calculator
}

// Collector orchestrates data fetching and indicator computation. It owns
// one bounded PriceHistory and Calculator per instrument.
type Collector struct {
	Fetcher Fetcher
	Opts    Options

	series map[string]*series
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Interval == "" {
		opts.Interval = IntervalMinute
	}
	return &Collector{Fetcher: fetcher, Opts: opts, series: make(map[string]*series)}
}

func (c *Collector) seriesFor(symbol string) *series {
	s, ok := c.series[symbol]
	if !ok {
		// keep room for a whole fetch so no bar is trimmed before it is consumed
		margin := max(c.Opts.Margin, c.Opts.Limit)
		s = &series{
			history: history.New(symbol, history.RetainFor(c.Opts.Window, c.Opts.RSIWindow, margin)),
			calc:    calculator.NewCalculator(c.Opts.Window, c.Opts.RSIWindow),
		}
		c.series[symbol] = s
	}
	return s
}

// History returns the instrument's price history, creating it if needed.
func (c *Collector) History(symbol string) *history.PriceHistory {
	return c.seriesFor(symbol).history
}

// Collect fetches the latest bars, appends the new ones and recomputes the
// indicators. A failed or empty fetch returns ErrDataUnavailable and leaves
// the history untouched.
func (c *Collector) Collect(ctx context.Context, symbol string) (*Observation, error) {
	bars, err := c.Fetcher.FetchBars(ctx, BarRequest{Symbol: symbol, Interval: c.Opts.Interval, Limit: c.Opts.Limit})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w: no bars returned", symbol, ErrDataUnavailable)
	}

	s := c.seriesFor(symbol)
	added := s.history.AppendAll(bars)
	snap, err := s.calc.Update(s.history)
	if err != nil {
		return nil, fmt.Errorf("update indicators: %w", err)
	}
	last, _ := s.history.Last()
	return &Observation{Symbol: symbol, Last: last, Added: added, Snapshot: snap}, nil
}
