package collector

import (
	"context"
	"time"

	"BandTrader/internal/model"
)

// Interval names accepted by fetchers.
const (
	IntervalMinute = "1Min"
	IntervalDay    = "1Day"
)

// BarRequest describes a bar query. Limit caps the number of most recent bars
// returned; Start/End bound the range when set.
type BarRequest struct {
	Symbol   string
	Interval string
	Limit    int
	Start    time.Time
	End      time.Time
}

// Fetcher defines the interface for fetching market data. Implementations
// return bars in chronological order.
type Fetcher interface {
	FetchBars(ctx context.Context, req BarRequest) ([]model.Bar, error)
	Name() string
}
