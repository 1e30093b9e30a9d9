package calculator

import (
	"errors"
	"fmt"
	"math"

	"BandTrader/internal/history"
	"BandTrader/internal/model"
)

// BandWidth is the number of standard deviations between the average and each band.
const BandWidth = 2.0

// ErrHistoryGap means bars were dropped from a bounded history before the
// calculator consumed them, so the incremental RSI can no longer be exact.
var ErrHistoryGap = errors.New("history trimmed past unconsumed bars")

// Calculator derives indicator snapshots from one instrument's PriceHistory.
// The RSI is maintained incrementally across calls, so the history may be
// bounded without changing the values produced.
type Calculator struct {
	Window    int
	RSIWindow int

	rsi  *RSI
	seen int
}

// NewCalculator creates a calculator for a Bollinger window and RSI window.
func NewCalculator(window, rsiWindow int) *Calculator {
	return &Calculator{Window: window, RSIWindow: rsiWindow, rsi: NewRSI(rsiWindow)}
}

// Required returns how many bars must have been seen before a snapshot is ready.
func (c *Calculator) Required() int {
	return max(c.Window, c.RSIWindow) + 1
}

// Update consumes bars appended to h since the previous call and returns the
// snapshot for the newest bar.
func (c *Calculator) Update(h *history.PriceHistory) (model.IndicatorSnapshot, error) {
	bars := h.Bars()
	fresh := h.Total() - c.seen
	if fresh > len(bars) {
		return model.IndicatorSnapshot{RSI: math.NaN()}, fmt.Errorf("%s: %w (%d new, %d retained)", h.Symbol, ErrHistoryGap, fresh, len(bars))
	}
	for _, b := range bars[len(bars)-fresh:] {
		c.rsi.Update(b.Close)
	}
	c.seen = h.Total()
	return c.snapshot(bars), nil
}

func (c *Calculator) snapshot(bars []model.Bar) model.IndicatorSnapshot {
	snap := model.IndicatorSnapshot{RSI: math.NaN()}
	if len(bars) == 0 {
		return snap
	}
	snap.Time = bars[len(bars)-1].Time

	rsi, rsiReady := c.rsi.Value()
	snap.RSI = rsi

	bands, err := CalculateBollinger(model.Closes(bars), c.Window, BandWidth)
	if err != nil {
		return snap
	}
	snap.MovingAverage = bands.Middle
	snap.StdDev = bands.StdDev
	snap.UpperBand = bands.Upper
	snap.LowerBand = bands.Lower
	snap.Ready = rsiReady && c.seen >= c.Required()
	return snap
}

// Series computes a snapshot for every bar of a complete series, as used by
// the backtest. Element i reflects bars[0..i].
func Series(bars []model.Bar, window, rsiWindow int) []model.IndicatorSnapshot {
	c := NewCalculator(window, rsiWindow)
	h := history.New("", history.RetainFor(window, rsiWindow, 1))
	out := make([]model.IndicatorSnapshot, 0, len(bars))
	for _, b := range bars {
		if !h.Append(b) {
			// duplicates keep the previous snapshot so indices stay aligned
			if n := len(out); n > 0 {
				out = append(out, out[n-1])
			} else {
				out = append(out, model.IndicatorSnapshot{RSI: math.NaN()})
			}
			continue
		}
		snap, _ := c.Update(h)
		out = append(out, snap)
	}
	return out
}
