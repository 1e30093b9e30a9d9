package history

import (
	"time"

	"BandTrader/internal/model"
)

// PriceHistory is an append-only, strictly time-ordered sequence of bars for
// one instrument. Only the most recent Capacity bars are retained; Total
// counts every bar ever accepted.
type PriceHistory struct {
	Symbol   string
	Capacity int // 0 keeps every bar

	bars  []model.Bar
	total int
}

// RetainFor returns the retained-window size needed to compute indicators
// over the given windows plus a safety margin.
func RetainFor(window, rsiWindow, margin int) int {
	if margin < 0 {
		margin = 0
	}
	return max(window, rsiWindow) + margin
}

// New creates an empty history. capacity <= 0 means unbounded.
func New(symbol string, capacity int) *PriceHistory {
	if capacity < 0 {
		capacity = 0
	}
	return &PriceHistory{Symbol: symbol, Capacity: capacity}
}

// Append adds a bar if it is newer than the last recorded bar. A bar whose
// timestamp is already present (or older) is ignored and false is returned.
func (h *PriceHistory) Append(b model.Bar) bool {
	if n := len(h.bars); n > 0 && !b.Time.After(h.bars[n-1].Time) {
		return false
	}
	h.bars = append(h.bars, b)
	h.total++
	if h.Capacity > 0 && len(h.bars) > h.Capacity {
		excess := len(h.bars) - h.Capacity
		copy(h.bars, h.bars[excess:])
		h.bars = h.bars[:h.Capacity]
	}
	return true
}

// AppendAll appends bars in order and returns how many were accepted.
func (h *PriceHistory) AppendAll(bars []model.Bar) int {
	added := 0
	for _, b := range bars {
		if h.Append(b) {
			added++
		}
	}
	return added
}

// Bars returns a copy of the retained bars.
func (h *PriceHistory) Bars() []model.Bar {
	out := make([]model.Bar, len(h.bars))
	copy(out, h.bars)
	return out
}

// Closes returns the retained close prices.
func (h *PriceHistory) Closes() []float64 { return model.Closes(h.bars) }

// Len is the number of retained bars.
func (h *PriceHistory) Len() int { return len(h.bars) }

// Total is the number of bars accepted since creation.
func (h *PriceHistory) Total() int { return h.total }

// Last returns the newest bar.
func (h *PriceHistory) Last() (model.Bar, bool) {
	if len(h.bars) == 0 {
		return model.Bar{}, false
	}
	return h.bars[len(h.bars)-1], true
}

// LastTime returns the timestamp of the newest bar, or the zero time.
func (h *PriceHistory) LastTime() time.Time {
	if b, ok := h.Last(); ok {
		return b.Time
	}
	return time.Time{}
}
