package calculator

import (
	"errors"
	"math"
)

// RSI is an incrementally updated relative strength index. Gains and losses
// are smoothed exponentially with alpha = 1/period, starting from the first
// price change, so a value is available after period+1 closes.
type RSI struct {
	period  int
	alpha   float64
	prev    float64
	avgGain float64
	avgLoss float64
	count   int
}

// NewRSI creates an RSI over the given period.
func NewRSI(period int) *RSI {
	if period < 1 {
		period = 1
	}
	return &RSI{period: period, alpha: 1 / float64(period)}
}

// Period returns the smoothing window.
func (r *RSI) Period() int { return r.period }

// Update consumes the next close.
func (r *RSI) Update(close float64) {
	r.count++
	if r.count == 1 {
		r.prev = close
		return
	}
	change := close - r.prev
	r.prev = close

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	if r.count == 2 {
		r.avgGain, r.avgLoss = gain, loss
		return
	}
	r.avgGain = (1-r.alpha)*r.avgGain + r.alpha*gain
	r.avgLoss = (1-r.alpha)*r.avgLoss + r.alpha*loss
}

// Value returns the current RSI and whether enough closes have been seen.
// It is 100 whenever the average loss is zero.
func (r *RSI) Value() (float64, bool) {
	if r.count < r.period+1 {
		return math.NaN(), false
	}
	if r.avgLoss == 0 {
		return 100.0, true
	}
	rs := r.avgGain / r.avgLoss
	return 100.0 - 100.0/(1.0+rs), true
}

// CalculateRSI runs an RSI over all closes and returns the final value.
// Requires at least period+1 closes; otherwise NaN and ErrInsufficientData.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return math.NaN(), ErrInsufficientData
	}
	r := NewRSI(period)
	for _, c := range closes {
		r.Update(c)
	}
	v, _ := r.Value()
	return v, nil
}
