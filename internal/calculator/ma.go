package calculator

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when fewer values exist than a window needs.
var ErrInsufficientData = errors.New("not enough data")

// Bands is a Bollinger channel around a simple moving average.
type Bands struct {
	Middle float64
	StdDev float64
	Upper  float64
	Lower  float64
}

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateStdDev computes the sample standard deviation (n-1) of the last period prices.
func CalculateStdDev(prices []float64, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	mean, err := CalculateSMA(prices, period)
	if err != nil {
		return 0, err
	}
	var ss float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(period-1)), nil
}

// CalculateBollinger returns the moving average over period and the channel
// width standard deviations above and below it.
func CalculateBollinger(prices []float64, period int, width float64) (Bands, error) {
	mean, err := CalculateSMA(prices, period)
	if err != nil {
		return Bands{}, err
	}
	sd, err := CalculateStdDev(prices, period)
	if err != nil {
		return Bands{}, err
	}
	return Bands{
		Middle: mean,
		StdDev: sd,
		Upper:  mean + width*sd,
		Lower:  mean - width*sd,
	}, nil
}
