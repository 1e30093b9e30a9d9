package model

import "time"

// IndicatorSnapshot holds the indicators computed for the most recent bar.
// Ready is false until enough bars have been seen; callers must not derive
// signals from a snapshot that is not ready.
type IndicatorSnapshot struct {
	Time          time.Time
	MovingAverage float64
	StdDev        float64
	UpperBand     float64
	LowerBand     float64
	RSI           float64 // NaN until the RSI window is filled
	Ready         bool
}
