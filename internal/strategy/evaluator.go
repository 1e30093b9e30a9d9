package strategy

import (
	"time"

	"BandTrader/internal/model"
)

// Thresholds holds the RSI levels used by the mean-reversion rule.
var Thresholds = struct {
	Oversold   float64
	Overbought float64
}{
	Oversold:   30,
	Overbought: 70,
}

// Input is everything the evaluator needs to decide on one bar.
type Input struct {
	Snapshot       model.IndicatorSnapshot
	Close          float64
	Position       model.Position
	RiskMultiplier float64 // stop-loss at RiskMultiplier * EntryPrice

	// At and MaxHoldDays drive the holding-period stop. MaxHoldDays <= 0
	// disables it. Days are counted on the calendar of Location (UTC when nil).
	At          time.Time
	MaxHoldDays int
	Location    *time.Location
}

// Evaluate maps the latest indicators and position to an action.
//
// Flat: open when RSI is oversold and the close is below the lower band.
// Long: close when RSI is overbought and the close is above the upper band,
// or when the close falls below the stop level. The stop does not require
// any indicator agreement.
func Evaluate(in Input) model.Action {
	pos := in.Position

	if pos.IsLong() && in.MaxHoldDays > 0 && HeldDays(pos.OpenedAt, in.At, in.Location) >= in.MaxHoldDays {
		return model.ActionClose
	}

	snap := in.Snapshot
	if !snap.Ready {
		return model.ActionNone
	}

	if !pos.IsLong() {
		if snap.RSI < Thresholds.Oversold && in.Close < snap.LowerBand {
			return model.ActionOpen
		}
		return model.ActionNone
	}

	overbought := snap.RSI > Thresholds.Overbought && in.Close > snap.UpperBand
	stopped := in.Close < in.RiskMultiplier*pos.EntryPrice
	if overbought || stopped {
		return model.ActionClose
	}
	return model.ActionNone
}

// HeldDays counts calendar days between two instants as seen in loc. A DST
// shift moves daily bar timestamps by an hour but never changes the count.
func HeldDays(from, to time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return int(civilDate(to, loc).Sub(civilDate(from, loc)) / (24 * time.Hour))
}

func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
