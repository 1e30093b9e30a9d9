package strategy

import (
	"math"
	"testing"
	"time"

	"BandTrader/internal/model"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func flat() model.Position { return model.Position{Instrument: "AAPL", State: model.StateFlat} }

func long(entry float64, at time.Time) model.Position {
	return model.Position{Instrument: "AAPL", State: model.StateLong, EntryPrice: entry, OpenedAt: at}
}

func snap(rsi, lower, upper float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{MovingAverage: (lower + upper) / 2, LowerBand: lower, UpperBand: upper, RSI: rsi, Ready: true}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want model.Action
	}{
		{
			name: "flat series never opens",
			in:   Input{Snapshot: snap(100, 100, 100), Close: 100, Position: flat(), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "oversold below lower band opens",
			in:   Input{Snapshot: snap(25, 90, 110), Close: 80, Position: flat(), RiskMultiplier: 0.95},
			want: model.ActionOpen,
		},
		{
			name: "oversold inside band does nothing",
			in:   Input{Snapshot: snap(25, 90, 110), Close: 95, Position: flat(), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "below band without oversold RSI does nothing",
			in:   Input{Snapshot: snap(35, 90, 110), Close: 80, Position: flat(), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "open while long is ignored",
			in:   Input{Snapshot: snap(25, 90, 110), Close: 85, Position: long(84, day0), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "overbought above upper band closes",
			in:   Input{Snapshot: snap(80, 100, 120), Close: 130, Position: long(80, day0), RiskMultiplier: 0.95},
			want: model.ActionClose,
		},
		{
			name: "overbought inside band holds",
			in:   Input{Snapshot: snap(80, 100, 120), Close: 115, Position: long(80, day0), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "risk stop closes without indicator agreement",
			in:   Input{Snapshot: snap(50, 70, 90), Close: 75, Position: long(80, day0), RiskMultiplier: 0.95},
			want: model.ActionClose,
		},
		{
			name: "at stop level holds",
			in:   Input{Snapshot: snap(50, 70, 90), Close: 76, Position: long(80, day0), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "close while flat does nothing",
			in:   Input{Snapshot: snap(80, 100, 120), Close: 130, Position: flat(), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "not ready never opens",
			in:   Input{Snapshot: model.IndicatorSnapshot{RSI: math.NaN()}, Close: 1, Position: flat(), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
		{
			name: "not ready never stops out",
			in:   Input{Snapshot: model.IndicatorSnapshot{RSI: math.NaN()}, Close: 1, Position: long(80, day0), RiskMultiplier: 0.95},
			want: model.ActionNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.in); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluate_HoldingPeriodStop(t *testing.T) {
	quiet := snap(50, 90, 110)
	tests := []struct {
		name    string
		at      time.Time
		maxDays int
		want    model.Action
	}{
		{"four days", day0.Add(4 * 24 * time.Hour), 5, model.ActionNone},
		{"late on day four", day0.Add(5*24*time.Hour - time.Minute), 5, model.ActionNone},
		{"exactly five days", day0.Add(5 * 24 * time.Hour), 5, model.ActionClose},
		{"six days", day0.Add(6 * 24 * time.Hour), 5, model.ActionClose},
		{"disabled", day0.Add(30 * 24 * time.Hour), 0, model.ActionNone},
		{"negative disables", day0.Add(30 * 24 * time.Hour), -1, model.ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(Input{Snapshot: quiet, Close: 100, Position: long(100, day0), RiskMultiplier: 0.7, At: tt.at, MaxHoldDays: tt.maxDays})
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	// the holding-period stop does not wait for indicators
	got := Evaluate(Input{Snapshot: model.IndicatorSnapshot{}, Close: 100, Position: long(100, day0), At: day0.Add(5 * 24 * time.Hour), MaxHoldDays: 5})
	if got != model.ActionClose {
		t.Errorf("expected close on unready snapshot past max hold, got %s", got)
	}
}

func TestEvaluate_HoldingPeriodStopAcrossDST(t *testing.T) {
	// daily bars stamped at the 09:30 New York open: 14:30 UTC before the
	// March 10 2024 change, 13:30 UTC after it
	opened := time.Date(2024, 3, 7, 14, 30, 0, 0, time.UTC)
	at := time.Date(2024, 3, 12, 13, 30, 0, 0, time.UTC)
	if at.Sub(opened) >= 5*24*time.Hour {
		t.Fatalf("fixture should span less than 120h, got %v", at.Sub(opened))
	}

	in := Input{Snapshot: snap(50, 90, 110), Close: 100, Position: long(100, opened), RiskMultiplier: 0.7, At: at, MaxHoldDays: 5}
	if got := Evaluate(in); got != model.ActionClose {
		t.Errorf("UTC calendar: got %s, want close", got)
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	in.Location = ny
	if got := Evaluate(in); got != model.ActionClose {
		t.Errorf("exchange calendar: got %s, want close", got)
	}
	in.At = at.Add(-24 * time.Hour)
	if got := Evaluate(in); got != model.ActionNone {
		t.Errorf("day four: got %s, want none", got)
	}
}

func TestHeldDays(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	tests := []struct {
		name     string
		from, to time.Time
		loc      *time.Location
		want     int
	}{
		{"same day", day0, day0.Add(23 * time.Hour), nil, 0},
		{"crosses midnight", day0.Add(23 * time.Hour), day0.Add(25 * time.Hour), nil, 1},
		{"zone shifts both dates", day0.Add(2 * time.Hour), day0.Add(26 * time.Hour), est, 1},
		{"same local date", day0.Add(6 * time.Hour), day0.Add(28 * time.Hour), est, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeldDays(tt.from, tt.to, tt.loc); got != tt.want {
				t.Errorf("HeldDays = %d, want %d", got, tt.want)
			}
		})
	}
}
