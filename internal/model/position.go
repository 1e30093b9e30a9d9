package model

import "time"

// PositionState is either flat or long one unit.
type PositionState string

const (
	StateFlat PositionState = "FLAT"
	StateLong PositionState = "LONG"
)

// Position is the per-instrument position. EntryPrice and OpenedAt are only
// meaningful while State is StateLong.
type Position struct {
	Instrument string
	State      PositionState
	EntryPrice float64
	OpenedAt   time.Time
}

// IsLong reports whether the position is open.
func (p Position) IsLong() bool { return p.State == StateLong }

// TradeKind is the side of a recorded trade.
type TradeKind string

const (
	TradeBuy  TradeKind = "BUY"
	TradeSell TradeKind = "SELL"
)

// Trade is an executed fill. Profit is only set on sells.
type Trade struct {
	Instrument string
	Kind       TradeKind
	Price      float64
	Time       time.Time
	Profit     *float64
}

// Transaction pairs a buy with its sell. Either side may be nil when a run
// ends with unmatched trades.
type Transaction struct {
	BuyTime       *time.Time
	BuyPrice      *float64
	SellTime      *time.Time
	SellPrice     *float64
	ReturnPercent *float64
}

// Completed reports whether both sides are present.
func (t Transaction) Completed() bool {
	return t.BuyPrice != nil && t.SellPrice != nil
}
