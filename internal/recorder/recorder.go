package recorder

import (
	"time"

	"BandTrader/internal/model"
)

// TradeRecord is one executed trade in live mode.
type TradeRecord struct {
	Trade   model.Trade
	OrderID string
	Capital float64
	Mode    string // broker name, "alpaca" or "paper"
}

// CycleSnapshot captures the indicators and decision for one instrument in one polling cycle.
type CycleSnapshot struct {
	Symbol   string
	Bar      model.Bar
	Snapshot model.IndicatorSnapshot
	State    model.PositionState
	Action   model.Action
}

// BacktestRun is a completed simulation for one instrument and risk level.
type BacktestRun struct {
	RunID              string
	Symbol             string
	RiskLabel          string
	RiskMultiplier     float64
	RSIWindow          int
	Start              time.Time
	End                time.Time
	Transactions       []model.Transaction
	TotalProfit        float64
	TotalReturnPercent float64
}

// Recorder persists an append-only audit trail for later analysis. It is
// never read back to restore trading state.
type Recorder interface {
	RecordTrade(rec *TradeRecord) error
	RecordCycle(snap *CycleSnapshot) error
	RecordBacktest(run *BacktestRun) error
	Close() error
}
