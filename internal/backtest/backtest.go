package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"BandTrader/internal/calculator"
	"BandTrader/internal/history"
	"BandTrader/internal/ledger"
	"BandTrader/internal/model"
	"BandTrader/internal/position"
	"BandTrader/internal/strategy"
)

// ErrNoBars is returned when a series has nothing to replay.
var ErrNoBars = errors.New("no bars to replay")

// Params configures one simulation.
type Params struct {
	Window         int
	RSIWindow      int
	RiskLabel      string
	RiskMultiplier float64
	MaxHoldDays    int            // 0 disables the holding-period stop
	Location       *time.Location // calendar for MaxHoldDays, UTC when nil
	InitialCapital float64
}

// Result is the outcome of replaying one instrument at one risk level.
type Result struct {
	RunID              string
	Symbol             string
	RiskLabel          string
	RiskMultiplier     float64
	RSIWindow          int
	Start              time.Time
	End                time.Time
	Trades             []model.Trade
	Transactions       []model.Transaction
	TotalProfit        float64
	TotalReturnPercent float64
	Ledger             ledger.Summary
	FinalPosition      model.Position
	Chart              []ChartPoint
}

// Run replays bars through the evaluator with a one-bar execution lag: the
// decision made on bar i-1's indicators and close is filled at bar i's open.
// The holding-period stop counts calendar days up to bar i's time.
func Run(symbol string, bars []model.Bar, p Params) (*Result, error) {
	bars = normalize(symbol, bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoBars)
	}

	snaps := calculator.Series(bars, p.Window, p.RSIWindow)
	tracker := position.NewTracker()
	book := ledger.New(p.InitialCapital)

	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		action := strategy.Evaluate(strategy.Input{
			Snapshot:       snaps[i-1],
			Close:          prev.Close,
			Position:       tracker.Position(symbol),
			RiskMultiplier: p.RiskMultiplier,
			At:             cur.Time,
			MaxHoldDays:    p.MaxHoldDays,
			Location:       p.Location,
		})
		trade, ok := tracker.Apply(symbol, action, cur.Open, cur.Time)
		if !ok {
			continue
		}
		if err := book.Record(trade); err != nil {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
	}

	summary := book.Summary()
	returns := ledger.ComputeReturns(ledger.BuildTransactions(summary.Trades))
	return &Result{
		Symbol:             symbol,
		RiskLabel:          p.RiskLabel,
		RiskMultiplier:     p.RiskMultiplier,
		RSIWindow:          p.RSIWindow,
		Start:              bars[0].Time,
		End:                bars[len(bars)-1].Time,
		Trades:             summary.Trades,
		Transactions:       returns.Transactions,
		TotalProfit:        returns.TotalProfit,
		TotalReturnPercent: returns.TotalReturnPercent,
		Ledger:             summary,
		FinalPosition:      tracker.Position(symbol),
		Chart:              chartPoints(bars, snaps),
	}, nil
}

// normalize sorts bars and drops duplicate timestamps.
func normalize(symbol string, bars []model.Bar) []model.Bar {
	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	h := history.New(symbol, 0)
	h.AppendAll(sorted)
	return h.Bars()
}

// Totals aggregates results per risk level, in the order levels first appear.
func Totals(results []*Result) []string {
	type agg struct {
		profit decimal.Decimal
		ret    decimal.Decimal
		runs   int64
	}
	var order []string
	byLevel := make(map[string]*agg)
	for _, r := range results {
		a, ok := byLevel[r.RiskLabel]
		if !ok {
			a = &agg{}
			byLevel[r.RiskLabel] = a
			order = append(order, r.RiskLabel)
		}
		a.profit = a.profit.Add(decimal.NewFromFloat(r.TotalProfit))
		a.ret = a.ret.Add(decimal.NewFromFloat(r.TotalReturnPercent))
		a.runs++
	}

	lines := make([]string, 0, len(order))
	for _, label := range order {
		a := byLevel[label]
		avg := a.ret.Div(decimal.NewFromInt(a.runs))
		lines = append(lines, fmt.Sprintf("%s: %d instruments, total profit %s, average return %s%%",
			label, a.runs, a.profit.StringFixed(2), avg.StringFixed(2)))
	}
	return lines
}
