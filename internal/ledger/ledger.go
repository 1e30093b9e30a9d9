package ledger

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"BandTrader/internal/model"
)

// Ledger accumulates trades and a running capital balance.
//
// Buys do not change capital; sells add their realized profit. The cost basis
// is never debited, so Capital tracks realized profit rather than cash.
type Ledger struct {
	mu      sync.Mutex
	initial decimal.Decimal
	capital decimal.Decimal
	trades  []model.Trade
}

// Summary is a point-in-time view of a ledger.
type Summary struct {
	InitialCapital float64
	Capital        float64
	TotalProfit    float64
	Trades         []model.Trade
}

// New creates a ledger with the given starting capital.
func New(initialCapital float64) *Ledger {
	c := decimal.NewFromFloat(initialCapital)
	return &Ledger{initial: c, capital: c}
}

// RecordBuy appends a buy trade.
func (l *Ledger) RecordBuy(t model.Trade) error {
	if t.Kind != model.TradeBuy {
		return fmt.Errorf("record buy: unexpected trade kind %s", t.Kind)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, t)
	return nil
}

// RecordSell appends a sell trade and books its profit.
func (l *Ledger) RecordSell(t model.Trade) error {
	if t.Kind != model.TradeSell {
		return fmt.Errorf("record sell: unexpected trade kind %s", t.Kind)
	}
	if t.Profit == nil {
		return fmt.Errorf("record sell %s: missing profit", t.Instrument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capital = l.capital.Add(decimal.NewFromFloat(*t.Profit))
	l.trades = append(l.trades, t)
	return nil
}

// Record dispatches on the trade kind.
func (l *Ledger) Record(t model.Trade) error {
	if t.Kind == model.TradeSell {
		return l.RecordSell(t)
	}
	return l.RecordBuy(t)
}

// Capital returns the current balance.
func (l *Ledger) Capital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capital.InexactFloat64()
}

// Summary returns the balance, profit since start and a copy of all trades.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	trades := make([]model.Trade, len(l.trades))
	copy(trades, l.trades)
	return Summary{
		InitialCapital: l.initial.InexactFloat64(),
		Capital:        l.capital.InexactFloat64(),
		TotalProfit:    l.capital.Sub(l.initial).InexactFloat64(),
		Trades:         trades,
	}
}
