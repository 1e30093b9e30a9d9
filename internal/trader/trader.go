package trader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"BandTrader/internal/broker"
	"BandTrader/internal/collector"
	"BandTrader/internal/config"
	"BandTrader/internal/ledger"
	"BandTrader/internal/model"
	"BandTrader/internal/notifier"
	"BandTrader/internal/position"
	"BandTrader/internal/recorder"
	"BandTrader/internal/strategy"
)

// ErrExecutionFailed wraps an order the venue did not accept. Position and
// ledger are left as they were.
var ErrExecutionFailed = errors.New("execution failed")

// Decision is the outcome of analyzing one instrument.
type Decision struct {
	Observation *collector.Observation
	Position    model.Position
	Action      model.Action
	Trade       *model.Trade
}

// CycleReport summarizes one polling cycle.
type CycleReport struct {
	MarketOpen bool
	Decisions  []Decision
	Errors     []error
}

// Trader is the live driver. It owns the position tracker and ledger for
// every configured instrument and processes instruments one at a time.
type Trader struct {
	Collector   *collector.Collector
	Broker      broker.Broker
	Recorder    recorder.Recorder
	Instruments []config.Instrument
	Mode        string
	Notify      func(string)

	mu      sync.Mutex // guards tracker against command readers
	tracker *position.Tracker
	ledger  *ledger.Ledger
}

// New creates a Trader starting with initialCapital.
func New(col *collector.Collector, b broker.Broker, rec recorder.Recorder, instruments []config.Instrument, initialCapital float64) *Trader {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Trader{
		Collector:   col,
		Broker:      b,
		Recorder:    rec,
		Instruments: instruments,
		Mode:        b.Name(),
		Notify:      func(string) {},
		tracker:     position.NewTracker(),
		ledger:      ledger.New(initialCapital),
	}
}

// RunCycle analyzes every instrument once if the market is open. Errors for
// one instrument never stop the others.
func (t *Trader) RunCycle(ctx context.Context) CycleReport {
	var report CycleReport

	open, err := t.Broker.IsOpen(ctx)
	if err != nil {
		log.Printf("[ERROR] market clock: %v", err)
		report.Errors = append(report.Errors, err)
		return report
	}
	if !open {
		log.Println("[INFO] market is closed, skipping analysis")
		return report
	}
	report.MarketOpen = true
	log.Println("[INFO] market is open")

	for _, in := range t.Instruments {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, ctx.Err())
			break
		}
		log.Printf("[INFO] analyzing %s", in.Symbol)
		d, err := t.Analyze(ctx, in)
		if err != nil {
			switch {
			case errors.Is(err, collector.ErrDataUnavailable):
				log.Printf("[WARN] %v, skipping analysis", err)
			default:
				log.Printf("[ERROR] analyze %s: %v", in.Symbol, err)
			}
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Decisions = append(report.Decisions, *d)
	}
	return report
}

// Analyze runs fetch, indicator update, evaluation and, when the evaluator
// asks for a transition, order submission for one instrument. State is
// committed only after the order is accepted.
func (t *Trader) Analyze(ctx context.Context, in config.Instrument) (*Decision, error) {
	obs, err := t.Collector.Collect(ctx, in.Symbol)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	pos := t.tracker.Position(in.Symbol)
	t.mu.Unlock()

	action := strategy.Evaluate(strategy.Input{
		Snapshot:       obs.Snapshot,
		Close:          obs.Last.Close,
		Position:       pos,
		RiskMultiplier: in.RiskMultiplier,
		At:             obs.Last.Time,
	})
	d := &Decision{Observation: obs, Position: pos, Action: action}

	log.Printf("[INFO] %s", notifier.FormatStatusLine(in.Symbol, obs.Last, obs.Snapshot, pos, action))
	if err := t.Recorder.RecordCycle(&recorder.CycleSnapshot{
		Symbol: in.Symbol, Bar: obs.Last, Snapshot: obs.Snapshot, State: pos.State, Action: action,
	}); err != nil {
		log.Printf("[ERROR] record cycle: %v", err)
	}

	if action == model.ActionNone {
		return d, nil
	}

	t.mu.Lock()
	tr, ok := t.tracker.Plan(in.Symbol, action, obs.Last.Close, obs.Last.Time)
	t.mu.Unlock()
	if !ok {
		return d, nil
	}

	ack, err := t.Broker.SubmitOrder(ctx, broker.MarketOrder(in.Symbol, tr.Side()))
	if err != nil {
		return d, fmt.Errorf("%s %s: %w: %w", in.Symbol, tr.Side(), ErrExecutionFailed, err)
	}

	t.mu.Lock()
	trade, err := t.tracker.Commit(tr)
	if err == nil {
		d.Position = t.tracker.Position(in.Symbol)
	}
	t.mu.Unlock()
	if err != nil {
		return d, fmt.Errorf("commit %s: %w", in.Symbol, err)
	}
	if err := t.ledger.Record(trade); err != nil {
		return d, fmt.Errorf("ledger %s: %w", in.Symbol, err)
	}
	d.Trade = &trade

	capital := t.ledger.Capital()
	log.Printf("[INFO] %s (order %s)", notifier.FormatTrade(trade, capital), ack.ID)
	if err := t.Recorder.RecordTrade(&recorder.TradeRecord{
		Trade: trade, OrderID: ack.ID, Capital: capital, Mode: t.Mode,
	}); err != nil {
		log.Printf("[ERROR] record trade: %v", err)
	}
	t.Notify(notifier.FormatTrade(trade, capital))
	return d, nil
}

// Summary returns the ledger summary.
func (t *Trader) Summary() ledger.Summary {
	return t.ledger.Summary()
}

// Positions returns the current position of every instrument seen so far.
func (t *Trader) Positions() []model.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracker.Positions()
}
