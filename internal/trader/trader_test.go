package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"BandTrader/internal/broker"
	"BandTrader/internal/collector"
	"BandTrader/internal/config"
	"BandTrader/internal/model"
)

var start = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

// dipCloses is 24 bars oscillating between 100 and 101 followed by a drop to
// 90, which is oversold and below the lower band with RSI window 6.
func dipCloses() []float64 {
	closes := make([]float64, 0, 25)
	for i := 0; i < 24; i++ {
		closes = append(closes, 100+float64(i%2))
	}
	return append(closes, 90)
}

func newTestTrader(closes []float64, risk float64) (*Trader, *collector.MockFetcher, *broker.PaperBroker) {
	m := &collector.MockFetcher{}
	m.SetBars("AAPL", collector.GenerateBars(start, time.Minute, closes...))
	col := collector.NewCollector(m, collector.Options{Limit: 50, Window: 20, RSIWindow: 6})
	pb := broker.NewPaperBroker()
	tr := New(col, pb, nil, []config.Instrument{{Symbol: "AAPL", RiskMultiplier: risk}}, 100000)
	return tr, m, pb
}

func TestRunCycle_OpensOnDip(t *testing.T) {
	tr, _, pb := newTestTrader(dipCloses(), 0.95)
	var notes []string
	tr.Notify = func(s string) { notes = append(notes, s) }

	report := tr.RunCycle(context.Background())
	if !report.MarketOpen || len(report.Errors) != 0 || len(report.Decisions) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	d := report.Decisions[0]
	if d.Action != model.ActionOpen || d.Trade == nil || d.Trade.Price != 90 {
		t.Fatalf("expected open at 90, got %+v", d)
	}
	if p := tr.Positions()[0]; !p.IsLong() || p.EntryPrice != 90 {
		t.Errorf("position not long at 90: %+v", p)
	}
	if orders := pb.Submitted(); len(orders) != 1 || orders[0].Side != "buy" || orders[0].Qty != 1 {
		t.Errorf("unexpected orders: %+v", orders)
	}
	if len(notes) != 1 {
		t.Errorf("expected one notification, got %d", len(notes))
	}
}

func TestRunCycle_RiskStop(t *testing.T) {
	tr, m, _ := newTestTrader(dipCloses(), 0.95)
	tr.RunCycle(context.Background())

	// 80 < 0.95 * 90
	m.SetBars("AAPL", collector.GenerateBars(start, time.Minute, append(dipCloses(), 80)...))
	report := tr.RunCycle(context.Background())
	d := report.Decisions[0]
	if d.Action != model.ActionClose || d.Trade == nil || d.Trade.Profit == nil || *d.Trade.Profit != -10 {
		t.Fatalf("expected stop-out with -10 profit, got %+v", d)
	}
	s := tr.Summary()
	if s.Capital != 100000-10 || len(s.Trades) != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestAnalyze_ExecutionFailureLeavesState(t *testing.T) {
	tr, _, pb := newTestTrader(dipCloses(), 0.95)
	pb.Fail = errors.New("insufficient buying power")

	in := tr.Instruments[0]
	_, err := tr.Analyze(context.Background(), in)
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if p := tr.Positions()[0]; p.IsLong() {
		t.Fatal("position opened despite rejected order")
	}
	if s := tr.Summary(); len(s.Trades) != 0 || s.Capital != 100000 {
		t.Fatalf("ledger changed despite rejected order: %+v", s)
	}

	// the same signal succeeds once the venue accepts orders
	pb.Fail = nil
	d, err := tr.Analyze(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if d.Trade == nil || d.Trade.Kind != model.TradeBuy {
		t.Fatalf("expected buy on retry, got %+v", d)
	}
}

func TestRunCycle_MarketClosed(t *testing.T) {
	tr, m, pb := newTestTrader(dipCloses(), 0.95)
	pb.Open = false
	report := tr.RunCycle(context.Background())
	if report.MarketOpen || len(report.Decisions) != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	if m.Calls != 0 {
		t.Errorf("fetched %d times while market closed", m.Calls)
	}
}

func TestRunCycle_DataUnavailable(t *testing.T) {
	tr, m, pb := newTestTrader(dipCloses(), 0.95)
	m.Err = errors.New("upstream timeout")
	report := tr.RunCycle(context.Background())
	if len(report.Errors) != 1 || !errors.Is(report.Errors[0], collector.ErrDataUnavailable) {
		t.Fatalf("expected data unavailable, got %+v", report.Errors)
	}
	if len(pb.Submitted()) != 0 || len(tr.Positions()) != 0 {
		t.Error("state changed on data failure")
	}
}

func TestRunCycle_Deterministic(t *testing.T) {
	closes := append(dipCloses(), 91, 92, 80, 100, 101, 100)
	run := func() []model.Action {
		tr, m, _ := newTestTrader(closes[:25], 0.95)
		var actions []model.Action
		for n := 25; n <= len(closes); n++ {
			m.SetBars("AAPL", collector.GenerateBars(start, time.Minute, closes[:n]...))
			for _, d := range tr.RunCycle(context.Background()).Decisions {
				actions = append(actions, d.Action)
			}
		}
		return actions
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("different lengths: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverge at %d: %v vs %v", i, a, b)
		}
	}
}
