package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"BandTrader/internal/broker"
	"BandTrader/internal/collector"
	"BandTrader/internal/config"
	"BandTrader/internal/trader"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.sent = append(f.sent, text)
	return f.err
}

func newScheduler(t *testing.T, n Sender) (*Scheduler, *broker.PaperBroker) {
	t.Helper()
	m := &collector.MockFetcher{}
	closes := make([]float64, 0, 25)
	for i := 0; i < 24; i++ {
		closes = append(closes, 100+float64(i%2))
	}
	closes = append(closes, 90)
	m.SetBars("AAPL", collector.GenerateBars(time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), time.Minute, closes...))

	col := collector.NewCollector(m, collector.Options{Limit: 50, Window: 20, RSIWindow: 6})
	pb := broker.NewPaperBroker()
	tr := trader.New(col, pb, nil, []config.Instrument{{Symbol: "AAPL", RiskMultiplier: 0.95}}, 100000)
	s := NewScheduler(context.Background(), tr, n)
	tr.Notify = s.Notify
	return s, pb
}

func TestRunNow_NotifiesTrades(t *testing.T) {
	fs := &fakeSender{}
	s, pb := newScheduler(t, fs)
	report := s.RunNow()
	if !report.MarketOpen || len(report.Decisions) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(pb.Submitted()) != 1 {
		t.Fatalf("expected one order, got %d", len(pb.Submitted()))
	}
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], "BUY AAPL") {
		t.Errorf("unexpected notifications %v", fs.sent)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _ := newScheduler(t, nil)
	s.RunNow()

	tests := []struct {
		cmd  string
		want string
	}{
		{"/summary", "Trades: 1"},
		{"/positions", "AAPL: LONG"},
		{" /POSITIONS ", "AAPL: LONG"},
		{"/unknown", "Available commands"},
	}
	for _, tt := range tests {
		if got := s.HandleCommand(tt.cmd); !strings.Contains(got, tt.want) {
			t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tt.cmd, got, tt.want)
		}
	}
}

func TestNotify_NilAndFailingSender(t *testing.T) {
	s, _ := newScheduler(t, nil)
	s.Notify("ignored") // must not panic

	fs := &fakeSender{err: errors.New("down")}
	s.Notifier = fs
	s.Notify("hello")
	if len(fs.sent) != 1 {
		t.Errorf("expected one attempt, got %d", len(fs.sent))
	}
}

func TestRegister(t *testing.T) {
	s, _ := newScheduler(t, nil)
	if err := s.Register("@every 1m"); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("not a schedule"); err == nil {
		t.Error("expected invalid schedule error")
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(s.Cron.Entries()))
	}
}

func TestPollTask_SkipsWhileCycleRunning(t *testing.T) {
	s, pb := newScheduler(t, nil)
	s.cycle.Lock()
	s.pollTask()
	s.cycle.Unlock()
	if len(pb.Submitted()) != 0 {
		t.Fatal("tick ran while another cycle held the lock")
	}

	s.pollTask()
	if len(pb.Submitted()) != 1 {
		t.Errorf("expected the next tick to trade, got %d orders", len(pb.Submitted()))
	}
}
