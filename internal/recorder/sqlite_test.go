package recorder

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"BandTrader/internal/model"
)

func TestSQLiteRecorder(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	at := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	profit := 5.0
	if err := r.RecordTrade(&TradeRecord{
		Trade:   model.Trade{Instrument: "AAPL", Kind: model.TradeSell, Price: 105, Time: at, Profit: &profit},
		OrderID: "o-1", Capital: 100005, Mode: "paper",
	}); err != nil {
		t.Fatal(err)
	}

	// not-ready snapshots carry a NaN RSI
	if err := r.RecordCycle(&CycleSnapshot{
		Symbol: "AAPL", Bar: model.Bar{Time: at, Close: 100},
		Snapshot: model.IndicatorSnapshot{RSI: math.NaN()}, State: model.StateFlat, Action: model.ActionNone,
	}); err != nil {
		t.Fatal(err)
	}

	buy, sell, ret := 100.0, 110.0, 10.0
	bt, st := at, at.AddDate(0, 0, 5)
	if err := r.RecordBacktest(&BacktestRun{
		RunID: "run-1", Symbol: "AAPL", RiskLabel: "Low Risk", RiskMultiplier: 0.95, RSIWindow: 6,
		Start: at, End: at.AddDate(0, 1, 0),
		Transactions: []model.Transaction{
			{BuyTime: &bt, BuyPrice: &buy, SellTime: &st, SellPrice: &sell, ReturnPercent: &ret},
			{BuyTime: &st, BuyPrice: &buy},
		},
		TotalProfit: 10, TotalReturnPercent: 10,
	}); err != nil {
		t.Fatal(err)
	}

	for table, want := range map[string]int{"trades": 1, "cycle_snapshots": 1, "backtest_runs": 1, "backtest_transactions": 2} {
		n, err := r.CountRows(table)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Errorf("%s: %d rows, want %d", table, n, want)
		}
	}
	if _, err := r.CountRows("sqlite_master; DROP TABLE trades"); err == nil {
		t.Error("expected unknown table error")
	}
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	run := &BacktestRun{RunID: "dup", Symbol: "AAPL"}
	if err := r.RecordBacktest(run); err != nil {
		t.Fatal(err)
	}
	buy := 1.0
	run.Transactions = []model.Transaction{{BuyPrice: &buy}}
	if err := r.RecordBacktest(run); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
	if n, _ := r.CountRows("backtest_transactions"); n != 0 {
		t.Errorf("failed run left %d transaction rows", n)
	}
}
