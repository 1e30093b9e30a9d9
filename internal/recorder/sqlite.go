package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			kind        TEXT NOT NULL,
			price       REAL,
			profit      REAL,
			capital     REAL,
			order_id    TEXT,
			mode        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,

		`CREATE TABLE IF NOT EXISTS cycle_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			bar_time    INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			close       REAL,
			ma20        REAL,
			stddev20    REAL,
			upper_band  REAL,
			lower_band  REAL,
			rsi         REAL,
			ready       INTEGER,
			state       TEXT,
			action      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycle_ts ON cycle_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS backtest_runs (
			run_id               TEXT PRIMARY KEY,
			timestamp            INTEGER NOT NULL,
			symbol               TEXT NOT NULL,
			risk_label           TEXT,
			risk_multiplier      REAL,
			rsi_window           INTEGER,
			start_time           INTEGER,
			end_time             INTEGER,
			total_profit         REAL,
			total_return_percent REAL
		)`,

		`CREATE TABLE IF NOT EXISTS backtest_transactions (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL REFERENCES backtest_runs(run_id),
			seq            INTEGER NOT NULL,
			buy_time       INTEGER,
			buy_price      REAL,
			sell_time      INTEGER,
			sell_price     REAL,
			return_percent REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bt_tx_run ON backtest_transactions(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil || math.IsNaN(*p) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func (r *SQLiteRecorder) RecordTrade(rec *TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := rec.Trade
	_, err := r.db.Exec(`INSERT INTO trades
		(timestamp, symbol, kind, price, profit, capital, order_id, mode)
		VALUES (?,?,?,?,?,?,?,?)`,
		t.Time.Unix(), t.Instrument, string(t.Kind), t.Price,
		nullFloat(t.Profit), rec.Capital, rec.OrderID, rec.Mode,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(snap *CycleSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := snap.Snapshot
	rsi := s.RSI
	_, err := r.db.Exec(`INSERT INTO cycle_snapshots
		(timestamp, bar_time, symbol, close, ma20, stddev20, upper_band, lower_band, rsi, ready, state, action)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), snap.Bar.Time.Unix(), snap.Symbol, snap.Bar.Close,
		s.MovingAverage, s.StdDev, s.UpperBand, s.LowerBand, nullFloat(&rsi), s.Ready,
		string(snap.State), snap.Action.String(),
	)
	return err
}

// RecordBacktest writes the run and its transactions in one transaction.
func (r *SQLiteRecorder) RecordBacktest(run *BacktestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO backtest_runs
		(run_id, timestamp, symbol, risk_label, risk_multiplier, rsi_window, start_time, end_time, total_profit, total_return_percent)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, time.Now().Unix(), run.Symbol, run.RiskLabel, run.RiskMultiplier, run.RSIWindow,
		run.Start.Unix(), run.End.Unix(), run.TotalProfit, run.TotalReturnPercent,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, t := range run.Transactions {
		if _, err := tx.Exec(`INSERT INTO backtest_transactions
			(run_id, seq, buy_time, buy_price, sell_time, sell_price, return_percent)
			VALUES (?,?,?,?,?,?,?)`,
			run.RunID, i, nullUnix(t.BuyTime), nullFloat(t.BuyPrice),
			nullUnix(t.SellTime), nullFloat(t.SellPrice), nullFloat(t.ReturnPercent),
		); err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// CountRows returns the number of rows in table. Used by tooling and tests.
func (r *SQLiteRecorder) CountRows(table string) (int, error) {
	switch table {
	case "trades", "cycle_snapshots", "backtest_runs", "backtest_transactions":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
