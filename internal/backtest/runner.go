package backtest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"BandTrader/internal/collector"
	"BandTrader/internal/config"
	"BandTrader/internal/notifier"
	"BandTrader/internal/recorder"
)

// Runner replays every ticker at every risk level, one pair at a time. Each
// pair gets its own tracker and ledger.
type Runner struct {
	Fetcher   collector.Fetcher
	Recorder  recorder.Recorder
	Interval  string
	Start     time.Time
	End       time.Time
	Params    Params // RiskLabel and RiskMultiplier are set per level
	OutputDir string // transactions CSVs and charts are written here when set
}

// Run fetches each ticker once and simulates it at every level. A ticker whose
// data cannot be fetched is logged and skipped.
func (r *Runner) Run(ctx context.Context, tickers []string, levels []config.RiskLevel) ([]*Result, error) {
	rec := r.Recorder
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if r.OutputDir != "" {
		if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	var results []*Result
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		bars, err := r.Fetcher.FetchBars(ctx, collector.BarRequest{
			Symbol: ticker, Interval: r.Interval, Start: r.Start, End: r.End,
		})
		if err != nil || len(bars) == 0 {
			log.Printf("[WARN] %s: %v (%v), skipping", ticker, collector.ErrDataUnavailable, err)
			continue
		}

		for _, level := range levels {
			log.Printf("[INFO] analyzing %s with %s (%.0f%% of buy price)", ticker, level.Name, level.Multiplier*100)
			p := r.Params
			p.RiskLabel = level.Name
			p.RiskMultiplier = level.Multiplier

			res, err := Run(ticker, bars, p)
			if err != nil {
				log.Printf("[ERROR] backtest %s/%s: %v", ticker, level.Name, err)
				continue
			}
			res.RunID = uuid.NewString()
			results = append(results, res)

			log.Printf("[INFO] %s", notifier.FormatBacktestResult(res.Symbol, res.RiskLabel, res.RiskMultiplier, res.Transactions, res.TotalProfit, res.TotalReturnPercent))

			if err := rec.RecordBacktest(&recorder.BacktestRun{
				RunID:              res.RunID,
				Symbol:             res.Symbol,
				RiskLabel:          res.RiskLabel,
				RiskMultiplier:     res.RiskMultiplier,
				RSIWindow:          res.RSIWindow,
				Start:              res.Start,
				End:                res.End,
				Transactions:       res.Transactions,
				TotalProfit:        res.TotalProfit,
				TotalReturnPercent: res.TotalReturnPercent,
			}); err != nil {
				log.Printf("[ERROR] record backtest: %v", err)
			}

			if r.OutputDir != "" {
				path := filepath.Join(r.OutputDir, outputName(res.Symbol, res.RiskLabel, "transactions.csv"))
				if err := writeCSVFile(path, res); err != nil {
					log.Printf("[ERROR] write %s: %v", path, err)
				}
				path = filepath.Join(r.OutputDir, outputName(res.Symbol, res.RiskLabel, "chart.png"))
				if err := WriteChart(path, res); err != nil {
					log.Printf("[ERROR] write %s: %v", path, err)
				}
			}
		}
	}

	if r.OutputDir != "" && len(results) > 0 {
		path := filepath.Join(r.OutputDir, "summary.json")
		if err := WriteSummaryJSON(path, results); err != nil {
			log.Printf("[ERROR] write %s: %v", path, err)
		}
	}
	return results, nil
}

func outputName(symbol, label, suffix string) string {
	label = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", "_"))
	return fmt.Sprintf("%s_%s_%s", symbol, label, suffix)
}

func writeCSVFile(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTransactionsCSV(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
